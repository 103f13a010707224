/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jobs

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

//go:generate mockgen -source=poller.go -destination=mock/interfaces.go -package=mock

// StatusChecker asks the control plane for the current state of a job.
// Errors are transport or protocol failures, never "not finished yet".
type StatusChecker interface {
	JobStatus(ctx context.Context, id ID) (Status, error)
}

// StatusCheckerFunc allows a plain function to act as a StatusChecker.
type StatusCheckerFunc func(ctx context.Context, id ID) (Status, error)

func (f StatusCheckerFunc) JobStatus(ctx context.Context, id ID) (Status, error) {
	return f(ctx, id)
}

// Option modifies a poller at construction time.
type Option func(*Poller)

// WithClock replaces the wall clock used to wait between checks.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithFailFast ends the poll as soon as a job is seen to fail.  Without
// it a failed status is treated like a pending one and retried until the
// budget runs out, as only an explicit success counts.
func WithFailFast() Option {
	return func(p *Poller) {
		p.failFast = true
	}
}

// WithRetryOnFailure restores the default of retrying failed jobs.
func WithRetryOnFailure() Option {
	return func(p *Poller) {
		p.failFast = false
	}
}

// Poller waits for asynchronous jobs to complete.  It holds no state
// across calls, so a single poller may be used for many jobs concurrently.
type Poller struct {
	checker  StatusChecker
	clock    clock.Clock
	failFast bool
}

// NewPoller returns a poller that uses the given collaborator for checks.
func NewPoller(checker StatusChecker, options ...Option) *Poller {
	p := &Poller{
		checker: checker,
		clock:   clock.RealClock{},
	}

	for _, o := range options {
		o(p)
	}

	return p
}

// WaitForCompletion returns true if the job is observed to succeed within
// maxAttempts checks spaced by interval, and false if the budget runs out.
// Collaborator and context errors are returned as is.
func (p *Poller) WaitForCompletion(ctx context.Context, id ID, maxAttempts int, interval time.Duration) (bool, error) {
	outcome, err := p.Poll(ctx, id, Budget{MaxAttempts: maxAttempts, Interval: interval})
	if err != nil {
		return false, err
	}

	return outcome.Succeeded(), nil
}

// Poll checks the job until it reaches a terminal decision or the budget
// is exhausted.  The context is observed before every check and while
// waiting, and no check is made once it's done.
func (p *Poller) Poll(ctx context.Context, id ID, budget Budget) (Outcome, error) {
	if err := budget.Validate(); err != nil {
		return Outcome{}, err
	}

	log := log.FromContext(ctx).WithValues("job", id)

	var outcome Outcome

	for outcome.Attempts < budget.MaxAttempts {
		if outcome.Attempts > 0 {
			if err := p.wait(ctx, budget.Interval); err != nil {
				return outcome, err
			}
		}

		// A wait may end on the timer even though the context is done.
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		status, err := p.checker.JobStatus(ctx, id)

		outcome.Attempts++

		if err != nil {
			log.V(1).Info("job status check failed", "attempt", outcome.Attempts, "error", err)

			return outcome, err
		}

		outcome.Status = status

		log.V(1).Info("checked job status", "attempt", outcome.Attempts, "maxAttempts", budget.MaxAttempts, "status", status)

		if status == StatusSucceeded || (p.failFast && status == StatusFailed) {
			return outcome, nil
		}
	}

	outcome.TimedOut = true

	return outcome, nil
}

// wait blocks for the interval without spinning.
func (p *Poller) wait(ctx context.Context, interval time.Duration) error {
	if interval == 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(interval):
		return nil
	}
}
