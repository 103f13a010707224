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

package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
	"github.com/unikorn-cloud/cloudstack/pkg/jobs/mock"

	"k8s.io/utils/clock"
	testingclock "k8s.io/utils/clock/testing"
)

const (
	jobID = jobs.ID("6a2e4c1f-8d4b-4f0e-9d0a-3b7c5e1f2a90")

	interval = 5 * time.Second
)

var errNetwork = errors.New("connection reset by peer")

// expectSequence programs the mock to return the statuses in order.
func expectSequence(checker *mock.MockStatusChecker, statuses ...jobs.Status) {
	calls := make([]any, len(statuses))

	for i, status := range statuses {
		calls[i] = checker.EXPECT().JobStatus(gomock.Any(), jobID).Return(status, nil)
	}

	gomock.InOrder(calls...)
}

type pollResult struct {
	outcome jobs.Outcome
	err     error
}

// pollWithClock runs a poll in the background, stepping the fake clock
// whenever the poller is waiting, and reports the number of waits.
func pollWithClock(t *testing.T, ctx context.Context, poller *jobs.Poller, clock *testingclock.FakeClock, budget jobs.Budget) (pollResult, int) {
	t.Helper()

	done := make(chan pollResult, 1)

	go func() {
		outcome, err := poller.Poll(ctx, jobID, budget)
		done <- pollResult{outcome: outcome, err: err}
	}()

	var waits int

	deadline := time.After(10 * time.Second)

	for {
		select {
		case result := <-done:
			return result, waits
		case <-deadline:
			t.Fatal("poll did not finish")
		default:
		}

		if clock.HasWaiters() {
			clock.Step(budget.Interval)

			waits++

			continue
		}

		time.Sleep(time.Millisecond)
	}
}

// TestSucceedsFirstCheck ensures an immediate success costs one check and no wait.
func TestSucceedsFirstCheck(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	checker.EXPECT().JobStatus(gomock.Any(), jobID).Return(jobs.StatusSucceeded, nil).Times(1)

	clock := testingclock.NewFakeClock(time.Now())

	result, waits := pollWithClock(t, t.Context(), jobs.NewPoller(checker, jobs.WithClock(clock)), clock, jobs.Budget{MaxAttempts: 10, Interval: interval})
	require.NoError(t, result.err)
	require.True(t, result.outcome.Succeeded())
	require.Equal(t, 1, result.outcome.Attempts)
	require.Zero(t, waits)
}

// TestAlwaysPendingExhaustsBudget ensures N pending checks give false with N-1 waits.
func TestAlwaysPendingExhaustsBudget(t *testing.T) {
	t.Parallel()

	for _, attempts := range []int{1, 2, 5} {
		var calls atomic.Int32

		checker := jobs.StatusCheckerFunc(func(_ context.Context, _ jobs.ID) (jobs.Status, error) {
			calls.Add(1)

			return jobs.StatusPending, nil
		})

		clock := testingclock.NewFakeClock(time.Now())

		result, waits := pollWithClock(t, t.Context(), jobs.NewPoller(checker, jobs.WithClock(clock)), clock, jobs.Budget{MaxAttempts: attempts, Interval: interval})
		require.NoError(t, result.err)
		require.False(t, result.outcome.Succeeded())
		require.True(t, result.outcome.TimedOut)
		require.Equal(t, attempts, result.outcome.Attempts)
		require.Equal(t, int32(attempts), calls.Load())
		require.Equal(t, attempts-1, waits)
	}
}

// TestSucceedsOnThirdCheck covers a job that completes after two pending checks.
func TestSucceedsOnThirdCheck(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	expectSequence(checker, jobs.StatusPending, jobs.StatusPending, jobs.StatusSucceeded)

	ok, err := jobs.NewPoller(checker).WaitForCompletion(t.Context(), jobID, 3, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

// TestPendingTwiceTimesOut covers a job that is still pending when the budget ends.
func TestPendingTwiceTimesOut(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	expectSequence(checker, jobs.StatusPending, jobs.StatusPending)

	ok, err := jobs.NewPoller(checker).WaitForCompletion(t.Context(), jobID, 2, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestCollaboratorErrorPropagates ensures transport errors are not retried.
func TestCollaboratorErrorPropagates(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	checker.EXPECT().JobStatus(gomock.Any(), jobID).Return(jobs.StatusPending, errNetwork).Times(1)

	outcome, err := jobs.NewPoller(checker).Poll(t.Context(), jobID, jobs.Budget{MaxAttempts: 5})
	require.ErrorIs(t, err, errNetwork)
	require.Equal(t, 1, outcome.Attempts)
	require.False(t, outcome.TimedOut)
}

// TestCollaboratorErrorAfterPending ensures a later failure also stops the poll.
func TestCollaboratorErrorAfterPending(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	gomock.InOrder(
		checker.EXPECT().JobStatus(gomock.Any(), jobID).Return(jobs.StatusPending, nil),
		checker.EXPECT().JobStatus(gomock.Any(), jobID).Return(jobs.StatusPending, errNetwork),
	)

	ok, err := jobs.NewPoller(checker).WaitForCompletion(t.Context(), jobID, 5, 0)
	require.ErrorIs(t, err, errNetwork)
	require.False(t, ok)
}

// TestFailedIsRetriedByDefault ensures only an explicit success counts.
func TestFailedIsRetriedByDefault(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	expectSequence(checker, jobs.StatusFailed, jobs.StatusFailed, jobs.StatusSucceeded)

	outcome, err := jobs.NewPoller(checker).Poll(t.Context(), jobID, jobs.Budget{MaxAttempts: 3})
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())
	require.Equal(t, 3, outcome.Attempts)
}

// TestFailFastStopsOnFailure ensures the stricter policy ends on the first failure.
func TestFailFastStopsOnFailure(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	expectSequence(checker, jobs.StatusPending, jobs.StatusFailed)

	outcome, err := jobs.NewPoller(checker, jobs.WithFailFast()).Poll(t.Context(), jobID, jobs.Budget{MaxAttempts: 10})
	require.NoError(t, err)
	require.False(t, outcome.Succeeded())
	require.False(t, outcome.TimedOut)
	require.True(t, outcome.Completed())
	require.Equal(t, jobs.StatusFailed, outcome.Status)
	require.Equal(t, 2, outcome.Attempts)
}

// TestStateless ensures repeated polls of an exhausted job behave identically.
func TestStateless(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)
	checker.EXPECT().JobStatus(gomock.Any(), jobID).Return(jobs.StatusPending, nil).Times(6)

	poller := jobs.NewPoller(checker)

	for range 2 {
		outcome, err := poller.Poll(t.Context(), jobID, jobs.Budget{MaxAttempts: 3})
		require.NoError(t, err)
		require.Equal(t, jobs.Outcome{Status: jobs.StatusPending, TimedOut: true, Attempts: 3}, outcome)
	}
}

// TestCancelledBeforeFirstCheck ensures no checks are made with a dead context.
func TestCancelledBeforeFirstCheck(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	checker := mock.NewMockStatusChecker(c)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	outcome, err := jobs.NewPoller(checker).Poll(ctx, jobID, jobs.Budget{MaxAttempts: 3})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, outcome.Attempts)
}

// TestCancelledWhileWaiting ensures cancellation interrupts the wait and
// no further checks are made.
func TestCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	checker := jobs.StatusCheckerFunc(func(_ context.Context, _ jobs.ID) (jobs.Status, error) {
		calls.Add(1)

		return jobs.StatusPending, nil
	})

	clock := testingclock.NewFakeClock(time.Now())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan pollResult, 1)

	go func() {
		outcome, err := jobs.NewPoller(checker, jobs.WithClock(clock)).Poll(ctx, jobID, jobs.Budget{MaxAttempts: 10, Interval: time.Hour})
		done <- pollResult{outcome: outcome, err: err}
	}()

	require.Eventually(t, clock.HasWaiters, 10*time.Second, time.Millisecond)

	cancel()

	result := <-done
	require.ErrorIs(t, result.err, context.Canceled)
	require.Equal(t, 1, result.outcome.Attempts)
	require.Equal(t, int32(1), calls.Load())
}

// firedClock is a clock whose timers have always already expired.
type firedClock struct {
	clock.RealClock
}

func (firedClock) After(_ time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	c <- time.Now()

	return c
}

// TestNoCheckAfterCancellation ensures a wait that ends on its timer after
// the context is done does not lead to another check.  The wait selects
// between two ready channels, so it's repeated to cover both choices.
func TestNoCheckAfterCancellation(t *testing.T) {
	t.Parallel()

	for range 100 {
		ctx, cancel := context.WithCancel(t.Context())

		var calls atomic.Int32

		checker := jobs.StatusCheckerFunc(func(_ context.Context, _ jobs.ID) (jobs.Status, error) {
			calls.Add(1)
			cancel()

			return jobs.StatusPending, nil
		})

		outcome, err := jobs.NewPoller(checker, jobs.WithClock(firedClock{})).Poll(ctx, jobID, jobs.Budget{MaxAttempts: 5, Interval: time.Second})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, outcome.Attempts)
		require.Equal(t, int32(1), calls.Load())

		cancel()
	}
}

// TestInvalidBudget ensures nonsensical budgets are rejected without checks.
func TestInvalidBudget(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()

	poller := jobs.NewPoller(mock.NewMockStatusChecker(c))

	_, err := poller.WaitForCompletion(t.Context(), jobID, 0, interval)
	require.ErrorIs(t, err, jobs.ErrInvalidBudget)

	_, err = poller.WaitForCompletion(t.Context(), jobID, 1, -interval)
	require.ErrorIs(t, err, jobs.ErrInvalidBudget)
}
