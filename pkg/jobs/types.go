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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownStatus is raised when the control plane reports a job
	// status code we don't understand.
	ErrUnknownStatus = errors.New("unknown job status")

	// ErrInvalidBudget is raised when a poll budget cannot be honoured.
	ErrInvalidBudget = errors.New("invalid poll budget")

	// ErrInvalidID is raised when a job ID is neither a string nor a number.
	ErrInvalidID = errors.New("invalid job ID")
)

// ID is an opaque handle naming an asynchronous job on the control plane.
// Older control planes issue numeric IDs, newer ones UUIDs, so both JSON
// forms are accepted.
type ID string

func (i *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string

		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*i = ID(s)

		return nil
	}

	var n json.Number

	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, string(data))
	}

	*i = ID(n.String())

	return nil
}

func (i ID) String() string {
	return string(i)
}

// Status is the state of a job as reported by a single status check.
// The values line up with the control plane's jobstatus codes.
type Status int

const (
	// StatusPending means the job is still running.
	StatusPending Status = iota
	// StatusSucceeded means the job finished and its result is available.
	StatusSucceeded
	// StatusFailed means the job finished with an error.
	StatusFailed
)

// ParseStatus converts a wire jobstatus code into a Status.
func ParseStatus(code int) (Status, error) {
	switch s := Status(code); s {
	case StatusPending, StatusSucceeded, StatusFailed:
		return s, nil
	}

	return StatusPending, fmt.Errorf("%w: %d", ErrUnknownStatus, code)
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}

	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether no further state change can occur.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Budget bounds a poll sequence.
type Budget struct {
	// MaxAttempts is the number of status checks allowed, at least 1.
	MaxAttempts int
	// Interval is the wait between consecutive checks.
	Interval time.Duration
}

// Validate checks the budget can be honoured.
func (b Budget) Validate() error {
	if b.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts %d must be at least 1", ErrInvalidBudget, b.MaxAttempts)
	}

	if b.Interval < 0 {
		return fmt.Errorf("%w: interval %s must not be negative", ErrInvalidBudget, b.Interval)
	}

	return nil
}

// Timeout is the longest a poll with this budget will wait between checks
// in total, ignoring the time spent in the checks themselves.
func (b Budget) Timeout() time.Duration {
	if b.MaxAttempts < 2 {
		return 0
	}

	return time.Duration(b.MaxAttempts-1) * b.Interval
}

// Outcome is the result of a full poll sequence.  Either the job was
// observed in a terminal state, or the budget ran out first.
type Outcome struct {
	// Status is the last status observed.
	Status Status
	// TimedOut is set when the budget was exhausted without the poll
	// reaching a terminal decision.
	TimedOut bool
	// Attempts is the number of status checks performed.
	Attempts int
}

// Completed reports whether the poll ended on a terminal status.
func (o Outcome) Completed() bool {
	return !o.TimedOut && o.Status.Terminal()
}

// Succeeded reports whether the job was observed to succeed.
func (o Outcome) Succeeded() bool {
	return !o.TimedOut && o.Status == StatusSucceeded
}
