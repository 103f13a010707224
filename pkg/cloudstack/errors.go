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

package cloudstack

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
)

var (
	// ErrConfiguration is raised when client options are unusable.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrTransport is raised when a request never got an HTTP response.
	ErrTransport = errors.New("cloudstack request failed")

	// ErrUnexpectedResponse is raised when a response cannot be understood.
	ErrUnexpectedResponse = errors.New("unexpected cloudstack response")

	// ErrNotFound is raised when a lookup by ID matches nothing.
	ErrNotFound = errors.New("resource not found")

	// ErrJobPending is raised when a result is requested from an unfinished job.
	ErrJobPending = errors.New("job has not completed")
)

// APIError is an error reported by the control plane itself.
type APIError struct {
	// Command is the API command that was rejected.
	Command string `json:"-"`
	// StatusCode is the HTTP status.
	StatusCode int `json:"-"`
	// ErrorCode is the API error code, usually mirroring the HTTP status.
	ErrorCode int `json:"errorcode"`
	// CSErrorCode is the control plane's internal exception code.
	CSErrorCode int `json:"cserrorcode"`
	// ErrorText is the human readable reason.
	ErrorText string `json:"errortext"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status=%d, errorcode=%d)", e.Command, e.ErrorText, e.StatusCode, e.ErrorCode)
}

// AsAPIError attempts to unwrap an error into an APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsNotFound reports whether the error means the resource doesn't exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}

	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.ErrorCode == http.StatusNotFound
	}

	return false
}

// JobError is the error payload of a job that completed with a failure.
type JobError struct {
	JobID     jobs.ID `json:"-"`
	ErrorCode int     `json:"errorcode"`
	ErrorText string  `json:"errortext"`
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed: %s (errorcode=%d)", e.JobID, e.ErrorText, e.ErrorCode)
}
