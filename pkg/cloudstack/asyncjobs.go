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
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
)

const (
	CommandQueryAsyncJobResult = "queryAsyncJobResult"

	// ResultKeyIPAddress is where associateIpAddress jobs put the address.
	ResultKeyIPAddress = "ipaddress"
)

// Ensure the client can drive a poller.
var _ jobs.StatusChecker = &Client{}

// QueryAsyncJobResult returns the current state of a job.
func (c *Client) QueryAsyncJobResult(ctx context.Context, id jobs.ID) (*AsyncJob, error) {
	params := url.Values{}
	params.Set("jobid", id.String())

	var result AsyncJob

	if err := c.do(ctx, CommandQueryAsyncJobResult, params, &result); err != nil {
		return nil, err
	}

	if result.JobID == "" {
		result.JobID = id
	}

	return &result, nil
}

// JobStatus implements jobs.StatusChecker.  An unrecognised status code is
// a protocol error, not a pending job.
func (c *Client) JobStatus(ctx context.Context, id jobs.ID) (jobs.Status, error) {
	job, err := c.QueryAsyncJobResult(ctx, id)
	if err != nil {
		return jobs.StatusPending, err
	}

	status, err := job.JobStatus()
	if err != nil {
		return jobs.StatusPending, fmt.Errorf("%w: job %s: %w", ErrUnexpectedResponse, id, err)
	}

	return status, nil
}

// DecodeJobResult extracts a typed object from a completed job.  Jobs that
// succeed wrap their result in an object keyed by the resource type e.g.
// {"ipaddress": {...}}, an empty key decodes the whole result.  A failed
// job yields a *JobError.
func DecodeJobResult[T any](job *AsyncJob, key string) (*T, error) {
	status, err := job.JobStatus()
	if err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", ErrUnexpectedResponse, job.JobID, err)
	}

	//nolint:exhaustive
	switch status {
	case jobs.StatusPending:
		return nil, fmt.Errorf("%w: %s", ErrJobPending, job.JobID)
	case jobs.StatusFailed:
		jobErr := &JobError{}

		if len(job.Result) > 0 {
			if err := json.Unmarshal(job.Result, jobErr); err != nil {
				return nil, fmt.Errorf("%w: job %s error: %w", ErrUnexpectedResponse, job.JobID, err)
			}
		}

		jobErr.JobID = job.JobID

		return nil, jobErr
	}

	payload := job.Result

	if key != "" {
		var wrapper map[string]json.RawMessage

		if err := json.Unmarshal(job.Result, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: job %s result: %w", ErrUnexpectedResponse, job.JobID, err)
		}

		var ok bool

		if payload, ok = wrapper[key]; !ok {
			return nil, fmt.Errorf("%w: job %s result has no %q", ErrUnexpectedResponse, job.JobID, key)
		}
	}

	var result T

	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: job %s result: %w", ErrUnexpectedResponse, job.JobID, err)
	}

	return &result, nil
}

// GetAsyncJobResult fetches a job and decodes its result.
func GetAsyncJobResult[T any](ctx context.Context, c *Client, id jobs.ID, key string) (*T, error) {
	job, err := c.QueryAsyncJobResult(ctx, id)
	if err != nil {
		return nil, err
	}

	return DecodeJobResult[T](job, key)
}
