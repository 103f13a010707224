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

package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"

	"github.com/unikorn-cloud/cloudstack/pkg/addressing"
	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
)

// loggingTransport records each round trip against the trace ID the
// client attached to it.
type loggingTransport struct {
	next   http.RoundTripper
	config *TestConfig
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	traceParent := req.Header.Get("Traceparent")
	command := req.URL.Query().Get("command")

	if t.config.LogRequests {
		ginkgo.GinkgoWriter.Printf("[%s %s] REQUEST traceparent=%s\n", req.Method, command, traceParent)
	}

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		ginkgo.GinkgoWriter.Printf("[%s %s] ERROR duration=%s traceparent=%s error=%v\n", req.Method, command, duration, traceParent, err)
		logTraceContext(traceParent)

		return nil, err
	}

	if resp.StatusCode != http.StatusOK || t.config.LogResponses {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			return nil, readErr
		}

		resp.Body = io.NopCloser(bytes.NewReader(body))

		ginkgo.GinkgoWriter.Printf("[%s %s] RESPONSE status=%d duration=%s traceparent=%s body=%s\n", req.Method, command, resp.StatusCode, duration, traceParent, body)

		if resp.StatusCode != http.StatusOK {
			logTraceContext(traceParent)
		}
	}

	return resp, nil
}

// logTraceContext logs the trace context information.
func logTraceContext(traceParent string) {
	ginkgo.GinkgoWriter.Printf("TRACE CONTEXT: Use trace ID '%s' to search logs for this request\n", extractTraceID(traceParent))
}

// extractTraceID extracts the trace ID from a traceparent header value.
func extractTraceID(traceParent string) string {
	parts := strings.Split(traceParent, "-")
	if len(parts) >= 2 {
		return parts[1]
	}

	return traceParent
}

// NewClient returns an API client that logs through Ginkgo.
func NewClient(config *TestConfig) (*cloudstack.Client, error) {
	options := &cloudstack.Options{
		Endpoint:       config.Endpoint,
		APIKey:         config.APIKey,
		SecretKey:      config.SecretKey,
		RequestTimeout: config.RequestTimeout,
	}

	httpClient := &http.Client{
		Timeout: config.RequestTimeout,
		Transport: &loggingTransport{
			next:   http.DefaultTransport,
			config: config,
		},
	}

	client, err := cloudstack.New(options, cloudstack.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}

// Budget is the job poll budget for the run.
func (c *TestConfig) Budget() jobs.Budget {
	return jobs.Budget{
		MaxAttempts: c.MaxAttempts,
		Interval:    c.PollInterval,
	}
}

// NewAllocator returns an allocator honouring the configured budget and zone.
func NewAllocator(client *cloudstack.Client, config *TestConfig) *addressing.Allocator {
	return addressing.New(client, addressing.WithBudget(config.Budget()), addressing.WithZone(config.ZoneID))
}
