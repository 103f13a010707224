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
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unikorn-cloud/cloudstack/pkg/constants"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

const maxResponseBodySize = 8 << 20

// ClientOption modifies a client at construction time.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client, the request timeout
// option is then the caller's responsibility.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithMetrics records request metrics.
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// Client talks to the command style API.  It's safe for concurrent use.
type Client struct {
	endpoint  string
	apiKey    string
	secretKey string
	client    *http.Client
	metrics   *Metrics
}

// New returns a new client.
func New(options *Options, clientOptions ...ClientOption) (*Client, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:  options.Endpoint,
		apiKey:    options.APIKey,
		secretKey: options.SecretKey,
		client: &http.Client{
			Timeout: options.RequestTimeout,
		},
	}

	for _, o := range clientOptions {
		o(c)
	}

	return c, nil
}

// createTraceParent creates a W3C traceparent header value so a failed
// request can be found in the control plane's logs.
func createTraceParent() (string, string) {
	traceID := strings.ReplaceAll(uuid.NewString(), "-", "")
	spanID := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	return fmt.Sprintf("00-%s-%s-01", traceID, spanID), traceID
}

// signedURL builds the request URL with authentication parameters.
func (c *Client) signedURL(command string, params url.Values) string {
	signed := url.Values{}

	for key, values := range params {
		for _, value := range values {
			if value != "" {
				signed.Add(key, value)
			}
		}
	}

	signed.Set("command", command)
	signed.Set("response", "json")
	signed.Set("apiKey", c.apiKey)

	query := CanonicalQuery(signed)

	return c.endpoint + "?" + query + "&signature=" + escape(Sign(query, c.secretKey))
}

// do executes a command and decodes the body of its response envelope
// into out, which may be nil.
//
//nolint:cyclop
func (c *Client) do(ctx context.Context, command string, params url.Values, out any) error {
	log := log.FromContext(ctx).WithValues("command", command)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.signedURL(command, params), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	traceParent, traceID := createTraceParent()

	req.Header.Set("Traceparent", traceParent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.UserAgent())

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.metrics.observe(command, outcomeTransportError, duration)
		log.Error(err, "request failed", "duration", duration, "traceID", traceID)

		return fmt.Errorf("%w: %s: %w", ErrTransport, command, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		c.metrics.observe(command, outcomeTransportError, duration)
		log.Error(err, "reading response body failed", "status", resp.StatusCode, "traceID", traceID)

		return fmt.Errorf("%w: %s: reading response body: %w", ErrTransport, command, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.observe(command, outcomeAPIError, duration)

		apiErr := decodeAPIError(command, resp.StatusCode, body)

		log.Info("request rejected", "status", resp.StatusCode, "error", apiErr.ErrorText, "traceID", traceID)

		return apiErr
	}

	if err := decodePayload(command, body, out); err != nil {
		c.metrics.observe(command, outcomeUnexpectedResponse, duration)
		log.Info("response not understood", "error", err, "traceID", traceID)

		return err
	}

	c.metrics.observe(command, outcomeSuccess, duration)

	log.V(1).Info("request complete", "duration", duration, "traceID", traceID)

	return nil
}

// decodePayload unwraps a successful response into out, which may be nil.
func decodePayload(command string, body []byte, out any) error {
	payload, err := unwrapEnvelope(command, body)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnexpectedResponse, command, err)
	}

	return nil
}

// unwrapEnvelope returns the payload from the {"<command>response": {...}}
// wrapper every response is delivered in.
func unwrapEnvelope(command string, body []byte) (json.RawMessage, error) {
	var envelope map[string]json.RawMessage

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnexpectedResponse, command, err)
	}

	payload, ok := envelope[strings.ToLower(command)+"response"]
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing response envelope", ErrUnexpectedResponse, command)
	}

	return payload, nil
}

// decodeAPIError extracts what it can from an error response, falling
// back to the raw body when it isn't the documented shape.
func decodeAPIError(command string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Command:    command,
		StatusCode: statusCode,
	}

	payload, err := unwrapEnvelope(command, body)
	if err == nil {
		err = json.Unmarshal(payload, apiErr)
	}

	if err != nil || apiErr.ErrorText == "" {
		apiErr.ErrorText = strings.TrimSpace(string(body))
	}

	return apiErr
}
