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
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess            = "success"
	outcomeAPIError           = "api_error"
	outcomeTransportError     = "transport_error"
	// A successful HTTP exchange whose body could not be decoded.
	outcomeUnexpectedResponse = "unexpected_response"
)

// Metrics records API request counts and latencies by command.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the client's collectors.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudstack",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cloudstack",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency by command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("registering cloudstack metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observe(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(duration.Seconds())
}
