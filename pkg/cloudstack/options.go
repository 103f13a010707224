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
	"net/url"
	"os"
	"time"

	"github.com/spf13/pflag"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	defaultRequestTimeout = 30 * time.Second
)

// Options allows the API endpoint and credentials to be set.
type Options struct {
	// Endpoint is the full API URL e.g. https://cloud.example.com/client/api.
	Endpoint string
	// APIKey identifies the caller.
	APIKey string
	// SecretKey signs every request and is never sent on the wire.
	SecretKey string
	// RequestTimeout bounds a single HTTP round trip.
	RequestTimeout time.Duration
}

// NewOptions returns options defaulted from the environment.
func NewOptions() *Options {
	return &Options{
		Endpoint:       os.Getenv("CLOUDSTACK_ENDPOINT"),
		APIKey:         os.Getenv("CLOUDSTACK_API_KEY"),
		SecretKey:      os.Getenv("CLOUDSTACK_SECRET_KEY"),
		RequestTimeout: defaultRequestTimeout,
	}
}

func (o *Options) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.Endpoint, "cloudstack-endpoint", o.Endpoint, "CloudStack API endpoint URL.")
	f.StringVar(&o.APIKey, "cloudstack-api-key", o.APIKey, "CloudStack API key.")
	f.StringVar(&o.SecretKey, "cloudstack-secret-key", o.SecretKey, "CloudStack secret key used to sign requests.")
	f.DurationVar(&o.RequestTimeout, "cloudstack-request-timeout", o.RequestTimeout, "Timeout for a single API request.")
}

// Validate reports every problem with the options at once.
func (o *Options) Validate() error {
	var errs []error

	if o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("%w: endpoint must be set", ErrConfiguration))
	} else if u, err := url.Parse(o.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: endpoint %q is not an absolute URL", ErrConfiguration, o.Endpoint))
	}

	if o.APIKey == "" {
		errs = append(errs, fmt.Errorf("%w: api key must be set", ErrConfiguration))
	}

	if o.SecretKey == "" {
		errs = append(errs, fmt.Errorf("%w: secret key must be set", ErrConfiguration))
	}

	if o.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: request timeout must be positive", ErrConfiguration))
	}

	return utilerrors.NewAggregate(errs)
}
