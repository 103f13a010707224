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

//go:generate mockgen -source=allocator.go -destination=mock/interfaces.go -package=mock

package addressing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
	"github.com/unikorn-cloud/cloudstack/pkg/jobs"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

var (
	// ErrNoNetwork is raised when no network can host a public IP.
	ErrNoNetwork = errors.New("no network supports static NAT")

	// ErrTimeout is raised when a job doesn't finish within the budget.
	ErrTimeout = errors.New("job did not complete in time")

	// ErrZoneMismatch is raised when an address lands in the wrong zone.
	ErrZoneMismatch = errors.New("address allocated in unexpected zone")

	// ErrInvalidAddress is raised when an address record is incomplete.
	ErrInvalidAddress = errors.New("invalid address record")

	// ErrReleaseFailed is raised when a release job reports no success.
	ErrReleaseFailed = errors.New("address release unsuccessful")
)

// DefaultBudget allows ten minutes at five second intervals.
//
//nolint:gochecknoglobals
var DefaultBudget = jobs.Budget{
	MaxAttempts: 121,
	Interval:    5 * time.Second,
}

// Client is the subset of the API needed to manage addresses.
type Client interface {
	jobs.StatusChecker

	ListNetworks(ctx context.Context, options cloudstack.ListNetworksOptions) ([]cloudstack.Network, error)
	AssociateIPAddress(ctx context.Context, options cloudstack.AssociateIPAddressOptions) (*cloudstack.AsyncCreateResponse, error)
	DisassociateIPAddress(ctx context.Context, id string) (*cloudstack.AsyncCreateResponse, error)
	QueryAsyncJobResult(ctx context.Context, id jobs.ID) (*cloudstack.AsyncJob, error)
}

// Ensure the API client can be used.
var _ Client = &cloudstack.Client{}

// Option modifies an allocator at construction time.
type Option func(*Allocator)

// WithBudget overrides the default poll budget.
func WithBudget(budget jobs.Budget) Option {
	return func(a *Allocator) {
		a.budget = budget
	}
}

// WithZone restricts the network search done by Allocate to a zone.
func WithZone(zoneID string) Option {
	return func(a *Allocator) {
		a.zoneID = zoneID
	}
}

// WithPollerOptions passes options on to the job poller.
func WithPollerOptions(options ...jobs.Option) Option {
	return func(a *Allocator) {
		a.pollerOptions = append(a.pollerOptions, options...)
	}
}

// Allocator acquires and releases public IP addresses, waiting for the
// jobs that do the work to complete.  A failed allocation cannot recover
// so jobs are polled fail fast.
type Allocator struct {
	client        Client
	poller        *jobs.Poller
	budget        jobs.Budget
	zoneID        string
	pollerOptions []jobs.Option
}

// New returns a new allocator.
func New(client Client, options ...Option) *Allocator {
	a := &Allocator{
		client:        client,
		budget:        DefaultBudget,
		pollerOptions: []jobs.Option{jobs.WithFailFast()},
	}

	for _, o := range options {
		o(a)
	}

	a.poller = jobs.NewPoller(client, a.pollerOptions...)

	return a
}

// Allocate finds a network that supports static NAT, in the configured zone
// if any, and allocates a public IP address in it.
func (a *Allocator) Allocate(ctx context.Context) (*cloudstack.PublicIPAddress, error) {
	networks, err := a.client.ListNetworks(ctx, cloudstack.ListNetworksOptions{ZoneID: a.zoneID})
	if err != nil {
		return nil, err
	}

	network, ok := cloudstack.FindNetwork(networks, cloudstack.SupportsStaticNAT)
	if !ok {
		return nil, fmt.Errorf("%w: searched %d networks", ErrNoNetwork, len(networks))
	}

	return a.AllocateInNetwork(ctx, network)
}

// AllocateInNetwork allocates a public IP address in the given network and
// checks it was placed in the network's zone.
func (a *Allocator) AllocateInNetwork(ctx context.Context, network *cloudstack.Network) (*cloudstack.PublicIPAddress, error) {
	log := log.FromContext(ctx)

	created, err := a.client.AssociateIPAddress(ctx, cloudstack.AssociateIPAddressOptions{
		ZoneID:    network.ZoneID,
		NetworkID: network.ID,
	})
	if err != nil {
		return nil, err
	}

	log.Info("associating public IP address", "network", network.ID, "zone", network.ZoneID, "job", created.JobID)

	job, err := a.await(ctx, created.JobID)
	if err != nil {
		return nil, err
	}

	address, err := cloudstack.DecodeJobResult[cloudstack.PublicIPAddress](job, cloudstack.ResultKeyIPAddress)
	if err != nil {
		return nil, err
	}

	if address.ZoneID != network.ZoneID {
		return nil, fmt.Errorf("%w: address %s in zone %s, network %s in zone %s", ErrZoneMismatch, address.ID, address.ZoneID, network.ID, network.ZoneID)
	}

	log.Info("associated public IP address", "id", address.ID, "address", address.IPAddress)

	return address, nil
}

// Release disassociates a public IP address and waits for it to be freed.
func (a *Allocator) Release(ctx context.Context, id string) error {
	log := log.FromContext(ctx)

	released, err := a.client.DisassociateIPAddress(ctx, id)
	if err != nil {
		return err
	}

	log.Info("disassociating public IP address", "id", id, "job", released.JobID)

	job, err := a.await(ctx, released.JobID)
	if err != nil {
		return err
	}

	result, err := cloudstack.DecodeJobResult[struct {
		Success bool `json:"success"`
	}](job, "")
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrReleaseFailed, id)
	}

	return nil
}

// await polls a job and returns its final state.
func (a *Allocator) await(ctx context.Context, id jobs.ID) (*cloudstack.AsyncJob, error) {
	outcome, err := a.poller.Poll(ctx, id, a.budget)
	if err != nil {
		return nil, err
	}

	if !outcome.Completed() {
		return nil, fmt.Errorf("%w: job %s still %s after %d checks", ErrTimeout, id, outcome.Status, outcome.Attempts)
	}

	return a.client.QueryAsyncJobResult(ctx, id)
}

// Verify checks an address record carries everything a usable address
// should, reporting all omissions together.
func Verify(address *cloudstack.PublicIPAddress) error {
	var errs []error

	required := []struct {
		field string
		value string
	}{
		{"id", address.ID},
		{"ipaddress", address.IPAddress},
		{"account", address.Account},
		{"domain", address.Domain},
		{"domainid", address.DomainID},
		{"state", string(address.State)},
		{"zoneid", address.ZoneID},
		{"zonename", address.ZoneName},
	}

	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s missing from address %q", ErrInvalidAddress, r.field, address.ID))
		}
	}

	return utilerrors.NewAggregate(errs)
}
