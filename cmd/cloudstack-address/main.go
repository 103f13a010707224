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

package main

import (
	"context"
	"encoding/json"
	"errors"
	goflag "flag"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/unikorn-cloud/cloudstack/pkg/addressing"
	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
	"github.com/unikorn-cloud/cloudstack/pkg/constants"
	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
	"github.com/unikorn-cloud/cloudstack/pkg/simulator"

	cr "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var (
	ErrUsage = errors.New("usage error")

	ErrNetworkNotFound = errors.New("network not found")

	ErrJobFailed = errors.New("job failed")
)

const (
	simulatedZone   = "simulated"
	simulatedKey    = "simulator"
	simulatedSecret = "simulator"
)

type options struct {
	cloudstack *cloudstack.Options

	zoneID      string
	networkID   string
	maxAttempts int
	interval    time.Duration
	failFast    bool
	simulate    bool
	logMetrics  bool
}

func (o *options) AddFlags(f *pflag.FlagSet) {
	o.cloudstack.AddFlags(f)

	f.StringVar(&o.zoneID, "zone-id", "", "Zone to filter listings and the associate network search by.")
	f.StringVar(&o.networkID, "network-id", "", "Network to associate an address in, by default the first supporting static NAT.")
	f.IntVar(&o.maxAttempts, "max-attempts", addressing.DefaultBudget.MaxAttempts, "Number of job status checks before giving up.")
	f.DurationVar(&o.interval, "poll-interval", addressing.DefaultBudget.Interval, "Time to wait between job status checks.")
	f.BoolVar(&o.failFast, "fail-fast", false, "Stop waiting as soon as a job reports failure.")
	f.BoolVar(&o.simulate, "simulate", false, "Run against an in-process simulator rather than a real endpoint.")
	f.BoolVar(&o.logMetrics, "log-metrics", false, "Log API request counts on exit.")
}

func (o *options) budget() jobs.Budget {
	return jobs.Budget{
		MaxAttempts: o.maxAttempts,
		Interval:    o.interval,
	}
}

func (o *options) pollerOptions() []jobs.Option {
	if o.failFast {
		return []jobs.Option{jobs.WithFailFast()}
	}

	return []jobs.Option{jobs.WithRetryOnFailure()}
}

// startSimulator points the client at an in-process control plane with a
// single static NAT capable network.
func (o *options) startSimulator() func() {
	sim := simulator.New(simulator.WithCompleteAfter(3), simulator.WithCredentials(simulatedKey, simulatedSecret))
	sim.AddNetwork(simulator.StaticNATNetwork(simulatedZone))

	server := httptest.NewServer(sim)

	o.cloudstack.Endpoint = server.URL + simulator.Path
	o.cloudstack.APIKey = simulatedKey
	o.cloudstack.SecretKey = simulatedSecret

	return server.Close
}

// logRequestCounts reports the client's request counters.
func logRequestCounts(ctx context.Context, registry *prometheus.Registry) {
	log := log.FromContext(ctx)

	families, err := registry.Gather()
	if err != nil {
		log.Error(err, "failed to gather metrics")
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			counter := metric.GetCounter()
			if counter == nil {
				continue
			}

			labels := map[string]string{}

			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}

			log.Info("api requests", "metric", family.GetName(), "labels", labels, "count", counter.GetValue())
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command> [argument]\n\n", constants.Application)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  associate           allocate a public IP address and wait for it")
	fmt.Fprintln(os.Stderr, "  disassociate <id>   release a public IP address and wait for it")
	fmt.Fprintln(os.Stderr, "  list                list allocated public IP addresses")
	fmt.Fprintln(os.Stderr, "  get <id>            show and verify a public IP address")
	fmt.Fprintln(os.Stderr, "  wait <job id>       wait for an asynchronous job to complete")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	pflag.PrintDefaults()
}

func output(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func argument(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%w: %s expects exactly one argument", ErrUsage, args[0])
	}

	return args[1], nil
}

func associate(ctx context.Context, o *options, client *cloudstack.Client, allocator *addressing.Allocator) error {
	if o.networkID == "" {
		address, err := allocator.Allocate(ctx)
		if err != nil {
			return err
		}

		return output(address)
	}

	networks, err := client.ListNetworks(ctx, cloudstack.ListNetworksOptions{ZoneID: o.zoneID})
	if err != nil {
		return err
	}

	network, ok := cloudstack.FindNetwork(networks, func(n cloudstack.Network) bool {
		return n.ID == o.networkID
	})
	if !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, o.networkID)
	}

	address, err := allocator.AllocateInNetwork(ctx, network)
	if err != nil {
		return err
	}

	return output(address)
}

func get(ctx context.Context, client *cloudstack.Client, id string) error {
	log := log.FromContext(ctx)

	address, err := client.GetPublicIPAddress(ctx, id)
	if err != nil {
		return err
	}

	if err := addressing.Verify(address); err != nil {
		log.Info("address record incomplete", "error", err)
	}

	return output(address)
}

func wait(ctx context.Context, o *options, client *cloudstack.Client, id string) error {
	outcome, err := jobs.NewPoller(client, o.pollerOptions()...).Poll(ctx, jobs.ID(id), o.budget())
	if err != nil {
		return err
	}

	if err := output(outcome); err != nil {
		return err
	}

	if outcome.TimedOut {
		return fmt.Errorf("%w: job %s", addressing.ErrTimeout, id)
	}

	if !outcome.Succeeded() {
		return fmt.Errorf("%w: job %s", ErrJobFailed, id)
	}

	return nil
}

func run(ctx context.Context, o *options, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	if o.simulate {
		defer o.startSimulator()()
	}

	registry := prometheus.NewRegistry()

	metrics, err := cloudstack.NewMetrics(registry)
	if err != nil {
		return err
	}

	if o.logMetrics {
		defer logRequestCounts(ctx, registry)
	}

	client, err := cloudstack.New(o.cloudstack, cloudstack.WithMetrics(metrics))
	if err != nil {
		return err
	}

	allocator := addressing.New(client,
		addressing.WithBudget(o.budget()),
		addressing.WithZone(o.zoneID),
		addressing.WithPollerOptions(o.pollerOptions()...),
	)

	switch args[0] {
	case "associate":
		return associate(ctx, o, client, allocator)
	case "disassociate":
		id, err := argument(args)
		if err != nil {
			return err
		}

		return allocator.Release(ctx, id)
	case "list":
		addresses, err := client.ListPublicIPAddresses(ctx, cloudstack.ListPublicIPAddressesOptions{ZoneID: o.zoneID})
		if err != nil {
			return err
		}

		return output(addresses)
	case "get":
		id, err := argument(args)
		if err != nil {
			return err
		}

		return get(ctx, client, id)
	case "wait":
		id, err := argument(args)
		if err != nil {
			return err
		}

		return wait(ctx, o, client, id)
	}

	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func main() {
	o := &options{
		cloudstack: cloudstack.NewOptions(),
	}

	o.AddFlags(pflag.CommandLine)

	zapOptions := zap.Options{}
	zapOptions.BindFlags(goflag.CommandLine)

	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	pflag.Usage = usage
	pflag.Parse()

	log.SetLogger(zap.New(zap.UseFlagOptions(&zapOptions)))

	logger := log.Log.WithName("init")
	logger.V(1).Info("client starting", "application", constants.Application, "version", constants.Version, "revision", constants.Revision)

	ctx := log.IntoContext(cr.SetupSignalHandler(), log.Log)

	if err := run(ctx, o, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)

		if errors.Is(err, ErrUsage) {
			usage()
		}

		os.Exit(1)
	}
}
