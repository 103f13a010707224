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

//nolint:revive,staticcheck // dot imports are standard for Ginkgo/Gomega test code
package api

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/unikorn-cloud/cloudstack/pkg/addressing"
	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
)

// FindStaticNATNetwork returns the first network able to host a public IP,
// skipping the spec when the account has none.
func FindStaticNATNetwork(ctx context.Context, client *cloudstack.Client, config *TestConfig) *cloudstack.Network {
	networks, err := client.ListNetworks(ctx, cloudstack.ListNetworksOptions{ZoneID: config.ZoneID})
	Expect(err).NotTo(HaveOccurred(), "Should list networks")

	network, ok := cloudstack.FindNetwork(networks, cloudstack.SupportsStaticNAT)
	if !ok {
		Skip("no network supports static NAT")
	}

	GinkgoWriter.Printf("Using network %s in zone %s\n", network.ID, network.ZoneID)

	return network
}

// CreatePublicIPAddressWithCleanup allocates an address in the network and
// registers its release.
func CreatePublicIPAddressWithCleanup(ctx context.Context, allocator *addressing.Allocator, network *cloudstack.Network) *cloudstack.PublicIPAddress {
	address, err := allocator.AllocateInNetwork(ctx, network)
	Expect(err).NotTo(HaveOccurred(), "Should allocate a public IP address")
	Expect(address).NotTo(BeNil())

	GinkgoWriter.Printf("Allocated public IP address %s (%s)\n", address.ID, address.IPAddress)

	DeferCleanup(func(ctx SpecContext) {
		GinkgoWriter.Printf("Releasing public IP address %s\n", address.ID)

		if err := allocator.Release(ctx, address.ID); err != nil && !cloudstack.IsNotFound(err) {
			GinkgoWriter.Printf("Warning: Failed to release public IP address %s: %v\n", address.ID, err)
		}
	})

	return address
}

// CheckIP verifies an address record is complete and can be read back by
// its ID.
func CheckIP(ctx context.Context, client *cloudstack.Client, address *cloudstack.PublicIPAddress) {
	Expect(addressing.Verify(address)).To(Succeed(), "Address %s should be complete", address.ID)

	fetched, err := client.GetPublicIPAddress(ctx, address.ID)
	Expect(err).NotTo(HaveOccurred(), "Should get address %s by ID", address.ID)
	Expect(fetched.ID).To(Equal(address.ID))
	Expect(fetched.IPAddress).To(Equal(address.IPAddress))
}

// WaitForAddressReleased waits until an address no longer appears in
// listings.
func WaitForAddressReleased(ctx context.Context, client *cloudstack.Client, config *TestConfig, id string) {
	Eventually(func() error {
		_, err := client.GetPublicIPAddress(ctx, id)

		return err
	}).WithTimeout(config.Budget().Timeout()).WithPolling(config.PollInterval).Should(
		MatchError(cloudstack.ErrNotFound), "Address %s should be released", id)
}
