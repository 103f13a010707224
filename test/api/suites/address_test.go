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

//nolint:testpackage,revive // test package in suites is standard for these tests
package suites

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
	"github.com/unikorn-cloud/cloudstack/test/api"
)

var _ = Describe("Public IP Addresses", func() {
	Context("When associating an address with a network", func() {
		Describe("Given a network that supports static NAT", func() {
			var network *cloudstack.Network

			BeforeEach(func() {
				network = api.FindStaticNATNetwork(ctx, client, config)
			})

			It("should allocate an address in the network's zone", func() {
				address := api.CreatePublicIPAddressWithCleanup(ctx, allocator, network)

				Expect(address.ZoneID).To(Equal(network.ZoneID), "Address should be in the network's zone")
				api.CheckIP(ctx, client, address)
			})

			It("should report the association job as complete", func() {
				created, err := client.AssociateIPAddress(ctx, cloudstack.AssociateIPAddressOptions{
					ZoneID:    network.ZoneID,
					NetworkID: network.ID,
				})
				Expect(err).NotTo(HaveOccurred(), "Should start association")

				DeferCleanup(func(ctx SpecContext) {
					if err := allocator.Release(ctx, created.ID); err != nil && !cloudstack.IsNotFound(err) {
						GinkgoWriter.Printf("Warning: Failed to release public IP address %s: %v\n", created.ID, err)
					}
				})

				budget := config.Budget()

				completed, err := jobs.NewPoller(client).WaitForCompletion(ctx, created.JobID, budget.MaxAttempts, budget.Interval)
				Expect(err).NotTo(HaveOccurred())
				Expect(completed).To(BeTrue(), "Job %s should complete within %s", created.JobID, budget.Timeout())

				address, err := cloudstack.GetAsyncJobResult[cloudstack.PublicIPAddress](ctx, client, created.JobID, cloudstack.ResultKeyIPAddress)
				Expect(err).NotTo(HaveOccurred(), "Should decode the job result")
				Expect(address.ID).To(Equal(created.ID))

				api.CheckIP(ctx, client, address)
			})

			It("should no longer list an address once released", func() {
				address, err := allocator.AllocateInNetwork(ctx, network)
				Expect(err).NotTo(HaveOccurred())

				Expect(allocator.Release(ctx, address.ID)).To(Succeed())
				api.WaitForAddressReleased(ctx, client, config, address.ID)
			})
		})

		Describe("Given invalid parameters", func() {
			It("should reject an association without a zone", func() {
				_, err := client.AssociateIPAddress(ctx, cloudstack.AssociateIPAddressOptions{})
				Expect(err).To(MatchError(cloudstack.ErrConfiguration))
			})

			It("should reject an unknown network", func() {
				zoneID := config.ZoneID
				if zoneID == "" {
					zoneID = api.FindStaticNATNetwork(ctx, client, config).ZoneID
				}

				_, err := client.AssociateIPAddress(ctx, cloudstack.AssociateIPAddressOptions{
					ZoneID:    zoneID,
					NetworkID: "00000000-0000-0000-0000-000000000000",
				})
				Expect(err).To(HaveOccurred())

				apiErr, ok := cloudstack.AsAPIError(err)
				Expect(ok).To(BeTrue(), "Error should come from the API: %v", err)
				GinkgoWriter.Printf("Expected API error %d: %s\n", apiErr.ErrorCode, apiErr.ErrorText)
			})
		})
	})

	Context("When listing addresses", func() {
		It("should return complete records that can be fetched individually", func() {
			addresses, err := client.ListPublicIPAddresses(ctx, cloudstack.ListPublicIPAddressesOptions{ZoneID: config.ZoneID})
			Expect(err).NotTo(HaveOccurred())

			GinkgoWriter.Printf("Found %d public IP addresses\n", len(addresses))

			for i := range addresses {
				api.CheckIP(ctx, client, &addresses[i])
			}
		})

		It("should return not found for an unknown address", func() {
			_, err := client.GetPublicIPAddress(ctx, "00000000-0000-0000-0000-000000000000")
			Expect(err).To(HaveOccurred())

			// Some releases reject unknown IDs outright rather than return
			// an empty listing.
			if _, ok := cloudstack.AsAPIError(err); !ok {
				Expect(cloudstack.IsNotFound(err)).To(BeTrue(), "Expected not found, got %v", err)
			}

			GinkgoWriter.Printf("Expected error for unknown address: %v\n", err)
		})
	})
})
