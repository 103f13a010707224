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
	"net/url"
	"slices"
)

const (
	CommandListNetworks = "listNetworks"

	// ServiceFirewall is the network service that provides NAT.
	ServiceFirewall = "Firewall"
	// CapabilityStaticNAT is advertised by firewalls that can map a public
	// IP one to one onto a guest.
	CapabilityStaticNAT = "StaticNat"
)

// ListNetworksOptions filter a listing, unset fields are ignored.
type ListNetworksOptions struct {
	ZoneID  string
	Account string
}

// ListNetworks lists guest networks visible to the caller.
func (c *Client) ListNetworks(ctx context.Context, options ListNetworksOptions) ([]Network, error) {
	params := url.Values{}
	params.Set("zoneid", options.ZoneID)
	params.Set("account", options.Account)

	var result struct {
		Count    int       `json:"count"`
		Networks []Network `json:"network"`
	}

	if err := c.do(ctx, CommandListNetworks, params, &result); err != nil {
		return nil, err
	}

	return result.Networks, nil
}

// FindNetwork returns the first network that matches the predicate.
func FindNetwork(networks []Network, predicate func(Network) bool) (*Network, bool) {
	i := slices.IndexFunc(networks, predicate)
	if i < 0 {
		return nil, false
	}

	return &networks[i], true
}

// SupportsStaticNAT selects networks whose firewall can do static NAT,
// a prerequisite for allocating a public IP into it.
func SupportsStaticNAT(network Network) bool {
	return slices.ContainsFunc(network.Services, func(service NetworkService) bool {
		if service.Name != ServiceFirewall {
			return false
		}

		value, ok := service.Capability(CapabilityStaticNAT)

		return ok && value == "true"
	})
}
