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
	"fmt"
	"net/url"
	"strconv"
)

const (
	CommandAssociateIPAddress    = "associateIpAddress"
	CommandDisassociateIPAddress = "disassociateIpAddress"
	CommandListPublicIPAddresses = "listPublicIpAddresses"
)

// AssociateIPAddressOptions scope a new public IP.
type AssociateIPAddressOptions struct {
	// ZoneID is required.
	ZoneID string
	// NetworkID selects the guest network, required in advanced zones.
	NetworkID string
	// Account and DomainID allocate on behalf of another account.
	Account  string
	DomainID string
}

func (o AssociateIPAddressOptions) values() url.Values {
	v := url.Values{}
	v.Set("zoneid", o.ZoneID)
	v.Set("networkid", o.NetworkID)
	v.Set("account", o.Account)
	v.Set("domainid", o.DomainID)

	return v
}

// ListPublicIPAddressesOptions filter a listing, unset fields are ignored.
type ListPublicIPAddressesOptions struct {
	ID                  string
	IPAddress           string
	ZoneID              string
	AssociatedNetworkID string
	Account             string
	DomainID            string
	AllocatedOnly       *bool
}

func (o ListPublicIPAddressesOptions) values() url.Values {
	v := url.Values{}
	v.Set("id", o.ID)
	v.Set("ipaddress", o.IPAddress)
	v.Set("zoneid", o.ZoneID)
	v.Set("associatednetworkid", o.AssociatedNetworkID)
	v.Set("account", o.Account)
	v.Set("domainid", o.DomainID)

	if o.AllocatedOnly != nil {
		v.Set("allocatedonly", strconv.FormatBool(*o.AllocatedOnly))
	}

	return v
}

// AssociateIPAddress acquires a public IP.  The address is only usable
// once the returned job completes.
func (c *Client) AssociateIPAddress(ctx context.Context, options AssociateIPAddressOptions) (*AsyncCreateResponse, error) {
	if options.ZoneID == "" {
		return nil, fmt.Errorf("%w: zone ID must be set", ErrConfiguration)
	}

	var result AsyncCreateResponse

	if err := c.do(ctx, CommandAssociateIPAddress, options.values(), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// DisassociateIPAddress releases a public IP, the release runs as a job.
func (c *Client) DisassociateIPAddress(ctx context.Context, id string) (*AsyncCreateResponse, error) {
	params := url.Values{}
	params.Set("id", id)

	var result AsyncCreateResponse

	if err := c.do(ctx, CommandDisassociateIPAddress, params, &result); err != nil {
		return nil, err
	}

	if result.ID == "" {
		result.ID = id
	}

	return &result, nil
}

// ListPublicIPAddresses lists public IPs visible to the caller.
func (c *Client) ListPublicIPAddresses(ctx context.Context, options ListPublicIPAddressesOptions) ([]PublicIPAddress, error) {
	var result struct {
		Count     int               `json:"count"`
		Addresses []PublicIPAddress `json:"publicipaddress"`
	}

	if err := c.do(ctx, CommandListPublicIPAddresses, options.values(), &result); err != nil {
		return nil, err
	}

	return result.Addresses, nil
}

// GetPublicIPAddress returns a single public IP by ID.
func (c *Client) GetPublicIPAddress(ctx context.Context, id string) (*PublicIPAddress, error) {
	addresses, err := c.ListPublicIPAddresses(ctx, ListPublicIPAddressesOptions{ID: id})
	if err != nil {
		return nil, err
	}

	for i := range addresses {
		if addresses[i].ID == id {
			return &addresses[i], nil
		}
	}

	return nil, fmt.Errorf("%w: public IP address %s", ErrNotFound, id)
}
