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
	"encoding/json"

	"github.com/unikorn-cloud/cloudstack/pkg/jobs"
)

// AddressState is the allocation lifecycle of a public IP.
type AddressState string

const (
	AddressStateAllocating AddressState = "Allocating"
	AddressStateAllocated  AddressState = "Allocated"
	AddressStateReleasing  AddressState = "Releasing"
	AddressStateFree       AddressState = "Free"
)

// PublicIPAddress is a public IP owned by an account.
type PublicIPAddress struct {
	ID                  string       `json:"id"`
	IPAddress           string       `json:"ipaddress"`
	Allocated           string       `json:"allocated,omitempty"`
	ZoneID              string       `json:"zoneid"`
	ZoneName            string       `json:"zonename"`
	IsSourceNAT         bool         `json:"issourcenat"`
	IsStaticNAT         bool         `json:"isstaticnat"`
	Account             string       `json:"account"`
	DomainID            string       `json:"domainid"`
	Domain              string       `json:"domain"`
	ForVirtualNetwork   bool         `json:"forvirtualnetwork"`
	VLANID              string       `json:"vlanid,omitempty"`
	VLANName            string       `json:"vlanname,omitempty"`
	AssociatedNetworkID string       `json:"associatednetworkid,omitempty"`
	NetworkID           string       `json:"networkid,omitempty"`
	VirtualMachineID    string       `json:"virtualmachineid,omitempty"`
	State               AddressState `json:"state"`
	JobID               *jobs.ID     `json:"jobid,omitempty"`
	JobStatus           *int         `json:"jobstatus,omitempty"`
}

// Capability is a named feature of a network service.
type Capability struct {
	Name                       string `json:"name"`
	Value                      string `json:"value"`
	CanChooseServiceCapability bool   `json:"canchooseservicecapability,omitempty"`
}

// NetworkService is a service, such as a firewall, offered by a network.
type NetworkService struct {
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capability,omitempty"`
}

// Capability looks up a capability value by name.
func (s NetworkService) Capability(name string) (string, bool) {
	for _, c := range s.Capabilities {
		if c.Name == name {
			return c.Value, true
		}
	}

	return "", false
}

// Network is a guest network in a zone.
type Network struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	DisplayText string           `json:"displaytext,omitempty"`
	ZoneID      string           `json:"zoneid"`
	ZoneName    string           `json:"zonename,omitempty"`
	GuestIPType string           `json:"type,omitempty"`
	State       string           `json:"state,omitempty"`
	IsDefault   bool             `json:"isdefault,omitempty"`
	Services    []NetworkService `json:"service,omitempty"`
}

// AsyncCreateResponse is returned by commands that run as jobs.
type AsyncCreateResponse struct {
	// ID is the resource being acted on, where known up front.
	ID string `json:"id,omitempty"`
	// JobID is the job to poll for completion.
	JobID jobs.ID `json:"jobid"`
}

// AsyncJob is the state of an asynchronous job.
type AsyncJob struct {
	JobID         jobs.ID         `json:"jobid"`
	Status        int             `json:"jobstatus"`
	ProcessStatus int             `json:"jobprocstatus,omitempty"`
	ResultCode    int             `json:"jobresultcode"`
	ResultType    string          `json:"jobresulttype,omitempty"`
	Result        json.RawMessage `json:"jobresult,omitempty"`
	Command       string          `json:"cmd,omitempty"`
	InstanceType  string          `json:"jobinstancetype,omitempty"`
	InstanceID    string          `json:"jobinstanceid,omitempty"`
	Created       string          `json:"created,omitempty"`
}

// JobStatus converts the wire status.
func (j *AsyncJob) JobStatus() (jobs.Status, error) {
	return jobs.ParseStatus(j.Status)
}
