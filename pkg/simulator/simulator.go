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

// Package simulator provides an in-memory control plane that speaks enough
// of the command API to exercise address allocation end to end, including
// jobs that take several status queries to complete.
package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
	"github.com/unikorn-cloud/cloudstack/pkg/jobs"

	"k8s.io/utils/ptr"
)

const (
	// Path is where the API is served.
	Path = "/client/api"

	// StatusParamError mirrors the control plane's code for bad parameters.
	StatusParamError = 431
	// StatusUnsupportedCommand mirrors the code for unknown commands.
	StatusUnsupportedCommand = 432

	defaultAccount  = "admin"
	defaultDomain   = "ROOT"
	defaultDomainID = "f1d7a8e2-0c53-11ef-9c4b-0242ac120002"
)

// Option modifies a simulator at construction time.
type Option func(*Simulator)

// WithCompleteAfter sets how many status queries a job takes to finish.
func WithCompleteAfter(queries int) Option {
	return func(s *Simulator) {
		s.completeAfter = queries
	}
}

// WithCredentials makes the simulator reject badly signed requests.
func WithCredentials(apiKey, secretKey string) Option {
	return func(s *Simulator) {
		s.apiKey = apiKey
		s.secretKey = secretKey
	}
}

// job is an in-flight asynchronous operation.
type job struct {
	command  string
	queries  int
	status   jobs.Status
	result   any
	failure  *cloudstack.JobError
	complete func()
	abort    func()
}

// Simulator is an http.Handler that behaves like a small control plane.
type Simulator struct {
	lock sync.Mutex

	completeAfter int
	apiKey        string
	secretKey     string

	networks  []cloudstack.Network
	addresses map[string]*cloudstack.PublicIPAddress
	jobs      map[jobs.ID]*job
	nextHost  int
	failures  []cloudstack.JobError

	router chi.Router
}

// New returns a new simulator with no networks.
func New(options ...Option) *Simulator {
	s := &Simulator{
		completeAfter: 1,
		addresses:     map[string]*cloudstack.PublicIPAddress{},
		jobs:          map[jobs.ID]*job{},
		nextHost:      10,
	}

	for _, o := range options {
		o(s)
	}

	s.router = chi.NewRouter()
	s.router.Get(Path, s.serve)
	s.router.Post(Path, s.serve)

	return s
}

func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddNetwork makes a network available for allocation.
func (s *Simulator) AddNetwork(network cloudstack.Network) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.networks = append(s.networks, network)
}

// FailNextJob causes the next job created to complete with an error.
func (s *Simulator) FailNextJob(code int, text string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.failures = append(s.failures, cloudstack.JobError{ErrorCode: code, ErrorText: text})
}

// Queries returns how many times a job's status has been queried.
func (s *Simulator) Queries(id jobs.ID) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	if j, ok := s.jobs[id]; ok {
		return j.queries
	}

	return 0
}

// Address returns a copy of an address record, including released ones.
func (s *Simulator) Address(id string) (cloudstack.PublicIPAddress, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if a, ok := s.addresses[id]; ok {
		return *a, true
	}

	return cloudstack.PublicIPAddress{}, false
}

// StaticNATNetwork returns a network whose firewall supports static NAT.
func StaticNATNetwork(zoneID string) cloudstack.Network {
	return cloudstack.Network{
		ID:          uuid.NewString(),
		Name:        "guest-" + zoneID,
		ZoneID:      zoneID,
		ZoneName:    "zone-" + zoneID,
		GuestIPType: "Isolated",
		State:       "Implemented",
		Services: []cloudstack.NetworkService{
			{
				Name: cloudstack.ServiceFirewall,
				Capabilities: []cloudstack.Capability{
					{Name: cloudstack.CapabilityStaticNAT, Value: "true"},
				},
			},
			{Name: "Dns"},
		},
	}
}

// SharedNetwork returns a network without NAT support.
func SharedNetwork(zoneID string) cloudstack.Network {
	return cloudstack.Network{
		ID:          uuid.NewString(),
		Name:        "shared-" + zoneID,
		ZoneID:      zoneID,
		ZoneName:    "zone-" + zoneID,
		GuestIPType: "Shared",
		State:       "Setup",
		Services: []cloudstack.NetworkService{
			{Name: "Dhcp"},
		},
	}
}

type handlerFunc func(params url.Values) (any, int, string)

func (s *Simulator) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		strings.ToLower(cloudstack.CommandAssociateIPAddress):    s.associateIPAddress,
		strings.ToLower(cloudstack.CommandDisassociateIPAddress): s.disassociateIPAddress,
		strings.ToLower(cloudstack.CommandListPublicIPAddresses): s.listPublicIPAddresses,
		strings.ToLower(cloudstack.CommandListNetworks):          s.listNetworks,
		strings.ToLower(cloudstack.CommandQueryAsyncJobResult):   s.queryAsyncJobResult,
	}
}

func (s *Simulator) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, "", http.StatusBadRequest, err.Error())
		return
	}

	params := r.Form
	command := strings.ToLower(params.Get("command"))

	if !s.authenticated(params) {
		writeError(w, command, http.StatusUnauthorized, "unable to verify user credentials and/or request signature")
		return
	}

	handler, ok := s.handlers()[command]
	if !ok {
		writeError(w, command, StatusUnsupportedCommand, fmt.Sprintf("The given command %q does not exist or it is not available for user", params.Get("command")))
		return
	}

	// Results may reference live records so are encoded under the lock.
	s.lock.Lock()
	defer s.lock.Unlock()

	result, status, message := handler(params)

	if status != http.StatusOK {
		writeError(w, command, status, message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{command + "response": result})
}

func (s *Simulator) authenticated(params url.Values) bool {
	if s.secretKey == "" {
		return true
	}

	if params.Get("apiKey") != s.apiKey {
		return false
	}

	signature := params.Get("signature")

	unsigned := url.Values{}

	for key, values := range params {
		if key != "signature" {
			unsigned[key] = values
		}
	}

	return cloudstack.Verify(unsigned, signature, s.secretKey)
}

// newJob must be called with the lock held.  complete is applied when the
// job succeeds and abort when it fails.
func (s *Simulator) newJob(command string, result any, complete, abort func()) jobs.ID {
	id := jobs.ID(uuid.NewString())

	j := &job{
		command:  command,
		status:   jobs.StatusPending,
		result:   result,
		complete: complete,
		abort:    abort,
	}

	if len(s.failures) > 0 {
		j.failure = &s.failures[0]
		s.failures = s.failures[1:]
	}

	s.jobs[id] = j

	return id
}

func (s *Simulator) network(id string) (*cloudstack.Network, bool) {
	return cloudstack.FindNetwork(s.networks, func(n cloudstack.Network) bool {
		return n.ID == id
	})
}

func (s *Simulator) associateIPAddress(params url.Values) (any, int, string) {
	zoneID := params.Get("zoneid")
	if zoneID == "" {
		return nil, StatusParamError, "Unable to execute API command associateipaddress due to missing parameter zoneid"
	}

	var zoneName string

	if networkID := params.Get("networkid"); networkID != "" {
		network, ok := s.network(networkID)
		if !ok {
			return nil, StatusParamError, "Unable to find network by id " + networkID
		}

		if network.ZoneID != zoneID {
			return nil, StatusParamError, fmt.Sprintf("Network %s doesn't belong to zone %s", networkID, zoneID)
		}

		zoneName = network.ZoneName
	}

	account := params.Get("account")
	if account == "" {
		account = defaultAccount
	}

	address := &cloudstack.PublicIPAddress{
		ID:                  uuid.NewString(),
		IPAddress:           fmt.Sprintf("198.51.100.%d", s.nextHost),
		Allocated:           time.Now().UTC().Format("2006-01-02T15:04:05-0700"),
		ZoneID:              zoneID,
		ZoneName:            zoneName,
		Account:             account,
		Domain:              defaultDomain,
		DomainID:            defaultDomainID,
		ForVirtualNetwork:   true,
		AssociatedNetworkID: params.Get("networkid"),
		NetworkID:           params.Get("networkid"),
		State:               cloudstack.AddressStateAllocating,
	}

	s.nextHost++
	s.addresses[address.ID] = address

	id := s.newJob(cloudstack.CommandAssociateIPAddress, map[string]any{cloudstack.ResultKeyIPAddress: address}, func() {
		address.State = cloudstack.AddressStateAllocated
		address.JobID = nil
		address.JobStatus = nil
	}, func() {
		address.State = cloudstack.AddressStateFree
		address.JobID = nil
		address.JobStatus = nil
	})

	address.JobID = ptr.To(id)
	address.JobStatus = ptr.To(int(jobs.StatusPending))

	return cloudstack.AsyncCreateResponse{ID: address.ID, JobID: id}, http.StatusOK, ""
}

func (s *Simulator) disassociateIPAddress(params url.Values) (any, int, string) {
	id := params.Get("id")

	address, ok := s.addresses[id]
	if !ok || address.State == cloudstack.AddressStateFree {
		return nil, StatusParamError, "Unable to find ip address by id " + id
	}

	previous := address.State
	address.State = cloudstack.AddressStateReleasing

	jobID := s.newJob(cloudstack.CommandDisassociateIPAddress, map[string]any{"success": true}, func() {
		address.State = cloudstack.AddressStateFree
	}, func() {
		address.State = previous
	})

	return cloudstack.AsyncCreateResponse{JobID: jobID}, http.StatusOK, ""
}

func matches(filter, value string) bool {
	return filter == "" || filter == value
}

func (s *Simulator) listPublicIPAddresses(params url.Values) (any, int, string) {
	var result []cloudstack.PublicIPAddress

	for _, a := range s.addresses {
		if a.State == cloudstack.AddressStateFree {
			continue
		}

		if !matches(params.Get("id"), a.ID) ||
			!matches(params.Get("zoneid"), a.ZoneID) ||
			!matches(params.Get("ipaddress"), a.IPAddress) ||
			!matches(params.Get("associatednetworkid"), a.AssociatedNetworkID) ||
			!matches(params.Get("account"), a.Account) {
			continue
		}

		result = append(result, *a)
	}

	slices.SortFunc(result, func(a, b cloudstack.PublicIPAddress) int {
		return strings.Compare(a.IPAddress, b.IPAddress)
	})

	// The control plane omits everything for an empty listing.
	if len(result) == 0 {
		return struct{}{}, http.StatusOK, ""
	}

	return map[string]any{"count": len(result), "publicipaddress": result}, http.StatusOK, ""
}

func (s *Simulator) listNetworks(params url.Values) (any, int, string) {
	result := slices.DeleteFunc(slices.Clone(s.networks), func(n cloudstack.Network) bool {
		return !matches(params.Get("zoneid"), n.ZoneID)
	})

	if len(result) == 0 {
		return struct{}{}, http.StatusOK, ""
	}

	return map[string]any{"count": len(result), "network": result}, http.StatusOK, ""
}

func (s *Simulator) queryAsyncJobResult(params url.Values) (any, int, string) {
	id := jobs.ID(params.Get("jobid"))

	j, ok := s.jobs[id]
	if !ok {
		return nil, StatusParamError, "Unable to find job by id " + id.String()
	}

	j.queries++

	if j.status == jobs.StatusPending && j.queries >= s.completeAfter {
		if j.failure != nil {
			j.status = jobs.StatusFailed
			j.abort()
		} else {
			j.status = jobs.StatusSucceeded
			j.complete()
		}
	}

	response := map[string]any{
		"jobid":         id,
		"cmd":           j.command,
		"jobstatus":     int(j.status),
		"jobprocstatus": 0,
	}

	//nolint:exhaustive
	switch j.status {
	case jobs.StatusSucceeded:
		response["jobresultcode"] = 0
		response["jobresulttype"] = "object"
		response["jobresult"] = j.result
	case jobs.StatusFailed:
		response["jobresultcode"] = 530
		response["jobresulttype"] = "object"
		response["jobresult"] = j.failure
	}

	return response, http.StatusOK, ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, command string, status int, text string) {
	writeJSON(w, status, map[string]any{
		command + "response": map[string]any{
			"errorcode": status,
			"errortext": text,
		},
	})
}
