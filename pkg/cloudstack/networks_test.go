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

package cloudstack_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unikorn-cloud/cloudstack/pkg/cloudstack"
	"github.com/unikorn-cloud/cloudstack/pkg/simulator"
)

func TestSupportsStaticNAT(t *testing.T) {
	t.Parallel()

	disabled := cloudstack.Network{
		ID: "disabled",
		Services: []cloudstack.NetworkService{
			{
				Name: cloudstack.ServiceFirewall,
				Capabilities: []cloudstack.Capability{
					{Name: cloudstack.CapabilityStaticNAT, Value: "false"},
				},
			},
		},
	}

	wrongService := cloudstack.Network{
		ID: "wrong-service",
		Services: []cloudstack.NetworkService{
			{
				Name: "Lb",
				Capabilities: []cloudstack.Capability{
					{Name: cloudstack.CapabilityStaticNAT, Value: "true"},
				},
			},
		},
	}

	nat := simulator.StaticNATNetwork(zoneID)

	require.False(t, cloudstack.SupportsStaticNAT(disabled))
	require.False(t, cloudstack.SupportsStaticNAT(wrongService))
	require.False(t, cloudstack.SupportsStaticNAT(simulator.SharedNetwork(zoneID)))
	require.True(t, cloudstack.SupportsStaticNAT(nat))

	network, ok := cloudstack.FindNetwork([]cloudstack.Network{disabled, wrongService, nat}, cloudstack.SupportsStaticNAT)
	require.True(t, ok)
	require.Equal(t, nat.ID, network.ID)

	_, ok = cloudstack.FindNetwork([]cloudstack.Network{disabled, wrongService}, cloudstack.SupportsStaticNAT)
	require.False(t, ok)
}

// TestNetworkDecoding ensures the wire shape of services and capabilities is understood.
func TestNetworkDecoding(t *testing.T) {
	t.Parallel()

	body := `{"id":"n1","zoneid":"z1","type":"Isolated","service":[{"name":"Firewall","capability":[{"name":"StaticNat","value":"true","canchooseservicecapability":false}]}]}`

	var network cloudstack.Network

	require.NoError(t, json.Unmarshal([]byte(body), &network))
	require.Equal(t, "Isolated", network.GuestIPType)
	require.True(t, cloudstack.SupportsStaticNAT(network))
}

func TestDecodeJobResult(t *testing.T) {
	t.Parallel()

	_, err := cloudstack.DecodeJobResult[cloudstack.PublicIPAddress](&cloudstack.AsyncJob{JobID: "1"}, cloudstack.ResultKeyIPAddress)
	require.ErrorIs(t, err, cloudstack.ErrJobPending)

	succeeded := &cloudstack.AsyncJob{
		JobID:  "2",
		Status: 1,
		Result: json.RawMessage(`{"success":true}`),
	}

	result, err := cloudstack.DecodeJobResult[map[string]bool](succeeded, "")
	require.NoError(t, err)
	require.True(t, (*result)["success"])

	_, err = cloudstack.DecodeJobResult[cloudstack.PublicIPAddress](succeeded, cloudstack.ResultKeyIPAddress)
	require.ErrorIs(t, err, cloudstack.ErrUnexpectedResponse)
}
