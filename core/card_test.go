package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentCardJSONKeys(t *testing.T) {
	card := AgentCard{
		ServiceID:   "flight-booker-002",
		DisplayName: "SkyHigh Flight Booker",
		Description: "Searches for and books airline tickets.",
		BaseAddress: "http://127.0.0.1:5001",
		Capabilities: []CardCapability{
			{CapabilityID: "searchFlights", Description: "Finds available flights.", Path: "/searchFlights"},
		},
	}

	data, err := json.Marshal(card)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "flight-booker-002", raw["serviceId"])
	assert.Equal(t, "SkyHigh Flight Booker", raw["displayName"])
	assert.Equal(t, "http://127.0.0.1:5001", raw["baseAddress"])

	caps, ok := raw["capabilities"].([]interface{})
	require.True(t, ok)
	require.Len(t, caps, 1)
	capMap := caps[0].(map[string]interface{})
	assert.Equal(t, "searchFlights", capMap["capabilityId"])
	assert.Equal(t, "/searchFlights", capMap["path"])
}

func TestAgentCardValidate(t *testing.T) {
	tests := []struct {
		name    string
		card    AgentCard
		wantErr bool
	}{
		{
			name: "valid card",
			card: AgentCard{
				ServiceID:   "svc-1",
				BaseAddress: "http://127.0.0.1:5001",
				Capabilities: []CardCapability{
					{CapabilityID: "searchFlights", Path: "/searchFlights"},
				},
			},
		},
		{
			name: "missing serviceId",
			card: AgentCard{
				BaseAddress:  "http://127.0.0.1:5001",
				Capabilities: []CardCapability{{CapabilityID: "x", Path: "/x"}},
			},
			wantErr: true,
		},
		{
			name: "missing baseAddress",
			card: AgentCard{
				ServiceID:    "svc-1",
				Capabilities: []CardCapability{{CapabilityID: "x", Path: "/x"}},
			},
			wantErr: true,
		},
		{
			name: "no capabilities",
			card: AgentCard{
				ServiceID:   "svc-1",
				BaseAddress: "http://127.0.0.1:5001",
			},
			wantErr: true,
		},
		{
			name: "capability without path is tolerated",
			card: AgentCard{
				ServiceID:   "svc-1",
				BaseAddress: "http://127.0.0.1:5001",
				Capabilities: []CardCapability{
					{CapabilityID: "searchCars"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDescriptor)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
