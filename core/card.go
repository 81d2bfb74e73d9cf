package core

import (
	"fmt"
	"net/http"
)

// Capability represents an operation an agent provides.
// Registering a capability on a BaseAgent binds its HTTP handler and adds a
// corresponding entry to the agent card served at /agent-card.
type Capability struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Endpoint    string           `json:"endpoint"`
	InputTypes  []string         `json:"input_types,omitempty"`
	OutputTypes []string         `json:"output_types,omitempty"`
	Handler     http.HandlerFunc `json:"-"`
}

// AgentCard is the self-describing descriptor every agent serves at
// GET /agent-card. The capability ids are globally meaningful strings shared
// by convention between producers and consumers (e.g. "searchFlights");
// the card only guarantees structural presence, not semantics.
type AgentCard struct {
	ServiceID    string           `json:"serviceId"`
	DisplayName  string           `json:"displayName"`
	Description  string           `json:"description,omitempty"`
	BaseAddress  string           `json:"baseAddress"`
	Capabilities []CardCapability `json:"capabilities"`
}

// CardCapability is one operation entry on an agent card.
// Path may be empty; such an operation is tolerated at discovery time but
// cannot be resolved to a callable endpoint later.
type CardCapability struct {
	CapabilityID string `json:"capabilityId"`
	Description  string `json:"description,omitempty"`
	Path         string `json:"path,omitempty"`
}

// Validate checks the structural invariants a consumer relies on:
// a service id, a reachable base address, and at least one operation.
func (c *AgentCard) Validate() error {
	if c.ServiceID == "" {
		return fmt.Errorf("%w: missing serviceId", ErrInvalidDescriptor)
	}
	if c.BaseAddress == "" {
		return fmt.Errorf("%w: missing baseAddress for %s", ErrInvalidDescriptor, c.ServiceID)
	}
	if len(c.Capabilities) == 0 {
		return fmt.Errorf("%w: %s declares no capabilities", ErrInvalidDescriptor, c.ServiceID)
	}
	return nil
}

// CardPath is the well-known path where every agent serves its card.
const CardPath = "/agent-card"
