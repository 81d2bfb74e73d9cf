// Package planner implements the trip planning coordinator: capability
// discovery over agent cards, capability resolution, intent understanding,
// and the per-domain search/book fulfillment workflow.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tripmaster/tripmaster/core"
)

// registryState is the discovery lifecycle of the registry.
type registryState int

const (
	stateUninitialized registryState = iota
	stateDiscovering
	stateReady
)

// RegistryEntry is the registry's record of one discovered service.
// Entries are never mutated after insertion; re-discovery replaces them
// atomically per service.
type RegistryEntry struct {
	ServiceID   string
	DisplayName string
	BaseAddress string
	// Paths maps capabilityId to its invocation path. A capability whose
	// card entry omitted the path is present with an empty value: tolerated
	// at discovery time, unresolvable later.
	Paths map[string]string
}

// HasCapability reports whether the entry offers the capability with a
// usable invocation path.
func (e *RegistryEntry) HasCapability(capabilityID string) bool {
	path, ok := e.Paths[capabilityID]
	return ok && path != ""
}

// Registry is the planner's in-process index of discovered services.
// It is populated by a single best-effort discovery pass over the configured
// peer addresses; the first caller of EnsureDiscovered performs the pass
// while concurrent callers block until it completes. After that the registry
// is effectively read-only.
//
// Iteration order is fixed by first insertion so capability resolution is
// deterministic.
type Registry struct {
	addresses []string
	client    *http.Client
	logger    core.Logger

	mu      sync.Mutex
	state   registryState
	done    chan struct{} // closed when the in-flight discovery pass finishes
	entries map[string]*RegistryEntry
	order   []string // serviceIDs in first-insertion order
}

// NewRegistry creates a registry that will poll the given base addresses.
// cardTimeout bounds each descriptor fetch; zero means 5s.
func NewRegistry(addresses []string, cardTimeout time.Duration, logger core.Logger) *Registry {
	if cardTimeout <= 0 {
		cardTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Registry{
		addresses: addresses,
		client:    &http.Client{Timeout: cardTimeout},
		logger:    logger,
		entries:   make(map[string]*RegistryEntry),
	}
}

// EnsureDiscovered guarantees the one-time discovery pass has completed
// before returning. The first caller runs discovery; concurrent callers
// block until it finishes or their context is canceled. Subsequent calls
// return immediately.
func (r *Registry) EnsureDiscovered(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case stateReady:
		r.mu.Unlock()
		return nil
	case stateDiscovering:
		done := r.done
		r.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Uninitialized: this caller runs the pass.
	r.state = stateDiscovering
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	r.Discover(ctx)

	r.mu.Lock()
	r.state = stateReady
	r.mu.Unlock()
	close(done)
	return nil
}

// Discover performs one best-effort discovery pass: every configured address
// is polled for its agent card; unreachable or malformed peers are logged and
// skipped. Re-discovered services overwrite their previous entry
// (last-write-wins) because the registry models a single live address per
// service. Discovery never fails as a whole; zero discovered services is
// surfaced per-lookup by the resolver, not here.
func (r *Registry) Discover(ctx context.Context) {
	r.logger.Info("Starting agent discovery", map[string]interface{}{
		"addresses": r.addresses,
	})

	discovered := 0
	for _, address := range r.addresses {
		card, err := r.fetchCard(ctx, address)
		if err != nil {
			aerr := &core.AgentError{Op: "registry.fetchCard", Kind: "discovery", ID: address, Err: err}
			r.logger.Warn("Skipping agent address", map[string]interface{}{
				"address": address,
				"error":   aerr.Error(),
			})
			continue
		}

		entry := entryFromCard(card)
		r.insert(entry)
		discovered++

		r.logger.Info("Discovered agent", map[string]interface{}{
			"service_id":   entry.ServiceID,
			"display_name": entry.DisplayName,
			"base_address": entry.BaseAddress,
			"capabilities": len(entry.Paths),
		})
	}

	r.logger.Info("Agent discovery finished", map[string]interface{}{
		"discovered": discovered,
		"registered": r.Len(),
	})
}

// fetchCard retrieves and validates one agent card.
func (r *Registry) fetchCard(ctx context.Context, baseAddress string) (*core.AgentCard, error) {
	url := joinURL(baseAddress, core.CardPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build card request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: agent card returned status %d", core.ErrRequestFailed, resp.StatusCode)
	}

	var card core.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidDescriptor, err)
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return &card, nil
}

func entryFromCard(card *core.AgentCard) *RegistryEntry {
	entry := &RegistryEntry{
		ServiceID:   card.ServiceID,
		DisplayName: card.DisplayName,
		BaseAddress: card.BaseAddress,
		Paths:       make(map[string]string, len(card.Capabilities)),
	}
	for _, cap := range card.Capabilities {
		if cap.CapabilityID == "" {
			continue
		}
		entry.Paths[cap.CapabilityID] = cap.Path
	}
	return entry
}

// insert merges an entry into the registry. A known serviceId is replaced in
// place, keeping its original position in iteration order.
func (r *Registry) insert(entry *RegistryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ServiceID]; !exists {
		r.order = append(r.order, entry.ServiceID)
	}
	r.entries[entry.ServiceID] = entry
}

// Entries returns a snapshot of all registry entries in first-insertion order.
func (r *Registry) Entries() []*RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*RegistryEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	return entries
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Populated reports whether the discovery pass has completed.
func (r *Registry) Populated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateReady
}

// Reset clears all entries and re-arms the one-time discovery trigger.
// Explicit re-discovery hook; never called on the request path.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = stateUninitialized
	r.done = nil
	r.entries = make(map[string]*RegistryEntry)
	r.order = nil
}

// joinURL joins a base address and a path, normalizing slashes.
func joinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if len(path) == 0 || path[0] != '/' {
		path = "/" + path
	}
	return base + path
}
