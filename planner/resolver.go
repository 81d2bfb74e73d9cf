package planner

import (
	"context"
	"fmt"

	"github.com/tripmaster/tripmaster/core"
)

// Endpoint is a resolved capability: the base address of the service offering
// it and the invocation path on that service.
type Endpoint struct {
	BaseAddress string
	Path        string
}

// URL returns the full URL to invoke the capability.
func (e Endpoint) URL() string {
	return joinURL(e.BaseAddress, e.Path)
}

// Resolver is the read path over the capability registry. It triggers the
// one-time discovery pass when needed, then resolves capability ids to
// concrete endpoints.
type Resolver struct {
	registry *Registry
	logger   core.Logger
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *Registry, logger core.Logger) *Resolver {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Resolver{registry: registry, logger: logger}
}

// Resolve returns the endpoint for a capability id, or
// core.ErrCapabilityNotFound when no discovered service offers it.
//
// The scan is a first-match walk over registry entries in first-insertion
// order; normally only one service offers any given capability, and when
// several do the first-discovered wins. An entry that lists the capability
// without an invocation path is treated as non-matching and the scan
// continues.
func (r *Resolver) Resolve(ctx context.Context, capabilityID string) (Endpoint, error) {
	if err := r.registry.EnsureDiscovered(ctx); err != nil {
		return Endpoint{}, err
	}

	for _, entry := range r.registry.Entries() {
		path, offered := entry.Paths[capabilityID]
		if !offered {
			continue
		}
		if path == "" {
			r.logger.Warn("Capability offered without invocation path", map[string]interface{}{
				"capability": capabilityID,
				"service_id": entry.ServiceID,
			})
			continue
		}

		r.logger.Debug("Resolved capability", map[string]interface{}{
			"capability":   capabilityID,
			"service_id":   entry.ServiceID,
			"base_address": entry.BaseAddress,
			"path":         path,
		})
		return Endpoint{BaseAddress: entry.BaseAddress, Path: path}, nil
	}

	return Endpoint{}, fmt.Errorf("%w: %s", core.ErrCapabilityNotFound, capabilityID)
}
