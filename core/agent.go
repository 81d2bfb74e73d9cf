package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// generateID generates a short unique suffix for component IDs
func generateID() string {
	return uuid.New().String()[:8]
}

// Agent is the interface all agents in the mesh implement.
type Agent interface {
	Initialize(ctx context.Context) error
	GetID() string
	GetName() string
	GetCapabilities() []Capability
	Card() AgentCard
}

// BaseAgent provides the core agent functionality: an HTTP server that
// exposes registered capabilities, the self-describing agent card at
// /agent-card, and optional Redis self-registration.
type BaseAgent struct {
	ID          string
	Name        string
	DisplayName string
	Description string

	Capabilities []Capability
	capMutex     sync.RWMutex // protects Capabilities

	// Dependencies
	Logger    Logger
	Memory    Memory
	Telemetry Telemetry
	Registry  Registry // optional; nil means no self-registration

	// Configuration
	Config *Config

	// HTTP server
	server *http.Server
	mux    *http.ServeMux

	mu                 sync.RWMutex
	registeredPatterns map[string]bool // prevent duplicate mux patterns
	serverStarted      bool
}

// NewBaseAgent creates a new base agent with default configuration.
func NewBaseAgent(name string) *BaseAgent {
	config := DefaultConfig()
	config.Name = name
	return NewBaseAgentWithConfig(config)
}

// NewBaseAgentWithConfig creates a new base agent with custom configuration.
func NewBaseAgentWithConfig(config *Config) *BaseAgent {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Name == "" {
		config.Name = "tripmaster-agent"
	}
	if config.ID == "" {
		config.ID = fmt.Sprintf("%s-%s", config.Name, generateID())
	}

	return &BaseAgent{
		ID:                 config.ID,
		Name:               config.Name,
		DisplayName:        config.Name,
		Capabilities:       []Capability{},
		Logger:             &NoOpLogger{},
		Memory:             NewInMemoryStore(),
		Telemetry:          &NoOpTelemetry{},
		Config:             config,
		mux:                http.NewServeMux(),
		registeredPatterns: make(map[string]bool),
	}
}

// Initialize sets up optional dependencies and registers the agent with the
// Redis registry when one is configured. Registration failure is logged and
// tolerated; the agent keeps serving either way.
func (b *BaseAgent) Initialize(ctx context.Context) error {
	b.Logger.Info("Initializing agent", map[string]interface{}{
		"id":   b.ID,
		"name": b.Name,
	})

	if b.Registry == nil && b.Config != nil && b.Config.Registry.RedisURL != "" {
		registry, err := NewRedisRegistry(b.Config.Registry.RedisURL,
			b.Config.Registry.Namespace, b.Config.Registry.TTL)
		if err != nil {
			b.Logger.Error("Failed to initialize Redis registry", map[string]interface{}{
				"error":     err.Error(),
				"redis_url": b.Config.Registry.RedisURL,
				"impact":    "agent_not_registered",
			})
		} else {
			registry.SetLogger(b.Logger)
			b.Registry = registry
		}
	}

	if b.Registry != nil {
		info := &ServiceInfo{
			ID:           b.ID,
			Name:         b.Name,
			BaseAddress:  b.Config.BaseAddress(),
			Capabilities: b.Card().Capabilities,
			Health:       HealthHealthy,
			LastSeen:     time.Now(),
		}
		if err := b.Registry.Register(ctx, info); err != nil {
			b.Logger.Error("Failed to register with registry", map[string]interface{}{
				"error": err.Error(),
			})
			// Graceful degradation - the agent is still reachable via its card
		} else if redisRegistry, ok := b.Registry.(*RedisRegistry); ok {
			redisRegistry.StartHeartbeat(ctx, info)
		}
	}

	return nil
}

// GetID returns the agent's unique identifier
func (b *BaseAgent) GetID() string {
	return b.ID
}

// GetName returns the agent's name
func (b *BaseAgent) GetName() string {
	return b.Name
}

// GetCapabilities returns a copy of the agent's capabilities
func (b *BaseAgent) GetCapabilities() []Capability {
	b.capMutex.RLock()
	defer b.capMutex.RUnlock()

	caps := make([]Capability, len(b.Capabilities))
	copy(caps, b.Capabilities)
	return caps
}

// Card builds the agent's self-describing descriptor.
func (b *BaseAgent) Card() AgentCard {
	b.capMutex.RLock()
	defer b.capMutex.RUnlock()

	card := AgentCard{
		ServiceID:    b.ID,
		DisplayName:  b.DisplayName,
		Description:  b.Description,
		BaseAddress:  b.Config.BaseAddress(),
		Capabilities: make([]CardCapability, 0, len(b.Capabilities)),
	}
	for _, cap := range b.Capabilities {
		card.Capabilities = append(card.Capabilities, CardCapability{
			CapabilityID: cap.Name,
			Description:  cap.Description,
			Path:         cap.Endpoint,
		})
	}
	return card
}

// RegisterCapability registers a capability and binds its HTTP handler.
// If cap.Endpoint is empty it is auto-generated as /<name>.
func (b *BaseAgent) RegisterCapability(cap Capability) {
	b.capMutex.Lock()
	defer b.capMutex.Unlock()

	if cap.Endpoint == "" {
		cap.Endpoint = "/" + cap.Name
	}

	b.Capabilities = append(b.Capabilities, cap)

	if cap.Handler != nil {
		b.mux.HandleFunc(cap.Endpoint, cap.Handler)
	} else {
		b.mux.HandleFunc(cap.Endpoint, b.handleCapabilityInfo(cap))
	}
	b.registeredPatterns[cap.Endpoint] = true

	b.Logger.Info("Registered capability", map[string]interface{}{
		"name":           cap.Name,
		"endpoint":       cap.Endpoint,
		"custom_handler": cap.Handler != nil,
	})
}

// HandleFunc registers a custom HTTP handler for the given pattern.
// It must be called before Start.
func (b *BaseAgent) HandleFunc(pattern string, handler http.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.serverStarted {
		return fmt.Errorf("cannot register handler for pattern %s: server already started", pattern)
	}
	if b.registeredPatterns[pattern] {
		return fmt.Errorf("handler already registered for pattern: %s", pattern)
	}

	b.mux.HandleFunc(pattern, handler)
	b.registeredPatterns[pattern] = true
	return nil
}

// handleCapabilityInfo is the generic handler for capabilities registered
// without a custom handler; it describes the capability instead of serving it.
func (b *BaseAgent) handleCapabilityInfo(cap Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"capability":   cap.Name,
			"description":  cap.Description,
			"input_types":  cap.InputTypes,
			"output_types": cap.OutputTypes,
			"message":      "This capability is registered but has no handler implementation",
		}
		WriteJSON(w, http.StatusOK, response)
	}
}

// setupStandardEndpoints adds /agent-card and /health.
func (b *BaseAgent) setupStandardEndpoints() {
	if !b.registeredPatterns[CardPath] {
		b.mux.HandleFunc(CardPath, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			WriteJSON(w, http.StatusOK, b.Card())
		})
		b.registeredPatterns[CardPath] = true
	}

	if b.Config.HTTP.EnableHealthCheck {
		healthPath := b.Config.HTTP.HealthCheckPath
		if healthPath == "" {
			healthPath = "/health"
		}
		if !b.registeredPatterns[healthPath] {
			b.mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
				WriteJSON(w, http.StatusOK, map[string]string{
					"status": "healthy",
					"name":   b.Name,
					"id":     b.ID,
				})
			})
			b.registeredPatterns[healthPath] = true
		}
	}
}

// Handler returns the fully assembled HTTP handler including the middleware
// stack. Exposed so tests can drive the agent through httptest.
func (b *BaseAgent) Handler() http.Handler {
	b.setupStandardEndpoints()

	// Order: Logging -> Recovery -> mux
	var handler http.Handler = b.mux
	handler = RecoveryMiddleware(b.Logger)(handler)
	handler = LoggingMiddleware(b.Logger, b.Config.Development.Enabled)(handler)
	return handler
}

// Start starts the HTTP server on the configured port, blocking until the
// server stops.
func (b *BaseAgent) Start(ctx context.Context) error {
	if b.Config == nil {
		b.Config = DefaultConfig()
	}
	if b.Config.Port < 0 || b.Config.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 0-65535", b.Config.Port)
	}

	handler := b.Handler()

	b.mu.Lock()
	b.serverStarted = true
	b.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", b.Config.Port),
		Handler:           handler,
		ReadTimeout:       b.Config.HTTP.ReadTimeout,
		ReadHeaderTimeout: b.Config.HTTP.ReadHeaderTimeout,
		WriteTimeout:      b.Config.HTTP.WriteTimeout,
		IdleTimeout:       b.Config.HTTP.IdleTimeout,
	}
	b.mu.Unlock()

	b.Logger.Info("Starting HTTP server", map[string]interface{}{
		"address":      b.server.Addr,
		"base_address": b.Config.BaseAddress(),
		"capabilities": len(b.GetCapabilities()),
	})

	if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		b.Logger.Error("HTTP server failed", map[string]interface{}{
			"error":   err.Error(),
			"address": b.server.Addr,
		})
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the agent: unregisters from the registry
// and stops the HTTP server.
func (b *BaseAgent) Shutdown(ctx context.Context) error {
	b.Logger.Info("Shutting down agent", map[string]interface{}{
		"name": b.Name,
	})

	if b.Registry != nil {
		if err := b.Registry.Unregister(ctx, b.ID); err != nil {
			b.Logger.Error("Failed to unregister", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	b.mu.RLock()
	server := b.server
	b.mu.RUnlock()
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes a {"error": msg} JSON response.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
