package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tripmaster/tripmaster/core"
)

// PlanRequest is the body of POST /planTrip.
type PlanRequest struct {
	Query string `json:"query"`
}

// Planner is the coordinating agent. It owns the capability registry, the
// intent extractor and the fulfillment orchestrator, and exposes the planTrip
// capability over HTTP.
type Planner struct {
	*core.BaseAgent

	registry     *Registry
	resolver     *Resolver
	extractor    IntentExtractor
	orchestrator *Orchestrator
}

// New creates the planner agent from configuration. When extractor is nil an
// LLM extractor is built from cfg.Intent.
func New(cfg *core.Config, extractor IntentExtractor, logger core.Logger, telemetry core.Telemetry) *Planner {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	agent := core.NewBaseAgentWithConfig(cfg)
	agent.Logger = logger
	agent.Telemetry = telemetry
	agent.DisplayName = "TripMaster AI Planner"
	agent.Description = "Coordinates flight, hotel and car rental agents to plan trips from natural language requests"

	registry := NewRegistry(cfg.Discovery.PeerAddresses, cfg.Discovery.CardTimeout, logger)
	resolver := NewResolver(registry, logger)
	if extractor == nil {
		extractor = NewLLMExtractor(cfg.Intent, logger)
	}

	p := &Planner{
		BaseAgent:    agent,
		registry:     registry,
		resolver:     resolver,
		extractor:    extractor,
		orchestrator: NewOrchestrator(resolver, cfg.Discovery.CallTimeout, logger, telemetry),
	}

	p.RegisterCapability(core.Capability{
		Name:        "planTrip",
		Description: "Plan and book a trip from a natural language request",
		Endpoint:    "/planTrip",
		InputTypes:  []string{"json"},
		OutputTypes: []string{"json"},
		Handler:     p.handlePlanTrip,
	})

	return p
}

// Registry exposes the capability registry, mainly for warm-up and tests.
func (p *Planner) Registry() *Registry {
	return p.registry
}

// handlePlanTrip serves POST /planTrip: understand the request, run the
// domain workflows, and report the aggregated outcome. The two fatal
// conditions, an empty registry after discovery and an unusable intent
// extraction, return 500; everything downstream of them is reported inside
// a 200 PlanResult.
func (p *Planner) handlePlanTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		core.WriteJSONError(w, http.StatusBadRequest, "request body must be JSON with a non-empty 'query' field")
		return
	}

	ctx := r.Context()
	p.Logger.Info("Received trip request", map[string]interface{}{
		"query": req.Query,
	})

	if err := p.registry.EnsureDiscovered(ctx); err != nil {
		core.WriteJSONError(w, http.StatusInternalServerError, "agent discovery interrupted")
		return
	}
	if p.registry.Len() == 0 {
		p.Logger.Error("No specialist agents discovered", map[string]interface{}{
			"addresses": p.Config.Discovery.PeerAddresses,
			"error":     core.NewAgentError("planner.handlePlanTrip", "discovery", core.ErrRegistryEmpty).Error(),
		})
		core.WriteJSON(w, http.StatusInternalServerError, &PlanResult{
			Status:  PlanFailed,
			Summary: "Configuration error: no specialist agents discovered.",
			Details: PlanDetails{Errors: []string{"Failed to discover specialist agents."}},
		})
		return
	}

	intent, err := p.extractor.Extract(ctx, req.Query)
	if err == nil && !intent.Usable() {
		err = core.NewAgentError("planner.handlePlanTrip", "intent", core.ErrNoIntents)
	}
	if err != nil {
		p.Logger.Error("Intent extraction produced nothing usable", map[string]interface{}{
			"query": req.Query,
			"error": err.Error(),
		})
		core.WriteJSON(w, http.StatusInternalServerError, &PlanResult{
			Status:  PlanFailed,
			Summary: "Could not understand the request. Please provide more details.",
			Details: PlanDetails{Errors: []string{"Failed to extract usable intents or entities from the request."}},
		})
		return
	}

	result := p.orchestrator.Fulfill(ctx, intent)
	core.WriteJSON(w, http.StatusOK, result)
}

// WarmUp optionally runs discovery ahead of the first request.
func (p *Planner) WarmUp(ctx context.Context) error {
	return p.registry.EnsureDiscovered(ctx)
}
