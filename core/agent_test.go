package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegisterCapabilityDefaultEndpoint(t *testing.T) {
	agent := NewBaseAgent("test-agent")
	agent.RegisterCapability(Capability{
		Name:        "searchFlights",
		Description: "Finds available flights.",
	})

	caps := agent.GetCapabilities()
	if len(caps) != 1 {
		t.Fatalf("expected 1 capability, got %d", len(caps))
	}
	if caps[0].Endpoint != "/searchFlights" {
		t.Errorf("endpoint = %q, want /searchFlights", caps[0].Endpoint)
	}
}

func TestCardReflectsCapabilities(t *testing.T) {
	agent := NewBaseAgent("flight-booker")
	agent.DisplayName = "SkyHigh Flight Booker"
	agent.RegisterCapability(Capability{
		Name:        "searchFlights",
		Description: "Finds available flights.",
		Endpoint:    "/searchFlights",
	})
	agent.RegisterCapability(Capability{
		Name:     "bookFlight",
		Endpoint: "/bookFlight",
	})

	card := agent.Card()
	if card.ServiceID != agent.ID {
		t.Errorf("card serviceId = %q, want agent ID %q", card.ServiceID, agent.ID)
	}
	if card.DisplayName != "SkyHigh Flight Booker" {
		t.Errorf("card displayName = %q", card.DisplayName)
	}
	if len(card.Capabilities) != 2 {
		t.Fatalf("expected 2 card capabilities, got %d", len(card.Capabilities))
	}
	if card.Capabilities[0].CapabilityID != "searchFlights" || card.Capabilities[0].Path != "/searchFlights" {
		t.Errorf("unexpected first capability: %+v", card.Capabilities[0])
	}
	if err := card.Validate(); err != nil {
		t.Errorf("card should validate: %v", err)
	}
}

func TestAgentCardEndpoint(t *testing.T) {
	agent := NewBaseAgent("test-agent")
	agent.RegisterCapability(Capability{Name: "searchHotels"})

	server := httptest.NewServer(agent.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + CardPath)
	if err != nil {
		t.Fatalf("GET %s: %v", CardPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.ServiceID == "" {
		t.Error("card missing serviceId")
	}
	if len(card.Capabilities) != 1 || card.Capabilities[0].CapabilityID != "searchHotels" {
		t.Errorf("unexpected capabilities: %+v", card.Capabilities)
	}
}

func TestAgentCardEndpointRejectsPost(t *testing.T) {
	agent := NewBaseAgent("test-agent")
	agent.RegisterCapability(Capability{Name: "searchHotels"})

	server := httptest.NewServer(agent.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+CardPath, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", CardPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	agent := NewBaseAgent("test-agent")

	server := httptest.NewServer(agent.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHandleFuncDuplicate(t *testing.T) {
	agent := NewBaseAgent("test-agent")

	if err := agent.HandleFunc("/custom", func(w http.ResponseWriter, r *http.Request) {}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := agent.HandleFunc("/custom", func(w http.ResponseWriter, r *http.Request) {})
	if err == nil {
		t.Fatal("expected error on duplicate pattern")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("error = %v, want 'already registered'", err)
	}
}

func TestCapabilityWithoutHandlerServesInfo(t *testing.T) {
	agent := NewBaseAgent("test-agent")
	agent.RegisterCapability(Capability{
		Name:        "searchCars",
		Description: "Finds available rental cars.",
	})

	server := httptest.NewServer(agent.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/searchCars")
	if err != nil {
		t.Fatalf("GET /searchCars: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["capability"] != "searchCars" {
		t.Errorf("info capability = %v, want searchCars", body["capability"])
	}
}
