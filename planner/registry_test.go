package planner

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmaster/tripmaster/core"
)

// cardServer serves a fixed agent card at /agent-card.
func cardServer(t *testing.T, card core.AgentCard) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(core.CardPath, func(w http.ResponseWriter, r *http.Request) {
		core.WriteJSON(w, http.StatusOK, card)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func flightCard(serviceID string) core.AgentCard {
	return core.AgentCard{
		ServiceID:   serviceID,
		DisplayName: "SkyHigh Flight Booker",
		BaseAddress: "http://127.0.0.1:5001",
		Capabilities: []core.CardCapability{
			{CapabilityID: "searchFlights", Path: "/searchFlights"},
			{CapabilityID: "bookFlight", Path: "/bookFlight"},
		},
	}
}

func TestDiscoverRegistersReachableAgents(t *testing.T) {
	flight := cardServer(t, flightCard("flight-booker-002"))
	hotel := cardServer(t, core.AgentCard{
		ServiceID:   "hotel-booker-003",
		DisplayName: "CozyStays Hotel Reservations",
		BaseAddress: "http://127.0.0.1:5002",
		Capabilities: []core.CardCapability{
			{CapabilityID: "searchHotels", Path: "/searchHotels"},
		},
	})

	// The middle address is unreachable and must be skipped, not fatal.
	registry := NewRegistry([]string{
		flight.URL,
		"http://127.0.0.1:1",
		hotel.URL,
	}, time.Second, nil)

	require.NoError(t, registry.EnsureDiscovered(context.Background()))

	entries := registry.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "flight-booker-002", entries[0].ServiceID)
	assert.Equal(t, "hotel-booker-003", entries[1].ServiceID)
	assert.True(t, entries[0].HasCapability("searchFlights"))
	assert.False(t, entries[0].HasCapability("searchHotels"))
}

func TestDiscoverSkipsMalformedCard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(core.CardPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	bad := httptest.NewServer(mux)
	defer bad.Close()

	good := cardServer(t, flightCard("flight-booker-002"))

	registry := NewRegistry([]string{bad.URL, good.URL}, time.Second, nil)
	require.NoError(t, registry.EnsureDiscovered(context.Background()))

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "flight-booker-002", registry.Entries()[0].ServiceID)
}

func TestDiscoverLogsSkippedAddressWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := core.NewJSONLoggerWithOutput("planner", &buf)

	registry := NewRegistry([]string{"http://127.0.0.1:1"}, time.Second, logger)
	require.NoError(t, registry.EnsureDiscovered(context.Background()))

	assert.Contains(t, buf.String(), "Skipping agent address")
	assert.Contains(t, buf.String(), "registry.fetchCard [http://127.0.0.1:1]")
}

func TestDiscoverSkipsInvalidCard(t *testing.T) {
	// Structurally JSON but fails validation: no capabilities.
	invalid := cardServer(t, core.AgentCard{
		ServiceID:   "empty-001",
		BaseAddress: "http://127.0.0.1:5009",
	})

	registry := NewRegistry([]string{invalid.URL}, time.Second, nil)
	require.NoError(t, registry.EnsureDiscovered(context.Background()))
	assert.Equal(t, 0, registry.Len())
}

func TestDiscoverLastWriteWins(t *testing.T) {
	first := flightCard("flight-booker-002")
	first.BaseAddress = "http://old.example:5001"
	second := flightCard("flight-booker-002")
	second.BaseAddress = "http://new.example:5001"

	other := cardServer(t, core.AgentCard{
		ServiceID:   "hotel-booker-003",
		BaseAddress: "http://127.0.0.1:5002",
		Capabilities: []core.CardCapability{
			{CapabilityID: "searchHotels", Path: "/searchHotels"},
		},
	})

	a := cardServer(t, first)
	b := cardServer(t, second)

	registry := NewRegistry([]string{a.URL, other.URL, b.URL}, time.Second, nil)
	require.NoError(t, registry.EnsureDiscovered(context.Background()))

	entries := registry.Entries()
	require.Len(t, entries, 2)
	// replacement keeps the original position in iteration order
	assert.Equal(t, "flight-booker-002", entries[0].ServiceID)
	assert.Equal(t, "http://new.example:5001", entries[0].BaseAddress)
	assert.Equal(t, "hotel-booker-003", entries[1].ServiceID)
}

func TestEnsureDiscoveredRunsOnce(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc(core.CardPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		core.WriteJSON(w, http.StatusOK, flightCard("flight-booker-002"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	registry := NewRegistry([]string{server.URL}, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.EnsureDiscovered(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "discovery pass must run exactly once")
	assert.True(t, registry.Populated())

	// subsequent calls are no-ops
	require.NoError(t, registry.EnsureDiscovered(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestResetReArmsDiscovery(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc(core.CardPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		core.WriteJSON(w, http.StatusOK, flightCard("flight-booker-002"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	registry := NewRegistry([]string{server.URL}, time.Second, nil)
	require.NoError(t, registry.EnsureDiscovered(context.Background()))
	assert.Equal(t, 1, registry.Len())

	registry.Reset()
	assert.Equal(t, 0, registry.Len())
	assert.False(t, registry.Populated())

	require.NoError(t, registry.EnsureDiscovered(context.Background()))
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"http://a:1", "/agent-card", "http://a:1/agent-card"},
		{"http://a:1/", "/agent-card", "http://a:1/agent-card"},
		{"http://a:1//", "agent-card", "http://a:1/agent-card"},
		{"http://a:1", "", "http://a:1/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinURL(tt.base, tt.path))
	}
}
