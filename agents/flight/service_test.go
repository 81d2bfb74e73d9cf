package flight

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmaster/tripmaster/core"
)

func newTestService(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	svc := New(nil, nil)
	server := httptest.NewServer(svc.Handler())
	t.Cleanup(server.Close)
	return svc, server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSearchFlightsReturnsOptions(t *testing.T) {
	_, server := newTestService(t)

	resp := postJSON(t, server.URL+"/searchFlights", `{
		"origin": "Singapore",
		"destination": "Tokyo",
		"departureDate": "2026-09-01",
		"passengers": 2
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Flights []Option `json:"flights"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Flights)
	assert.LessOrEqual(t, len(body.Flights), 5)

	for _, opt := range body.Flights {
		assert.NotEmpty(t, opt.FlightID)
		assert.Contains(t, airlines, opt.Airline)
		assert.Equal(t, "Singapore", opt.Origin)
		assert.Equal(t, "Tokyo", opt.Destination)
		assert.True(t, strings.HasSuffix(opt.DepartureTime, "Z"))
		assert.Greater(t, opt.Price, 0.0)
		assert.Equal(t, "SGD", opt.Currency)
	}
}

func TestSearchFlightsValidation(t *testing.T) {
	_, server := newTestService(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing origin", body: `{"destination":"Tokyo","departureDate":"2026-09-01","passengers":2}`},
		{name: "missing passengers", body: `{"origin":"Singapore","destination":"Tokyo","departureDate":"2026-09-01"}`},
		{name: "zero passengers", body: `{"origin":"Singapore","destination":"Tokyo","departureDate":"2026-09-01","passengers":0}`},
		{name: "invalid json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/searchFlights", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestBookFlightConfirms(t *testing.T) {
	_, server := newTestService(t)

	resp := postJSON(t, server.URL+"/bookFlight", `{
		"flightId": "SGA-123",
		"passengerDetails": [{"name": "Traveller 1", "id": "abc"}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var booking map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&booking))
	assert.True(t, strings.HasPrefix(booking["bookingId"], "FLT-"))
	assert.Equal(t, "Confirmed", booking["status"])
	assert.Contains(t, booking["message"], "SGA-123")
}

func TestBookFlightValidation(t *testing.T) {
	_, server := newTestService(t)

	resp := postJSON(t, server.URL+"/bookFlight", `{"flightId": "SGA-123"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFlightAgentCard(t *testing.T) {
	_, server := newTestService(t)

	resp, err := http.Get(server.URL + core.CardPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var card core.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	require.NoError(t, card.Validate())
	assert.Equal(t, "SkyHigh Flight Booker", card.DisplayName)

	paths := map[string]string{}
	for _, c := range card.Capabilities {
		paths[c.CapabilityID] = c.Path
	}
	assert.Equal(t, "/searchFlights", paths["searchFlights"])
	assert.Equal(t, "/bookFlight", paths["bookFlight"])
}

func TestSearchFlightsRejectsGet(t *testing.T) {
	_, server := newTestService(t)

	resp, err := http.Get(server.URL + "/searchFlights")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
