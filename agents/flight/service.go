// Package flight implements the SkyHigh flight booking agent. It serves mock
// flight inventory: searches fabricate plausible options and bookings always
// confirm.
package flight

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripmaster/tripmaster/core"
)

var airlines = []string{"SG Air", "Lion Fly", "Asia Budget", "Sky Connect"}

// Option is one flight search result.
type Option struct {
	FlightID      string  `json:"flightId"`
	Airline       string  `json:"airline"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DepartureTime string  `json:"departureTime"`
	ArrivalTime   string  `json:"arrivalTime"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
}

type searchRequest struct {
	Origin        string      `json:"origin"`
	Destination   string      `json:"destination"`
	DepartureDate string      `json:"departureDate"`
	ReturnDate    string      `json:"returnDate"`
	Passengers    interface{} `json:"passengers"`
}

type bookRequest struct {
	FlightID         string        `json:"flightId"`
	PassengerDetails []interface{} `json:"passengerDetails"`
}

// Service is the flight agent.
type Service struct {
	*core.BaseAgent
	rng *rand.Rand
}

// New creates the flight agent with its search and booking capabilities
// registered.
func New(cfg *core.Config, logger core.Logger) *Service {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = "flight-booker"
	}

	agent := core.NewBaseAgentWithConfig(cfg)
	if logger != nil {
		agent.Logger = logger
	}
	agent.DisplayName = "SkyHigh Flight Booker"
	agent.Description = "Searches for and books airline tickets."

	s := &Service{
		BaseAgent: agent,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	s.RegisterCapability(core.Capability{
		Name:        "searchFlights",
		Description: "Finds available flights based on criteria.",
		Endpoint:    "/searchFlights",
		InputTypes:  []string{"json"},
		OutputTypes: []string{"json"},
		Handler:     s.handleSearch,
	})
	s.RegisterCapability(core.Capability{
		Name:        "bookFlight",
		Description: "Books a specific flight identified by flightId.",
		Endpoint:    "/bookFlight",
		InputTypes:  []string{"json"},
		OutputTypes: []string{"json"},
		Handler:     s.handleBook,
	})

	return s
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSONError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	passengers, ok := asCount(req.Passengers)
	if req.Origin == "" || req.Destination == "" || req.DepartureDate == "" || req.Passengers == nil {
		core.WriteJSONError(w, http.StatusBadRequest,
			"Missing required parameters: origin, destination, departureDate, passengers")
		return
	}
	if !ok || passengers < 1 {
		core.WriteJSONError(w, http.StatusBadRequest, "Invalid value for passengers")
		return
	}

	s.Logger.Info("Flight search received", map[string]interface{}{
		"origin":      req.Origin,
		"destination": req.Destination,
		"date":        req.DepartureDate,
		"passengers":  passengers,
	})

	options := s.generateOptions(req.Origin, req.Destination, req.DepartureDate, passengers)
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"flights": options})
}

func (s *Service) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSONError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.FlightID == "" || len(req.PassengerDetails) == 0 {
		core.WriteJSONError(w, http.StatusBadRequest,
			"Missing required parameters: flightId, passengerDetails")
		return
	}

	bookingID := "FLT-" + uuid.New().String()
	_ = s.Memory.Set(r.Context(), "booking:"+bookingID, req.FlightID, 0)

	s.Logger.Info("Flight booked", map[string]interface{}{
		"flight_id":  req.FlightID,
		"booking_id": bookingID,
		"passengers": len(req.PassengerDetails),
	})

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bookingId": bookingID,
		"status":    "Confirmed",
		"message":   fmt.Sprintf("Flight %s booked successfully.", req.FlightID),
	})
}

// generateOptions fabricates 1 to 5 flight options for the route. Prices
// scale with the passenger count.
func (s *Service) generateOptions(origin, destination, departureDate string, passengers int) []Option {
	day, err := time.Parse("2006-01-02", departureDate)
	if err != nil {
		day = time.Now().UTC().Truncate(24 * time.Hour)
	}

	count := 1 + s.rng.Intn(5)
	options := make([]Option, 0, count)
	for i := 0; i < count; i++ {
		airline := airlines[s.rng.Intn(len(airlines))]
		code := strings.ToUpper(strings.ReplaceAll(airline, " ", ""))[:3]
		departure := day.Add(time.Duration(6+s.rng.Intn(17)) * time.Hour).
			Add(time.Duration(15*s.rng.Intn(4)) * time.Minute)
		duration := time.Duration((1.5 + s.rng.Float64()*10.5) * float64(time.Hour))

		options = append(options, Option{
			FlightID:      fmt.Sprintf("%s-%d", code, 100+s.rng.Intn(900)),
			Airline:       airline,
			Origin:        origin,
			Destination:   destination,
			DepartureTime: departure.Format("2006-01-02T15:04:05") + "Z",
			ArrivalTime:   departure.Add(duration).Format("2006-01-02T15:04:05") + "Z",
			Price:         round2((150 + s.rng.Float64()*1050) * float64(passengers)),
			Currency:      "SGD",
		})
	}
	return options
}

// asCount coerces a JSON number or numeric string to an int.
func asCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
