// Package hotel implements the CozyStays hotel reservation agent. Like the
// other specialist agents it serves mock inventory and always-confirming
// bookings.
package hotel

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tripmaster/tripmaster/core"
)

var (
	hotelNames = []string{
		"Grand Plaza", "Marina Bay Sands View", "Orchard Retreat",
		"Sentosa Getaway", "City Center Inn", "Riverside Hotel",
	}
	locations = []string{
		"Downtown", "Marina Bay", "Orchard Road", "Sentosa", "Chinatown", "Clarke Quay",
	}
)

// Option is one hotel search result.
type Option struct {
	HotelID       string  `json:"hotelId"`
	Name          string  `json:"name"`
	Location      string  `json:"location"`
	Rating        float64 `json:"rating"`
	PricePerNight float64 `json:"pricePerNight"`
	Currency      string  `json:"currency"`
}

type searchRequest struct {
	Location     string      `json:"location"`
	CheckInDate  string      `json:"checkInDate"`
	CheckOutDate string      `json:"checkOutDate"`
	Guests       interface{} `json:"guests"`
}

type bookRequest struct {
	HotelID      string        `json:"hotelId"`
	GuestDetails []interface{} `json:"guestDetails"`
	RoomType     string        `json:"roomType"`
}

// Service is the hotel agent.
type Service struct {
	*core.BaseAgent
	rng *rand.Rand
}

// New creates the hotel agent with its search and booking capabilities
// registered.
func New(cfg *core.Config, logger core.Logger) *Service {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = "hotel-booker"
	}

	agent := core.NewBaseAgentWithConfig(cfg)
	if logger != nil {
		agent.Logger = logger
	}
	agent.DisplayName = "CozyStays Hotel Reservations"
	agent.Description = "Searches for and books hotel rooms."

	s := &Service{
		BaseAgent: agent,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	s.RegisterCapability(core.Capability{
		Name:        "searchHotels",
		Description: "Finds available hotels based on criteria.",
		Endpoint:    "/searchHotels",
		InputTypes:  []string{"json"},
		OutputTypes: []string{"json"},
		Handler:     s.handleSearch,
	})
	s.RegisterCapability(core.Capability{
		Name:        "bookHotel",
		Description: "Books a specific hotel room identified by hotelId.",
		Endpoint:    "/bookHotel",
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
	// guests defaults to 1 when absent
	if req.Location == "" || req.CheckInDate == "" || req.CheckOutDate == "" {
		core.WriteJSONError(w, http.StatusBadRequest,
			"Missing required parameters: location, checkInDate, checkOutDate")
		return
	}

	guests := guestCount(req.Guests)
	s.Logger.Info("Hotel search received", map[string]interface{}{
		"location":  req.Location,
		"guests":    guests,
		"check_in":  req.CheckInDate,
		"check_out": req.CheckOutDate,
	})

	options := s.generateOptions(guests)
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"hotels": options})
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
	if req.HotelID == "" || len(req.GuestDetails) == 0 {
		core.WriteJSONError(w, http.StatusBadRequest,
			"Missing required parameters: hotelId, guestDetails")
		return
	}

	bookingID := "HOT-" + uuid.New().String()
	_ = s.Memory.Set(r.Context(), "booking:"+bookingID, req.HotelID, 0)

	s.Logger.Info("Hotel booked", map[string]interface{}{
		"hotel_id":   req.HotelID,
		"booking_id": bookingID,
		"guests":     len(req.GuestDetails),
	})

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bookingId": bookingID,
		"status":    "Confirmed",
		"message":   fmt.Sprintf("Hotel %s booked successfully.", req.HotelID),
	})
}

// generateOptions fabricates 1 to 4 hotel options. Nightly prices creep up
// with the guest count.
func (s *Service) generateOptions(guests int) []Option {
	count := 1 + s.rng.Intn(4)
	options := make([]Option, 0, count)
	for i := 0; i < count; i++ {
		price := (120 + s.rng.Float64()*480) * (1 + float64(guests-1)*0.2)
		options = append(options, Option{
			HotelID:       fmt.Sprintf("HTL-%d", 1000+s.rng.Intn(9000)),
			Name:          hotelNames[s.rng.Intn(len(hotelNames))],
			Location:      locations[s.rng.Intn(len(locations))],
			Rating:        round1(3.5 + s.rng.Float64()*1.5),
			PricePerNight: round2(price),
			Currency:      "SGD",
		})
	}
	return options
}

func guestCount(v interface{}) int {
	switch n := v.(type) {
	case float64:
		if n >= 1 {
			return int(n)
		}
	case int:
		if n >= 1 {
			return n
		}
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil && parsed >= 1 {
			return parsed
		}
	}
	return 1
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
