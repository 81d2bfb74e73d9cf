// Package car implements the RoadRunner car rental agent.
package car

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

var makesModels = map[string][]string{
	"Toyota":        {"Vios", "Camry", "Altis", "RAV4"},
	"Honda":         {"Civic", "City", "HR-V", "CR-V"},
	"BMW":           {"3 Series", "5 Series", "X1"},
	"Mercedes-Benz": {"C-Class", "E-Class", "GLA"},
	"Hyundai":       {"Avante", "Tucson"},
}

// makes is kept sorted apart from the map so result generation is not subject
// to map iteration order.
var makes = []string{"BMW", "Honda", "Hyundai", "Mercedes-Benz", "Toyota"}

var carTypes = []string{"Sedan", "SUV", "Compact", "Luxury"}

// Option is one rental car search result.
type Option struct {
	CarID       string  `json:"carId"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Type        string  `json:"type"`
	Location    string  `json:"location"`
	PricePerDay float64 `json:"pricePerDay"`
	Currency    string  `json:"currency"`
}

type searchRequest struct {
	Location    string `json:"location"`
	PickupDate  string `json:"pickupDate"`
	DropoffDate string `json:"dropoffDate"`
	CarType     string `json:"carType"`
}

type bookRequest struct {
	CarID         string      `json:"carId"`
	DriverDetails interface{} `json:"driverDetails"`
}

// Service is the car rental agent.
type Service struct {
	*core.BaseAgent
	rng *rand.Rand
}

// New creates the car rental agent with its search and booking capabilities
// registered.
func New(cfg *core.Config, logger core.Logger) *Service {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = "car-rental"
	}

	agent := core.NewBaseAgentWithConfig(cfg)
	if logger != nil {
		agent.Logger = logger
	}
	agent.DisplayName = "RoadRunner Car Rentals"
	agent.Description = "Searches for and books rental cars."

	s := &Service{
		BaseAgent: agent,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	s.RegisterCapability(core.Capability{
		Name:        "searchCars",
		Description: "Finds available rental cars.",
		Endpoint:    "/searchCars",
		InputTypes:  []string{"json"},
		OutputTypes: []string{"json"},
		Handler:     s.handleSearch,
	})
	s.RegisterCapability(core.Capability{
		Name:        "bookCar",
		Description: "Books a specific rental car identified by carId.",
		Endpoint:    "/bookCar",
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
	if req.Location == "" || req.PickupDate == "" || req.DropoffDate == "" {
		core.WriteJSONError(w, http.StatusBadRequest,
			"Missing required parameters: location, pickupDate, dropoffDate")
		return
	}

	s.Logger.Info("Car search received", map[string]interface{}{
		"location": req.Location,
		"car_type": req.CarType,
		"pickup":   req.PickupDate,
		"dropoff":  req.DropoffDate,
	})

	options := s.generateOptions(req.Location, req.CarType)
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"cars": options})
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
	if req.CarID == "" || req.DriverDetails == nil {
		core.WriteJSONError(w, http.StatusBadRequest,
			"Missing required parameters: carId, driverDetails")
		return
	}

	bookingID := "REN-" + uuid.New().String()
	_ = s.Memory.Set(r.Context(), "booking:"+bookingID, req.CarID, 0)

	s.Logger.Info("Car booked", map[string]interface{}{
		"car_id":     req.CarID,
		"booking_id": bookingID,
	})

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bookingId": bookingID,
		"status":    "Confirmed",
		"message":   fmt.Sprintf("Car %s booked successfully.", req.CarID),
	})
}

// generateOptions fabricates 1 to 5 rental options at the pickup location.
// When a type preference is given, matching cars are preferred: generated
// options lean toward the requested type and non-matching ones are filtered
// out if any match.
func (s *Service) generateOptions(location, carTypeQuery string) []Option {
	count := 1 + s.rng.Intn(5)
	options := make([]Option, 0, count)
	for i := 0; i < count; i++ {
		make_ := makes[s.rng.Intn(len(makes))]
		models := makesModels[make_]
		assignedType := carTypes[s.rng.Intn(len(carTypes))]
		if carTypeQuery != "" {
			for _, t := range carTypes {
				if strings.Contains(strings.ToLower(carTypeQuery), strings.ToLower(t)) {
					assignedType = t
					break
				}
			}
		}

		price := 50 + s.rng.Float64()*200
		switch assignedType {
		case "Luxury":
			price *= 1.5
		case "SUV":
			price *= 1.2
		}

		options = append(options, Option{
			CarID:       fmt.Sprintf("CAR-%s-%d", strings.ToUpper(make_[:3]), 100+s.rng.Intn(900)),
			Make:        make_,
			Model:       models[s.rng.Intn(len(models))],
			Type:        assignedType,
			Location:    location,
			PricePerDay: round2(price),
			Currency:    "SGD",
		})
	}

	if carTypeQuery != "" {
		matched := options[:0:0]
		for _, opt := range options {
			if strings.Contains(strings.ToLower(carTypeQuery), strings.ToLower(opt.Type)) {
				matched = append(matched, opt)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return options
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
