package planner

import (
	"context"
	"fmt"
	"strconv"
)

// Intent tags shared by convention with the specialist agents.
const (
	IntentSearchFlights = "searchFlights"
	IntentBookFlight    = "bookFlight"
	IntentSearchHotels  = "searchHotels"
	IntentBookHotel     = "bookHotel"
	IntentSearchCars    = "searchCars"
	IntentBookCar       = "bookCar"
)

// Entity slot names produced by intent understanding.
const (
	EntityOrigin          = "origin"
	EntityDestination     = "destination"
	EntityDepartureDate   = "departureDate"
	EntityReturnDate      = "returnDate"
	EntityPassengers      = "passengers"
	EntityLocation        = "location"
	EntityCheckInDate     = "checkInDate"
	EntityCheckOutDate    = "checkOutDate"
	EntityGuests          = "guests"
	EntityHotelPreference = "hotel_location_preference"
	EntityPickupDate      = "pickupDate"
	EntityDropoffDate     = "dropoffDate"
	EntityCarType         = "carType"
)

// IntentSet is the set of intent tags recognized in one request.
type IntentSet map[string]struct{}

// NewIntentSet builds a set from intent tags.
func NewIntentSet(intents ...string) IntentSet {
	set := make(IntentSet, len(intents))
	for _, intent := range intents {
		set[intent] = struct{}{}
	}
	return set
}

// Has reports whether the intent tag is present.
func (s IntentSet) Has(intent string) bool {
	_, ok := s[intent]
	return ok
}

// Empty reports whether no intents were recognized.
func (s IntentSet) Empty() bool {
	return len(s) == 0
}

// Entities is the flat map of named slots extracted from the request.
// Absence of a slot is a normal state, not an error, until a domain's
// workflow demands it.
type Entities map[string]interface{}

// Has reports whether the slot holds a usable non-empty value.
func (e Entities) Has(key string) bool {
	switch v := e[key].(type) {
	case nil:
		return false
	case string:
		return v != "" && v != "null"
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

// StringVal returns the slot as a string, or "" when absent or not scalar.
func (e Entities) StringVal(key string) string {
	switch v := e[key].(type) {
	case string:
		if v == "null" {
			return ""
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// IntVal returns the slot as an int, or def when absent or malformed.
func (e Entities) IntVal(key string, def int) int {
	switch v := e[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Normalize drops null-ish values and coerces party-size slots to ints >= 1,
// matching what the domain workflows expect from the extraction step.
func (e Entities) Normalize() {
	for key, value := range e {
		if value == nil {
			delete(e, key)
			continue
		}
		if s, ok := value.(string); ok && (s == "" || s == "null") {
			delete(e, key)
		}
	}
	for _, key := range []string{EntityPassengers, EntityGuests} {
		n := e.IntVal(key, 1)
		if n < 1 {
			n = 1
		}
		e[key] = n
	}
}

// Intent is the structured result of understanding one request.
type Intent struct {
	Intents  IntentSet
	Entities Entities
}

// Usable reports whether understanding produced anything to act on.
func (i *Intent) Usable() bool {
	if i == nil {
		return false
	}
	if !i.Intents.Empty() {
		return true
	}
	for key := range i.Entities {
		if i.Entities.Has(key) {
			return true
		}
	}
	return false
}

// IntentExtractor converts a free-text trip request into intents and
// entities. The planner treats it as an opaque, fallible collaborator.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) (*Intent, error)
}

// StaticExtractor returns a fixed Intent for every query. Used in tests and
// for offline demos without an LLM endpoint.
type StaticExtractor struct {
	Result *Intent
	Err    error
}

func (s *StaticExtractor) Extract(ctx context.Context, query string) (*Intent, error) {
	if s.Err != nil {
		return nil, fmt.Errorf("intent extraction: %w", s.Err)
	}
	return s.Result, nil
}
