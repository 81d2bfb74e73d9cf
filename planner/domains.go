package planner

import (
	"fmt"

	"github.com/google/uuid"
)

// participant is a synthetic traveller/guest/driver record sent with a
// booking request. The demo fabricates these; a real system would collect
// them from the user.
type participant struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

func syntheticParticipants(prefix string, count int) []participant {
	if count < 1 {
		count = 1
	}
	participants := make([]participant, count)
	for i := range participants {
		participants[i] = participant{
			Name: fmt.Sprintf("%s %d", prefix, i+1),
			ID:   uuid.New().String(),
		}
	}
	return participants
}

// domainSpec parameterizes the shared search/book state machine for one
// booking vertical. The three domains differ only in these fields.
type domainSpec struct {
	name        string // internal key: "flight", "hotel", "car"
	displayName string // used in summaries and error strings

	searchIntent     string
	bookIntent       string
	searchCapability string
	bookCapability   string

	// required entity slots checked before any network call
	required []string

	// searchPayload builds the search request body; nil-valued fields are
	// stripped before sending
	searchPayload func(e Entities) map[string]interface{}

	// resultsField names the list in the search response; resultsNoun is
	// the human word for the items ("flights")
	resultsField string
	resultsNoun  string

	// itemIDField names the chosen item's identifier in a search result
	itemIDField string

	// bookPayload builds the booking request body for the chosen item
	bookPayload func(itemID string, e Entities) map[string]interface{}
}

// domains returns the per-domain workflow parameterizations in their fixed
// execution order: flight, then hotel, then car. The ordering is not
// semantically required but is kept deterministic.
func domains() []domainSpec {
	return []domainSpec{
		{
			name:             "flight",
			displayName:      "Flight",
			searchIntent:     IntentSearchFlights,
			bookIntent:       IntentBookFlight,
			searchCapability: IntentSearchFlights,
			bookCapability:   IntentBookFlight,
			required:         []string{EntityOrigin, EntityDestination, EntityDepartureDate, EntityPassengers},
			searchPayload: func(e Entities) map[string]interface{} {
				return map[string]interface{}{
					"origin":        e[EntityOrigin],
					"destination":   e[EntityDestination],
					"departureDate": e[EntityDepartureDate],
					"returnDate":    e[EntityReturnDate],
					"passengers":    e[EntityPassengers],
				}
			},
			resultsField: "flights",
			resultsNoun:  "flights",
			itemIDField:  "flightId",
			bookPayload: func(itemID string, e Entities) map[string]interface{} {
				return map[string]interface{}{
					"flightId":         itemID,
					"passengerDetails": syntheticParticipants("Traveller", e.IntVal(EntityPassengers, 1)),
				}
			},
		},
		{
			name:             "hotel",
			displayName:      "Hotel",
			searchIntent:     IntentSearchHotels,
			bookIntent:       IntentBookHotel,
			searchCapability: IntentSearchHotels,
			bookCapability:   IntentBookHotel,
			required:         []string{EntityLocation, EntityCheckInDate, EntityCheckOutDate, EntityGuests},
			searchPayload: func(e Entities) map[string]interface{} {
				// The specific hotel preference wins over the general location
				location := e[EntityLocation]
				if e.Has(EntityHotelPreference) {
					location = e[EntityHotelPreference]
				}
				return map[string]interface{}{
					"location":     location,
					"checkInDate":  e[EntityCheckInDate],
					"checkOutDate": e[EntityCheckOutDate],
					"guests":       e[EntityGuests],
				}
			},
			resultsField: "hotels",
			resultsNoun:  "hotels",
			itemIDField:  "hotelId",
			bookPayload: func(itemID string, e Entities) map[string]interface{} {
				return map[string]interface{}{
					"hotelId":      itemID,
					"guestDetails": syntheticParticipants("Guest", e.IntVal(EntityGuests, 1)),
					"roomType":     "Standard",
				}
			},
		},
		{
			name:             "car",
			displayName:      "Car Rental",
			searchIntent:     IntentSearchCars,
			bookIntent:       IntentBookCar,
			searchCapability: IntentSearchCars,
			bookCapability:   IntentBookCar,
			required:         []string{EntityLocation, EntityPickupDate, EntityDropoffDate},
			searchPayload: func(e Entities) map[string]interface{} {
				return map[string]interface{}{
					"location":    e[EntityLocation],
					"pickupDate":  e[EntityPickupDate],
					"dropoffDate": e[EntityDropoffDate],
					"carType":     e[EntityCarType],
				}
			},
			resultsField: "cars",
			resultsNoun:  "cars",
			itemIDField:  "carId",
			bookPayload: func(itemID string, e Entities) map[string]interface{} {
				return map[string]interface{}{
					"carId": itemID,
					"driverDetails": participant{
						Name: "Primary Driver",
						ID:   uuid.New().String(),
					},
				}
			},
		},
	}
}
