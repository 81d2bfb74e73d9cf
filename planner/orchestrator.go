package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tripmaster/tripmaster/core"
)

// PlanStatus is the overall outcome of one planning request.
type PlanStatus string

const (
	PlanSuccess        PlanStatus = "Success"
	PlanPartialSuccess PlanStatus = "PartialSuccess"
	PlanFailed         PlanStatus = "Failed"
)

// PlanDetails carries the per-domain booking references and the accumulated
// failure descriptions for one planning request.
type PlanDetails struct {
	FlightBookingID    *string  `json:"flightBookingId"`
	HotelBookingID     *string  `json:"hotelBookingId"`
	CarRentalBookingID *string  `json:"carRentalBookingId"`
	Errors             []string `json:"errors"`
}

// PlanResult is the aggregated outcome of one planning request.
type PlanResult struct {
	Status  PlanStatus  `json:"status"`
	Summary string      `json:"summary"`
	Details PlanDetails `json:"details"`
}

// domainState is a terminal state of one domain's search/book workflow.
type domainState int

const (
	domainNotRequested domainState = iota
	domainInvalidInput
	domainSearchFailed
	domainNoResults
	domainBookFailed
	domainBooked
	domainSearchOnly // search succeeded, booking not requested
)

// domainOutcome records how one domain's workflow ended. err carries the
// failure for the aggregated error list; it wraps the core sentinel for the
// failure class so callers can classify with errors.Is.
type domainOutcome struct {
	state     domainState
	bookingID string
	err       error
}

// bookingResponse is the wire shape every booking capability returns.
type bookingResponse struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// Orchestrator drives the per-domain search/book workflows and aggregates
// their independent outcomes into a single PlanResult.
type Orchestrator struct {
	resolver  *Resolver
	client    *http.Client
	logger    core.Logger
	telemetry core.Telemetry
}

// NewOrchestrator creates an orchestrator that invokes capabilities through
// the resolver. callTimeout bounds each downstream call; zero means 10s.
func NewOrchestrator(resolver *Resolver, callTimeout time.Duration, logger core.Logger, telemetry core.Telemetry) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Orchestrator{
		resolver:  resolver,
		client:    &http.Client{Timeout: callTimeout},
		logger:    logger,
		telemetry: telemetry,
	}
}

// Fulfill runs every requested domain workflow in order and aggregates the
// outcomes. A domain is requested only when its search intent is present; a
// book intent on its own is ignored, since booking always rides on a search.
// Domains fail independently; one domain's failure never aborts the others.
func (o *Orchestrator) Fulfill(ctx context.Context, intent *Intent) *PlanResult {
	ctx, span := o.telemetry.StartSpan(ctx, "planner.fulfill")
	defer span.End()

	outcomes := make(map[string]domainOutcome)
	for _, spec := range domains() {
		if !intent.Intents.Has(spec.searchIntent) {
			continue
		}
		outcome := o.runDomain(ctx, spec, intent)
		outcomes[spec.name] = outcome

		fields := map[string]interface{}{
			"domain":     spec.name,
			"booked":     outcome.state == domainBooked,
			"booking_id": outcome.bookingID,
		}
		if outcome.err != nil {
			fields["error"] = outcome.err.Error()
		}
		o.logger.Info("Domain workflow finished", fields)
	}

	result := aggregate(outcomes, intent.Intents.Empty())
	span.SetAttribute("plan.status", string(result.Status))
	o.telemetry.RecordMetric("planner.plans", 1, map[string]string{"status": string(result.Status)})
	return result
}

// runDomain executes one domain's workflow: validate the required entities,
// resolve and call search, pick the first result, and book it when a booking
// intent is present. Each failure mode maps to one terminal state.
func (o *Orchestrator) runDomain(ctx context.Context, spec domainSpec, intent *Intent) domainOutcome {
	ctx, span := o.telemetry.StartSpan(ctx, "planner.domain."+spec.name)
	defer span.End()

	entities := intent.Entities

	var missing []string
	for _, slot := range spec.required {
		if !entities.Has(slot) {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		span.SetAttribute("outcome", "invalid_input")
		return domainOutcome{
			state: domainInvalidInput,
			err: fmt.Errorf("%s search failed: %w (%s)",
				spec.displayName, core.ErrMissingEntities, strings.Join(missing, ", ")),
		}
	}

	searchEndpoint, err := o.resolver.Resolve(ctx, spec.searchCapability)
	if err != nil {
		span.SetAttribute("outcome", "search_failed")
		return domainOutcome{
			state: domainSearchFailed,
			err:   fmt.Errorf("%s search failed: no agent offers %s: %w", spec.displayName, spec.searchCapability, err),
		}
	}

	var searchRaw map[string]json.RawMessage
	if err := o.postJSON(ctx, searchEndpoint.URL(), spec.searchPayload(entities), &searchRaw); err != nil {
		span.SetAttribute("outcome", "search_failed")
		return domainOutcome{
			state: domainSearchFailed,
			err:   fmt.Errorf("%s search failed: %w", spec.displayName, err),
		}
	}

	items, err := extractItems(searchRaw, spec.resultsField)
	if err != nil {
		span.SetAttribute("outcome", "search_failed")
		return domainOutcome{
			state: domainSearchFailed,
			err:   fmt.Errorf("%s search failed: %w", spec.displayName, err),
		}
	}
	if len(items) == 0 {
		span.SetAttribute("outcome", "no_results")
		return domainOutcome{
			state: domainNoResults,
			err:   fmt.Errorf("No %s found matching the criteria.", spec.resultsNoun),
		}
	}

	chosen := items[0]
	itemID, _ := chosen[spec.itemIDField].(string)
	if itemID == "" {
		span.SetAttribute("outcome", "search_failed")
		return domainOutcome{
			state: domainSearchFailed,
			err:   fmt.Errorf("%s search failed: %w: result missing %s", spec.displayName, core.ErrMalformedResponse, spec.itemIDField),
		}
	}

	o.logger.Debug("Selected search result", map[string]interface{}{
		"domain":  spec.name,
		"item_id": itemID,
		"results": len(items),
	})

	if !intent.Intents.Has(spec.bookIntent) {
		span.SetAttribute("outcome", "search_only")
		return domainOutcome{state: domainSearchOnly}
	}

	bookEndpoint, err := o.resolver.Resolve(ctx, spec.bookCapability)
	if err != nil {
		span.SetAttribute("outcome", "book_failed")
		return domainOutcome{
			state: domainBookFailed,
			err:   fmt.Errorf("%s booking failed: no agent offers %s: %w", spec.displayName, spec.bookCapability, err),
		}
	}

	var booking bookingResponse
	if err := o.postJSON(ctx, bookEndpoint.URL(), spec.bookPayload(itemID, entities), &booking); err != nil {
		span.SetAttribute("outcome", "book_failed")
		return domainOutcome{
			state: domainBookFailed,
			err:   fmt.Errorf("%s booking failed: %w", spec.displayName, err),
		}
	}
	if booking.Status != "Confirmed" {
		span.SetAttribute("outcome", "book_rejected")
		msg := booking.Message
		if msg == "" {
			msg = "booking was not confirmed"
		}
		return domainOutcome{
			state: domainBookFailed,
			err:   fmt.Errorf("%s booking failed: %w: %s", spec.displayName, core.ErrBookingRejected, msg),
		}
	}

	span.SetAttribute("outcome", "booked")
	span.SetAttribute("booking.id", booking.BookingID)
	return domainOutcome{state: domainBooked, bookingID: booking.BookingID}
}

// postJSON sends a JSON POST and decodes the JSON response into out. Nil
// values in the payload are stripped so optional fields are simply absent on
// the wire. A non-2xx status is an error carrying a snippet of the body.
func (o *Orchestrator) postJSON(ctx context.Context, url string, payload map[string]interface{}, out interface{}) error {
	for key, value := range payload {
		if value == nil {
			delete(payload, key)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", core.ErrTimeout, url)
		}
		return fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: status %d: %s", core.ErrRequestFailed, resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	return nil
}

// extractItems pulls the named result list out of a search response. A
// response without the field is malformed; an empty list is a valid
// zero-results outcome and is distinguished by the caller.
func extractItems(raw map[string]json.RawMessage, field string) ([]map[string]interface{}, error) {
	data, ok := raw[field]
	if !ok {
		return nil, fmt.Errorf("%w: response missing %q", core.ErrMalformedResponse, field)
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %q is not a list: %v", core.ErrMalformedResponse, field, err)
	}
	return items, nil
}

// aggregate folds per-domain outcomes into the overall plan result. The
// status is driven by recorded booking ids: Success needs at least one
// booking and no errors, PartialSuccess at least one booking alongside
// errors, and everything else is Failed. A search that succeeded but was
// never asked to book counts toward nothing. When no bookings and no errors
// were recorded, the summary distinguishes "no intents recognized" from
// "intents recognized but nothing booked".
func aggregate(outcomes map[string]domainOutcome, noIntents bool) *PlanResult {
	result := &PlanResult{Details: PlanDetails{Errors: []string{}}}

	var booked []string
	for _, spec := range domains() {
		outcome, ok := outcomes[spec.name]
		if !ok {
			continue
		}
		if outcome.err != nil {
			result.Details.Errors = append(result.Details.Errors, outcome.err.Error())
		}
		if outcome.state != domainBooked {
			continue
		}
		id := outcome.bookingID
		switch spec.name {
		case "flight":
			result.Details.FlightBookingID = &id
			booked = append(booked, "Flight ("+id+")")
		case "hotel":
			result.Details.HotelBookingID = &id
			booked = append(booked, "Hotel ("+id+")")
		case "car":
			result.Details.CarRentalBookingID = &id
			booked = append(booked, "Car ("+id+")")
		}
	}

	errCount := len(result.Details.Errors)
	switch {
	case len(booked) > 0 && errCount == 0:
		result.Status = PlanSuccess
		result.Summary = "Successfully booked: " + strings.Join(booked, ", ") + "."
	case len(booked) > 0:
		result.Status = PlanPartialSuccess
		result.Summary = fmt.Sprintf("Booked: %s. Encountered errors: %d: %s",
			strings.Join(booked, ", "), errCount, strings.Join(result.Details.Errors, "; "))
	case errCount > 0:
		result.Status = PlanFailed
		result.Summary = fmt.Sprintf("Planning failed. Errors: %d: %s",
			errCount, strings.Join(result.Details.Errors, "; "))
	case noIntents:
		result.Status = PlanFailed
		result.Summary = "Could not understand the request or identify any services to book."
	default:
		result.Status = PlanFailed
		result.Summary = "Could not fulfill the request. No services found matching criteria or no booking attempted."
	}
	return result
}
