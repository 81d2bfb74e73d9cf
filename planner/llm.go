package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tripmaster/tripmaster/core"
)

const extractionSystemPrompt = "You are a helpful assistant that extracts travel information and responds ONLY in JSON format."

const extractionPromptTemplate = `You are an expert travel planning assistant. Analyze the following user request and extract the key information needed to book a trip.
Identify the user's intents (what they want to book: flights, hotels, cars) and extract the relevant entities for each intent.

User Request: %q

Entities to extract:
- "origin": Departure city/airport for flights (string, null if not specified)
- "destination": Arrival city/airport for flights (string, null if not specified)
- "departureDate": Flight departure date in YYYY-MM-DD format (string, null if not specified)
- "returnDate": Flight return date in YYYY-MM-DD format (string, null if one-way or not specified)
- "passengers": Number of people travelling for flights (integer, default 1 if not specified)
- "location": General location for hotel search or car rental pickup (string, often the destination city, null if not specified)
- "checkInDate": Hotel check-in date in YYYY-MM-DD format (string, null if not specified, often same as departureDate)
- "checkOutDate": Hotel check-out date in YYYY-MM-DD format (string, null if not specified, often same as returnDate)
- "guests": Number of guests for hotel booking (integer, default 1 if not specified, often same as passengers)
- "hotel_location_preference": Specific hotel location preference like "near Eiffel Tower" (string, null if not specified)
- "pickupDate": Car rental pickup date and time in YYYY-MM-DDTHH:mm:ssZ format (string, null if not specified, use 12:00:00Z for time if unspecified)
- "dropoffDate": Car rental dropoff date and time in YYYY-MM-DDTHH:mm:ssZ format (string, null if not specified, use 12:00:00Z for time if unspecified)
- "carType": Preferred type of rental car like "SUV", "Compact" (string, null if not specified)

Intents to identify (list of strings):
- "searchFlights"
- "bookFlight"
- "searchHotels"
- "bookHotel"
- "searchCars"
- "bookCar"
(Include 'book' intents if the user implies booking, like using the word "book" or "reserve")

Today's date is %s. Use this to resolve relative dates like "tomorrow" or "next week" (assume 'next week' starts on the upcoming Monday).

Return the identified intents and extracted entities strictly in the following JSON format. Do not include any explanations or introductory text outside the JSON structure itself.

{
  "intents": ["list", "of", "intent", "strings"],
  "entities": {}
}`

// LLMExtractor implements IntentExtractor against an OpenAI/Ollama-compatible
// chat-completions endpoint.
type LLMExtractor struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     core.Logger

	// now is injectable for deterministic prompt tests
	now func() time.Time
}

// NewLLMExtractor creates an extractor for the configured endpoint.
func NewLLMExtractor(cfg core.IntentConfig, logger core.Logger) *LLMExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &LLMExtractor{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Stream         bool          `json:"stream"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// extractionResult is the JSON document the model is instructed to return.
type extractionResult struct {
	Intents  []string               `json:"intents"`
	Entities map[string]interface{} `json:"entities"`
}

// Extract sends the trip-extraction prompt and parses the structured result.
func (l *LLMExtractor) Extract(ctx context.Context, query string) (*Intent, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate, query, l.now().UTC().Format("2006-01-02"))

	reqBody := chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	url := joinURL(l.baseURL, "/chat/completions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: chat completion returned status %d: %s",
			core.ErrRequestFailed, resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion returned no choices", core.ErrMalformedResponse)
	}

	content := chat.Choices[0].Message.Content
	var result extractionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		l.logger.Error("Failed to parse extraction JSON", map[string]interface{}{
			"error":   err.Error(),
			"content": content,
		})
		return nil, fmt.Errorf("%w: extraction content is not valid JSON", core.ErrMalformedResponse)
	}

	entities := Entities(result.Entities)
	if entities == nil {
		entities = Entities{}
	}
	entities.Normalize()

	intent := &Intent{
		Intents:  NewIntentSet(result.Intents...),
		Entities: entities,
	}

	l.logger.Debug("Intent extraction complete", map[string]interface{}{
		"intents":  result.Intents,
		"entities": len(entities),
	})
	return intent, nil
}
