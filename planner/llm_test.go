package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmaster/tripmaster/core"
)

func chatCompletionServer(t *testing.T, content string, check func(*testing.T, chatRequest, *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(t, req, r)
		}

		core.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLLMExtractorParsesResult(t *testing.T) {
	content := `{
		"intents": ["searchFlights", "bookFlight", "searchHotels"],
		"entities": {
			"origin": "Singapore",
			"destination": "Tokyo",
			"departureDate": "2026-09-01",
			"returnDate": null,
			"passengers": 2,
			"carType": "null"
		}
	}`

	server := chatCompletionServer(t, content, func(t *testing.T, req chatRequest, r *http.Request) {
		assert.Equal(t, "llama3:8b", req.Model)
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "Tokyo trip please")
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
	})

	extractor := NewLLMExtractor(core.IntentConfig{
		BaseURL: server.URL,
		Model:   "llama3:8b",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, nil)

	intent, err := extractor.Extract(context.Background(), "Tokyo trip please")
	require.NoError(t, err)

	assert.True(t, intent.Intents.Has(IntentSearchFlights))
	assert.True(t, intent.Intents.Has(IntentBookFlight))
	assert.False(t, intent.Intents.Has(IntentSearchCars))

	assert.Equal(t, "Singapore", intent.Entities["origin"])
	assert.Equal(t, 2, intent.Entities["passengers"])
	// null-ish slots are dropped by normalization
	assert.NotContains(t, intent.Entities, "returnDate")
	assert.NotContains(t, intent.Entities, "carType")
}

func TestLLMExtractorPromptContainsDate(t *testing.T) {
	fixed := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	server := chatCompletionServer(t, `{"intents":[],"entities":{}}`, func(t *testing.T, req chatRequest, r *http.Request) {
		assert.Contains(t, req.Messages[1].Content, "2026-08-23")
	})

	extractor := NewLLMExtractor(core.IntentConfig{BaseURL: server.URL, Model: "m"}, nil)
	extractor.now = func() time.Time { return fixed }

	_, err := extractor.Extract(context.Background(), "trip tomorrow")
	require.NoError(t, err)
}

func TestLLMExtractorErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	extractor := NewLLMExtractor(core.IntentConfig{BaseURL: server.URL, Model: "m"}, nil)
	_, err := extractor.Extract(context.Background(), "anything")
	assert.ErrorIs(t, err, core.ErrRequestFailed)
}

func TestLLMExtractorMalformedContent(t *testing.T) {
	server := chatCompletionServer(t, "sorry, I cannot help with that", nil)

	extractor := NewLLMExtractor(core.IntentConfig{BaseURL: server.URL, Model: "m"}, nil)
	_, err := extractor.Extract(context.Background(), "anything")
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
}

func TestLLMExtractorNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		core.WriteJSON(w, http.StatusOK, map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	extractor := NewLLMExtractor(core.IntentConfig{BaseURL: server.URL, Model: "m"}, nil)
	_, err := extractor.Extract(context.Background(), "anything")
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
}

func TestLLMExtractorConnectionRefused(t *testing.T) {
	extractor := NewLLMExtractor(core.IntentConfig{BaseURL: "http://127.0.0.1:1", Model: "m"}, nil)
	_, err := extractor.Extract(context.Background(), "anything")
	assert.ErrorIs(t, err, core.ErrConnectionFailed)
}
