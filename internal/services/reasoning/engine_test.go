package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KalshiPulse/internal/domain/models"
	"KalshiPulse/pkg/config"
)

func testEngine(t *testing.T, baseURL, apiKey string) *Engine {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.OpenAI.BaseURL = baseURL
	cfg.OpenAI.APIKey = apiKey
	return NewEngine(cfg, nil)
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: content}})
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestAnalyzeEventWithoutAPIKeyFallsBack(t *testing.T) {
	e := testEngine(t, "https://api.openai.com/v1", "")

	result, err := e.AnalyzeEvent(context.Background(), models.Contract{ID: "KX-1"})
	require.NoError(t, err)

	assert.True(t, result.Fallback)
	assert.Equal(t, "KX-1", result.ContractID)
	assert.InDelta(t, 0.5, result.Probability, 1e-9)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, models.ActionHold, result.Recommendations[0].Action)
	assert.Equal(t, "LLM analysis unavailable", result.Recommendations[0].Reasoning)
}

func TestAnalyzeEventParsesStructuredResponse(t *testing.T) {
	content := "Here is the analysis:\n```json\n" + `{
		"probability_assessment": {
			"Yes": {"probability": 0.72, "confidence": 0.8, "reasoning": "polls"},
			"No": {"probability": 0.28, "confidence": 0.8, "reasoning": "polls"}
		},
		"trading_recommendations": [
			{"action": "buy", "outcome": "Yes", "confidence": 0.85, "reasoning": "favorable odds"},
			{"action": "HOLD", "outcome": "No", "confidence": 0.4, "reasoning": "wait"}
		]
	}` + "\n```"
	srv := chatServer(t, content)
	defer srv.Close()

	e := testEngine(t, srv.URL, "test-key")
	result, err := e.AnalyzeEvent(context.Background(), models.Contract{
		ID:    "KXELON-25",
		Title: "Will the launch succeed?",
	})
	require.NoError(t, err)

	assert.False(t, result.Fallback)
	assert.InDelta(t, 0.72, result.Probability, 1e-9)
	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, models.ActionBuy, result.Recommendations[0].Action)
	assert.InDelta(t, 0.85, result.Recommendations[0].Confidence, 1e-9)
	assert.Equal(t, models.ActionHold, result.Recommendations[1].Action)
}

func TestAnalyzeEventUnparseableContentIsNeutral(t *testing.T) {
	srv := chatServer(t, "The market looks roughly balanced; no strong view.")
	defer srv.Close()

	e := testEngine(t, srv.URL, "test-key")
	result, err := e.AnalyzeEvent(context.Background(), models.Contract{ID: "KX-2"})
	require.NoError(t, err)

	assert.False(t, result.Fallback)
	assert.InDelta(t, 0.5, result.Probability, 1e-9)
	assert.Empty(t, result.Recommendations)
}

func TestAnalyzeEventServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL, "test-key")
	result, err := e.AnalyzeEvent(context.Background(), models.Contract{ID: "KX-3"})
	require.NoError(t, err)

	assert.True(t, result.Fallback)
	assert.InDelta(t, 0.5, result.Probability, 1e-9)
}

func TestProbabilityFromAssessment(t *testing.T) {
	assert.InDelta(t, 0.5, probabilityFromAssessment(nil), 1e-9)

	withYes := map[string]outcomeAssessment{
		"no":  {Probability: 0.3},
		"YES": {Probability: 0.7},
	}
	assert.InDelta(t, 0.7, probabilityFromAssessment(withYes), 1e-9)

	clamped := map[string]outcomeAssessment{"yes": {Probability: 1.4}}
	assert.InDelta(t, 1.0, probabilityFromAssessment(clamped), 1e-9)
}

func TestDecodePayloadToleratesFences(t *testing.T) {
	_, ok := decodePayload("no json here")
	assert.False(t, ok)

	payload, ok := decodePayload("prefix {\"trading_recommendations\": []} suffix")
	assert.True(t, ok)
	assert.Empty(t, payload.TradingRecommendations)
}
