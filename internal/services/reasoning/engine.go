package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"KalshiPulse/internal/domain/models"
	domsvc "KalshiPulse/internal/domain/service"
	"KalshiPulse/pkg/config"
	xhttp "KalshiPulse/pkg/http"
	"KalshiPulse/pkg/logger"
	"KalshiPulse/pkg/util"
)

const systemPrompt = `You are an expert financial analyst specializing in event-driven trading on prediction markets.
Analyze the given event contract and provide insights on:
1. Event probability assessment
2. Key factors that could influence the outcome
3. Market sentiment analysis
4. Risk factors and uncertainties
5. Trading recommendations

Be objective, data-driven, and consider multiple scenarios.`

// Engine calls an OpenAI-compatible chat-completions API to produce
// structured trading recommendations. Without an API key it runs in
// fallback mode and never leaves the process.
type Engine struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *xhttp.Client
	log         *logger.Logger
}

func NewEngine(cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{
		baseURL:     cfg.OpenAI.BaseURL,
		apiKey:      cfg.OpenAI.APIKey,
		model:       cfg.OpenAI.Model,
		temperature: cfg.OpenAI.Temperature,
		maxTokens:   cfg.OpenAI.MaxTokens,
		client:      xhttp.NewClient(xhttp.WithTimeout(cfg.OpenAI.Timeout)),
		log:         log,
	}
}

var _ domsvc.ReasoningEngine = (*Engine)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type outcomeAssessment struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

type analysisPayload struct {
	ProbabilityAssessment  map[string]outcomeAssessment `json:"probability_assessment"`
	TradingRecommendations []struct {
		Action     string  `json:"action"`
		Outcome    string  `json:"outcome"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	} `json:"trading_recommendations"`
}

// AnalyzeEvent produces a ReasoningResult for the contract. API failures
// and unusable responses degrade to safe results rather than errors, so
// a broken model never blocks the pipeline.
func (e *Engine) AnalyzeEvent(ctx context.Context, contract models.Contract) (models.ReasoningResult, error) {
	if e.apiKey == "" {
		return fallbackResult(contract.ID), nil
	}

	req := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: analysisPrompt(contract)},
		},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	var resp chatResponse
	err := e.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    e.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + e.apiKey,
			"Content-Type":  "application/json",
		},
		Body: req,
	}, &resp)
	if err != nil {
		if e.log != nil {
			e.log.Warn("reasoning call failed, using fallback",
				logger.String("contract_id", contract.ID),
				logger.Error(err),
			)
		}
		return fallbackResult(contract.ID), nil
	}
	if len(resp.Choices) == 0 {
		return fallbackResult(contract.ID), nil
	}

	return e.parseContent(contract.ID, resp.Choices[0].Message.Content), nil
}

// parseContent extracts the structured analysis from the model output.
// Unparseable content yields a neutral result with no recommendations;
// it is not marked as a fallback since the model did respond.
func (e *Engine) parseContent(contractID, content string) models.ReasoningResult {
	payload, ok := decodePayload(content)
	if !ok {
		if e.log != nil {
			e.log.Warn("reasoning response not parseable as JSON",
				logger.String("contract_id", contractID),
			)
		}
		return models.ReasoningResult{ContractID: contractID, Probability: 0.5}
	}

	result := models.ReasoningResult{
		ContractID:  contractID,
		Probability: probabilityFromAssessment(payload.ProbabilityAssessment),
	}
	for _, rec := range payload.TradingRecommendations {
		result.Recommendations = append(result.Recommendations, models.Recommendation{
			Action:     models.Action(strings.ToUpper(strings.TrimSpace(rec.Action))),
			Outcome:    rec.Outcome,
			Confidence: util.Clamp01(rec.Confidence),
			Reasoning:  rec.Reasoning,
		})
	}
	return result
}

// decodePayload tolerates markdown code fences and prose around the JSON
// object.
func decodePayload(content string) (analysisPayload, bool) {
	var payload analysisPayload

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return payload, false
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return payload, false
	}
	return payload, true
}

// probabilityFromAssessment prefers the "yes" outcome, then any outcome,
// then neutral.
func probabilityFromAssessment(assessment map[string]outcomeAssessment) float64 {
	for name, a := range assessment {
		if strings.EqualFold(name, "yes") {
			return util.Clamp01(a.Probability)
		}
	}
	for _, a := range assessment {
		return util.Clamp01(a.Probability)
	}
	return 0.5
}

func analysisPrompt(contract models.Contract) string {
	var info []string
	if contract.Title != "" {
		info = append(info, "Title: "+contract.Title)
	}
	if contract.Description != "" {
		info = append(info, "Description: "+contract.Description)
	}
	if len(contract.Outcomes) > 0 {
		info = append(info, "Outcomes: "+strings.Join(contract.Outcomes, ", "))
	}
	if !contract.Expiration.IsZero() {
		info = append(info, "Expiration: "+contract.Expiration.Format("2006-01-02"))
	}
	if contract.CurrentPrice > 0 {
		info = append(info, fmt.Sprintf("Current Price: %.2f", contract.CurrentPrice))
	}

	return fmt.Sprintf(`Please analyze the following prediction-market contract:

%s

Provide a comprehensive analysis including probability assessment per outcome,
key factors, market sentiment, risk factors, and trading recommendations with
confidence levels.

Format your response as JSON with the following structure:
{
  "probability_assessment": {
    "yes": {"probability": 0.0, "confidence": 0.0, "reasoning": ""},
    "no": {"probability": 0.0, "confidence": 0.0, "reasoning": ""}
  },
  "key_factors": ["factor1", "factor2"],
  "market_sentiment": "bullish/bearish/neutral",
  "risk_factors": ["risk1", "risk2"],
  "trading_recommendations": [
    {"action": "BUY/SELL/HOLD", "outcome": "outcome_name", "confidence": 0.0, "reasoning": ""}
  ]
}`, strings.Join(info, "\n"))
}

func fallbackResult(contractID string) models.ReasoningResult {
	return models.ReasoningResult{
		ContractID:  contractID,
		Probability: 0.5,
		Recommendations: []models.Recommendation{{
			Action:     models.ActionHold,
			Confidence: 0,
			Reasoning:  "LLM analysis unavailable",
		}},
		Fallback: true,
	}
}
