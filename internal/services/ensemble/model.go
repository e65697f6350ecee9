package ensemble

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"KalshiPulse/internal/domain/models"
	domsvc "KalshiPulse/internal/domain/service"
	"KalshiPulse/pkg/logger"
	"KalshiPulse/pkg/util"
)

const (
	methodStatistical = "statistical"
	methodML          = "machine_learning"
	methodTimeSeries  = "time_series"
	methodSentiment   = "sentiment"
)

// Fixed combination weights. Only probability-bearing methods contribute
// to the combined estimate; the rest inform the report.
var methodWeights = map[string]float64{
	methodStatistical: 0.3,
	methodML:          0.3,
	methodTimeSeries:  0.2,
	methodSentiment:   0.2,
}

var positiveWords = []string{"win", "success", "positive", "up", "gain", "profit"}
var negativeWords = []string{"loss", "fail", "negative", "down", "decline", "risk"}

// Model is the statistical ensemble: four heuristic sub-analyses over a
// contract snapshot combined into one probability/confidence estimate.
type Model struct {
	log *logger.Logger
}

func NewModel(log *logger.Logger) *Model {
	return &Model{log: log}
}

var _ domsvc.EnsembleModel = (*Model)(nil)

// AnalyzeContract runs all sub-analyses and combines them. It never
// returns an error: any internal failure degrades to the fixed fallback
// estimate of probability 0.5 with zero confidence.
func (m *Model) AnalyzeContract(_ context.Context, contract models.Contract) (result models.StatisticalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			if m.log != nil {
				m.log.Error("ensemble analysis failed",
					logger.String("contract_id", contract.ID),
					logger.Any("panic", r),
				)
			}
			result = fallbackResult(contract.ID)
			err = nil
		}
	}()

	subs := []models.SubAnalysis{
		m.statisticalAnalysis(contract),
		m.mlAnalysis(contract),
		m.timeSeriesAnalysis(contract),
		m.sentimentAnalysis(contract),
	}

	var combined, totalWeight, confidenceSum float64
	var confidenceCount int
	for _, sub := range subs {
		if sub.Probability == nil {
			continue
		}
		weight := methodWeights[sub.Method]
		combined += *sub.Probability * weight
		totalWeight += weight
		confidenceSum += sub.Confidence
		confidenceCount++
	}

	probability := 0.5
	if totalWeight > 0 {
		probability = combined / totalWeight
	}
	confidence := 0.5
	if confidenceCount > 0 {
		confidence = confidenceSum / float64(confidenceCount)
	}

	return models.StatisticalResult{
		ContractID:          contract.ID,
		EnsembleProbability: util.Clamp01(probability),
		EnsembleConfidence:  util.Clamp01(confidence),
		SubAnalyses:         subs,
	}, nil
}

// statisticalAnalysis reads the probability straight off the current
// price. Confidence peaks at 0.8 for mid prices and falls toward 0.65 at
// the extremes.
func (m *Model) statisticalAnalysis(contract models.Contract) models.SubAnalysis {
	price := currentPrice(contract)
	confidence := 0.5 + 0.3*(1-math.Abs(price-0.5))
	return models.SubAnalysis{
		Method:      methodStatistical,
		Probability: &price,
		Confidence:  confidence,
	}
}

// mlAnalysis averages two pseudo-models: a stable hash-derived estimate
// standing in for a trained regressor, and the current price as a linear
// baseline.
func (m *Model) mlAnalysis(contract models.Contract) models.SubAnalysis {
	price := currentPrice(contract)
	forest := 0.5 + 0.1*pseudoNoise(contract.ID)
	prediction := (forest + price) / 2
	return models.SubAnalysis{
		Method:      methodML,
		Probability: &prediction,
		Confidence:  0.6,
	}
}

// timeSeriesAnalysis labels the trend off price bands and derives a
// momentum indicator. It carries no probability estimate.
func (m *Model) timeSeriesAnalysis(contract models.Contract) models.SubAnalysis {
	price := currentPrice(contract)
	trend := "neutral"
	switch {
	case price > 0.6:
		trend = "bullish"
	case price < 0.4:
		trend = "bearish"
	}
	momentum := 0.5 + 0.2*(price-0.5)
	return models.SubAnalysis{
		Method: methodTimeSeries,
		Detail: fmt.Sprintf("%s (momentum %.2f)", trend, momentum),
	}
}

// sentimentAnalysis scores keyword balance over title and description in
// [-1, 1]. It carries no probability estimate.
func (m *Model) sentimentAnalysis(contract models.Contract) models.SubAnalysis {
	text := strings.ToLower(contract.Title + " " + contract.Description)

	var positive, negative int
	for _, word := range positiveWords {
		if strings.Contains(text, word) {
			positive++
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(text, word) {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		total = 1
	}
	score := float64(positive-negative) / float64(total)

	label := "neutral"
	switch {
	case score > 0.2:
		label = "positive"
	case score < -0.2:
		label = "negative"
	}
	return models.SubAnalysis{
		Method: methodSentiment,
		Detail: label,
	}
}

func fallbackResult(contractID string) models.StatisticalResult {
	return models.StatisticalResult{
		ContractID:          contractID,
		EnsembleProbability: 0.5,
		EnsembleConfidence:  0,
	}
}

func currentPrice(contract models.Contract) float64 {
	if contract.CurrentPrice <= 0 {
		return 0.5
	}
	return util.Clamp01(contract.CurrentPrice)
}

// pseudoNoise maps a contract id to a stable value in [-1, 1].
func pseudoNoise(id string) float64 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return float64(h.Sum32())/float64(math.MaxUint32)*2 - 1
}
