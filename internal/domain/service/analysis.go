package service

import (
	"context"

	"KalshiPulse/internal/domain/models"
)

// ReasoningEngine produces structured trading recommendations for a contract.
// Implementations degrade to a fixed fallback rather than returning an error
// when the underlying model is unavailable.
type ReasoningEngine interface {
	AnalyzeEvent(ctx context.Context, contract models.Contract) (models.ReasoningResult, error)
}

// EnsembleModel produces a probability/confidence estimate for a contract
// from multiple weighted sub-analyses.
type EnsembleModel interface {
	AnalyzeContract(ctx context.Context, contract models.Contract) (models.StatisticalResult, error)
}
