package usecase

import (
	"context"
	"sync"
	"time"

	"KalshiPulse/internal/domain/models"
	domsvc "KalshiPulse/internal/domain/service"
	"KalshiPulse/pkg/logger"
)

// Analyzer runs the two upstream analyses for a contract. Both run
// concurrently and are always joined: one source failing yields a
// partial bundle, never a lost result.
type Analyzer struct {
	reasoning domsvc.ReasoningEngine
	ensemble  domsvc.EnsembleModel
	log       *logger.Logger
}

func NewAnalyzer(reasoning domsvc.ReasoningEngine, ensemble domsvc.EnsembleModel, log *logger.Logger) *Analyzer {
	return &Analyzer{reasoning: reasoning, ensemble: ensemble, log: log}
}

// AnalyzeContract produces the analysis bundle for one contract. A nil
// entry in the bundle means that source failed or was not configured.
func (a *Analyzer) AnalyzeContract(ctx context.Context, contract models.Contract) models.AnalysisBundle {
	bundle := models.AnalysisBundle{
		ContractID: contract.ID,
		Timestamp:  time.Now(),
	}

	var wg sync.WaitGroup

	if a.reasoning != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := a.reasoning.AnalyzeEvent(ctx, contract)
			if err != nil {
				if a.log != nil {
					a.log.Warn("reasoning analysis failed",
						logger.String("contract_id", contract.ID),
						logger.Error(err),
					)
				}
				return
			}
			bundle.Reasoning = &res
		}()
	}

	if a.ensemble != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := a.ensemble.AnalyzeContract(ctx, contract)
			if err != nil {
				if a.log != nil {
					a.log.Warn("ensemble analysis failed",
						logger.String("contract_id", contract.ID),
						logger.Error(err),
					)
				}
				return
			}
			bundle.Statistical = &res
		}()
	}

	wg.Wait()
	return bundle
}
