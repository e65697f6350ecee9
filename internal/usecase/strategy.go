package usecase

import (
	"context"
	"time"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/internal/risk"
	"KalshiPulse/internal/signal"
	"KalshiPulse/pkg/logger"
)

// StrategyRunner drives the full decision pipeline for a set of
// contracts: fetch, analyze, generate, risk-gate, execute, record.
type StrategyRunner struct {
	market    drepo.MarketData
	analyzer  *Analyzer
	generator *signal.Generator
	monitor   *risk.ExposureMonitor
	trader    *Trader
	recorder  *EventRecorder
	log       *logger.Logger
	metrics   drepo.Metrics
}

func NewStrategyRunner(
	market drepo.MarketData,
	analyzer *Analyzer,
	generator *signal.Generator,
	monitor *risk.ExposureMonitor,
	trader *Trader,
	recorder *EventRecorder,
	log *logger.Logger,
	metrics drepo.Metrics,
) *StrategyRunner {
	return &StrategyRunner{
		market:    market,
		analyzer:  analyzer,
		generator: generator,
		monitor:   monitor,
		trader:    trader,
		recorder:  recorder,
		log:       log,
		metrics:   metrics,
	}
}

// Analyze fetches and analyzes one contract and returns the generated
// signal without executing it.
func (r *StrategyRunner) Analyze(ctx context.Context, contractID string) (models.Signal, models.AnalysisBundle, error) {
	contract, err := r.market.GetContract(ctx, contractID)
	if err != nil {
		return models.Signal{}, models.AnalysisBundle{}, err
	}
	bundle := r.analyzer.AnalyzeContract(ctx, contract)
	return r.generator.Generate(bundle), bundle, nil
}

// RunStrategy runs one full pass over the given contracts. Per-contract
// failures are captured in the result and never abort the pass.
func (r *StrategyRunner) RunStrategy(ctx context.Context, contractIDs []string) models.StrategyRunSummary {
	summary := models.StrategyRunSummary{
		TotalContracts: len(contractIDs),
		StartedAt:      time.Now(),
	}

	for _, contractID := range contractIDs {
		summary.Results = append(summary.Results, r.runContract(ctx, contractID))
	}

	summary.Duration = time.Since(summary.StartedAt)
	if r.log != nil {
		r.log.Info("strategy pass complete",
			logger.Int("contracts", summary.TotalContracts),
			logger.Duration("took", summary.Duration),
		)
	}
	return summary
}

func (r *StrategyRunner) runContract(ctx context.Context, contractID string) models.StrategyResult {
	contract, err := r.market.GetContract(ctx, contractID)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("fetch_contract")
		}
		return models.StrategyResult{ContractID: contractID, Err: err.Error()}
	}

	bundle := r.analyzer.AnalyzeContract(ctx, contract)
	sig := r.generator.Generate(bundle)

	approved := r.monitor.CheckSignal(ctx, sig)
	if !approved {
		// Rejection produces a fresh HOLD signal; the generated one
		// stays immutable.
		sig = models.HoldSignal(contractID, "Risk limits exceeded")
	}

	if r.metrics != nil {
		r.metrics.RecordDecision(string(sig.Action))
		r.metrics.RecordLastPrice(contractID, contract.CurrentPrice)
	}

	execution := r.trader.ExecuteSignal(ctx, sig)
	r.monitor.UpdatePositions(execution)

	if r.recorder != nil {
		ev := &models.DecisionEvent{
			ContractID:   contractID,
			Action:       sig.Action,
			Confidence:   sig.Confidence,
			RiskApproved: approved,
			Status:       execution.Status,
			Size:         execution.Size,
			FilledPrice:  execution.FilledPrice,
			Timestamp:    time.Now(),
		}
		if err := r.recorder.Record(ctx, ev); err != nil && r.log != nil {
			r.log.Warn("decision event not recorded",
				logger.String("contract_id", contractID),
				logger.Error(err),
			)
		}
	}

	return models.StrategyResult{
		ContractID: contractID,
		Signal:     sig,
		Execution:  &execution,
	}
}
