package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KalshiPulse/internal/domain/models"
	"KalshiPulse/internal/risk"
	"KalshiPulse/internal/signal"
)

type stubReasoning struct {
	result models.ReasoningResult
	err    error
}

func (s *stubReasoning) AnalyzeEvent(_ context.Context, contract models.Contract) (models.ReasoningResult, error) {
	if s.err != nil {
		return models.ReasoningResult{}, s.err
	}
	r := s.result
	r.ContractID = contract.ID
	return r, nil
}

type stubEnsemble struct {
	result models.StatisticalResult
	err    error
}

func (s *stubEnsemble) AnalyzeContract(_ context.Context, contract models.Contract) (models.StatisticalResult, error) {
	if s.err != nil {
		return models.StatisticalResult{}, s.err
	}
	r := s.result
	r.ContractID = contract.ID
	return r, nil
}

type stubPublisher struct {
	events []*models.DecisionEvent
	err    error
}

func (s *stubPublisher) Publish(_ context.Context, ev *models.DecisionEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubPublisher) PublishBatch(_ context.Context, evs []*models.DecisionEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, evs...)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

func testRunner(t *testing.T, market *stubMarket, limits models.RiskLimits, pub *stubPublisher) (*StrategyRunner, *risk.ExposureMonitor) {
	t.Helper()

	cfg := traderConfig(t, true)
	trader := NewTrader(cfg, market, nil, nil)
	monitor := risk.NewExposureMonitor(limits, cfg.Strategy.MaxPositionSize, trader, nil, nil)

	analyzer := NewAnalyzer(
		&stubReasoning{err: errors.New("no model")},
		&stubEnsemble{result: models.StatisticalResult{
			EnsembleProbability: 0.9,
			EnsembleConfidence:  1.0,
		}},
		nil,
	)
	generator := signal.NewGenerator(0.5, nil, nil)

	var recorder *EventRecorder
	if pub != nil {
		recorder = NewEventRecorder(pub, nil, nil, "kafka")
	}

	runner := NewStrategyRunner(market, analyzer, generator, monitor, trader, recorder, nil, nil)
	return runner, monitor
}

type captureMetrics struct {
	signals   map[string]int
	decisions map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		signals:   make(map[string]int),
		decisions: make(map[string]int),
	}
}

func (m *captureMetrics) RecordSignal(action string)      { m.signals[action]++ }
func (m *captureMetrics) RecordDecision(action string)    { m.decisions[action]++ }
func (m *captureMetrics) RecordRiskCheckFailure(string)   {}
func (m *captureMetrics) RecordExecution(string)          {}
func (m *captureMetrics) RecordLastPrice(string, float64) {}
func (m *captureMetrics) RecordError(string)              {}
func (m *captureMetrics) RecordLatency(string, float64)   {}

func metricsRunner(t *testing.T, market *stubMarket, limits models.RiskLimits, m *captureMetrics) *StrategyRunner {
	t.Helper()

	cfg := traderConfig(t, true)
	trader := NewTrader(cfg, market, nil, nil)
	monitor := risk.NewExposureMonitor(limits, cfg.Strategy.MaxPositionSize, trader, nil, m)

	analyzer := NewAnalyzer(
		&stubReasoning{err: errors.New("no model")},
		&stubEnsemble{result: models.StatisticalResult{
			EnsembleProbability: 0.9,
			EnsembleConfidence:  1.0,
		}},
		nil,
	)
	generator := signal.NewGenerator(0.5, nil, m)

	return NewStrategyRunner(market, analyzer, generator, monitor, trader, nil, nil, m)
}

func defaultTestLimits() models.RiskLimits {
	return models.RiskLimits{
		MaxPositionSize: 0.05,
		MaxDrawdown:     0.20,
		VarLimit:        0.02,
		MaxCorrelation:  0.7,
	}
}

func TestRunStrategyExecutesApprovedSignal(t *testing.T) {
	market := &stubMarket{
		contract: models.Contract{ID: "KX-A", CurrentPrice: 0.7},
		balance:  10000,
		book:     models.OrderBook{Asks: []models.PriceLevel{{Price: 0.71, Size: 500}}},
	}
	pub := &stubPublisher{}
	runner, monitor := testRunner(t, market, defaultTestLimits(), pub)

	summary := runner.RunStrategy(context.Background(), []string{"KX-A"})
	require.Len(t, summary.Results, 1)
	result := summary.Results[0]

	require.Empty(t, result.Err)
	// Statistical source alone: probability 0.9 at full weight gives a
	// BUY above the 0.5 threshold.
	assert.Equal(t, models.ActionBuy, result.Signal.Action)
	require.NotNil(t, result.Execution)
	assert.Equal(t, models.ExecutionExecuted, result.Execution.Status)
	assert.InDelta(t, 0.71, result.Execution.FilledPrice, 1e-9)

	// The executed fill lands in the position book.
	assert.InDelta(t, result.Execution.Size, monitor.Position("KX-A"), 1e-9)

	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].RiskApproved)
	assert.Equal(t, models.ExecutionExecuted, pub.events[0].Status)
}

func TestRunStrategyRiskRejectionYieldsFreshHold(t *testing.T) {
	market := &stubMarket{
		contract: models.Contract{ID: "KX-A", CurrentPrice: 0.7},
		balance:  10000,
	}
	limits := defaultTestLimits()
	limits.MaxPositionSize = 0.001 // force the position-size check to fail
	pub := &stubPublisher{}
	runner, monitor := testRunner(t, market, limits, pub)

	summary := runner.RunStrategy(context.Background(), []string{"KX-A"})
	require.Len(t, summary.Results, 1)
	result := summary.Results[0]

	assert.Equal(t, models.ActionHold, result.Signal.Action)
	assert.Zero(t, result.Signal.Confidence)
	assert.Equal(t, []string{"Risk limits exceeded"}, result.Signal.Reasons)

	require.NotNil(t, result.Execution)
	assert.Equal(t, models.ExecutionSkipped, result.Execution.Status)
	assert.Zero(t, monitor.Position("KX-A"))

	alerts := monitor.Alerts(models.AlertTypeRiskLimitExceeded)
	require.Len(t, alerts, 1)

	require.Len(t, pub.events, 1)
	assert.False(t, pub.events[0].RiskApproved)
}

func TestRunStrategyCountsEachStageOnce(t *testing.T) {
	market := &stubMarket{
		contract: models.Contract{ID: "KX-A", CurrentPrice: 0.7},
		balance:  10000,
		book:     models.OrderBook{Asks: []models.PriceLevel{{Price: 0.71, Size: 500}}},
	}
	m := newCaptureMetrics()
	runner := metricsRunner(t, market, defaultTestLimits(), m)

	runner.RunStrategy(context.Background(), []string{"KX-A"})

	assert.Equal(t, map[string]int{string(models.ActionBuy): 1}, m.signals)
	assert.Equal(t, map[string]int{string(models.ActionBuy): 1}, m.decisions)
}

func TestRunStrategyRejectionRecordsHoldDecision(t *testing.T) {
	market := &stubMarket{
		contract: models.Contract{ID: "KX-A", CurrentPrice: 0.7},
		balance:  10000,
	}
	limits := defaultTestLimits()
	limits.MaxPositionSize = 0.001
	m := newCaptureMetrics()
	runner := metricsRunner(t, market, limits, m)

	runner.RunStrategy(context.Background(), []string{"KX-A"})

	// The generated BUY and the gate-forced HOLD land in separate series.
	assert.Equal(t, map[string]int{string(models.ActionBuy): 1}, m.signals)
	assert.Equal(t, map[string]int{string(models.ActionHold): 1}, m.decisions)
}

func TestRunStrategyFetchFailureIsPerContract(t *testing.T) {
	market := &stubMarket{contractErr: errors.New("not found"), balance: 10000}
	runner, _ := testRunner(t, market, defaultTestLimits(), nil)

	summary := runner.RunStrategy(context.Background(), []string{"KX-MISSING"})
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "not found", summary.Results[0].Err)
	assert.Nil(t, summary.Results[0].Execution)
	assert.Equal(t, 1, summary.TotalContracts)
}

func TestAnalyzeReturnsSignalWithoutExecuting(t *testing.T) {
	market := &stubMarket{
		contract: models.Contract{ID: "KX-A", CurrentPrice: 0.7},
		balance:  10000,
	}
	runner, monitor := testRunner(t, market, defaultTestLimits(), nil)

	sig, bundle, err := runner.Analyze(context.Background(), "KX-A")
	require.NoError(t, err)

	assert.Equal(t, "KX-A", sig.ContractID)
	assert.Nil(t, bundle.Reasoning) // reasoning stub fails, source absent
	require.NotNil(t, bundle.Statistical)
	assert.Zero(t, monitor.Position("KX-A"))
}

func TestAnalyzerJoinsPartialResults(t *testing.T) {
	analyzer := NewAnalyzer(
		&stubReasoning{result: models.ReasoningResult{Probability: 0.8}},
		&stubEnsemble{err: errors.New("ensemble down")},
		nil,
	)

	bundle := analyzer.AnalyzeContract(context.Background(), models.Contract{ID: "KX-B"})
	assert.Equal(t, "KX-B", bundle.ContractID)
	require.NotNil(t, bundle.Reasoning)
	assert.InDelta(t, 0.8, bundle.Reasoning.Probability, 1e-9)
	assert.Nil(t, bundle.Statistical)
}

func TestEventRecorderBackends(t *testing.T) {
	pub := &stubPublisher{}
	ev := &models.DecisionEvent{ContractID: "KX-A", Action: models.ActionBuy}

	kafka := NewEventRecorder(pub, nil, nil, "kafka")
	require.NoError(t, kafka.Record(context.Background(), ev))
	assert.Len(t, pub.events, 1)

	none := NewEventRecorder(nil, nil, nil, "none")
	assert.NoError(t, none.Record(context.Background(), ev))

	unknown := NewEventRecorder(pub, nil, nil, "postgres")
	assert.Error(t, unknown.Record(context.Background(), ev))

	assert.Error(t, kafka.Record(context.Background(), nil))
}
