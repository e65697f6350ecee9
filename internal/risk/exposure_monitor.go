package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/pkg/logger"
)

const (
	historyCap = 100
	alertsCap  = 50

	// Placeholder for a real correlation model: beyond this many open
	// positions every new signal is assumed correlated.
	maxPositions = 20

	checkPositionSize  = "position_size"
	checkConcentration = "concentration"
	checkCorrelation   = "correlation"
	checkDrawdown      = "drawdown"
)

// PortfolioProvider supplies the current portfolio snapshot on demand.
// The trader implements it.
type PortfolioProvider interface {
	Portfolio(ctx context.Context) (models.PortfolioSnapshot, error)
}

// ExposureMonitor gates candidate signals against portfolio-level risk
// limits. It owns all mutable risk state: the position book, the bounded
// risk-metrics history, and the bounded alert list. One instance per
// strategy run; all methods are safe for concurrent use.
type ExposureMonitor struct {
	mu        sync.Mutex
	positions map[string]float64
	history   []models.RiskMetrics
	alerts    []models.Alert

	limits     models.RiskLimits
	sizingFrac float64 // base position fraction used by the trader
	provider   PortfolioProvider
	log        *logger.Logger
	metrics    drepo.Metrics
}

// NewExposureMonitor creates a monitor with empty state. Limits are
// treated as immutable for the process lifetime.
func NewExposureMonitor(limits models.RiskLimits, sizingFrac float64, provider PortfolioProvider, log *logger.Logger, metrics drepo.Metrics) *ExposureMonitor {
	return &ExposureMonitor{
		positions:  make(map[string]float64),
		limits:     limits,
		sizingFrac: sizingFrac,
		provider:   provider,
		log:        log,
		metrics:    metrics,
	}
}

// CheckSignal runs the four risk checks against a fresh portfolio
// snapshot. All must pass. A snapshot fetch failure degrades to false;
// any check failure records one RISK_LIMIT_EXCEEDED alert naming the
// failed checks.
func (m *ExposureMonitor) CheckSignal(ctx context.Context, sig models.Signal) bool {
	portfolio, err := m.provider.Portfolio(ctx)
	if err != nil {
		if m.log != nil {
			m.log.Error("risk check: portfolio fetch failed", logger.Error(err))
		}
		if m.metrics != nil {
			m.metrics.RecordError("portfolio_fetch")
		}
		return false
	}

	var failed []string
	if !m.passesPositionSize(sig, portfolio) {
		failed = append(failed, checkPositionSize)
	}
	if !m.passesConcentration(sig, portfolio) {
		failed = append(failed, checkConcentration)
	}
	if !m.passesCorrelation(portfolio) {
		failed = append(failed, checkCorrelation)
	}
	if !m.passesDrawdown(portfolio) {
		failed = append(failed, checkDrawdown)
	}

	if len(failed) > 0 {
		if m.log != nil {
			m.log.Warn("signal failed risk checks",
				logger.String("contract_id", sig.ContractID),
				logger.Strings("failed", failed),
			)
		}
		if m.metrics != nil {
			for _, name := range failed {
				m.metrics.RecordRiskCheckFailure(name)
			}
		}
		m.addAlert(models.AlertTypeRiskLimitExceeded,
			fmt.Sprintf("Failed checks: %s", strings.Join(failed, ", ")))
		return false
	}
	return true
}

// passesPositionSize verifies the confidence-adjusted proposed size stays
// within the position-size limit. A non-positive portfolio value fails.
func (m *ExposureMonitor) passesPositionSize(sig models.Signal, pf models.PortfolioSnapshot) bool {
	if pf.TotalValue <= 0 {
		return false
	}
	proposed := pf.TotalValue * m.sizingFrac
	adjusted := proposed * sig.Confidence
	limit := pf.TotalValue * m.limits.MaxPositionSize
	return adjusted <= limit
}

// passesConcentration bounds existing exposure to the signal's contract
// at twice the position-size limit. With no contract id or no portfolio
// value there is no exposure to compare, which passes.
func (m *ExposureMonitor) passesConcentration(sig models.Signal, pf models.PortfolioSnapshot) bool {
	if sig.ContractID == "" || pf.TotalValue <= 0 {
		return true
	}
	var exposure float64
	for _, pos := range pf.Positions {
		if pos.ContractID == sig.ContractID {
			exposure += math.Abs(pos.Size)
		}
	}
	return exposure/pf.TotalValue <= 2*m.limits.MaxPositionSize
}

func (m *ExposureMonitor) passesCorrelation(pf models.PortfolioSnapshot) bool {
	return len(pf.Positions) < maxPositions
}

// passesDrawdown compares the current value against the historical peak.
// With no history yet there is no peak to draw down from, which passes.
func (m *ExposureMonitor) passesDrawdown(pf models.PortfolioSnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var peak float64
	for _, entry := range m.history {
		if entry.TotalValue > peak {
			peak = entry.TotalValue
		}
	}
	if peak <= 0 {
		return true
	}
	drawdown := (peak - pf.TotalValue) / peak
	return drawdown <= m.limits.MaxDrawdown
}

// UpdatePositions adjusts the position book after trade execution. Only
// EXECUTED results mutate; BUY adds the filled size, SELL subtracts it.
func (m *ExposureMonitor) UpdatePositions(result models.ExecutionResult) {
	if result.Status != models.ExecutionExecuted {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch result.Action {
	case models.ActionBuy:
		m.positions[result.ContractID] += result.Size
	case models.ActionSell:
		m.positions[result.ContractID] -= result.Size
	default:
		return
	}

	if m.log != nil {
		m.log.Info("position book updated",
			logger.String("contract_id", result.ContractID),
			logger.Any("size", m.positions[result.ContractID]),
		)
	}
}

// RiskMetrics computes a fresh risk snapshot and appends it to the
// bounded history.
func (m *ExposureMonitor) RiskMetrics(ctx context.Context) (models.RiskMetrics, error) {
	portfolio, err := m.provider.Portfolio(ctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordError("portfolio_fetch")
		}
		return models.RiskMetrics{}, fmt.Errorf("risk metrics: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := models.RiskMetrics{
		TotalValue:   portfolio.TotalValue,
		NumPositions: len(portfolio.Positions),
		Limits:       m.limits,
		Timestamp:    time.Now(),
	}

	var totalExposure float64
	for _, pos := range portfolio.Positions {
		abs := math.Abs(pos.Size)
		totalExposure += abs
		if metrics.LargestPosition == nil || abs > math.Abs(metrics.LargestPosition.Size) {
			metrics.LargestPosition = &models.LargestPosition{
				ContractID: pos.ContractID,
				Size:       pos.Size,
			}
		}
	}
	if portfolio.TotalValue > 0 {
		metrics.Concentration = totalExposure / portfolio.TotalValue
	}

	var peak float64
	for _, entry := range m.history {
		if entry.TotalValue > peak {
			peak = entry.TotalValue
		}
	}
	if peak > 0 {
		metrics.Drawdown = (peak - portfolio.TotalValue) / peak
	}

	m.history = append(m.history, metrics)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}

	return metrics, nil
}

// Alerts returns recorded alerts, optionally filtered by type.
func (m *ExposureMonitor) Alerts(alertType string) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if alertType == "" || a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}

// ClearAlerts discards all recorded alerts.
func (m *ExposureMonitor) ClearAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil

	if m.log != nil {
		m.log.Info("risk alerts cleared")
	}
}

// Position returns the tracked size for a contract.
func (m *ExposureMonitor) Position(contractID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[contractID]
}

// HistoryLen reports the current risk-history depth.
func (m *ExposureMonitor) HistoryLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// History returns a copy of the risk-metrics history, oldest first.
func (m *ExposureMonitor) History() []models.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RiskMetrics, len(m.history))
	copy(out, m.history)
	return out
}

func (m *ExposureMonitor) addAlert(alertType, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = append(m.alerts, models.Alert{
		Type:      alertType,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(m.alerts) > alertsCap {
		m.alerts = m.alerts[len(m.alerts)-alertsCap:]
	}
}
