package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal      *prometheus.CounterVec
	decisionsTotal    *prometheus.CounterVec
	riskFailures      *prometheus.CounterVec
	executionsTotal   *prometheus.CounterVec
	lastPrice         *prometheus.GaugeVec
	errorsTotal       *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshipulse_signals_generated_total",
				Help: "Total signals generated, by action",
			},
			[]string{"action"},
		),
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshipulse_decisions_total",
				Help: "Total strategy decisions, by post-risk-gate action",
			},
			[]string{"action"},
		),
		riskFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshipulse_risk_check_failures_total",
				Help: "Total risk check failures, by check name",
			},
			[]string{"check"},
		),
		executionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshipulse_executions_total",
				Help: "Total signal executions, by status",
			},
			[]string{"status"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kalshipulse_last_price",
				Help: "Last observed price for a contract",
			},
			[]string{"contract_id"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshipulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kalshipulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records a generated signal by action.
func (r *Recorder) RecordSignal(action string) {
	r.signalsTotal.WithLabelValues(action).Inc()
}

// RecordDecision records the action a strategy pass settled on after
// the risk gate.
func (r *Recorder) RecordDecision(action string) {
	r.decisionsTotal.WithLabelValues(action).Inc()
}

// RecordRiskCheckFailure records a failed risk check.
func (r *Recorder) RecordRiskCheckFailure(check string) {
	r.riskFailures.WithLabelValues(check).Inc()
}

// RecordExecution records an execution outcome by status.
func (r *Recorder) RecordExecution(status string) {
	r.executionsTotal.WithLabelValues(status).Inc()
}

// RecordLastPrice records the last price for a contract.
func (r *Recorder) RecordLastPrice(contractID string, price float64) {
	r.lastPrice.WithLabelValues(contractID).Set(price)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.operationDuration.WithLabelValues(op).Observe(seconds)
}
