package signal

import (
	"fmt"
	"time"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/pkg/logger"
	"KalshiPulse/pkg/util"
)

const (
	// Probability bands for action mapping.
	buyThreshold  = 0.6
	sellThreshold = 0.4

	// Fusion weights per source. Reasoning gets the higher weight.
	reasoningWeight   = 0.6
	statisticalWeight = 0.4

	sourceReasoning   = "reasoning"
	sourceStatistical = "statistical"
)

// Generator fuses the reasoning and statistical analyses into one
// actionable signal. It performs no I/O and is safe for concurrent use.
type Generator struct {
	minConfidence float64
	log           *logger.Logger
	metrics       drepo.Metrics
}

// NewGenerator creates a signal generator with the given minimum
// confidence threshold.
func NewGenerator(minConfidence float64, log *logger.Logger, metrics drepo.Metrics) *Generator {
	return &Generator{minConfidence: minConfidence, log: log, metrics: metrics}
}

// Generate converts an analysis bundle into a trading signal. It is total:
// it never returns an error, degrading to a HOLD signal with zero
// confidence when fusion cannot proceed.
func (g *Generator) Generate(bundle models.AnalysisBundle) (sig models.Signal) {
	// The strategy loop must never be aborted by signal fusion.
	defer func() {
		if r := recover(); r != nil {
			if g.log != nil {
				g.log.Error("signal generation panic", logger.Any("panic", r))
			}
			sig = models.HoldSignal(bundle.ContractID, "Signal generation failed")
		}
	}()

	subs := make(map[string]models.SubSignal)
	if bundle.Reasoning != nil {
		subs[sourceReasoning] = ReasoningSubSignal(*bundle.Reasoning)
	}
	if bundle.Statistical != nil {
		subs[sourceStatistical] = StatisticalSubSignal(
			bundle.Statistical.EnsembleProbability,
			bundle.Statistical.EnsembleConfidence,
		)
	}

	sig = g.combine(subs, bundle.ContractID)

	if g.log != nil {
		g.log.Debug("signal generated",
			logger.String("contract_id", bundle.ContractID),
			logger.String("action", string(sig.Action)),
			logger.Any("confidence", sig.Confidence),
		)
	}
	if g.metrics != nil {
		g.metrics.RecordSignal(string(sig.Action))
	}
	return sig
}

// ReasoningSubSignal selects the highest-confidence recommendation,
// breaking ties by first-seen order. An empty recommendation list yields
// a HOLD sub-signal with zero confidence.
func ReasoningSubSignal(res models.ReasoningResult) models.SubSignal {
	if len(res.Recommendations) == 0 {
		return models.SubSignal{
			Source:     sourceReasoning,
			Action:     models.ActionHold,
			Confidence: 0.0,
			Reason:     "No reasoning recommendations",
		}
	}

	best := res.Recommendations[0]
	for _, rec := range res.Recommendations[1:] {
		if rec.Confidence > best.Confidence {
			best = rec
		}
	}

	action := best.Action
	if !action.Valid() {
		action = models.ActionHold
	}
	reason := best.Reasoning
	if reason == "" {
		reason = "Reasoning recommendation"
	}
	return models.SubSignal{
		Source:     sourceReasoning,
		Action:     action,
		Confidence: util.Clamp01(best.Confidence),
		Reason:     reason,
	}
}

// StatisticalSubSignal maps an ensemble probability/confidence pair onto
// the fixed action bands:
//
//	p > 0.6 → BUY  with confidence c*(p-0.5)*2
//	p < 0.4 → SELL with confidence c*(0.5-p)*2
//	else    → HOLD with confidence c*0.5
//
// Confidence is clamped to [0,1].
func StatisticalSubSignal(p, c float64) models.SubSignal {
	var action models.Action
	var confidence float64
	switch {
	case p > buyThreshold:
		action = models.ActionBuy
		confidence = c * (p - 0.5) * 2
	case p < sellThreshold:
		action = models.ActionSell
		confidence = c * (0.5 - p) * 2
	default:
		action = models.ActionHold
		confidence = c * 0.5
	}

	return models.SubSignal{
		Source:      sourceStatistical,
		Action:      action,
		Confidence:  util.Clamp01(confidence),
		Probability: p,
		Reason:      fmt.Sprintf("Statistical probability: %.2f", p),
	}
}

// combine fuses the per-source sub-signals. Only confidence is
// weight-averaged; the action is re-derived from the combined confidence
// via the fixed bands. A BUY-leaning reasoning signal and a SELL-leaning
// statistical signal can therefore fuse into an action matching neither
// input; that behavior is intentional and relied upon by callers.
func (g *Generator) combine(subs map[string]models.SubSignal, contractID string) models.Signal {
	if len(subs) == 0 {
		return models.HoldSignal(contractID, "No signals available")
	}

	weights := map[string]float64{
		sourceReasoning:   reasoningWeight,
		sourceStatistical: statisticalWeight,
	}

	var combined, totalWeight float64
	reasons := make([]string, 0, len(subs)+1)

	// Fixed iteration order keeps the reasons list deterministic.
	for _, source := range []string{sourceReasoning, sourceStatistical} {
		sub, ok := subs[source]
		if !ok {
			continue
		}
		w := weights[source]
		combined += sub.Confidence * w
		totalWeight += w
		reasons = append(reasons, fmt.Sprintf("%s: %s", source, sub.Reason))
	}

	if totalWeight > 0 {
		combined /= totalWeight
	}

	action := actionForConfidence(combined)

	// Below the threshold the action is forced to HOLD, but the combined
	// confidence is reported as computed.
	if combined < g.minConfidence {
		action = models.ActionHold
		reasons = append(reasons, "Below confidence threshold")
	}

	return models.Signal{
		Action:     action,
		Confidence: combined,
		ContractID: contractID,
		Reasons:    reasons,
		Individual: subs,
		Timestamp:  time.Now(),
	}
}

func actionForConfidence(v float64) models.Action {
	switch {
	case v > buyThreshold:
		return models.ActionBuy
	case v < sellThreshold:
		return models.ActionSell
	default:
		return models.ActionHold
	}
}

// Validate reports whether a signal is well formed: the action must be
// one of the enumerated values and the confidence must lie in [0,1].
func Validate(sig models.Signal) bool {
	if !sig.Action.Valid() {
		return false
	}
	if sig.Confidence < 0 || sig.Confidence > 1 {
		return false
	}
	return true
}
