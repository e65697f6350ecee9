package models

import "time"

// Recommendation is a single LLM trading recommendation.
type Recommendation struct {
	Action     Action  `json:"action"`
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ReasoningResult is the structured output of the LLM reasoning engine.
// Fallback marks results produced without a live model call.
type ReasoningResult struct {
	ContractID      string           `json:"contract_id"`
	Probability     float64          `json:"probability"`
	Recommendations []Recommendation `json:"recommendations"`
	Fallback        bool             `json:"fallback"`
}

// SubAnalysis is one component of the statistical ensemble. Probability
// is nil for methods that describe the market without estimating an
// outcome probability; only probability-bearing methods contribute to
// the combined estimate.
type SubAnalysis struct {
	Method      string   `json:"method"`
	Probability *float64 `json:"probability,omitempty"`
	Confidence  float64  `json:"confidence"`
	Detail      string   `json:"detail,omitempty"` // method-specific summary, e.g. trend or sentiment label
}

// StatisticalResult is the combined output of the ensemble model.
type StatisticalResult struct {
	ContractID          string        `json:"contract_id"`
	EnsembleProbability float64       `json:"ensemble_probability"` // in [0,1]
	EnsembleConfidence  float64       `json:"ensemble_confidence"`  // in [0,1]
	SubAnalyses         []SubAnalysis `json:"sub_analyses"`
}

// AnalysisBundle pairs the two upstream analyses for one contract.
// Either sub-result may be nil when its source failed or was unavailable;
// the signal generator treats a nil entry as "source not present".
type AnalysisBundle struct {
	ContractID  string             `json:"contract_id"`
	Reasoning   *ReasoningResult   `json:"reasoning,omitempty"`
	Statistical *StatisticalResult `json:"statistical,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}
