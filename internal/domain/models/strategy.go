package models

import "time"

// StrategyResult is the per-contract outcome of one strategy pass.
// Err carries a per-contract failure without aborting the whole run.
type StrategyResult struct {
	ContractID string           `json:"contract_id"`
	Signal     Signal           `json:"signal"`
	Execution  *ExecutionResult `json:"execution,omitempty"`
	Err        string           `json:"error,omitempty"`
}

// StrategyRunSummary aggregates one full strategy pass.
type StrategyRunSummary struct {
	Results        []StrategyResult `json:"results"`
	TotalContracts int              `json:"total_contracts"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
}

// DecisionEvent is the flattened record of one trading decision,
// published to the configured analytics sink. Best effort only.
type DecisionEvent struct {
	ContractID   string          `json:"contract_id"`
	Action       Action          `json:"action"`
	Confidence   float64         `json:"confidence"`
	RiskApproved bool            `json:"risk_approved"`
	Status       ExecutionStatus `json:"status"`
	Size         float64         `json:"size"`
	FilledPrice  float64         `json:"filled_price"`
	Timestamp    time.Time       `json:"timestamp"`
}
