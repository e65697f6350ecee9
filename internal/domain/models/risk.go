package models

import "time"

// AlertTypeRiskLimitExceeded is recorded when any risk check fails.
const AlertTypeRiskLimitExceeded = "RISK_LIMIT_EXCEEDED"

// RiskLimits are fractions of portfolio value, loaded once at startup
// and immutable for the process lifetime.
type RiskLimits struct {
	MaxPositionSize float64 `json:"max_position_size" yaml:"max_position_size" default:"0.05" validate:"gt=0,lte=1"`
	MaxDrawdown     float64 `json:"max_drawdown" yaml:"max_drawdown" default:"0.20" validate:"gt=0,lte=1"`
	VarLimit        float64 `json:"var_limit" yaml:"var_limit" default:"0.02" validate:"gt=0,lte=1"`
	MaxCorrelation  float64 `json:"max_correlation" yaml:"max_correlation" default:"0.7" validate:"gt=0,lte=1"`
}

// LargestPosition identifies the position with the largest absolute size.
type LargestPosition struct {
	ContractID string  `json:"contract_id"`
	Size       float64 `json:"size"`
}

// RiskMetrics is one snapshot of portfolio-level risk.
type RiskMetrics struct {
	TotalValue      float64          `json:"total_value"`
	NumPositions    int              `json:"num_positions"`
	LargestPosition *LargestPosition `json:"largest_position,omitempty"`
	Concentration   float64          `json:"concentration"`
	Drawdown        float64          `json:"drawdown"`
	Limits          RiskLimits       `json:"limits"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Alert is a recorded risk event.
type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
