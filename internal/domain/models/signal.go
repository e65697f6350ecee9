package models

import "time"

// Action is a trading decision variant.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid returns true if a is one of the three enumerated actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// SubSignal is the per-source decision that feeds signal fusion.
type SubSignal struct {
	Source      string  `json:"source"`
	Action      Action  `json:"action"`
	Confidence  float64 `json:"confidence"`
	Probability float64 `json:"probability,omitempty"` // only set for the statistical source
	Reason      string  `json:"reason"`
}

// Signal is the fused trading decision for one contract.
// It is immutable after creation; a risk rejection produces a fresh
// HOLD signal rather than mutating the original.
type Signal struct {
	Action     Action               `json:"action"`
	Confidence float64              `json:"confidence"`
	ContractID string               `json:"contract_id"`
	Reasons    []string             `json:"reasons"`
	Individual map[string]SubSignal `json:"individual,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// HoldSignal builds the safe-default signal with the given reason.
func HoldSignal(contractID, reason string) Signal {
	return Signal{
		Action:     ActionHold,
		Confidence: 0.0,
		ContractID: contractID,
		Reasons:    []string{reason},
		Timestamp:  time.Now(),
	}
}
