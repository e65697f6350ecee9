package models

import "time"

// Position is one open position. Size is signed: positive means long.
type Position struct {
	ContractID   string  `json:"contract_id"`
	Size         float64 `json:"size"`
	CurrentPrice float64 `json:"current_price"`
}

// PortfolioSnapshot is a point-in-time view of the portfolio, supplied
// by the trader on demand. The risk monitor only reads it.
type PortfolioSnapshot struct {
	TotalValue  float64    `json:"total_value"`
	CashBalance float64    `json:"cash_balance"`
	Positions   []Position `json:"positions"`
	Timestamp   time.Time  `json:"timestamp"`
	Simulated   bool       `json:"simulated"`
}

// ExecutionStatus enumerates order execution outcomes.
type ExecutionStatus string

const (
	ExecutionExecuted  ExecutionStatus = "EXECUTED"
	ExecutionSkipped   ExecutionStatus = "SKIPPED"
	ExecutionRejected  ExecutionStatus = "REJECTED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// Order is a request to place a trade.
type Order struct {
	ContractID string  `json:"contract_id"`
	Action     Action  `json:"action"`
	Size       float64 `json:"size"`
	Price      float64 `json:"price"`
	Type       string  `json:"type"` // "market"
}

// ExecutionResult is the outcome of executing a signal.
type ExecutionResult struct {
	Status      ExecutionStatus `json:"status"`
	OrderID     string          `json:"order_id,omitempty"`
	ContractID  string          `json:"contract_id"`
	Action      Action          `json:"action"`
	Size        float64         `json:"size"`
	FilledPrice float64         `json:"filled_price"`
	FilledSize  float64         `json:"filled_size"`
	Reason      string          `json:"reason,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}
