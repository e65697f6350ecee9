package repository

import (
	"context"

	"KalshiPulse/internal/domain/models"
)

// MarketData is the exchange-facing read/trade API.
type MarketData interface {
	GetContract(ctx context.Context, contractID string) (models.Contract, error)
	ListContracts(ctx context.Context, seriesID string, limit int) ([]models.Contract, error)
	GetOrderBook(ctx context.Context, contractID string) (models.OrderBook, error)
	GetBalance(ctx context.Context) (float64, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	PlaceOrder(ctx context.Context, order models.Order) (models.ExecutionResult, error)
}

// MarketStream streams realtime ticker updates for subscribed contracts.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, contractIDs []string) error
	Read(ctx context.Context) (<-chan *models.Ticker, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher emits decision events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, ev *models.DecisionEvent) error
	PublishBatch(ctx context.Context, evs []*models.DecisionEvent) error
	Close() error
}

// Storage persists decision events to an analytics store.
type Storage interface {
	Store(ctx context.Context, ev *models.DecisionEvent) error
	StoreBatch(ctx context.Context, evs []*models.DecisionEvent) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational metrics. Generated signals and post-gate
// decisions are separate series so one strategy pass counts each stage
// exactly once.
type Metrics interface {
	RecordSignal(action string)
	RecordDecision(action string)
	RecordRiskCheckFailure(check string)
	RecordExecution(status string)
	RecordLastPrice(contractID string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
