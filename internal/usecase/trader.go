package usecase

import (
	"context"
	"fmt"
	"time"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/pkg/config"
	"KalshiPulse/pkg/logger"
)

const (
	minOrderValue        = 10.0 // dollars
	maxPortfolioFraction = 0.1
)

// Trader sizes and executes signals that cleared risk gating. In paper
// mode (the default) fills are simulated locally; in live mode orders go
// to the exchange.
type Trader struct {
	market          drepo.MarketData
	maxPositionSize float64
	paper           bool
	log             *logger.Logger
	metrics         drepo.Metrics
}

func NewTrader(cfg *config.Config, market drepo.MarketData, log *logger.Logger, metrics drepo.Metrics) *Trader {
	return &Trader{
		market:          market,
		maxPositionSize: cfg.Strategy.MaxPositionSize,
		paper:           cfg.Strategy.PaperTrading,
		log:             log,
		metrics:         metrics,
	}
}

// ExecuteSignal turns a signal into an order. It always returns a typed
// result; failures are reported through the status, never as an error.
func (t *Trader) ExecuteSignal(ctx context.Context, sig models.Signal) models.ExecutionResult {
	result := t.executeSignal(ctx, sig)
	if t.metrics != nil {
		t.metrics.RecordExecution(string(result.Status))
	}
	return result
}

func (t *Trader) executeSignal(ctx context.Context, sig models.Signal) models.ExecutionResult {
	if !validSignal(sig) {
		return models.ExecutionResult{
			Status:     models.ExecutionRejected,
			ContractID: sig.ContractID,
			Action:     sig.Action,
			Reason:     "Invalid signal",
			Timestamp:  time.Now(),
		}
	}

	portfolio, err := t.Portfolio(ctx)
	if err != nil {
		return models.ExecutionResult{
			Status:     models.ExecutionFailed,
			ContractID: sig.ContractID,
			Action:     sig.Action,
			Reason:     err.Error(),
			Timestamp:  time.Now(),
		}
	}

	size := t.positionSize(sig, portfolio)
	if size <= 0 {
		return models.ExecutionResult{
			Status:     models.ExecutionSkipped,
			ContractID: sig.ContractID,
			Action:     sig.Action,
			Reason:     "Zero position size",
			Timestamp:  time.Now(),
		}
	}

	if sig.Action == models.ActionHold {
		return models.ExecutionResult{
			Status:     models.ExecutionSkipped,
			ContractID: sig.ContractID,
			Action:     sig.Action,
			Reason:     "HOLD signal - no trade needed",
			Timestamp:  time.Now(),
		}
	}

	price := t.orderPrice(ctx, sig)
	order := models.Order{
		ContractID: sig.ContractID,
		Action:     sig.Action,
		Size:       size,
		Price:      price,
		Type:       "market",
	}

	if t.paper {
		return t.simulateFill(order)
	}

	result, err := t.market.PlaceOrder(ctx, order)
	if err != nil {
		if t.log != nil {
			t.log.Error("order placement failed",
				logger.String("contract_id", sig.ContractID),
				logger.Error(err),
			)
		}
		return models.ExecutionResult{
			Status:     models.ExecutionFailed,
			ContractID: sig.ContractID,
			Action:     sig.Action,
			Reason:     err.Error(),
			Timestamp:  time.Now(),
		}
	}
	return result
}

// positionSize scales the base allocation by confidence, with a $10
// floor and a cap at 10% of portfolio value.
func (t *Trader) positionSize(sig models.Signal, portfolio models.PortfolioSnapshot) float64 {
	if portfolio.TotalValue <= 0 {
		return 0
	}

	base := portfolio.TotalValue * t.maxPositionSize
	adjusted := base * sig.Confidence

	maxSize := portfolio.TotalValue * maxPortfolioFraction
	if adjusted > maxSize {
		adjusted = maxSize
	}
	if adjusted < minOrderValue {
		adjusted = minOrderValue
	}
	return adjusted
}

// orderPrice takes the top of book: buy at the ask, sell at the bid. A
// book fetch failure falls back to the 0.5 midpoint.
func (t *Trader) orderPrice(ctx context.Context, sig models.Signal) float64 {
	book, err := t.market.GetOrderBook(ctx, sig.ContractID)
	if err != nil {
		if t.log != nil {
			t.log.Warn("order book unavailable, pricing at midpoint",
				logger.String("contract_id", sig.ContractID),
				logger.Error(err),
			)
		}
		book = models.OrderBook{ContractID: sig.ContractID}
	}
	if sig.Action == models.ActionBuy {
		return book.BestAsk()
	}
	return book.BestBid()
}

func (t *Trader) simulateFill(order models.Order) models.ExecutionResult {
	return models.ExecutionResult{
		Status:      models.ExecutionExecuted,
		OrderID:     fmt.Sprintf("sim_%d", time.Now().UnixNano()),
		ContractID:  order.ContractID,
		Action:      order.Action,
		Size:        order.Size,
		FilledPrice: order.Price,
		FilledSize:  order.Size,
		Timestamp:   time.Now(),
	}
}

// Portfolio returns balance plus positions marked at current prices.
// When the exchange is unreachable it degrades to a fixed simulated
// portfolio so the pipeline keeps producing decisions.
func (t *Trader) Portfolio(ctx context.Context) (models.PortfolioSnapshot, error) {
	balance, err := t.market.GetBalance(ctx)
	if err != nil {
		return simulatedPortfolio(), nil
	}
	positions, err := t.market.GetPositions(ctx)
	if err != nil {
		return simulatedPortfolio(), nil
	}

	total := balance
	for _, pos := range positions {
		total += pos.Size * pos.CurrentPrice
	}

	return models.PortfolioSnapshot{
		TotalValue:  total,
		CashBalance: balance,
		Positions:   positions,
		Timestamp:   time.Now(),
	}, nil
}

func simulatedPortfolio() models.PortfolioSnapshot {
	return models.PortfolioSnapshot{
		TotalValue:  10000,
		CashBalance: 5000,
		Timestamp:   time.Now(),
		Simulated:   true,
	}
}

func validSignal(sig models.Signal) bool {
	if sig.ContractID == "" {
		return false
	}
	if !sig.Action.Valid() {
		return false
	}
	return sig.Confidence >= 0 && sig.Confidence <= 1
}
