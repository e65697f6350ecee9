package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"KalshiPulse/internal/domain/models"
	domrepo "KalshiPulse/internal/domain/repository"
	"KalshiPulse/pkg/logger"
)

// StreamPipeline sits between the exchange WebSocket and the rest of
// the system. It validates and throttles incoming tickers, keeps the
// latest observed price per contract, and drives reconnects when the
// stream drops.
type StreamPipeline struct {
	stream  domrepo.MarketStream
	metrics domrepo.Metrics
	log     *logger.Logger

	maxRPS int

	mu       sync.RWMutex
	started  bool
	lastSeen map[string]time.Time // per-contract last accepted time
	latest   map[string]models.Ticker
	stopCh   chan struct{}
}

type PipelineOption func(*StreamPipeline)

// WithMaxRPS sets the max accepted tickers per second per contract.
func WithMaxRPS(n int) PipelineOption {
	return func(p *StreamPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

func NewStreamPipeline(stream domrepo.MarketStream, metrics domrepo.Metrics, log *logger.Logger, opts ...PipelineOption) *StreamPipeline {
	p := &StreamPipeline{
		stream:   stream,
		metrics:  metrics,
		log:      log,
		maxRPS:   20, // default throttle per contract
		lastSeen: make(map[string]time.Time),
		latest:   make(map[string]models.Ticker),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run connects, subscribes, and consumes the stream until the context
// is cancelled or Stop is called. Stream errors trigger a reconnect
// instead of aborting.
func (p *StreamPipeline) Run(ctx context.Context, contractIDs []string) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("stream pipeline already running")
	}
	p.started = true
	p.mu.Unlock()

	if err := p.stream.Connect(ctx); err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	if err := p.stream.Subscribe(ctx, contractIDs); err != nil {
		return fmt.Errorf("stream subscribe: %w", err)
	}

	tickers, errs := p.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case t, ok := <-tickers:
			if !ok {
				return nil
			}
			p.handleTicker(t)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			if p.metrics != nil {
				p.metrics.RecordError("stream_read")
			}
			p.log.Warn("market stream error, reconnecting", logger.Error(err))
			if rerr := p.stream.Reconnect(ctx); rerr != nil {
				return fmt.Errorf("stream reconnect: %w", rerr)
			}
			tickers, errs = p.stream.Read(ctx)
		}
	}
}

// Stop terminates a running pipeline.
func (p *StreamPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// LatestPrice returns the freshest streamed price for a contract.
func (p *StreamPipeline) LatestPrice(contractID string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.latest[contractID]
	return t.Price, ok
}

func (p *StreamPipeline) handleTicker(t *models.Ticker) {
	if err := validateTicker(t); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("stream_validate")
		}
		return
	}
	now := time.Now()
	p.mu.Lock()
	if !p.allowLocked(t.ContractID, now) {
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordError("stream_throttle")
		}
		return
	}
	p.latest[t.ContractID] = *t
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordLastPrice(t.ContractID, t.Price)
	}
}

func validateTicker(t *models.Ticker) error {
	if t == nil {
		return fmt.Errorf("ticker nil")
	}
	if t.ContractID == "" {
		return fmt.Errorf("contract id empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price < 0 || t.Price > 1 || t.Volume < 0 {
		return fmt.Errorf("price/volume out of range")
	}
	return nil
}

// allowLocked enforces at most maxRPS accepted tickers per second per
// contract. Caller holds p.mu.
func (p *StreamPipeline) allowLocked(contractID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	last := p.lastSeen[contractID]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[contractID] = now
	return true
}
