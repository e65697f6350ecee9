package usecase

import (
	"context"
	"fmt"
	"time"

	"KalshiPulse/internal/domain/models"
	drepo "KalshiPulse/internal/domain/repository"
)

// EventRecorder routes decision events to the configured analytics
// backend. The sink is best effort: a recording failure is counted and
// surfaced but never blocks the strategy.
type EventRecorder struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

func NewEventRecorder(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *EventRecorder {
	return &EventRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Record sends a single decision event to the backend. With backend
// "none" it is a no-op.
func (r *EventRecorder) Record(ctx context.Context, ev *models.DecisionEvent) error {
	if ev == nil {
		return fmt.Errorf("decision event is nil")
	}

	start := time.Now()
	var err error

	switch r.backend {
	case "kafka":
		err = r.pub.Publish(ctx, ev)
	case "clickhouse":
		err = r.store.Store(ctx, ev)
	case "none", "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("record")
		}
		return fmt.Errorf("record decision: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordLatency("record", time.Since(start).Seconds())
	}
	return nil
}

// RecordBatch sends multiple decision events in one backend call.
func (r *EventRecorder) RecordBatch(ctx context.Context, evs []*models.DecisionEvent) error {
	if len(evs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch r.backend {
	case "kafka":
		err = r.pub.PublishBatch(ctx, evs)
	case "clickhouse":
		err = r.store.StoreBatch(ctx, evs)
	case "none", "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("record_batch")
		}
		return fmt.Errorf("record batch: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordLatency("record_batch", time.Since(start).Seconds())
	}
	return nil
}

// Close closes the underlying sinks.
func (r *EventRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
