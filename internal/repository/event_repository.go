package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"KalshiPulse/internal/domain/models"
	"KalshiPulse/internal/domain/repository"
	pkgkafka "KalshiPulse/pkg/kafka"
)

// DecisionEventsSchema creates the analytics table. The sink is lossy by
// design: events that fail to land are dropped, not retried.
var DecisionEventsSchema = []string{
	`CREATE TABLE IF NOT EXISTS decision_events (
		ts DateTime64(3),
		contract_id String,
		action LowCardinality(String),
		confidence Float64,
		risk_approved UInt8,
		status LowCardinality(String),
		size Float64,
		filled_price Float64
	) ENGINE = MergeTree()
	ORDER BY (contract_id, ts)`,
}

// ClickHouseStorage implements Storage for decision events.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Store(ctx context.Context, ev *models.DecisionEvent) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, contract_id, action, confidence, risk_approved, status, size, filled_price) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	_, err := s.db.ExecContext(ctx, q, eventArgs(ev)...)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, evs []*models.DecisionEvent) error {
	if len(evs) == 0 {
		return nil
	}

	const chunkSize = 1000
	for start := 0; start < len(evs); start += chunkSize {
		end := start + chunkSize
		if end > len(evs) {
			end = len(evs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, ev := range evs[start:end] {
			if ev == nil || ev.ContractID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, eventArgs(ev)...)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf(
			"INSERT INTO %s (ts, contract_id, action, confidence, risk_approved, status, size, filled_price) VALUES %s",
			s.table, strings.Join(values, ","),
		)
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

func eventArgs(ev *models.DecisionEvent) []interface{} {
	approved := uint8(0)
	if ev.RiskApproved {
		approved = 1
	}
	return []interface{}{
		ev.Timestamp,
		ev.ContractID,
		string(ev.Action),
		ev.Confidence,
		approved,
		string(ev.Status),
		ev.Size,
		ev.FilledPrice,
	}
}

// KafkaPublisher implements Publisher for decision events, keyed by
// contract id so per-contract ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.DecisionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.ContractID), eventPayload(ev))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, evs []*models.DecisionEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(ev.ContractID),
			Value: eventPayload(ev),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func eventPayload(ev *models.DecisionEvent) map[string]interface{} {
	return map[string]interface{}{
		"ts":            ev.Timestamp.UnixMilli(),
		"contract_id":   ev.ContractID,
		"action":        string(ev.Action),
		"confidence":    ev.Confidence,
		"risk_approved": ev.RiskApproved,
		"status":        string(ev.Status),
		"size":          ev.Size,
		"filled_price":  ev.FilledPrice,
	}
}
