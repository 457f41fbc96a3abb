// Package worker drains the audit outbox into Kafka.
//
// The outbox row is written in the same transaction as the entity change; this
// worker is the at-least-once bridge to the compliance topic. Consumers must
// deduplicate on event ID.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Producer is the Kafka client surface the worker needs.
// *kgo.Client satisfies it.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Worker polls unpublished outbox rows and produces them to the audit topic.
type Worker struct {
	db       *sql.DB
	producer Producer
	topic    string
	logger   *slog.Logger

	batchSize    int
	pollInterval time.Duration
}

func New(db *sql.DB, producer Producer, topic string, logger *slog.Logger) *Worker {
	return &Worker{
		db:           db,
		producer:     producer,
		topic:        topic,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
}

// Run drains the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainBatch(ctx); err != nil {
				// Publishing failures are retried on the next tick; the rows
				// stay unpublished so nothing is lost.
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id      string
	payload []byte
}

func (w *Worker) drainBatch(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batchSize)
	if err != nil {
		return fmt.Errorf("select outbox batch: %w", err)
	}

	var batch []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox batch: %w", err)
	}
	if len(batch) == 0 {
		return tx.Commit()
	}

	records := make([]*kgo.Record, 0, len(batch))
	for _, r := range batch {
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(r.id),
			Value: r.payload,
		})
	}
	if err := w.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]string, len(batch))
	for i, r := range batch {
		ids[i] = r.id
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = NOW() WHERE id = ANY($1)
	`, ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox batch: %w", err)
	}

	w.logger.DebugContext(ctx, "audit outbox batch published", "count", len(batch))
	return nil
}
