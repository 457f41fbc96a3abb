package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	txcontext "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the outbox
// worker. The Kafka topic is the long-term audit sink; the outbox row is the
// durability guarantee between the entity write and the publish.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID              string `json:"ID"`
	Name            string `json:"Name"`
	Category        string `json:"Category"`
	Timestamp       string `json:"Timestamp"`
	ActorScope      string `json:"ActorScope,omitempty"`
	ActorID         string `json:"ActorID,omitempty"`
	TenantID        string `json:"TenantID,omitempty"`
	UserID          string `json:"UserID,omitempty"`
	TargetID        string `json:"TargetID,omitempty"`
	Treatment       string `json:"Treatment,omitempty"`
	Decision        string `json:"Decision,omitempty"`
	Reason          string `json:"Reason,omitempty"`
	ReasonLength    int    `json:"ReasonLength,omitempty"`
	RequestedByUser bool   `json:"RequestedByUser,omitempty"`
	RequestID       string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
// When a transaction is present in the context, the outbox row commits or
// rolls back together with the entity write.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload := outboxPayload{
		ID:              event.ID,
		Name:            string(event.Name),
		Category:        string(event.Category),
		Timestamp:       event.Timestamp.Format(time.RFC3339Nano),
		ActorScope:      event.ActorScope,
		ActorID:         event.ActorID,
		TenantID:        event.TenantID,
		UserID:          event.UserID,
		TargetID:        event.TargetID,
		Treatment:       event.Treatment,
		Decision:        event.Decision,
		Reason:          event.Reason,
		ReasonLength:    event.ReasonLength,
		RequestedByUser: event.RequestedByUser,
		RequestID:       event.RequestID,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, tenant_id, event_name, category, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.TenantID,
		string(event.Name),
		string(event.Category),
		payloadBytes,
		event.Timestamp,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByTenant returns the tenant's trail from the outbox, oldest first.
// Published rows are retained until the retention sweep, so this covers
// recent history; long-range queries belong to the Kafka-side consumer.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM audit_outbox
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, audit.Event{
			ID:              p.ID,
			Name:            audit.EventName(p.Name),
			Category:        audit.EventCategory(p.Category),
			Timestamp:       ts,
			ActorScope:      p.ActorScope,
			ActorID:         p.ActorID,
			TenantID:        p.TenantID,
			UserID:          p.UserID,
			TargetID:        p.TargetID,
			Treatment:       p.Treatment,
			Decision:        p.Decision,
			Reason:          p.Reason,
			ReasonLength:    p.ReasonLength,
			RequestedByUser: p.RequestedByUser,
			RequestID:       p.RequestID,
		})
	}
	return events, rows.Err()
}
