package audit

import "context"

// Store is the append-only persistence port for audit events.
// Implementations must never mutate or delete appended events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID string) ([]Event, error)
}
