package publisher

import (
	"context"

	"github.com/google/uuid"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
//
// Append failures propagate to the caller: audit completeness is an Art. 5.2
// accountability requirement, so use-cases fail when the trail cannot be
// confirmed.
type Publisher struct {
	store audit.Store
}

func New(store audit.Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Name.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

// List exposes the tenant-scoped trail for compliance reporting.
func (p *Publisher) List(ctx context.Context, tenantID string) ([]audit.Event, error) {
	return p.store.ListByTenant(ctx, tenantID)
}
