package service

import (
	"context"
	"log/slog"
	"time"

	rightsmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// OppositionStore is the tenant-scoped persistence port for oppositions.
type OppositionStore interface {
	Create(ctx context.Context, o *models.UserOpposition) error
	FindByID(ctx context.Context, tenantID id.TenantID, oppositionID id.OppositionID) (*models.UserOpposition, error)
	ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserOpposition, error)
	// UpdateIfPending persists a reviewed opposition only when the stored row
	// is still pending; returns sentinel.ErrInvalidState when a concurrent
	// review won the race.
	UpdateIfPending(ctx context.Context, o *models.UserOpposition) error
	FindExceedingSLA(ctx context.Context, tenantID id.TenantID, cutoff time.Time) ([]*models.UserOpposition, error)
	SoftDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, deletedAt time.Time) (int64, error)
}

// DisputeStore is the tenant-scoped persistence port for disputes.
type DisputeStore interface {
	Create(ctx context.Context, d *models.UserDispute) error
	FindByID(ctx context.Context, tenantID id.TenantID, disputeID id.DisputeID) (*models.UserDispute, error)
	ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserDispute, error)
	// UpdateIfStatus persists a transitioned dispute only when the stored row
	// still has the expected pre-transition status.
	UpdateIfStatus(ctx context.Context, d *models.UserDispute, expected models.DisputeStatus) error
	FindExceedingSLA(ctx context.Context, tenantID id.TenantID, cutoff time.Time) ([]*models.UserDispute, error)
	FindWithExpiredAttachments(ctx context.Context, tenantID id.TenantID, now time.Time) ([]*models.UserDispute, error)
	SoftDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, deletedAt time.Time) (int64, error)
}

// ConsentPurger removes a user's consent records during erasure.
type ConsentPurger interface {
	PurgeUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error)
}

// AuditPublisher records rights operations on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// serviceConfig holds optional dependencies for the rights services.
type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *rightsmetrics.Metrics
	tx             StoreTx
}

func (c *serviceConfig) storeTx() StoreTx {
	if c.tx != nil {
		return c.tx
	}
	return newInMemoryStoreTx()
}

// Option configures a rights service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *rightsmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithStoreTx wraps each entity write and its audit append in one
// transactional boundary. On postgres the outbox row then commits or rolls
// back with the entity row.
func WithStoreTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}

func requireTenant(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID is required")
	}
	return nil
}

func requireUser(userID id.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user ID is required")
	}
	return nil
}

// auditEmitter handles audit logging and event emission for rights
// operations. Emission failures propagate to the caller: a rights action
// without its trail entry is an Art. 5(2) accountability breach, not a
// degraded success.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) error {
	if e.logger != nil {
		e.logger.InfoContext(ctx, string(event.Name),
			"event", string(event.Name),
			"log_type", "audit",
			"tenant_id", event.TenantID,
			"user_id", event.UserID,
			"target_id", event.TargetID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if e.publisher == nil {
		return nil
	}
	if err := e.publisher.Emit(ctx, event); err != nil {
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event.Name), "error", err)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail write failed")
	}
	return nil
}

// wrapStoreErr normalizes persistence failures. RGPD isolation breaches pass
// through untouched so tests and callers see the original code.
func wrapStoreErr(err error, msg string) error {
	if dErrors.HasCode(err, dErrors.CodeRGPDViolation) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// UserStore is the restriction-state port consumed by the suspension service.
type UserStore = user.Store
