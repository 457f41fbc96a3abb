package service

import (
	"context"
	"errors"
	"log/slog"

	tenantmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Store is the persistence contract for tenants.
type Store interface {
	CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	// Execute atomically validates and mutates a tenant while holding the
	// store lock (mutex or FOR UPDATE).
	Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, apply func(*models.Tenant)) (*models.Tenant, error)
	Count(ctx context.Context) (int, error)
}

// AuditPublisher records tenant lifecycle events on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// serviceConfig holds optional dependencies for the service.
type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *tenantmetrics.Metrics
}

// Option configures the service.
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

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func requireTenantID(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	return nil
}

func wrapTenantErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	if dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeBadRequest) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "tenant store failure")
}

// auditEmitter handles audit logging and event emission. Emission failures
// propagate: lifecycle changes must not outrun the trail.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emit(ctx context.Context, name audit.EventName, tenantID id.TenantID) error {
	if e.logger != nil {
		e.logger.InfoContext(ctx, string(name),
			"event", string(name),
			"log_type", "audit",
			"tenant_id", tenantID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if e.publisher == nil {
		return nil
	}
	err := e.publisher.Emit(ctx, audit.Event{
		Name:       name,
		ActorScope: "admin",
		ActorID:    requestcontext.ActorID(ctx),
		TenantID:   tenantID.String(),
		TargetID:   tenantID.String(),
	})
	if err != nil {
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(name), "error", err)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail write failed")
	}
	return nil
}
