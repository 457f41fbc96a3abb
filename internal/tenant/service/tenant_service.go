package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	tenantmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/models"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/secrets"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Service orchestrates tenant lifecycle management.
type Service struct {
	tenants      Store
	auditEmitter *auditEmitter
	metrics      *tenantmetrics.Metrics
}

func New(tenants Store, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		tenants:      tenants,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
	}
}

// CreateTenant provisions a tenant and issues its admin API key. The
// plaintext key is returned exactly once; only the bcrypt hash is stored.
func (s *Service) CreateTenant(ctx context.Context, name string) (*models.Tenant, string, error) {
	name = strings.TrimSpace(name)

	t, err := models.NewTenant(id.TenantID(uuid.New()), name, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, "", dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, "", err
	}

	apiKey, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue API key")
	}
	hash, err := secrets.Hash(apiKey)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash API key")
	}
	t.APIKeyHash = hash

	if err := s.tenants.CreateIfNameAvailable(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "tenant name must be unique")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	if err := s.auditEmitter.emit(ctx, audit.EventTenantCreated, t.ID); err != nil {
		return nil, "", err
	}
	s.incrementTenantCreated()
	return t, apiKey, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// GetTenantByName retrieves a tenant by name (case-insensitive).
func (s *Service) GetTenantByName(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant name is required")
	}
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// RequireActive loads a tenant and fails unless it is active. Consumed by the
// invocation gateway on every call.
func (s *Service) RequireActive(ctx context.Context, tenantID id.TenantID) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.IsActive() {
		return dErrors.New(dErrors.CodeForbidden, "tenant is deactivated")
	}
	return nil
}

// DeactivateTenant transitions a tenant to inactive status.
//
// Uses the Execute callback pattern for atomic validate-then-mutate; the
// store holds the lock (mutex or FOR UPDATE) across both.
func (s *Service) DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	tenant, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := t.CanDeactivate(); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, "tenant is already inactive")
				}
				return err
			}
			return nil
		},
		func(t *models.Tenant) {
			t.ApplyDeactivation(now)
		},
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	if err := s.auditEmitter.emit(ctx, audit.EventTenantDeactivated, tenant.ID); err != nil {
		return nil, err
	}
	s.incrementTenantDeactivated()
	return tenant, nil
}

// ReactivateTenant transitions a tenant back to active status.
func (s *Service) ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	tenant, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := t.CanReactivate(); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, "tenant is already active")
				}
				return err
			}
			return nil
		},
		func(t *models.Tenant) {
			t.ApplyReactivation(now)
		},
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	if err := s.auditEmitter.emit(ctx, audit.EventTenantReactivated, tenant.ID); err != nil {
		return nil, err
	}
	return tenant, nil
}

// RotateAPIKey issues a fresh admin API key and stores its hash, invalidating
// the previous key. The plaintext key is returned exactly once.
func (s *Service) RotateAPIKey(ctx context.Context, tenantID id.TenantID) (*models.Tenant, string, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, "", err
	}

	apiKey, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue API key")
	}
	hash, err := secrets.Hash(apiKey)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash API key")
	}

	now := requestcontext.Now(ctx)
	tenant, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if !t.IsActive() {
				return dErrors.New(dErrors.CodeConflict, "cannot rotate key for inactive tenant")
			}
			return nil
		},
		func(t *models.Tenant) {
			t.APIKeyHash = hash
			t.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, "", wrapTenantErr(err)
	}

	if err := s.auditEmitter.emit(ctx, audit.EventTenantKeyRotated, tenant.ID); err != nil {
		return nil, "", err
	}
	s.incrementAPIKeyRotated()
	return tenant, apiKey, nil
}

// VerifyAPIKey checks a presented key against the stored hash.
func (s *Service) VerifyAPIKey(ctx context.Context, tenantID id.TenantID, apiKey string) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.APIKeyHash == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "tenant has no API key")
	}
	if err := secrets.Verify(apiKey, tenant.APIKeyHash); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid API key")
	}
	return nil
}

func (s *Service) incrementTenantCreated() {
	if s.metrics != nil {
		s.metrics.IncrementTenantCreated()
	}
}

func (s *Service) incrementTenantDeactivated() {
	if s.metrics != nil {
		s.metrics.IncrementTenantDeactivated()
	}
}

func (s *Service) incrementAPIKeyRotated() {
	if s.metrics != nil {
		s.metrics.IncrementAPIKeyRotated()
	}
}
