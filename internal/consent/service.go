package consent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// AuditPublisher records consent decisions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service persists consent decisions and provides treatment-aware checks. It
// keeps orchestration out of handlers and domain logic thin.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tx             StoreTx
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithStoreTx wraps each consent mutation and its audit append in one
// transactional boundary. On postgres the outbox row then commits or rolls
// back with the consent row.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newInMemoryStoreTx()
	}
	return s
}

// Grant validates and grants consent for multiple treatments at once.
func (s *Service) Grant(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatments []id.TreatmentType, ttl time.Duration) ([]Record, error) {
	if len(treatments) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "treatments array must not be empty")
	}
	for _, t := range treatments {
		if !t.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid treatment: "+t.String())
		}
	}

	now := requestcontext.Now(ctx)
	var records []Record
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, treatment := range treatments {
			record := Record{
				ID:        id.ConsentID(uuid.New()),
				TenantID:  tenantID,
				UserID:    userID,
				Treatment: treatment,
				GrantedAt: now,
			}
			if ttl > 0 {
				record.ExpiresAt = now.Add(ttl)
			}
			if err := s.store.Save(txCtx, record); err != nil {
				if dErrors.HasCode(err, dErrors.CodeRGPDViolation) {
					return err
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant consent")
			}
			if err := s.emit(txCtx, audit.EventConsentGranted, record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Require returns an error when consent is missing, revoked, or expired.
// Consumed by the invocation gateway before any treatment runs.
func (s *Service) Require(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType) error {
	consents, err := s.store.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	return EnsureConsent(consents, treatment, requestcontext.Now(ctx))
}

func (s *Service) Revoke(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType) error {
	if !treatment.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid treatment: "+treatment.String())
	}
	now := requestcontext.Now(ctx)
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Revoke(txCtx, tenantID, userID, treatment, now); err != nil {
			if dErrors.HasCode(err, dErrors.CodeRGPDViolation) {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInvalidConsent, "failed to revoke consent")
		}
		return s.emit(txCtx, audit.EventConsentRevoked, Record{TenantID: tenantID, UserID: userID, Treatment: treatment})
	})
}

// List returns all consent records for the user, active or not.
func (s *Service) List(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]Record, error) {
	return s.store.ListByUser(ctx, tenantID, userID)
}

// PurgeUser removes every consent row for the user. Called by the erasure
// use-case; not exposed over HTTP.
func (s *Service) PurgeUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	return s.store.HardDeleteByUser(ctx, tenantID, userID)
}

func (s *Service) emit(ctx context.Context, name audit.EventName, record Record) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(name),
			"event", string(name),
			"log_type", "audit",
			"tenant_id", record.TenantID.String(),
			"user_id", record.UserID.String(),
			"treatment", record.Treatment.String(),
		)
	}
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Name:            name,
		ActorScope:      "user",
		ActorID:         record.UserID.String(),
		TenantID:        record.TenantID.String(),
		UserID:          record.UserID.String(),
		TargetID:        record.ID.String(),
		Treatment:       record.Treatment.String(),
		RequestedByUser: true,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail write failed")
	}
	return nil
}
