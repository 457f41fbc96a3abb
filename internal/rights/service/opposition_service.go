package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	rightsmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// OppositionService orchestrates the Art. 21 objection lifecycle: submission
// by the data subject, review by a tenant admin, SLA tracking.
type OppositionService struct {
	oppositions  OppositionStore
	auditEmitter *auditEmitter
	metrics      *rightsmetrics.Metrics
	tx           StoreTx
}

func NewOppositionService(store OppositionStore, opts ...Option) *OppositionService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &OppositionService{
		oppositions:  store,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
		tx:           cfg.storeTx(),
	}
}

// SubmitOppositionInput carries a data subject's objection to a treatment.
type SubmitOppositionInput struct {
	TenantID  id.TenantID
	UserID    id.UserID
	Treatment id.TreatmentType
	Reason    string
}

// SubmitOpposition validates and persists a new opposition, then records it
// on the audit trail. The audit event carries the reason's length, never its
// text.
func (s *OppositionService) SubmitOpposition(ctx context.Context, in SubmitOppositionInput) (*models.UserOpposition, error) {
	now := requestcontext.Now(ctx)
	o, err := models.NewUserOpposition(id.OppositionID(uuid.New()), in.TenantID, in.UserID, in.Treatment, in.Reason, now)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.oppositions.Create(txCtx, o); err != nil {
			return wrapStoreErr(err, "failed to create opposition")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:         audit.EventOppositionSubmitted,
			ActorScope:   "user",
			ActorID:      o.UserID.String(),
			TenantID:     o.TenantID.String(),
			UserID:       o.UserID.String(),
			TargetID:     o.ID.String(),
			Treatment:    o.Treatment.String(),
			ReasonLength: len(o.Reason),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementOppositionSubmitted(o.Treatment.String())
	}
	return o, nil
}

// ReviewOppositionInput carries an admin decision on a pending opposition.
type ReviewOppositionInput struct {
	TenantID      id.TenantID
	OppositionID  id.OppositionID
	Status        models.OppositionStatus
	AdminResponse string
	ReviewedBy    string
}

// ReviewOpposition transitions a pending opposition to accepted or rejected.
// The transition is re-verified at write time: a concurrent review that
// already flipped the status makes this call fail with a conflict.
func (s *OppositionService) ReviewOpposition(ctx context.Context, in ReviewOppositionInput) (*models.UserOpposition, error) {
	if err := requireTenant(in.TenantID); err != nil {
		return nil, err
	}
	o, err := s.oppositions.FindByID(ctx, in.TenantID, in.OppositionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Opposition not found")
		}
		return nil, wrapStoreErr(err, "failed to load opposition")
	}
	now := requestcontext.Now(ctx)
	if err := o.Review(in.Status, in.AdminResponse, in.ReviewedBy, now); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.oppositions.UpdateIfPending(txCtx, o); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "Only pending oppositions can be reviewed")
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "Opposition not found")
			}
			return wrapStoreErr(err, "failed to persist opposition review")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:         audit.EventOppositionReviewed,
			ActorScope:   "admin",
			ActorID:      adminActor(ctx, in.ReviewedBy),
			TenantID:     o.TenantID.String(),
			UserID:       o.UserID.String(),
			TargetID:     o.ID.String(),
			Treatment:    o.Treatment.String(),
			Decision:     string(o.Status),
			ReasonLength: len(o.AdminResponse),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementOppositionReviewed(string(o.Status))
	}
	return o, nil
}

// ListOppositions returns the user's oppositions in submission order.
func (s *OppositionService) ListOppositions(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	out, err := s.oppositions.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list oppositions")
	}
	return out, nil
}

// ListOverdueOppositions returns pending oppositions past the 30-day review
// SLA, for operational dashboards.
func (s *OppositionService) ListOverdueOppositions(ctx context.Context, tenantID id.TenantID) ([]*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	cutoff := requestcontext.Now(ctx).Add(-models.ReviewSLA)
	out, err := s.oppositions.FindExceedingSLA(ctx, tenantID, cutoff)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list overdue oppositions")
	}
	return out, nil
}

// adminActor prefers the authenticated actor from the request context and
// falls back to the reviewer named in the input.
func adminActor(ctx context.Context, reviewedBy string) string {
	if actor := requestcontext.ActorID(ctx); actor != "" {
		return actor
	}
	return strings.TrimSpace(reviewedBy)
}
