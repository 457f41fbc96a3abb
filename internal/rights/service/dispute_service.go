package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	rightsmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// DisputeService orchestrates Art. 22 disputes of automated decisions:
// submission with an optional evidence attachment, admin review, terminal
// resolution.
type DisputeService struct {
	disputes     DisputeStore
	auditEmitter *auditEmitter
	metrics      *rightsmetrics.Metrics
	tx           StoreTx
}

func NewDisputeService(store DisputeStore, opts ...Option) *DisputeService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &DisputeService{
		disputes:     store,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
		tx:           cfg.storeTx(),
	}
}

// SubmitDisputeInput carries a data subject's challenge to an automated
// decision.
type SubmitDisputeInput struct {
	TenantID      id.TenantID
	UserID        id.UserID
	AIJobID       string
	Reason        string
	AttachmentURL string
}

// SubmitDispute validates and persists a new dispute. The attachment URL is
// recorded as-is; retention sweeping happens through
// FindWithExpiredAttachments on a schedule outside this service.
func (s *DisputeService) SubmitDispute(ctx context.Context, in SubmitDisputeInput) (*models.UserDispute, error) {
	now := requestcontext.Now(ctx)
	d, err := models.NewUserDispute(id.DisputeID(uuid.New()), in.TenantID, in.UserID, in.AIJobID, in.Reason, in.AttachmentURL, now)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.disputes.Create(txCtx, d); err != nil {
			return wrapStoreErr(err, "failed to create dispute")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:         audit.EventDisputeSubmitted,
			ActorScope:   "user",
			ActorID:      d.UserID.String(),
			TenantID:     d.TenantID.String(),
			UserID:       d.UserID.String(),
			TargetID:     d.ID.String(),
			ReasonLength: len(d.Reason),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementDisputeSubmitted()
	}
	return d, nil
}

// DisputeList is the user-facing view of their disputes with precomputed
// workload counters.
type DisputeList struct {
	Disputes         []*models.UserDispute
	PendingCount     int
	UnderReviewCount int
}

// ListDisputes returns all of the user's disputes plus pending and
// under-review counts. Fails fast on a missing tenant or user before any
// store access.
func (s *DisputeService) ListDisputes(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*DisputeList, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	disputes, err := s.disputes.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list disputes")
	}
	list := &DisputeList{Disputes: disputes}
	for _, d := range disputes {
		switch d.Status {
		case models.DisputeStatusPending:
			list.PendingCount++
		case models.DisputeStatusUnderReview:
			list.UnderReviewCount++
		}
	}
	return list, nil
}

// StartDisputeReview moves a pending dispute to under_review, stopping its
// SLA clock.
func (s *DisputeService) StartDisputeReview(ctx context.Context, tenantID id.TenantID, disputeID id.DisputeID, reviewedBy string) (*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	d, err := s.findDispute(ctx, tenantID, disputeID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := d.CanStartReview(); err != nil {
		return nil, err
	}
	if err := d.ApplyStartReview(reviewedBy, now); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.disputes.UpdateIfStatus(txCtx, d, models.DisputeStatusPending); err != nil {
			return s.wrapTransitionErr(err, "Only pending disputes can enter review")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:       audit.EventDisputeReviewStart,
			ActorScope: "admin",
			ActorID:    adminActor(ctx, reviewedBy),
			TenantID:   d.TenantID.String(),
			UserID:     d.UserID.String(),
			TargetID:   d.ID.String(),
			Decision:   string(d.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ResolveDisputeInput carries the terminal admin decision on a dispute.
type ResolveDisputeInput struct {
	TenantID      id.TenantID
	DisputeID     id.DisputeID
	Status        models.DisputeStatus
	AdminResponse string
	ReviewedBy    string
}

// ResolveDispute transitions a dispute to resolved or rejected. The resolving
// tenant must own the dispute; a mismatch is a hard isolation error, never a
// silent no-op.
func (s *DisputeService) ResolveDispute(ctx context.Context, in ResolveDisputeInput) (*models.UserDispute, error) {
	if err := requireTenant(in.TenantID); err != nil {
		return nil, err
	}
	d, err := s.findDispute(ctx, in.TenantID, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if d.TenantID != in.TenantID {
		return nil, dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: dispute belongs to another tenant")
	}
	if err := d.CanResolve(); err != nil {
		return nil, err
	}
	expected := d.Status
	now := requestcontext.Now(ctx)
	if err := d.ApplyResolve(in.Status, in.AdminResponse, in.ReviewedBy, now); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.disputes.UpdateIfStatus(txCtx, d, expected); err != nil {
			return s.wrapTransitionErr(err, "Dispute has already been resolved")
		}
		return s.auditEmitter.emit(txCtx, audit.Event{
			Name:         audit.EventDisputeResolved,
			ActorScope:   "admin",
			ActorID:      adminActor(ctx, in.ReviewedBy),
			TenantID:     d.TenantID.String(),
			UserID:       d.UserID.String(),
			TargetID:     d.ID.String(),
			Decision:     string(d.Status),
			ReasonLength: len(d.AdminResponse),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementDisputeResolved(string(d.Status))
	}
	return d, nil
}

// ListOverdueDisputes returns pending disputes past the 30-day review SLA.
func (s *DisputeService) ListOverdueDisputes(ctx context.Context, tenantID id.TenantID) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	cutoff := requestcontext.Now(ctx).Add(-models.ReviewSLA)
	out, err := s.disputes.FindExceedingSLA(ctx, tenantID, cutoff)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list overdue disputes")
	}
	return out, nil
}

// ListExpiredAttachments is the query point for the retention sweeper:
// disputes whose attachment has outlived its 90-day TTL.
func (s *DisputeService) ListExpiredAttachments(ctx context.Context, tenantID id.TenantID) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	out, err := s.disputes.FindWithExpiredAttachments(ctx, tenantID, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list expired attachments")
	}
	return out, nil
}

func (s *DisputeService) findDispute(ctx context.Context, tenantID id.TenantID, disputeID id.DisputeID) (*models.UserDispute, error) {
	d, err := s.disputes.FindByID(ctx, tenantID, disputeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Dispute not found")
		}
		return nil, wrapStoreErr(err, "failed to load dispute")
	}
	return d, nil
}

func (s *DisputeService) wrapTransitionErr(err error, conflictMsg string) error {
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeConflict, conflictMsg)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "Dispute not found")
	}
	return wrapStoreErr(err, "failed to persist dispute transition")
}
