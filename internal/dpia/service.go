package dpia

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// AuditPublisher records assessment decisions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives the Art. 35 impact assessment lifecycle and answers the
// gateway's "is this treatment cleared" question.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAssessment registers a draft assessment for a treatment.
func (s *Service) CreateAssessment(ctx context.Context, tenantID id.TenantID, treatment id.TreatmentType, title string, risk RiskLevel) (*Assessment, error) {
	now := requestcontext.Now(ctx)
	a, err := NewAssessment(id.AssessmentID(uuid.New()), tenantID, treatment, title, risk, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, s.wrapErr(err, "failed to create assessment")
	}
	return a, nil
}

// SubmitAssessment moves a draft into review.
func (s *Service) SubmitAssessment(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID, submittedBy string) (*Assessment, error) {
	a, err := s.find(ctx, tenantID, assessmentID)
	if err != nil {
		return nil, err
	}
	if err := a.CanSubmit(); err != nil {
		return nil, err
	}
	if err := a.ApplySubmit(submittedBy, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.UpdateIfStatus(ctx, a, StatusDraft); err != nil {
		return nil, s.wrapTransitionErr(err, "Only draft assessments can be submitted")
	}
	if err := s.emit(ctx, audit.EventAssessmentSubmitted, a, submittedBy); err != nil {
		return nil, err
	}
	return a, nil
}

// DecideAssessment validates or rejects a submitted assessment.
func (s *Service) DecideAssessment(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID, status AssessmentStatus, decidedBy string) (*Assessment, error) {
	a, err := s.find(ctx, tenantID, assessmentID)
	if err != nil {
		return nil, err
	}
	if err := a.CanDecide(); err != nil {
		return nil, err
	}
	if err := a.ApplyDecision(status, decidedBy, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.UpdateIfStatus(ctx, a, StatusSubmitted); err != nil {
		return nil, s.wrapTransitionErr(err, "Only submitted assessments can be decided")
	}
	name := audit.EventAssessmentValidated
	if status == StatusRejected {
		name = audit.EventAssessmentRejected
	}
	if err := s.emit(ctx, name, a, decidedBy); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssessments returns the tenant's assessments in creation order.
func (s *Service) ListAssessments(ctx context.Context, tenantID id.TenantID) ([]*Assessment, error) {
	out, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, s.wrapErr(err, "failed to list assessments")
	}
	return out, nil
}

// RequireValidated fails when a high-risk treatment lacks a validated
// assessment. Treatments outside the Art. 35 scope pass unconditionally.
func (s *Service) RequireValidated(ctx context.Context, tenantID id.TenantID, treatment id.TreatmentType) error {
	if !treatment.RequiresAssessment() {
		return nil
	}
	_, err := s.store.FindValidatedByTreatment(ctx, tenantID, treatment)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodePolicyViolation, "no validated impact assessment for treatment "+treatment.String())
		}
		return s.wrapErr(err, "failed to check impact assessment")
	}
	return nil
}

func (s *Service) find(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID) (*Assessment, error) {
	a, err := s.store.FindByID(ctx, tenantID, assessmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Assessment not found")
		}
		return nil, s.wrapErr(err, "failed to load assessment")
	}
	return a, nil
}

func (s *Service) wrapErr(err error, msg string) error {
	if dErrors.HasCode(err, dErrors.CodeRGPDViolation) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) wrapTransitionErr(err error, conflictMsg string) error {
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeConflict, conflictMsg)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "Assessment not found")
	}
	return s.wrapErr(err, "failed to persist assessment transition")
}

// emit logs and publishes the audit event. Failures propagate.
func (s *Service) emit(ctx context.Context, name audit.EventName, a *Assessment, actorID string) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(name),
			"event", string(name),
			"log_type", "audit",
			"tenant_id", a.TenantID.String(),
			"assessment_id", a.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Name:       name,
		ActorScope: "admin",
		ActorID:    actorID,
		TenantID:   a.TenantID.String(),
		TargetID:   a.ID.String(),
		Treatment:  a.Treatment.String(),
		Decision:   string(a.Status),
		Reason:     string(a.RiskLevel),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(name), "error", err)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail write failed")
	}
	return nil
}
