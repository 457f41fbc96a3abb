package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// BlockReason is the enum recorded on every refused invocation. Audit
// payloads carry these values, never free text.
type BlockReason string

const (
	BlockReasonValidation        BlockReason = "validation_failed"
	BlockReasonTenantInactive    BlockReason = "tenant_inactive"
	BlockReasonAssessmentMissing BlockReason = "assessment_missing"
	BlockReasonConsentMissing    BlockReason = "consent_missing"
	BlockReasonQuotaExceeded     BlockReason = "quota_exceeded"
	BlockReasonDataSuspended     BlockReason = "data_suspended"
)

// TenantGate refuses invocations for deactivated tenants.
type TenantGate interface {
	RequireActive(ctx context.Context, tenantID id.TenantID) error
}

// AssessmentGate refuses high-risk treatments lacking a validated impact
// assessment.
type AssessmentGate interface {
	RequireValidated(ctx context.Context, tenantID id.TenantID, treatment id.TreatmentType) error
}

// ConsentGate refuses treatments without an active consent.
type ConsentGate interface {
	Require(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType) error
}

// AIModel is the downstream model port. The gateway owns enforcement, not
// inference.
type AIModel interface {
	Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// ModelRequest is what reaches the model after every gate has passed.
type ModelRequest struct {
	JobID     string
	TenantID  id.TenantID
	UserID    id.UserID
	Treatment id.TreatmentType
	Prompt    string
}

// ModelResponse is the downstream model's answer.
type ModelResponse struct {
	Output string
	Model  string
}

// AuditPublisher records gateway decisions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// InvokeRequest is an AI invocation attempt on behalf of a data subject.
type InvokeRequest struct {
	TenantID  id.TenantID
	UserID    id.UserID
	Treatment id.TreatmentType
	Prompt    string
}

// InvokeResult is returned for permitted, completed invocations.
type InvokeResult struct {
	JobID       string
	Output      string
	Model       string
	CompletedAt time.Time
}

// Service is the AI-invocation gateway: every request passes the full chain
// of RGPD gates before the model port is touched. The data suspension check
// runs last, unconditionally; nothing is invoked past a restricted user.
type Service struct {
	tenants     TenantGate
	assessments AssessmentGate
	consents    ConsentGate
	users       user.Store
	throttle    Throttle
	model       AIModel

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *Metrics
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

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(tenants TenantGate, assessments AssessmentGate, consents ConsentGate, users user.Store, throttle Throttle, model AIModel, opts ...Option) *Service {
	s := &Service{
		tenants:     tenants,
		assessments: assessments,
		consents:    consents,
		users:       users,
		throttle:    throttle,
		model:       model,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoke runs the enforcement pipeline and, when every gate passes, calls the
// model. Gate order: validation, tenant active, impact assessment, consent,
// throttle, data suspension. Every refusal is audited with its enum reason.
func (s *Service) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway.Invoke",
		oteltrace.WithAttributes(attribute.String("treatment", string(req.Treatment))))
	defer span.End()

	if err := s.validate(req); err != nil {
		return nil, s.block(ctx, req, BlockReasonValidation, err)
	}
	if err := s.tenants.RequireActive(ctx, req.TenantID); err != nil {
		return nil, s.block(ctx, req, BlockReasonTenantInactive, err)
	}
	if err := s.assessments.RequireValidated(ctx, req.TenantID, req.Treatment); err != nil {
		return nil, s.block(ctx, req, BlockReasonAssessmentMissing, err)
	}
	if err := s.consents.Require(ctx, req.TenantID, req.UserID, req.Treatment); err != nil {
		return nil, s.block(ctx, req, BlockReasonConsentMissing, err)
	}
	if err := s.throttle.Allow(ctx, req.TenantID); err != nil {
		return nil, s.block(ctx, req, BlockReasonQuotaExceeded, err)
	}
	// Art. 18 gate. Always last: no check below this line, no invocation
	// above it.
	if err := CheckDataSuspension(ctx, s.users, req.TenantID, req.UserID); err != nil {
		var suspErr *DataSuspensionError
		if errors.As(err, &suspErr) {
			return nil, s.block(ctx, req, BlockReasonDataSuspended, dErrors.Wrap(err, dErrors.CodeDataSuspended, suspErr.Message))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "data suspension check failed")
	}

	jobID := uuid.NewString()
	started := time.Now()
	resp, err := s.model.Invoke(ctx, ModelRequest{
		JobID:     jobID,
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		Treatment: req.Treatment,
		Prompt:    req.Prompt,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "AI model invocation failed")
	}
	if s.metrics != nil {
		s.metrics.InvocationsCompleted.Inc()
		s.metrics.InvocationDuration.Observe(time.Since(started).Seconds())
	}

	completedAt := requestcontext.Now(ctx)
	if err := s.emit(ctx, audit.EventAIInvocationCompleted, req, jobID, ""); err != nil {
		return nil, err
	}
	return &InvokeResult{
		JobID:       jobID,
		Output:      resp.Output,
		Model:       resp.Model,
		CompletedAt: completedAt,
	}, nil
}

func (s *Service) validate(req InvokeRequest) error {
	if req.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID is required")
	}
	if req.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user ID is required")
	}
	if !req.Treatment.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid treatment: "+req.Treatment.String())
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return dErrors.New(dErrors.CodeValidation, "prompt is required")
	}
	return nil
}

// block audits the refusal and returns the gate error. An audit failure
// compounds, not replaces, the refusal.
func (s *Service) block(ctx context.Context, req InvokeRequest, reason BlockReason, gateErr error) error {
	if s.metrics != nil {
		s.metrics.InvocationsBlocked.WithLabelValues(string(reason)).Inc()
	}
	if emitErr := s.emit(ctx, audit.EventAIInvocationBlocked, req, "", string(reason)); emitErr != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to audit blocked invocation", "reason", string(reason), "error", emitErr)
		}
	}
	return gateErr
}

func (s *Service) emit(ctx context.Context, name audit.EventName, req InvokeRequest, jobID, reason string) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(name),
			"event", string(name),
			"log_type", "audit",
			"tenant_id", req.TenantID.String(),
			"user_id", req.UserID.String(),
			"treatment", req.Treatment.String(),
			"reason", reason,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Name:       name,
		ActorScope: "user",
		ActorID:    requestcontext.ActorID(ctx),
		TenantID:   req.TenantID.String(),
		UserID:     req.UserID.String(),
		TargetID:   jobID,
		Treatment:  req.Treatment.String(),
		Reason:     reason,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail write failed")
	}
	return nil
}
