package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/dpia"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/httputil"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Service defines the assessment operations the handler needs.
type Service interface {
	CreateAssessment(ctx context.Context, tenantID id.TenantID, treatment id.TreatmentType, title string, risk dpia.RiskLevel) (*dpia.Assessment, error)
	SubmitAssessment(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID, submittedBy string) (*dpia.Assessment, error)
	DecideAssessment(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID, status dpia.AssessmentStatus, decidedBy string) (*dpia.Assessment, error)
	ListAssessments(ctx context.Context, tenantID id.TenantID) ([]*dpia.Assessment, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/assessments", h.handleCreate)
	r.Get("/admin/assessments", h.handleList)
	r.Post("/admin/assessments/{id}/submit", h.handleSubmit)
	r.Post("/admin/assessments/{id}/decide", h.handleDecide)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAssessmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	treatment, err := id.ParseTreatmentType(req.Treatment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	risk, err := dpia.ParseRiskLevel(req.RiskLevel)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.service.CreateAssessment(ctx, requestcontext.TenantID(ctx), treatment, req.Title, risk)
	if err != nil {
		h.logger.ErrorContext(ctx, "create assessment failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toAssessmentResponse(a))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessments, err := h.service.ListAssessments(ctx, requestcontext.TenantID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list assessments failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := AssessmentListResponse{Assessments: make([]AssessmentResponse, 0, len(assessments))}
	for _, a := range assessments {
		resp.Assessments = append(resp.Assessments, toAssessmentResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment ID"))
		return
	}

	a, err := h.service.SubmitAssessment(ctx, requestcontext.TenantID(ctx), assessmentID, requestcontext.ActorID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "submit assessment failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(a))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment ID"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecideAssessmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.DecideAssessment(ctx, requestcontext.TenantID(ctx), assessmentID, dpia.AssessmentStatus(req.Status), requestcontext.ActorID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "decide assessment failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(a))
}
