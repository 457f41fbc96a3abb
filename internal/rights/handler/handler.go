package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/service"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/httputil"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// OppositionService defines the opposition operations the handler needs.
type OppositionService interface {
	SubmitOpposition(ctx context.Context, in service.SubmitOppositionInput) (*models.UserOpposition, error)
	ReviewOpposition(ctx context.Context, in service.ReviewOppositionInput) (*models.UserOpposition, error)
	ListOppositions(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserOpposition, error)
}

// DisputeService defines the dispute operations the handler needs.
type DisputeService interface {
	SubmitDispute(ctx context.Context, in service.SubmitDisputeInput) (*models.UserDispute, error)
	ListDisputes(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*service.DisputeList, error)
	StartDisputeReview(ctx context.Context, tenantID id.TenantID, disputeID id.DisputeID, reviewedBy string) (*models.UserDispute, error)
	ResolveDispute(ctx context.Context, in service.ResolveDisputeInput) (*models.UserDispute, error)
}

// SuspensionService defines the restriction and erasure operations the
// handler needs.
type SuspensionService interface {
	SuspendUserData(ctx context.Context, in service.SuspendInput) (*user.Suspension, error)
	UnsuspendUserData(ctx context.Context, in service.UnsuspendInput) (*user.Suspension, error)
	GetSuspension(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*user.Suspension, error)
	EraseUserData(ctx context.Context, tenantID id.TenantID, userID id.UserID, requestedBy string) error
}

type Handler struct {
	logger      *slog.Logger
	oppositions OppositionService
	disputes    DisputeService
	suspensions SuspensionService
}

func New(oppositions OppositionService, disputes DisputeService, suspensions SuspensionService, logger *slog.Logger) *Handler {
	return &Handler{
		logger:      logger,
		oppositions: oppositions,
		disputes:    disputes,
		suspensions: suspensions,
	}
}

// Register registers the rights routes. User routes read identity from
// context; admin routes address their subject by path parameter.
func (h *Handler) Register(r chi.Router) {
	r.Post("/rights/oppositions", h.handleSubmitOpposition)
	r.Get("/rights/oppositions", h.handleListOppositions)
	r.Post("/rights/disputes", h.handleSubmitDispute)
	r.Get("/rights/disputes", h.handleListDisputes)
	r.Get("/rights/suspension", h.handleGetOwnSuspension)

	r.Post("/admin/rights/oppositions/{id}/review", h.handleReviewOpposition)
	r.Post("/admin/rights/disputes/{id}/review", h.handleStartDisputeReview)
	r.Post("/admin/rights/disputes/{id}/resolve", h.handleResolveDispute)
	r.Post("/admin/rights/users/{id}/suspend", h.handleSuspendUser)
	r.Post("/admin/rights/users/{id}/unsuspend", h.handleUnsuspendUser)
	r.Delete("/admin/rights/users/{id}", h.handleEraseUser)
}

func (h *Handler) handleSubmitOpposition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitOppositionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	treatment, err := id.ParseTreatmentType(req.Treatment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	o, err := h.oppositions.SubmitOpposition(ctx, service.SubmitOppositionInput{
		TenantID:  requestcontext.TenantID(ctx),
		UserID:    requestcontext.UserID(ctx),
		Treatment: treatment,
		Reason:    req.Reason,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "submit opposition failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toOppositionResponse(o, requestcontext.Now(ctx)))
}

func (h *Handler) handleListOppositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	oppositions, err := h.oppositions.ListOppositions(ctx, requestcontext.TenantID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list oppositions failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(ctx)
	resp := OppositionListResponse{Oppositions: make([]OppositionResponse, 0, len(oppositions))}
	for _, o := range oppositions {
		resp.Oppositions = append(resp.Oppositions, toOppositionResponse(o, now))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReviewOpposition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	oppositionID, err := id.ParseOppositionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid opposition ID"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewOppositionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	o, err := h.oppositions.ReviewOpposition(ctx, service.ReviewOppositionInput{
		TenantID:      requestcontext.TenantID(ctx),
		OppositionID:  oppositionID,
		Status:        models.OppositionStatus(req.Status),
		AdminResponse: req.AdminResponse,
		ReviewedBy:    requestcontext.ActorID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "review opposition failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toOppositionResponse(o, requestcontext.Now(ctx)))
}

func (h *Handler) handleSubmitDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitDisputeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.disputes.SubmitDispute(ctx, service.SubmitDisputeInput{
		TenantID:      requestcontext.TenantID(ctx),
		UserID:        requestcontext.UserID(ctx),
		AIJobID:       req.AIJobID,
		Reason:        req.Reason,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "submit dispute failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDisputeResponse(d, requestcontext.Now(ctx)))
}

func (h *Handler) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.disputes.ListDisputes(ctx, requestcontext.TenantID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list disputes failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(ctx)
	resp := DisputeListResponse{
		Disputes:         make([]DisputeResponse, 0, len(list.Disputes)),
		PendingCount:     list.PendingCount,
		UnderReviewCount: list.UnderReviewCount,
	}
	for _, d := range list.Disputes {
		resp.Disputes = append(resp.Disputes, toDisputeResponse(d, now))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStartDisputeReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid dispute ID"))
		return
	}

	d, err := h.disputes.StartDisputeReview(ctx, requestcontext.TenantID(ctx), disputeID, requestcontext.ActorID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "start dispute review failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDisputeResponse(d, requestcontext.Now(ctx)))
}

func (h *Handler) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	disputeID, err := id.ParseDisputeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid dispute ID"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveDisputeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.disputes.ResolveDispute(ctx, service.ResolveDisputeInput{
		TenantID:      requestcontext.TenantID(ctx),
		DisputeID:     disputeID,
		Status:        models.DisputeStatus(req.Status),
		AdminResponse: req.AdminResponse,
		ReviewedBy:    requestcontext.ActorID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve dispute failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDisputeResponse(d, requestcontext.Now(ctx)))
}

func (h *Handler) handleSuspendUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user ID"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reason, err := id.ParseSuspensionReason(req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := h.suspensions.SuspendUserData(ctx, service.SuspendInput{
		TenantID:    requestcontext.TenantID(ctx),
		UserID:      userID,
		Reason:      reason,
		RequestedBy: requestcontext.ActorID(ctx),
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "suspend user data failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSuspensionResponse(snap))
}

func (h *Handler) handleUnsuspendUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user ID"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[UnsuspendUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snap, err := h.suspensions.UnsuspendUserData(ctx, service.UnsuspendInput{
		TenantID:    requestcontext.TenantID(ctx),
		UserID:      userID,
		RequestedBy: requestcontext.ActorID(ctx),
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "unsuspend user data failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSuspensionResponse(snap))
}

func (h *Handler) handleGetOwnSuspension(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.suspensions.GetSuspension(ctx, requestcontext.TenantID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "get suspension failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSuspensionResponse(snap))
}

func (h *Handler) handleEraseUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user ID"))
		return
	}

	err = h.suspensions.EraseUserData(ctx, requestcontext.TenantID(ctx), userID, requestcontext.ActorID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "erase user data failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "erased"})
}
