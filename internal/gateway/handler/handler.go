package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/gateway"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/httputil"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Service defines the invocation operation the handler needs.
type Service interface {
	Invoke(ctx context.Context, req gateway.InvokeRequest) (*gateway.InvokeResult, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/ai/invoke", h.handleInvoke)
}

func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InvokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	treatment, err := id.ParseTreatmentType(req.Treatment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Invoke(ctx, gateway.InvokeRequest{
		TenantID:  requestcontext.TenantID(ctx),
		UserID:    requestcontext.UserID(ctx),
		Treatment: treatment,
		Prompt:    req.Prompt,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "AI invocation refused", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, InvokeResponse{
		JobID:       result.JobID,
		Output:      result.Output,
		Model:       result.Model,
		CompletedAt: result.CompletedAt,
	})
}

type InvokeResponse struct {
	JobID       string    `json:"job_id"`
	Output      string    `json:"output"`
	Model       string    `json:"model"`
	CompletedAt time.Time `json:"completed_at"`
}
