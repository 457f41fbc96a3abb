package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/consent"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/httputil"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Service defines the interface for consent operations.
type Service interface {
	Grant(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatments []id.TreatmentType, ttl time.Duration) ([]consent.Record, error)
	Revoke(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType) error
	List(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]consent.Record, error)
}

// Handler handles consent endpoints for the authenticated user.
type Handler struct {
	logger     *slog.Logger
	consent    Service
	consentTTL time.Duration
}

func New(consent Service, consentTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		consent:    consent,
		consentTTL: consentTTL,
	}
}

// Register registers the consent routes. The surrounding router applies
// authentication middleware; tenant and user identity come from context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.handleGrant)
	r.Post("/consents/revoke", h.handleRevoke)
	r.Get("/consents", h.handleList)
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	tenantID := requestcontext.TenantID(ctx)
	userID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[GrantConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	treatments, err := req.ParsedTreatments()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.consent.Grant(ctx, tenantID, userID, treatments, h.consentTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to grant consent", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toConsentListResponse(records))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	tenantID := requestcontext.TenantID(ctx)
	userID := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[RevokeConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	treatment, err := id.ParseTreatmentType(req.Treatment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.consent.Revoke(ctx, tenantID, userID, treatment); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke consent", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	userID := requestcontext.UserID(ctx)

	records, err := h.consent.List(ctx, tenantID, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list consents", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list consents"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentListResponse(records))
}
