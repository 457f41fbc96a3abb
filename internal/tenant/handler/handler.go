package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/httputil"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Service defines the interface for tenant operations.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	CreateTenant(ctx context.Context, name string) (*models.Tenant, string, error)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	RotateAPIKey(ctx context.Context, tenantID id.TenantID) (*models.Tenant, string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tenants", h.HandleCreateTenant)
	r.Get("/admin/tenants/{id}", h.HandleGetTenant)
	r.Post("/admin/tenants/{id}/deactivate", h.HandleDeactivateTenant)
	r.Post("/admin/tenants/{id}/reactivate", h.HandleReactivateTenant)
	r.Post("/admin/tenants/{id}/rotate-key", h.HandleRotateAPIKey)
}

// HandleCreateTenant provisions a tenant and returns its admin API key.
// The key appears in this response only; afterwards only its hash exists.
func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, apiKey, err := h.service.CreateTenant(ctx, req.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "create tenant failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &TenantCreateResponse{
		Tenant: toTenantResponse(tenant),
		APIKey: apiKey,
	})
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	tenant, err := h.service.GetTenant(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get tenant failed", "error", err, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

// HandleDeactivateTenant deactivates a tenant. Deactivation blocks every AI
// invocation for the tenant's users at the gateway.
func (h *Handler) HandleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DeactivateTenant, "deactivate tenant failed")
}

func (h *Handler) HandleReactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ReactivateTenant, "reactivate tenant failed")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.TenantID) (*models.Tenant, error), errMsg string) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	tenant, err := op(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, errMsg, "error", err, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}

// HandleRotateAPIKey replaces the tenant admin API key.
func (h *Handler) HandleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	tenant, apiKey, err := h.service.RotateAPIKey(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "rotate api key failed", "error", err, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &TenantCreateResponse{
		Tenant: toTenantResponse(tenant),
		APIKey: apiKey,
	})
}
