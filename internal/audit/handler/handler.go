package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/httputil"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// Trail exposes the tenant-scoped audit trail for compliance reporting.
type Trail interface {
	List(ctx context.Context, tenantID string) ([]audit.Event, error)
}

type Handler struct {
	logger *slog.Logger
	trail  Trail
}

func New(trail Trail, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, trail: trail}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit/events", h.handleList)
}

// EventResponse is the wire view of one trail entry. Free text never appears
// here; reasons surface as enum values and lengths only.
type EventResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Timestamp       time.Time `json:"timestamp"`
	ActorScope      string    `json:"actorScope,omitempty"`
	ActorID         string    `json:"actorId,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	TargetID        string    `json:"targetId,omitempty"`
	Treatment       string    `json:"treatment,omitempty"`
	Decision        string    `json:"decision,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	ReasonLength    int       `json:"reasonLength,omitempty"`
	RequestedByUser bool      `json:"requestedByUser,omitempty"`
	RequestID       string    `json:"requestId,omitempty"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.trail.List(ctx, requestcontext.TenantID(ctx).String())
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit events failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	resp := EventListResponse{Events: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, EventResponse{
			ID:              e.ID,
			Name:            string(e.Name),
			Category:        string(e.Category),
			Timestamp:       e.Timestamp,
			ActorScope:      e.ActorScope,
			ActorID:         e.ActorID,
			UserID:          e.UserID,
			TargetID:        e.TargetID,
			Treatment:       e.Treatment,
			Decision:        e.Decision,
			Reason:          e.Reason,
			ReasonLength:    e.ReasonLength,
			RequestedByUser: e.RequestedByUser,
			RequestID:       e.RequestID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
