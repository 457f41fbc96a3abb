package testutil

import (
	"net/http"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// WithAuth adds tenant and user scope to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// Invalid IDs are silently ignored.
func WithAuth(req *http.Request, tenantID, userID string) *http.Request {
	ctx := req.Context()
	if tenantID != "" {
		if parsed, err := id.ParseTenantID(tenantID); err == nil {
			ctx = requestcontext.WithTenantID(ctx, parsed)
		}
	}
	if userID != "" {
		if parsed, err := id.ParseUserID(userID); err == nil {
			ctx = requestcontext.WithUserID(ctx, parsed)
			ctx = requestcontext.WithActorID(ctx, userID)
		}
	}
	return req.WithContext(ctx)
}

// WithActor overrides the acting principal, for admin-initiated requests.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}
