package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens.
// Token issuance lives outside this service; we only verify.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
// TenantID is mandatory: a token without a tenant scope cannot reach any
// tenant-owned resource.
type JWTClaims struct {
	UserID   string
	TenantID string
	Role     string
}

// RequireAuth validates the bearer token and threads tenant/user scope into
// the request context. Handlers read the scope via requestcontext; services
// re-validate that the tenant ID is present before touching any store.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			tenantID, err := id.ParseTenantID(claims.TenantID)
			if err != nil || tenantID.IsNil() {
				logger.WarnContext(ctx, "unauthorized access - token missing tenant scope",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			ctx = requestcontext.WithTenantID(ctx, tenantID)
			ctx = requestcontext.WithActorID(ctx, claims.UserID)
			if userID, err := id.ParseUserID(claims.UserID); err == nil {
				ctx = requestcontext.WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
