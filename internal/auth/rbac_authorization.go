package auth

import (
	"log/slog"
	"net/http"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/transport"
)

// RBACAuthorization gates routes on the role carried by the caller's identity.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := apperrors.IdentityFromContext(r.Context())
		if !ok {
			ra.Logger.Warn("authorization check failed: identity not found in context")
			ra.HandleServiceError(w, apperrors.NewUnauthorizedError("authentication required", apperrors.ErrCodeInvalidToken))
			return
		}

		if id.Role != role {
			ra.Logger.WarnContext(r.Context(), "access denied: insufficient role",
				"user_id", id.UID,
				"required_role", role,
				"role", id.Role)
			ra.HandleServiceError(w, apperrors.ErrUnauthorizedAccess)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, role)
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.Middleware(RoleAdmin)
}
