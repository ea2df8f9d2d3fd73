package user

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/transport"
	"github.com/gianix81/payAnalyst/pkg/logger"
)

type ServiceAPI interface {
	List(ctx context.Context, archive []payslip.Payslip) ([]User, error)
	GetByUID(ctx context.Context, uid string) (*User, error)
}

// ArchiveProvider returns the payslip archive of a signed-in user.
type ArchiveProvider interface {
	Archive(ctx context.Context, id apperrors.Identity) ([]payslip.Payslip, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Archives ArchiveProvider
}

func NewHandler(svc ServiceAPI, archives ArchiveProvider) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Archives:    archives,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := apperrors.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByUID(r.Context(), id.UID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetByUID failed", "user_id", id.UID, "error", err)
		h.HandleServiceError(w, apperrors.NewNotFoundError("account not found", apperrors.ErrCodeRecordNotFound))
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ListUsers handles GET /admin/users: registered accounts plus the employees
// named on the caller's archived payslips.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := apperrors.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	archive, err := h.Archives.Archive(r.Context(), id)
	if err != nil {
		h.Logger.Error("ListUsers: archive unavailable", "user_id", id.UID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	users, err := h.Service.List(r.Context(), archive)
	if err != nil {
		h.Logger.Error("ListUsers: listing failed", "error", err)
		h.HandleServiceError(w, apperrors.NewInternalError("failed to list users", err))
		return
	}

	h.Logger.Info("ListUsers: users listed", "user_id", id.UID, "count", len(users))
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}
