package auth

import (
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/transport"
	"github.com/gianix81/payAnalyst/pkg/logger"
)

const oauthStateCookie = "payanalyst_oauth_state"

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var dto IDTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.SignInWithGoogle(r.Context(), dto.IDToken)
	if err != nil {
		h.Logger.Error("google sign-in failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

// GoogleLogin redirects to the Google consent screen with a state cookie.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := GenerateRandomToken()
	if err != nil {
		h.HandleServiceError(w, apperrors.NewInternalError("failed to create oauth state", err))
		return
	}
	url, err := h.Service.GoogleAuthURL(state)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.Logger.Warn("google callback: state mismatch")
		h.HandleServiceError(w, ErrInvalidToken)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.HandleServiceError(w, apperrors.NewValidationFieldError("code", "authorization code is required", apperrors.ErrCodeValidationFailed))
		return
	}
	tokens, err := h.Service.ExchangeGoogleCode(r.Context(), code)
	if err != nil {
		h.Logger.Error("google callback failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) FirebaseSignIn(w http.ResponseWriter, r *http.Request) {
	var dto IDTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.SignInWithFirebase(r.Context(), dto.IDToken)
	if err != nil {
		h.Logger.Error("firebase sign-in failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Error("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := apperrors.IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, ErrInvalidToken)
		return
	}
	if err := h.Service.Logout(r.Context(), id.UID); err != nil {
		h.Logger.Error("logout failed", "user_id", id.UID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware validates the bearer token and puts the caller's identity
// into the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			h.HandleServiceError(w, apperrors.NewUnauthorizedError("missing authorization token", apperrors.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err, "path", r.URL.Path)
			h.HandleServiceError(w, err)
			return
		}

		ctx := apperrors.ContextWithIdentity(r.Context(), claims.Identity())
		ctx = logger.With(ctx, "user_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
