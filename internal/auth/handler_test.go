package auth

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/gianix81/payAnalyst/internal"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		handler  *Handler
		service  *Service
		recorder *httptest.ResponseRecorder
	)

	login := func(email string) AuthTokens {
		tokens, err := service.Authenticate(context.Background(), LoginDTO{Email: email, Password: "correct_password"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return tokens
	}

	ginkgo.BeforeEach(func() {
		tokenGen := NewJWTTokenGenerator("access", "refresh", time.Minute, time.Hour)
		service = NewService(newMockAccountRepository(), tokenGen, Options{BCryptCost: bcrypt.MinCost, Logger: quietLogger()})
		handler = NewHandler(service)
		recorder = httptest.NewRecorder()
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return tokens for valid credentials", func() {
			body := []byte(`{"email":"admin@example.com","password":"correct_password"}`)
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(body))

			handler.Login(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(recorder.Body.String()).To(gomega.ContainSubstring("access_token"))
		})

		ginkgo.It("should return 401 for a wrong password", func() {
			body := []byte(`{"email":"admin@example.com","password":"nope"}`)
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(body))

			handler.Login(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(recorder.Body.String()).To(gomega.ContainSubstring("INVALID_CREDENTIALS"))
		})

		ginkgo.It("should return 400 for an unknown field", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"user":"x"}`))

			handler.Login(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("GoogleCallback", func() {
		ginkgo.It("should refuse a state that does not match the cookie", func() {
			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=a&code=c", nil)
			req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "b"})

			handler.GoogleCallback(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("GoogleLogin", func() {
		ginkgo.It("should redirect with a state cookie when configured", func() {
			service.googleOAuth = NewGoogleOAuth("client-id", "secret", "http://localhost/cb", stubVerifier{})
			req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)

			handler.GoogleLogin(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusFound))
			gomega.Expect(recorder.Result().Cookies()).To(gomega.HaveLen(1))
		})

		ginkgo.It("should report a disabled provider", func() {
			req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)

			handler.GoogleLogin(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var seen apperrors.Identity
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = apperrors.IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		ginkgo.It("should put the identity into the context", func() {
			tokens := login("laura@example.com")
			req := httptest.NewRequest(http.MethodGet, "/workspace", nil)
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

			handler.AuthMiddleware(next).ServeHTTP(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(seen.UID).To(gomega.Equal("uid-laura"))
			gomega.Expect(seen.FirstName).To(gomega.Equal("Laura"))
		})

		ginkgo.It("should reject a missing token", func() {
			req := httptest.NewRequest(http.MethodGet, "/workspace", nil)

			handler.AuthMiddleware(next).ServeHTTP(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should reject a refresh token", func() {
			tokens := login("laura@example.com")
			req := httptest.NewRequest(http.MethodGet, "/workspace", nil)
			req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)

			handler.AuthMiddleware(next).ServeHTTP(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("RBACAuthorization", func() {
		var rbac *RBACAuthorization
		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

		ginkgo.BeforeEach(func() {
			rbac = NewRBACAuthorization(quietLogger())
		})

		serveAs := func(id *apperrors.Identity) int {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if id != nil {
				req = req.WithContext(apperrors.ContextWithIdentity(req.Context(), *id))
			}
			rec := httptest.NewRecorder()
			rbac.RequireAdmin()(ok).ServeHTTP(rec, req)
			return rec.Code
		}

		ginkgo.It("should let administrators through", func() {
			gomega.Expect(serveAs(&apperrors.Identity{UID: "a", Role: RoleAdmin})).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should forbid other roles", func() {
			gomega.Expect(serveAs(&apperrors.Identity{UID: "u", Role: RoleUser})).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should require an identity", func() {
			gomega.Expect(serveAs(nil)).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
