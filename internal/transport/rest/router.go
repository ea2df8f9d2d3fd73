package rest

import (
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/ulule/limiter/v3"

	"github.com/gianix81/payAnalyst/internal/auth"
	"github.com/gianix81/payAnalyst/internal/transport/middleware"
	"github.com/gianix81/payAnalyst/internal/transport/swagger"
	"github.com/gianix81/payAnalyst/internal/user"
	"github.com/gianix81/payAnalyst/internal/workspace"
)

// Routes collects what RegisterAllRoutes mounts. Nil handlers are skipped.
type Routes struct {
	Auth           *auth.Handler
	RBAC           *auth.RBACAuthorization
	Users          *user.Handler
	Workspace      *workspace.Handler
	Health         map[string]Checker
	Limiter        *limiter.Limiter
	AllowedOrigins []string
	OpenAPIPath    string
	OpenAPIDoc     *openapi3.T
}

func RegisterAllRoutes(router chi.Router, routes Routes, logger *slog.Logger) {
	healthHandler := NewHealthHandler(routes.Health)

	router.Use(middleware.CORS(routes.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if routes.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, routes.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}
	if routes.OpenAPIDoc != nil {
		router.Handle("/openapi.json", swagger.DocHandler(routes.OpenAPIDoc))
	}

	limit := func(r chi.Router) {
		if routes.Limiter != nil {
			r.Use(middleware.RateLimit(routes.Limiter))
		}
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if routes.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			limit(sr)
			sr.Post("/login", routes.Auth.Login)
			sr.Post("/google", routes.Auth.GoogleSignIn)
			sr.Get("/google/login", routes.Auth.GoogleLogin)
			sr.Get("/google/callback", routes.Auth.GoogleCallback)
			sr.Post("/firebase", routes.Auth.FirebaseSignIn)
			sr.Post("/refresh", routes.Auth.RefreshToken)
			sr.With(routes.Auth.AuthMiddleware).Post("/logout", routes.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.AuthMiddleware)
			limit(pr)

			if routes.Users != nil {
				pr.Get("/users/me", routes.Users.GetCurrentUser)
				if routes.RBAC != nil {
					pr.With(routes.RBAC.RequireAdmin()).Get("/admin/users", routes.Users.ListUsers)
				}
			}

			if ws := routes.Workspace; ws != nil {
				mountWorkspace(pr, ws)
			}
		})
	})
}

func mountWorkspace(r chi.Router, h *workspace.Handler) {
	r.Get("/workspace", h.GetWorkspace)
	r.Delete("/workspace", h.ResetWorkspace)
	r.Put("/workspace/view", h.Navigate)

	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.SaveProfile)

	r.Route("/payslips", func(pr chi.Router) {
		pr.Get("/", h.ListPayslips)
		pr.Post("/extract", h.ExtractPayslip)
		pr.Get("/{id}", h.GetPayslip)
		pr.Delete("/{id}", h.DeletePayslip)
		pr.Post("/{id}/select", h.SelectPayslip)
		pr.Get("/{id}/summary", h.PayslipSummary)
		pr.Get("/{id}/history-analysis", h.HistoryAnalysis)
	})

	r.Route("/comparison", func(cr chi.Router) {
		cr.Post("/", h.Compare)
		cr.Post("/stage", h.StageForComparison)
		cr.Delete("/stage/{id}", h.Unstage)
		cr.Get("/analysis", h.ComparisonAnalysis)
	})

	r.Route("/assistant/messages", func(ar chi.Router) {
		ar.Get("/", h.ListMessages)
		ar.Post("/", h.Ask)
		ar.Delete("/", h.ClearMessages)
	})

	r.Get("/calendar", h.GetCalendar)
	r.Route("/shifts", func(sr chi.Router) {
		sr.Get("/", h.ListShifts)
		sr.Post("/", h.SaveShift)
		sr.Put("/{id}", h.SaveShift)
		sr.Delete("/{id}", h.DeleteShift)
	})
	r.Route("/absences", func(ar chi.Router) {
		ar.Get("/", h.ListAbsences)
		ar.Post("/", h.SaveAbsence)
		ar.Put("/{id}", h.SaveAbsence)
		ar.Delete("/{id}", h.DeleteAbsence)
	})
	r.Route("/leave-plans", func(lr chi.Router) {
		lr.Get("/", h.ListLeavePlans)
		lr.Post("/", h.SaveLeavePlan)
		lr.Put("/{id}", h.SaveLeavePlan)
		lr.Delete("/{id}", h.DeleteLeavePlan)
	})
}
