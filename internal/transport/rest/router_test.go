package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gianix81/payAnalyst/internal/transport/rest"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Suite")
}

var _ = Describe("Health routes", func() {
	var (
		router *chi.Mux
		redis  error
	)

	BeforeEach(func() {
		redis = nil
		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Routes{
			Health: map[string]rest.Checker{
				"postgres": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return redis },
			},
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	It("should answer ping", func() {
		rec := get("/api/v1/ping")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("OK"))
	})

	It("should report every component healthy", func() {
		rec := get("/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(rest.HealthHealthy))
		Expect(resp.Components).To(HaveKey("postgres"))
		Expect(resp.Components).To(HaveKey("redis"))
	})

	It("should turn unhealthy when one component fails", func() {
		redis = errors.New("connection refused")
		rec := get("/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Components["redis"].Message).To(Equal("connection refused"))
		Expect(resp.Components["postgres"].Status).To(Equal(rest.HealthHealthy))
	})

	It("should not expose protected routes without an auth handler", func() {
		Expect(get("/api/v1/workspace").Code).To(Equal(http.StatusNotFound))
	})
})
