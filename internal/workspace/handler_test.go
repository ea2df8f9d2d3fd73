package workspace_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/store/memory"
	"github.com/gianix81/payAnalyst/internal/view"
	"github.com/gianix81/payAnalyst/internal/workspace"
)

func newRequest(method, target string, body []byte, id *apperrors.Identity) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if id == nil {
		return req
	}
	return req.WithContext(apperrors.ContextWithIdentity(req.Context(), *id))
}

func decode(rec *httptest.ResponseRecorder, dst interface{}) {
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), dst)).To(Succeed())
}

var _ = Describe("Handler", func() {
	var (
		ai     *mockAnalysis
		mgr    *workspace.Manager
		router chi.Router
		id     apperrors.Identity
	)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	upload := func() *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "busta.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("%PDF-1.4 payslip"))
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())
		req := newRequest(http.MethodPost, "/payslips/extract", buf.Bytes(), &id)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	BeforeEach(func() {
		ai = &mockAnalysis{summary: "riepilogo"}
		mgr = workspace.NewManager(workspace.Options{
			Mode:     view.ModeLocal,
			Port:     memory.New(),
			Analysis: ai,
			Streamer: echoStreamer{},
			Logger:   quietLogger(),
		}, time.Minute, 0)
		DeferCleanup(mgr.Shutdown)
		id = maria

		h := workspace.NewHandler(mgr, 1<<20)
		router = chi.NewRouter()
		router.Get("/workspace", h.GetWorkspace)
		router.Delete("/workspace", h.ResetWorkspace)
		router.Put("/workspace/view", h.Navigate)
		router.Get("/profile", h.GetProfile)
		router.Put("/profile", h.SaveProfile)
		router.Post("/payslips/extract", h.ExtractPayslip)
		router.Get("/payslips", h.ListPayslips)
		router.Get("/payslips/{id}", h.GetPayslip)
		router.Delete("/payslips/{id}", h.DeletePayslip)
		router.Get("/payslips/{id}/summary", h.PayslipSummary)
		router.Post("/comparison/stage", h.StageForComparison)
		router.Post("/comparison", h.Compare)
		router.Post("/assistant/messages", h.Ask)
		router.Get("/assistant/messages", h.ListMessages)
		router.Get("/calendar", h.GetCalendar)
		router.Get("/shifts", h.ListShifts)
		router.Put("/shifts/{id}", h.SaveShift)
		router.Delete("/shifts/{id}", h.DeleteShift)
		router.Post("/leave-plans", h.SaveLeavePlan)
	})

	It("should reject requests without identity", func() {
		rec := serve(newRequest(http.MethodGet, "/workspace", nil, nil))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should return the workspace snapshot", func() {
		rec := serve(newRequest(http.MethodGet, "/workspace", nil, &id))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var snap workspace.Snapshot
		decode(rec, &snap)
		Expect(snap.View).To(Equal(view.Dashboard))
		Expect(snap.Profile.LastName).To(Equal("Rossi"))
	})

	It("should gate onboarding for users without names", func() {
		id = apperrors.Identity{UID: "u-new", Role: "user"}

		rec := serve(newRequest(http.MethodGet, "/profile", nil, &id))
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = serve(newRequest(http.MethodPut, "/profile", []byte(`{"firstName":"Luca"}`), &id))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = serve(newRequest(http.MethodPut, "/profile", []byte(`{"firstName":"Luca","lastName":"Neri"}`), &id))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should reject unknown views", func() {
		rec := serve(newRequest(http.MethodPut, "/workspace/view", []byte(`{"view":"nowhere"}`), &id))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = serve(newRequest(http.MethodPut, "/workspace/view", []byte(`{"view":"settings"}`), &id))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	Describe("payslips", func() {
		It("should extract an uploaded payslip and list it", func() {
			ai.queue(slip("Maria", "Rossi", 6, 2024))

			rec := serve(upload())
			Expect(rec.Code).To(Equal(http.StatusOK))
			var res workspace.ExtractionResult
			decode(rec, &res)
			Expect(res.Archived).To(BeTrue())

			rec = serve(newRequest(http.MethodGet, "/payslips", nil, &id))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var list struct {
				Total int `json:"total"`
			}
			decode(rec, &list)
			Expect(list.Total).To(Equal(1))

			rec = serve(newRequest(http.MethodGet, "/payslips/"+res.Payslip.ID+"/summary", nil, &id))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("riepilogo"))

			rec = serve(newRequest(http.MethodDelete, "/payslips/"+res.Payslip.ID, nil, &id))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should require a file", func() {
			rec := serve(newRequest(http.MethodPost, "/payslips/extract", []byte(`{}`), &id))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return 404 for unknown payslips", func() {
			rec := serve(newRequest(http.MethodGet, "/payslips/missing", nil, &id))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should compare the staged pair on an empty body", func() {
			ai.queue(slip("Maria", "Rossi", 5, 2024), slip("Maria", "Rossi", 6, 2024))
			for i := 0; i < 2; i++ {
				rec := serve(upload())
				Expect(rec.Code).To(Equal(http.StatusOK))
				var res workspace.ExtractionResult
				decode(rec, &res)
				body, _ := json.Marshal(map[string]string{"id": res.Payslip.ID})
				rec = serve(newRequest(http.MethodPost, "/comparison/stage", body, &id))
				Expect(rec.Code).To(Equal(http.StatusOK))
			}

			rec := serve(newRequest(http.MethodPost, "/comparison", nil, &id))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var snap workspace.Snapshot
			decode(rec, &snap)
			Expect(snap.View).To(Equal(view.Compare))

			rec = serve(newRequest(http.MethodPost, "/comparison", []byte(`{"ids":["only-one"]}`), &id))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("assistant", func() {
		It("should answer as JSON by default", func() {
			rec := serve(newRequest(http.MethodPost, "/assistant/messages", []byte(`{"text":"ciao"}`), &id))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("risposta"))

			rec = serve(newRequest(http.MethodGet, "/assistant/messages", nil, &id))
			var body struct {
				Messages []json.RawMessage `json:"messages"`
			}
			decode(rec, &body)
			Expect(body.Messages).To(HaveLen(2))
		})

		It("should stream deltas as server-sent events", func() {
			req := newRequest(http.MethodPost, "/assistant/messages", []byte(`{"text":"ciao"}`), &id)
			req.Header.Set("Accept", "text/event-stream")

			rec := serve(req)

			Expect(rec.Header().Get("Content-Type")).To(Equal("text/event-stream"))
			var names []string
			scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
			for scanner.Scan() {
				if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
					names = append(names, name)
				}
			}
			Expect(names).To(Equal([]string{"delta", "done"}))
		})

		It("should answer a replaced question with a conflict", func() {
			streamer := &blockingStreamer{started: make(chan struct{})}
			m := workspace.NewManager(workspace.Options{
				Mode:     view.ModeLocal,
				Port:     memory.New(),
				Analysis: ai,
				Streamer: streamer,
				Logger:   quietLogger(),
			}, time.Minute, 0)
			DeferCleanup(m.Shutdown)
			chat := chi.NewRouter()
			chat.Post("/assistant/messages", workspace.NewHandler(m, 1<<20).Ask)

			stale := make(chan *httptest.ResponseRecorder, 1)
			go func() {
				defer GinkgoRecover()
				rec := httptest.NewRecorder()
				chat.ServeHTTP(rec, newRequest(http.MethodPost, "/assistant/messages", []byte(`{"text":"prima"}`), &id))
				stale <- rec
			}()
			Eventually(streamer.started).Should(BeClosed())

			rec := httptest.NewRecorder()
			chat.ServeHTTP(rec, newRequest(http.MethodPost, "/assistant/messages", []byte(`{"text":"seconda"}`), &id))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("seconda risposta"))

			var first *httptest.ResponseRecorder
			Eventually(stale).Should(Receive(&first))
			Expect(first.Code).To(Equal(http.StatusConflict))
			Expect(first.Body.String()).To(ContainSubstring(string(apperrors.ErrCodeAnswerSuperseded)))
		})

		It("should reject an empty question", func() {
			rec := serve(newRequest(http.MethodPost, "/assistant/messages", []byte(`{"text":""}`), &id))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("calendar", func() {
		It("should save a shift under the id in the path", func() {
			body := []byte(`{"date":"2024-06-03","intervals":[{"startTime":"09:00","endTime":"13:00"}]}`)
			rec := serve(newRequest(http.MethodPut, "/shifts/s1", body, &id))
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = serve(newRequest(http.MethodGet, "/calendar", nil, &id))
			var cal workspace.Calendar
			decode(rec, &cal)
			Expect(cal.Shifts).To(HaveLen(1))
			Expect(cal.Shifts[0].ID).To(Equal("s1"))

			rec = serve(newRequest(http.MethodDelete, "/shifts/s1", nil, &id))
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("should reject overlapping intervals", func() {
			body := []byte(`{"date":"2024-06-03","intervals":[{"startTime":"09:00","endTime":"13:00"},{"startTime":"12:00","endTime":"15:00"}]}`)
			rec := serve(newRequest(http.MethodPut, "/shifts/s1", body, &id))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject a leave plan ending before it starts", func() {
			body := []byte(`{"type":"Ferie","startDate":"2024-08-10","endDate":"2024-08-01"}`)
			rec := serve(newRequest(http.MethodPost, "/leave-plans", body, &id))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("should reset the workspace", func() {
		rec := serve(newRequest(http.MethodDelete, "/workspace", nil, &id))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(mgr.Len()).To(Equal(0))
	})
})
