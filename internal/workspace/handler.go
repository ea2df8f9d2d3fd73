package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/analysis"
	"github.com/gianix81/payAnalyst/internal/assistant"
	"github.com/gianix81/payAnalyst/internal/schedule"
	"github.com/gianix81/payAnalyst/internal/transport"
	"github.com/gianix81/payAnalyst/internal/view"
	"github.com/gianix81/payAnalyst/pkg/logger"
)

type SessionAPI interface {
	Open(ctx context.Context, id apperrors.Identity) (*Workspace, error)
	Reset(ctx context.Context, id apperrors.Identity) error
}

type Handler struct {
	*transport.BaseHandler
	Sessions       SessionAPI
	MaxUploadBytes int64
}

func NewHandler(sessions SessionAPI, maxUploadBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		Sessions:       sessions,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	id, ok := apperrors.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	ws, err := h.Sessions.Open(r.Context(), id)
	if err != nil {
		h.Logger.Error("workspace: open failed", "error", err, "user_id", id.UID)
		h.HandleServiceError(w, err)
		return nil, false
	}
	return ws, true
}

func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, ws.Snapshot())
}

// ResetWorkspace wipes the caller's persisted data and ends the session.
func (h *Handler) ResetWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := apperrors.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.Sessions.Reset(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.Logger.Info("ResetWorkspace: workspace reset", "user_id", id.UID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto NavigateDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	v, known := view.Parse(dto.View)
	if !known {
		h.HandleServiceError(w, apperrors.NewValidationFieldError("view", "unknown view", apperrors.ErrCodeValidationFailed))
		return
	}
	snap, err := ws.Navigate(v)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	p, found := ws.Profile()
	if !found {
		h.HandleServiceError(w, apperrors.ErrProfileRequired)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto ProfileDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	p, err := ws.SaveProfile(r.Context(), dto.ToProfile())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// ExtractPayslip accepts a multipart upload in the "file" field.
func (h *Handler) ExtractPayslip(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		h.Logger.Warn("ExtractPayslip: invalid upload", "error", err)
		h.HandleServiceError(w, apperrors.NewValidationFieldError("file", "a payslip file up to the size limit is required", apperrors.ErrCodeInvalidFile))
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		h.HandleServiceError(w, apperrors.NewValidationFieldError("file", "file is required", apperrors.ErrCodeInvalidFile))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.HandleServiceError(w, apperrors.NewInternalError("failed to read upload", err))
		return
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	result, err := ws.Extract(r.Context(), analysis.File{Name: header.Filename, MimeType: mime, Data: data})
	if err != nil {
		h.Logger.Error("ExtractPayslip: extraction failed", "error", err, "user_id", ws.UserID(), "file", header.Filename)
		h.HandleServiceError(w, err)
		return
	}
	h.Logger.Info("ExtractPayslip: payslip extracted",
		"user_id", ws.UserID(),
		"payslip_id", result.Payslip.ID,
		"archived", result.Archived,
	)
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	list := ws.Payslips()
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payslips": list,
		"total":    len(list),
	})
}

func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	p, err := ws.Payslip(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) SelectPayslip(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	snap, err := ws.SelectPayslip(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) DeletePayslip(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	snap, err := ws.DeletePayslip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) PayslipSummary(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	text, err := ws.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"summary": text})
}

func (h *Handler) HistoryAnalysis(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	result, err := ws.HistoryAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) StageForComparison(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto StageDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	snap, err := ws.StageForComparison(dto.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) Unstage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, ws.Unstage(chi.URLParam(r, "id")))
}

// Compare accepts an empty body to compare the staged pair.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto CompareDTO
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		h.HandleServiceError(w, apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed))
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &dto); err != nil {
			h.HandleServiceError(w, apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed))
			return
		}
		if err := dto.Validate(); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}
	snap, err := ws.Compare(dto.IDs)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) ComparisonAnalysis(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	text, err := ws.ComparisonAnalysis(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"summary": text})
}

// Ask answers a chat question. Clients sending Accept: text/event-stream get
// "delta" events while the answer streams and a final "done" event; others get
// the finished message as JSON.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	var dto AskDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if r.Header.Get("Accept") != "text/event-stream" {
		msg, err := ws.Ask(r.Context(), dto.ToRequest(), nil)
		if errors.Is(err, assistant.ErrSuperseded) {
			err = apperrors.ErrAnswerSuperseded
		}
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, msg)
		return
	}

	stream, ok := h.StartEventStream(w)
	if !ok {
		h.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	msg, err := ws.Ask(r.Context(), dto.ToRequest(), func(delta string) {
		if err := stream.Send("delta", map[string]string{"text": delta}); err != nil {
			h.Logger.Debug("Ask: client went away", "error", err)
		}
	})
	switch {
	case errors.Is(err, assistant.ErrSuperseded):
		_ = stream.Send("superseded", msg)
	case err != nil:
		if appErr, isApp := apperrors.IsAppError(err); isApp {
			_ = stream.Send("error", appErr)
		} else {
			_ = stream.Send("error", map[string]string{"message": err.Error()})
		}
	default:
		_ = stream.Send("done", msg)
	}
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"messages": ws.Messages()})
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.ClearMessages()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, ws.Calendar())
}

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"shifts": ws.Calendar().Shifts})
}

func (h *Handler) SaveShift(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto schedule.SaveShiftDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		dto.ID = id
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	saved, err := ws.SaveShift(r.Context(), dto.ToShift())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.DeleteShift(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"absences": ws.Calendar().Absences})
}

func (h *Handler) SaveAbsence(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto schedule.SaveAbsenceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		dto.ID = id
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	saved, err := ws.SaveAbsence(r.Context(), dto.ToAbsence())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.DeleteAbsence(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListLeavePlans(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"leavePlans": ws.LeavePlans()})
}

func (h *Handler) SaveLeavePlan(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var dto schedule.SaveLeavePlanDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		dto.ID = id
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	saved, err := ws.SaveLeavePlan(r.Context(), dto.ToLeavePlan())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteLeavePlan(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.DeleteLeavePlan(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
