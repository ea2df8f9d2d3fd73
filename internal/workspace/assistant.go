package workspace

import (
	"context"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/assistant"
	"github.com/gianix81/payAnalyst/internal/payslip"
)

// What the assistant grounds an answer on.
const (
	ScopeArchive = "archive"
	ScopeFocused = "focused"
	ScopeCompare = "compare"
)

type AskRequest struct {
	Text             string
	Scope            string
	IncludeTaxTables bool
	Attachment       *assistant.Attachment
}

// Ask streams an answer grounded on the archive, the selected payslip or the
// staged pair. The workspace lock is not held while streaming.
func (w *Workspace) Ask(ctx context.Context, req AskRequest, onDelta func(delta string)) (assistant.Message, error) {
	w.mu.Lock()
	w.touchLocked()
	if _, err := w.requireProfileLocked(); err != nil {
		w.mu.Unlock()
		return assistant.Message{}, err
	}
	var qc assistant.Context
	switch req.Scope {
	case ScopeCompare:
		a, b, ok := w.views.StagedPair()
		if !ok {
			w.mu.Unlock()
			return assistant.Message{}, apperrors.ErrComparisonNotReady
		}
		qc.Compare = &[2]payslip.Payslip{a, b}
	case ScopeFocused:
		sel, ok := w.views.Selected()
		if !ok {
			w.mu.Unlock()
			return assistant.Message{}, apperrors.ErrPayslipNotFound
		}
		qc.Focused = &sel
	default:
		qc.Archive = w.cache.Payslips()
	}
	qc.IncludeTaxTables = req.IncludeTaxTables
	w.mu.Unlock()

	return w.chat.Ask(ctx, assistant.Question{Text: req.Text, Context: qc, Attachment: req.Attachment}, onDelta)
}

func (w *Workspace) Messages() []assistant.Message {
	w.mu.Lock()
	w.touchLocked()
	w.mu.Unlock()
	return w.chat.Messages()
}

func (w *Workspace) ClearMessages() {
	w.mu.Lock()
	w.touchLocked()
	w.mu.Unlock()
	w.chat.Clear()
}
