package workspace

import (
	"context"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/analysis"
	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/remote"
)

type ExtractionResult struct {
	Payslip  payslip.Payslip `json:"payslip"`
	Archived bool            `json:"archived"`
	Alert    string          `json:"alert,omitempty"`
}

// Extract transcribes file and runs the identity check. A matching payslip is
// archived and selected; a mismatching one is only selected, with the alert set.
func (w *Workspace) Extract(ctx context.Context, file analysis.File) (ExtractionResult, error) {
	w.mu.Lock()
	w.touchLocked()
	_, err := w.requireProfileLocked()
	w.mu.Unlock()
	if err != nil {
		return ExtractionResult{}, err
	}

	p, err := w.ai.AnalyzePayslip(ctx, file)
	if err != nil {
		return ExtractionResult{}, err
	}

	w.mu.Lock()
	owner, err := w.requireProfileLocked()
	if err != nil {
		w.mu.Unlock()
		return ExtractionResult{}, err
	}
	decision := payslip.Match(&owner, p)
	if !decision.Archive {
		w.views.ExtractionCompleted(p, false)
		w.mu.Unlock()
		w.logger.Info("extracted payslip not archived",
			"payslip_id", p.ID,
			"reason", decision.Reason,
		)
		return ExtractionResult{Payslip: p, Archived: false, Alert: payslip.MismatchAlert}, nil
	}

	if _, dup := payslip.Find(w.cache.Payslips(), p.ID); dup || p.ID == "" {
		p.ID = newID()
	}
	w.cache.PutPayslips(ctx, append(w.cache.Payslips(), p))
	w.views.ExtractionCompleted(p, true)
	if w.remote == nil {
		w.mu.Unlock()
		w.logger.Info("payslip archived", "payslip_id", p.ID, "reason", decision.Reason)
		return ExtractionResult{Payslip: p, Archived: true}, nil
	}
	provisional := p.ID
	w.pending[provisional] = newPendingCreate(p, w.logger)
	epoch := w.epoch
	w.mu.Unlock()

	var assigned string
	ok := w.push(ctx, string(remote.Payslips), provisional, func(ctx context.Context) error {
		id, err := w.remote.Add(ctx, w.identity.UID, remote.Payslips, p)
		if err != nil {
			return err
		}
		assigned = id
		w.mu.Lock()
		w.confirmLocked(ctx, provisional, p, id)
		w.mu.Unlock()
		return nil
	})

	w.mu.Lock()
	_, stillPending := w.pending[provisional]
	delete(w.pending, provisional)
	sameEpoch := w.epoch == epoch
	w.mu.Unlock()
	if !ok || !sameEpoch {
		return ExtractionResult{Payslip: p, Archived: true}, nil
	}
	if !stillPending {
		// Deleted locally while the create was in flight.
		w.push(ctx, string(remote.Payslips), assigned, func(ctx context.Context) error {
			return w.remote.Delete(ctx, w.identity.UID, remote.Payslips, assigned)
		})
		return ExtractionResult{Payslip: p, Archived: true}, nil
	}
	confirmed := p
	confirmed.ID = assigned

	w.logger.Info("payslip archived", "payslip_id", assigned, "reason", decision.Reason)
	return ExtractionResult{Payslip: confirmed, Archived: true}, nil
}

// confirmLocked swaps the provisional id for the one the backend assigned, in
// the same critical section that learns it, so a snapshot carrying the new id
// never meets the provisional entry as well.
func (w *Workspace) confirmLocked(ctx context.Context, provisional string, p payslip.Payslip, assigned string) {
	pc, inFlight := w.pending[provisional]
	if !inFlight {
		return
	}
	pc.assigned = assigned
	confirmed := p
	confirmed.ID = assigned
	list := w.cache.Payslips()
	if _, held := payslip.Find(list, provisional); held {
		list = payslip.Without(list, provisional)
		if _, ok := payslip.Find(list, assigned); !ok {
			list = append(list, confirmed)
		}
		w.cache.PutPayslips(ctx, list)
	}
	w.views.PayslipRenamed(provisional, confirmed)
}

func (w *Workspace) Payslips() []payslip.Payslip {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.cache.Payslips()
}

// Payslip looks id up in the archive, then falls back to the selected payslip,
// which may be a transient one that was never archived.
func (w *Workspace) Payslip(id string) (payslip.Payslip, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.findLocked(id)
}

func (w *Workspace) findLocked(id string) (payslip.Payslip, error) {
	if p, ok := payslip.Find(w.cache.Payslips(), id); ok {
		return p, nil
	}
	if sel, ok := w.views.Selected(); ok && sel.ID == id {
		return sel, nil
	}
	return payslip.Payslip{}, apperrors.ErrPayslipNotFound
}

func (w *Workspace) SelectPayslip(id string) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	p, ok := payslip.Find(w.cache.Payslips(), id)
	if !ok {
		return Snapshot{}, apperrors.ErrPayslipNotFound
	}
	w.views.SelectPayslip(p)
	return w.snapshotLocked(), nil
}

// DeletePayslip removes id from the archive and repairs the selection.
func (w *Workspace) DeletePayslip(ctx context.Context, id string) (Snapshot, error) {
	w.mu.Lock()
	w.touchLocked()
	list := w.cache.Payslips()
	if _, ok := payslip.Find(list, id); !ok {
		w.mu.Unlock()
		return Snapshot{}, apperrors.ErrPayslipNotFound
	}
	w.cache.PutPayslips(ctx, payslip.Without(list, id))
	w.views.PayslipDeleted(id, w.cache.Payslips())
	_, provisional := w.pending[id]
	delete(w.pending, id)
	w.mu.Unlock()

	w.logger.Info("payslip deleted", "payslip_id", id)
	if !provisional {
		w.push(ctx, string(remote.Payslips), id, func(ctx context.Context) error {
			return w.remote.Delete(ctx, w.identity.UID, remote.Payslips, id)
		})
	}
	return w.Snapshot(), nil
}

func (w *Workspace) Summary(ctx context.Context, id string) (string, error) {
	w.mu.Lock()
	w.touchLocked()
	p, err := w.findLocked(id)
	w.mu.Unlock()
	if err != nil {
		return "", err
	}
	return w.ai.Summary(ctx, p)
}

// HistoryAnalysis compares id against the archived payslips older than it.
func (w *Workspace) HistoryAnalysis(ctx context.Context, id string) (payslip.HistoricalAnalysis, error) {
	w.mu.Lock()
	w.touchLocked()
	p, err := w.findLocked(id)
	archive := w.cache.Payslips()
	w.mu.Unlock()
	if err != nil {
		return payslip.HistoricalAnalysis{}, err
	}
	return w.ai.Historical(ctx, p, archive)
}

func (w *Workspace) StageForComparison(id string) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	p, ok := payslip.Find(w.cache.Payslips(), id)
	if !ok {
		return Snapshot{}, apperrors.ErrPayslipNotFound
	}
	w.views.StageForComparison(p)
	return w.snapshotLocked(), nil
}

func (w *Workspace) Unstage(id string) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	w.views.Unstage(id)
	return w.snapshotLocked()
}

// Compare opens the comparison view, either on the staged pair or, when two
// ids are given, on that pair.
func (w *Workspace) Compare(ids []string) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	switch len(ids) {
	case 0:
		if err := w.views.Compare(); err != nil {
			return Snapshot{}, err
		}
	case 2:
		a, ok := payslip.Find(w.cache.Payslips(), ids[0])
		if !ok {
			return Snapshot{}, apperrors.ErrPayslipNotFound
		}
		b, ok := payslip.Find(w.cache.Payslips(), ids[1])
		if !ok {
			return Snapshot{}, apperrors.ErrPayslipNotFound
		}
		if err := w.views.ComparePair(a, b); err != nil {
			return Snapshot{}, err
		}
	default:
		return Snapshot{}, apperrors.ErrComparisonNotReady
	}
	return w.snapshotLocked(), nil
}

func (w *Workspace) ComparisonAnalysis(ctx context.Context) (string, error) {
	w.mu.Lock()
	w.touchLocked()
	a, b, ok := w.views.StagedPair()
	w.mu.Unlock()
	if !ok {
		return "", apperrors.ErrComparisonNotReady
	}
	return w.ai.CompareSummary(ctx, a, b)
}
