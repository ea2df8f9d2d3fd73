package workspace

import (
	"context"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/schedule"
)

// Snapshots always win: each one replaces the cached collection wholesale.
// Callbacks registered under an older epoch are ignored.

func (w *Workspace) onPayslips(epoch uint64) remote.SnapshotFunc {
	return func(docs []remote.Document) {
		list := remote.Decode[payslip.Payslip](docs, w.logger)

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.epoch != epoch {
			return
		}
		previous := w.cache.Payslips()
		for provisional, pc := range w.pending {
			if echo, ok := pc.echoOf(list, previous); ok {
				pc.assigned = echo.ID
				w.views.PayslipRenamed(provisional, echo)
				continue
			}
			if p, ok := payslip.Find(previous, provisional); ok {
				list = append(list, p)
			}
		}
		ctx, cancel := apperrors.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		w.cache.PutPayslips(ctx, list)
		w.views.ArchiveReplaced(previous, w.cache.Payslips())
		w.views.ClearSyncWarning()
		w.logger.Debug("payslip snapshot applied", "count", len(list))
	}
}

func (w *Workspace) onShifts(epoch uint64) remote.SnapshotFunc {
	return replaceOnSnapshot(w, epoch, remote.Shifts, w.cache.PutShifts)
}

func (w *Workspace) onAbsences(epoch uint64) remote.SnapshotFunc {
	return replaceOnSnapshot(w, epoch, remote.Absences, w.cache.PutAbsences)
}

func (w *Workspace) onLeavePlans(epoch uint64) remote.SnapshotFunc {
	return replaceOnSnapshot(w, epoch, remote.LeavePlans, w.cache.PutLeavePlans)
}

func replaceOnSnapshot[T schedule.Shift | schedule.Absence | schedule.LeavePlan](
	w *Workspace,
	epoch uint64,
	collection remote.Collection,
	put func(ctx context.Context, list []T),
) remote.SnapshotFunc {
	return func(docs []remote.Document) {
		list := remote.Decode[T](docs, w.logger)

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.epoch != epoch {
			return
		}
		ctx, cancel := apperrors.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		put(ctx, list)
		w.views.ClearSyncWarning()
		w.logger.Debug("snapshot applied", "collection", collection, "count", len(list))
	}
}
