package workspace

import (
	"context"

	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/schedule"
)

// Calendar is the shift and absence state after a change.
type Calendar struct {
	Shifts   []schedule.Shift   `json:"shifts"`
	Absences []schedule.Absence `json:"absences"`
}

func (w *Workspace) Calendar() Calendar {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return Calendar{Shifts: w.cache.Shifts(), Absences: w.cache.Absences()}
}

// SaveShift stores s, keeping one entry per date, and returns the shift as
// stored: a shift already on that date lends it its id.
func (w *Workspace) SaveShift(ctx context.Context, s schedule.Shift) (schedule.Shift, error) {
	w.mu.Lock()
	w.touchLocked()
	if _, err := w.requireProfileLocked(); err != nil {
		w.mu.Unlock()
		return schedule.Shift{}, err
	}
	before := w.cache.Absences()
	shifts, absences := schedule.SaveShift(w.cache.Shifts(), before, s)
	w.cache.PutShifts(ctx, shifts)
	w.cache.PutAbsences(ctx, absences)
	saved, _ := schedule.FindShiftByDate(shifts, s.Date)
	w.mu.Unlock()

	w.logger.Info("shift saved", "shift_id", saved.ID, "date", saved.Date, "intervals", len(saved.Intervals))
	w.push(ctx, string(remote.Shifts), saved.ID, func(ctx context.Context) error {
		return w.remote.Set(ctx, w.identity.UID, remote.Shifts, saved.ID, saved)
	})
	for _, a := range before {
		if a.Date == saved.Date {
			w.deleteRemote(ctx, remote.Absences, a.ID)
		}
	}
	return saved, nil
}

// SaveAbsence mirrors SaveShift, dropping any shift on the same date.
func (w *Workspace) SaveAbsence(ctx context.Context, a schedule.Absence) (schedule.Absence, error) {
	w.mu.Lock()
	w.touchLocked()
	if _, err := w.requireProfileLocked(); err != nil {
		w.mu.Unlock()
		return schedule.Absence{}, err
	}
	before := w.cache.Shifts()
	shifts, absences := schedule.SaveAbsence(before, w.cache.Absences(), a)
	w.cache.PutShifts(ctx, shifts)
	w.cache.PutAbsences(ctx, absences)
	saved, _ := schedule.FindAbsenceByDate(absences, a.Date)
	w.mu.Unlock()

	w.logger.Info("absence saved", "absence_id", saved.ID, "date", saved.Date, "reason", saved.Reason)
	w.push(ctx, string(remote.Absences), saved.ID, func(ctx context.Context) error {
		return w.remote.Set(ctx, w.identity.UID, remote.Absences, saved.ID, saved)
	})
	for _, s := range before {
		if s.Date == saved.Date {
			w.deleteRemote(ctx, remote.Shifts, s.ID)
		}
	}
	return saved, nil
}

// DeleteShift is idempotent and never touches absences.
func (w *Workspace) DeleteShift(ctx context.Context, id string) {
	w.mu.Lock()
	w.touchLocked()
	w.cache.PutShifts(ctx, schedule.DeleteShift(w.cache.Shifts(), id))
	w.mu.Unlock()
	w.deleteRemote(ctx, remote.Shifts, id)
}

func (w *Workspace) DeleteAbsence(ctx context.Context, id string) {
	w.mu.Lock()
	w.touchLocked()
	w.cache.PutAbsences(ctx, schedule.DeleteAbsence(w.cache.Absences(), id))
	w.mu.Unlock()
	w.deleteRemote(ctx, remote.Absences, id)
}

func (w *Workspace) LeavePlans() []schedule.LeavePlan {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
	return w.cache.LeavePlans()
}

func (w *Workspace) SaveLeavePlan(ctx context.Context, p schedule.LeavePlan) (schedule.LeavePlan, error) {
	w.mu.Lock()
	w.touchLocked()
	if _, err := w.requireProfileLocked(); err != nil {
		w.mu.Unlock()
		return schedule.LeavePlan{}, err
	}
	w.cache.PutLeavePlans(ctx, schedule.SaveLeavePlan(w.cache.LeavePlans(), p))
	w.mu.Unlock()

	w.logger.Info("leave plan saved", "plan_id", p.ID, "type", p.Type, "days", p.Days())
	w.push(ctx, string(remote.LeavePlans), p.ID, func(ctx context.Context) error {
		return w.remote.Set(ctx, w.identity.UID, remote.LeavePlans, p.ID, p)
	})
	return p, nil
}

func (w *Workspace) DeleteLeavePlan(ctx context.Context, id string) {
	w.mu.Lock()
	w.touchLocked()
	w.cache.PutLeavePlans(ctx, schedule.DeleteLeavePlan(w.cache.LeavePlans(), id))
	w.mu.Unlock()
	w.deleteRemote(ctx, remote.LeavePlans, id)
}

func (w *Workspace) deleteRemote(ctx context.Context, c remote.Collection, id string) {
	w.push(ctx, string(c), id, func(ctx context.Context) error {
		return w.remote.Delete(ctx, w.identity.UID, c, id)
	})
}
