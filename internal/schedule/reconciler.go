package schedule

import "sort"

// SaveShift stores s and enforces one entry per date. A shift already recorded
// for the same date keeps its id and is overwritten in place; otherwise s replaces
// the shift carrying its id or is appended. Absences on that date are dropped.
func SaveShift(shifts []Shift, absences []Absence, s Shift) ([]Shift, []Absence) {
	out := make([]Shift, len(shifts))
	copy(out, shifts)

	idx := -1
	for i := range out {
		if out[i].Date == s.Date {
			idx = i
			s.ID = out[i].ID
			break
		}
	}
	if idx < 0 {
		for i := range out {
			if out[i].ID == s.ID {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		out[idx] = s
	} else {
		out = append(out, s)
	}

	kept := make([]Absence, 0, len(absences))
	for _, a := range absences {
		if a.Date != s.Date {
			kept = append(kept, a)
		}
	}
	return out, kept
}

// SaveAbsence mirrors SaveShift: same-date absences are overwritten keeping their id
// and any shift on that date is dropped.
func SaveAbsence(shifts []Shift, absences []Absence, a Absence) ([]Shift, []Absence) {
	out := make([]Absence, len(absences))
	copy(out, absences)

	idx := -1
	for i := range out {
		if out[i].Date == a.Date {
			idx = i
			a.ID = out[i].ID
			break
		}
	}
	if idx < 0 {
		for i := range out {
			if out[i].ID == a.ID {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		out[idx] = a
	} else {
		out = append(out, a)
	}

	kept := make([]Shift, 0, len(shifts))
	for _, s := range shifts {
		if s.Date != a.Date {
			kept = append(kept, s)
		}
	}
	return kept, out
}

// DeleteShift removes by id only; absences are untouched.
func DeleteShift(shifts []Shift, id string) []Shift {
	out := make([]Shift, 0, len(shifts))
	for _, s := range shifts {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func DeleteAbsence(absences []Absence, id string) []Absence {
	out := make([]Absence, 0, len(absences))
	for _, a := range absences {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// SaveLeavePlan replaces the plan with the same id or appends it.
func SaveLeavePlan(plans []LeavePlan, p LeavePlan) []LeavePlan {
	out := make([]LeavePlan, len(plans))
	copy(out, plans)
	for i := range out {
		if out[i].ID == p.ID {
			out[i] = p
			return out
		}
	}
	return append(out, p)
}

func DeleteLeavePlan(plans []LeavePlan, id string) []LeavePlan {
	out := make([]LeavePlan, 0, len(plans))
	for _, p := range plans {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// SortLeavePlans orders plans by start date ascending. Dates are ISO strings so
// lexical order is chronological.
func SortLeavePlans(plans []LeavePlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].StartDate < plans[j].StartDate
	})
}

// FindShiftByDate returns the shift recorded on date, if any.
func FindShiftByDate(shifts []Shift, date string) (Shift, bool) {
	for _, s := range shifts {
		if s.Date == date {
			return s, true
		}
	}
	return Shift{}, false
}

func FindAbsenceByDate(absences []Absence, date string) (Absence, bool) {
	for _, a := range absences {
		if a.Date == date {
			return a, true
		}
	}
	return Absence{}, false
}
