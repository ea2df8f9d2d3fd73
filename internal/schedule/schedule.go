package schedule

import (
	"time"

	"github.com/gianix81/payAnalyst/internal/core/common/validation"
)

type AbsenceReason string

const (
	ReasonFerie            AbsenceReason = "Ferie"
	ReasonROL              AbsenceReason = "ROL"
	ReasonPermessoSpeciale AbsenceReason = "Permesso Speciale"
	ReasonMalattia         AbsenceReason = "Malattia"
	ReasonLegge104         AbsenceReason = "Legge 104"
	ReasonRiposo           AbsenceReason = "Riposo"
	ReasonAltro            AbsenceReason = "Altro"
)

// AbsenceReasons lists the accepted reasons in display order.
var AbsenceReasons = []AbsenceReason{
	ReasonFerie, ReasonROL, ReasonPermessoSpeciale, ReasonMalattia, ReasonLegge104, ReasonRiposo, ReasonAltro,
}

func (r AbsenceReason) Valid() bool {
	for _, known := range AbsenceReasons {
		if r == known {
			return true
		}
	}
	return false
}

type LeaveType string

const (
	LeaveFerie LeaveType = "Ferie"
	LeaveROL   LeaveType = "ROL"
)

type Interval struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Shift is a working day. Its date is the merge key against other shifts and absences.
type Shift struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	Intervals []Interval `json:"intervals"`
	Notes     string     `json:"notes"`
}

type Absence struct {
	ID     string        `json:"id"`
	Date   string        `json:"date"`
	Reason AbsenceReason `json:"reason"`
	Notes  string        `json:"notes"`
}

// LeavePlan is a planned multi-day block, independent of the day calendar.
type LeavePlan struct {
	ID        string    `json:"id"`
	Type      LeaveType `json:"type"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Notes     string    `json:"notes"`
}

// Days returns the inclusive number of calendar days covered by the plan.
func (l LeavePlan) Days() int {
	start, err1 := time.Parse(validation.DateLayout, l.StartDate)
	end, err2 := time.Parse(validation.DateLayout, l.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
