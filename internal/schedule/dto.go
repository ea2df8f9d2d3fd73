package schedule

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/core/common/validation"
)

type IntervalDTO struct {
	ID        string `json:"id,omitempty"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

// SaveShiftDTO is the request payload for creating or editing a shift.
type SaveShiftDTO struct {
	ID        string        `json:"id,omitempty"`
	Date      string        `json:"date" validate:"required,isodate"`
	Intervals []IntervalDTO `json:"intervals" validate:"required,min=1,dive"`
	Notes     string        `json:"notes,omitempty" validate:"max=1000"`
}

func (dto SaveShiftDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	var prevEnd string
	for i, iv := range dto.Intervals {
		if iv.EndTime <= iv.StartTime {
			return apperrors.NewValidationFieldError("intervals", "interval end must be after its start", apperrors.ErrCodeInvalidRecord)
		}
		if i > 0 && iv.StartTime < prevEnd {
			return apperrors.NewValidationFieldError("intervals", "intervals must be ordered and not overlap", apperrors.ErrCodeInvalidRecord)
		}
		prevEnd = iv.EndTime
	}
	return nil
}

// ToShift builds the entity, assigning ids where the client left them out.
func (dto SaveShiftDTO) ToShift() Shift {
	s := Shift{ID: dto.ID, Date: dto.Date, Notes: dto.Notes}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Intervals = make([]Interval, 0, len(dto.Intervals))
	for _, iv := range dto.Intervals {
		id := iv.ID
		if id == "" {
			id = uuid.NewString()
		}
		s.Intervals = append(s.Intervals, Interval{ID: id, StartTime: iv.StartTime, EndTime: iv.EndTime})
	}
	return s
}

type SaveAbsenceDTO struct {
	ID     string `json:"id,omitempty"`
	Date   string `json:"date" validate:"required,isodate"`
	Reason string `json:"reason" validate:"required"`
	Notes  string `json:"notes,omitempty" validate:"max=1000"`
}

func (dto SaveAbsenceDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	if !AbsenceReason(dto.Reason).Valid() {
		return apperrors.NewValidationFieldError("reason", "reason is not a recognised absence reason", apperrors.ErrCodeInvalidRecord)
	}
	return nil
}

func (dto SaveAbsenceDTO) ToAbsence() Absence {
	a := Absence{ID: dto.ID, Date: dto.Date, Reason: AbsenceReason(dto.Reason), Notes: dto.Notes}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return a
}

type SaveLeavePlanDTO struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type" validate:"required,oneof=Ferie ROL"`
	StartDate string `json:"startDate" validate:"required,isodate"`
	EndDate   string `json:"endDate" validate:"required,isodate"`
	Notes     string `json:"notes,omitempty" validate:"max=1000"`
}

func (dto SaveLeavePlanDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	start, _ := time.Parse(validation.DateLayout, dto.StartDate)
	end, _ := time.Parse(validation.DateLayout, dto.EndDate)
	if end.Before(start) {
		return apperrors.NewValidationFieldError("endDate", "endDate must not be before startDate", apperrors.ErrCodeInvalidDate)
	}
	return nil
}

func (dto SaveLeavePlanDTO) ToLeavePlan() LeavePlan {
	p := LeavePlan{ID: dto.ID, Type: LeaveType(dto.Type), StartDate: dto.StartDate, EndDate: dto.EndDate, Notes: dto.Notes}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p
}
