package schedule_test

import (
	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/schedule"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DTO validation", func() {
	It("should accept a well formed shift and assign ids", func() {
		dto := schedule.SaveShiftDTO{
			Date: "2024-05-01",
			Intervals: []schedule.IntervalDTO{
				{StartTime: "08:00", EndTime: "12:00"},
				{StartTime: "13:00", EndTime: "17:00"},
			},
		}
		Expect(dto.Validate()).To(Succeed())
		s := dto.ToShift()
		Expect(s.ID).NotTo(BeEmpty())
		Expect(s.Intervals[1].ID).NotTo(BeEmpty())
	})

	It("should reject a shift without intervals", func() {
		err := schedule.SaveShiftDTO{Date: "2024-05-01"}.Validate()
		appErr, ok := apperrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(apperrors.ErrCodeValidationFailed))
	})

	It("should reject overlapping intervals and bad clocks", func() {
		overlapping := schedule.SaveShiftDTO{
			Date: "2024-05-01",
			Intervals: []schedule.IntervalDTO{
				{StartTime: "08:00", EndTime: "12:00"},
				{StartTime: "11:00", EndTime: "14:00"},
			},
		}
		Expect(overlapping.Validate()).To(HaveOccurred())

		badClock := schedule.SaveShiftDTO{Date: "2024-05-01", Intervals: []schedule.IntervalDTO{{StartTime: "8am", EndTime: "12:00"}}}
		Expect(badClock.Validate()).To(HaveOccurred())
	})

	It("should reject unknown absence reasons and malformed dates", func() {
		Expect(schedule.SaveAbsenceDTO{Date: "2024-05-01", Reason: "Legge 104"}.Validate()).To(Succeed())
		Expect(schedule.SaveAbsenceDTO{Date: "2024-05-01", Reason: "Vacanza"}.Validate()).To(HaveOccurred())
		Expect(schedule.SaveAbsenceDTO{Date: "01/05/2024", Reason: "Ferie"}.Validate()).To(HaveOccurred())
	})

	It("should reject a leave plan ending before it starts", func() {
		Expect(schedule.SaveLeavePlanDTO{Type: "ROL", StartDate: "2024-05-02", EndDate: "2024-05-02"}.Validate()).To(Succeed())
		Expect(schedule.SaveLeavePlanDTO{Type: "Ferie", StartDate: "2024-05-02", EndDate: "2024-05-01"}.Validate()).To(HaveOccurred())
		Expect(schedule.SaveLeavePlanDTO{Type: "Malattia", StartDate: "2024-05-02", EndDate: "2024-05-03"}.Validate()).To(HaveOccurred())
	})
})
