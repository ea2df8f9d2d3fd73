package gormsync_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	remoteDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/remote"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/profile"
	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/remote/gormsync"
	"github.com/gianix81/payAnalyst/internal/schedule"
)

func TestGormSync(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Remote Documents Suite")
}

// Recorder keeps the latest snapshot delivered to a subscription.
type Recorder struct {
	mu    sync.Mutex
	docs  []remote.Document
	calls int
}

func (r *Recorder) On(docs []remote.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = docs
	r.calls++
}

func (r *Recorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.docs))
	for i, d := range r.docs {
		ids[i] = d.ID
	}
	return ids
}

func (r *Recorder) Docs() []remote.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs
}

func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var _ = Describe("gorm document adapter", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		bus     *events.EventBus
		adapter *gormsync.Adapter
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&remoteDatamodel.Document{})).To(Succeed())

		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(lg)
		adapter = gormsync.NewAdapter(db, bus, lg)
	})

	It("should assign ids on Add and deliver payslips newest first", func() {
		rec := &Recorder{}
		sub, err := adapter.Subscribe(ctx, "u1", remote.Payslips, rec.On)
		Expect(err).NotTo(HaveOccurred())
		defer sub.Unsubscribe()
		Eventually(rec.Calls).Should(BeNumerically(">=", 1))

		older, err := adapter.Add(ctx, "u1", remote.Payslips, payslip.Payslip{ID: "client", Period: payslip.Period{Month: 11, Year: 2023}})
		Expect(err).NotTo(HaveOccurred())
		Expect(older).NotTo(Equal("client"))
		newer, err := adapter.Add(ctx, "u1", remote.Payslips, payslip.Payslip{Period: payslip.Period{Month: 2, Year: 2024}})
		Expect(err).NotTo(HaveOccurred())

		Eventually(rec.IDs).Should(Equal([]string{newer, older}))
	})

	It("should scope snapshots to the user", func() {
		rec := &Recorder{}
		sub, err := adapter.Subscribe(ctx, "u2", remote.Shifts, rec.On)
		Expect(err).NotTo(HaveOccurred())
		defer sub.Unsubscribe()

		Expect(adapter.Set(ctx, "u1", remote.Shifts, "s1", schedule.Shift{ID: "s1", Date: "2024-05-01"})).To(Succeed())
		Expect(adapter.Set(ctx, "u2", remote.Shifts, "s2", schedule.Shift{ID: "s2", Date: "2024-05-01"})).To(Succeed())
		Eventually(rec.IDs).Should(Equal([]string{"s2"}))
	})

	It("should merge on Set and delete idempotently", func() {
		Expect(adapter.Set(ctx, "u1", remote.LeavePlans, "p1", schedule.LeavePlan{ID: "p1", Type: schedule.LeaveFerie, StartDate: "2024-08-01", EndDate: "2024-08-10", Notes: "mare"})).To(Succeed())
		Expect(adapter.Set(ctx, "u1", remote.LeavePlans, "p1", map[string]interface{}{"endDate": "2024-08-12"})).To(Succeed())
		Expect(adapter.Set(ctx, "u1", remote.LeavePlans, "p0", schedule.LeavePlan{ID: "p0", Type: schedule.LeaveROL, StartDate: "2024-03-01", EndDate: "2024-03-01"})).To(Succeed())

		rec := &Recorder{}
		sub, err := adapter.Subscribe(ctx, "u1", remote.LeavePlans, rec.On)
		Expect(err).NotTo(HaveOccurred())
		defer sub.Unsubscribe()
		Eventually(rec.IDs).Should(Equal([]string{"p0", "p1"}))

		plans := remote.Decode[schedule.LeavePlan](rec.Docs(), nil)
		Expect(plans[1].EndDate).To(Equal("2024-08-12"))
		Expect(plans[1].Notes).To(Equal("mare"))

		Expect(adapter.Delete(ctx, "u1", remote.LeavePlans, "p1")).To(Succeed())
		Expect(adapter.Delete(ctx, "u1", remote.LeavePlans, "p1")).To(Succeed())
		Eventually(rec.IDs).Should(Equal([]string{"p0"}))
	})

	It("should clear a note when the record is saved again without one", func() {
		Expect(adapter.Set(ctx, "u1", remote.Shifts, "s1", schedule.Shift{ID: "s1", Date: "2024-05-01", Notes: "turno notte"})).To(Succeed())
		Expect(adapter.Set(ctx, "u1", remote.Shifts, "s1", schedule.Shift{ID: "s1", Date: "2024-05-01"})).To(Succeed())
		Expect(adapter.Set(ctx, "u1", remote.Absences, "a1", schedule.Absence{ID: "a1", Date: "2024-05-02", Reason: schedule.ReasonFerie, Notes: "visita"})).To(Succeed())
		Expect(adapter.Set(ctx, "u1", remote.Absences, "a1", schedule.Absence{ID: "a1", Date: "2024-05-02", Reason: schedule.ReasonFerie})).To(Succeed())

		shifts := &Recorder{}
		sub, err := adapter.Subscribe(ctx, "u1", remote.Shifts, shifts.On)
		Expect(err).NotTo(HaveOccurred())
		defer sub.Unsubscribe()
		absences := &Recorder{}
		sub2, err := adapter.Subscribe(ctx, "u1", remote.Absences, absences.On)
		Expect(err).NotTo(HaveOccurred())
		defer sub2.Unsubscribe()

		Eventually(shifts.IDs).Should(Equal([]string{"s1"}))
		Expect(remote.Decode[schedule.Shift](shifts.Docs(), nil)[0].Notes).To(BeEmpty())
		Eventually(absences.IDs).Should(Equal([]string{"a1"}))
		Expect(remote.Decode[schedule.Absence](absences.Docs(), nil)[0].Notes).To(BeEmpty())
	})

	It("should stop delivering after Unsubscribe", func() {
		rec := &Recorder{}
		sub, err := adapter.Subscribe(ctx, "u1", remote.Absences, rec.On)
		Expect(err).NotTo(HaveOccurred())
		Eventually(rec.Calls).Should(Equal(1))
		sub.Unsubscribe()
		sub.Unsubscribe()

		Expect(adapter.Set(ctx, "u1", remote.Absences, "a1", schedule.Absence{ID: "a1", Date: "2024-05-01", Reason: schedule.ReasonFerie})).To(Succeed())
		Consistently(rec.Calls).Should(Equal(1))
		Expect(bus.HandlerCount(events.EventTypeRemoteChanged)).To(Equal(0))
	})

	It("should store and merge the profile document", func() {
		_, ok, err := adapter.GetProfile(ctx, "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(adapter.SaveProfile(ctx, "u1", profile.UserProfile{FirstName: "Maria", LastName: "Rossi", Email: "maria@example.com"})).To(Succeed())
		Expect(adapter.SaveProfile(ctx, "u1", profile.UserProfile{FirstName: "Maria", LastName: "Rossi", PlaceOfBirth: "Roma"})).To(Succeed())

		p, ok, err := adapter.GetProfile(ctx, "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(p.Email).To(Equal("maria@example.com"))
		Expect(p.PlaceOfBirth).To(Equal("Roma"))
		Expect(p.UID).To(Equal("u1"))
	})
})
