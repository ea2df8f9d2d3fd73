package workspace_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/analysis"
	remoteDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/remote"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/gemini"
	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/profile"
	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/remote/gormsync"
	"github.com/gianix81/payAnalyst/internal/schedule"
	"github.com/gianix81/payAnalyst/internal/store"
	"github.com/gianix81/payAnalyst/internal/store/memory"
	"github.com/gianix81/payAnalyst/internal/view"
	"github.com/gianix81/payAnalyst/internal/workspace"
)

func TestWorkspace(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workspace Suite")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockAnalysis returns queued payslips from AnalyzePayslip.
type mockAnalysis struct {
	mu         sync.Mutex
	next       []payslip.Payslip
	summary    string
	shouldFail bool
	failError  error
}

func (m *mockAnalysis) queue(p ...payslip.Payslip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = append(m.next, p...)
}

func (m *mockAnalysis) AnalyzePayslip(ctx context.Context, file analysis.File) (payslip.Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return payslip.Payslip{}, m.failError
	}
	p := m.next[0]
	m.next = m.next[1:]
	return p, nil
}

func (m *mockAnalysis) CompareSummary(ctx context.Context, p1, p2 payslip.Payslip) (string, error) {
	return m.summary, nil
}

func (m *mockAnalysis) Summary(ctx context.Context, p payslip.Payslip) (string, error) {
	return m.summary, nil
}

func (m *mockAnalysis) Historical(ctx context.Context, current payslip.Payslip, archive []payslip.Payslip) (payslip.HistoricalAnalysis, error) {
	if len(payslip.Before(archive, current.Period)) == 0 {
		return payslip.HistoricalAnalysis{}, apperrors.ErrNoHistory
	}
	return payslip.HistoricalAnalysis{Summary: m.summary, DifferingItems: []payslip.DifferingItem{}}, nil
}

type echoStreamer struct{}

func (echoStreamer) Stream(ctx context.Context, req *gemini.Request, onChunk func(string) error) error {
	return onChunk("risposta")
}

// blockingStreamer holds the first answer open until its context ends and
// answers every later question at once.
type blockingStreamer struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

func (b *blockingStreamer) Stream(ctx context.Context, req *gemini.Request, onChunk func(string) error) error {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first {
		close(b.started)
		<-ctx.Done()
		return ctx.Err()
	}
	return onChunk("seconda risposta")
}

// failingRemote rejects every write.
type failingRemote struct {
	remote.Adapter
}

func (failingRemote) Add(ctx context.Context, userID string, c remote.Collection, data interface{}) (string, error) {
	return "", errors.New("backend offline")
}

func (failingRemote) Set(ctx context.Context, userID string, c remote.Collection, id string, data interface{}) error {
	return errors.New("backend offline")
}

// capturingRemote keeps the snapshot callbacks it was given.
type capturingRemote struct {
	remote.Adapter
	mu  sync.Mutex
	fns map[remote.Collection]remote.SnapshotFunc
}

func (c *capturingRemote) Subscribe(ctx context.Context, userID string, col remote.Collection, fn remote.SnapshotFunc) (remote.Subscription, error) {
	c.mu.Lock()
	if c.fns == nil {
		c.fns = map[remote.Collection]remote.SnapshotFunc{}
	}
	c.fns[col] = fn
	c.mu.Unlock()
	return c.Adapter.Subscribe(ctx, userID, col, fn)
}

func (c *capturingRemote) callback(col remote.Collection) remote.SnapshotFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fns[col]
}

// echoingRemote delivers a payslip snapshot carrying the new document from
// inside Add, before the assigned id reaches the caller.
type echoingRemote struct {
	*capturingRemote
	reshape func(fields map[string]interface{})
	during  func(id string)
}

func (e *echoingRemote) Add(ctx context.Context, userID string, c remote.Collection, data interface{}) (string, error) {
	id, err := e.Adapter.Add(ctx, userID, c, data)
	if err != nil || c != remote.Payslips {
		return id, err
	}
	fields, err := remote.EncodeFields(data, true)
	if err != nil {
		return "", err
	}
	if e.reshape != nil {
		e.reshape(fields)
	}
	doc, err := remote.NewDocument(id, fields)
	if err != nil {
		return "", err
	}
	e.callback(remote.Payslips)([]remote.Document{doc})
	if e.during != nil {
		e.during(id)
	}
	return id, nil
}

func slip(first, last string, month, year int) payslip.Payslip {
	return payslip.Payslip{
		Period:      payslip.Period{Month: month, Year: year},
		Employee:    payslip.Employee{FirstName: first, LastName: last},
		GrossSalary: decimal.NewFromInt(2000),
		NetSalary:   decimal.NewFromInt(1500),
	}
}

var pdf = analysis.File{Name: "busta.pdf", MimeType: "application/pdf", Data: []byte("%PDF")}

var maria = apperrors.Identity{UID: "u-maria", Email: "maria@example.com", Role: "user", Provider: "admin", FirstName: "Maria", LastName: "Rossi"}

func shift(id, date string) schedule.Shift {
	return schedule.Shift{ID: id, Date: date, Intervals: []schedule.Interval{{ID: id + "-1", StartTime: "09:00", EndTime: "13:00"}}}
}

func newDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(db.AutoMigrate(&remoteDatamodel.Document{})).To(Succeed())
	return db
}

var _ = Describe("Workspace in local mode", func() {
	var (
		ctx  context.Context
		port *memory.Store
		ai   *mockAnalysis
		opts workspace.Options
		ws   *workspace.Workspace
	)

	BeforeEach(func() {
		ctx = context.Background()
		port = memory.New()
		ai = &mockAnalysis{summary: "ok"}
		opts = workspace.Options{
			Mode:     view.ModeLocal,
			Port:     port,
			Analysis: ai,
			Streamer: echoStreamer{},
			Logger:   quietLogger(),
		}
		ws = workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
	})

	It("should start on onboarding without a profile", func() {
		anon := workspace.New(apperrors.Identity{UID: "u-anon"}, opts)
		Expect(anon.Start(ctx)).To(Succeed())

		snap := anon.Snapshot()
		Expect(snap.View).To(Equal(view.Onboarding))
		Expect(snap.Profile).To(BeNil())

		_, err := anon.Extract(ctx, pdf)
		Expect(err).To(MatchError(apperrors.ErrProfileRequired))
		_, err = anon.Navigate(view.Settings)
		Expect(err).To(MatchError(apperrors.ErrProfileRequired))
	})

	It("should seed the profile from identity names", func() {
		snap := ws.Snapshot()
		Expect(snap.View).To(Equal(view.Dashboard))
		Expect(snap.Profile.FirstName).To(Equal("Maria"))
		Expect(snap.Profile.UID).To(Equal("u-maria"))
		Expect(snap.Profile.Role).To(Equal(profile.RoleUser))
	})

	It("should merge settings into the profile and keep the role", func() {
		p, err := ws.SaveProfile(ctx, profile.UserProfile{PlaceOfBirth: "Roma", Role: profile.RoleAdmin})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.FirstName).To(Equal("Maria"))
		Expect(p.PlaceOfBirth).To(Equal("Roma"))
		Expect(p.Role).To(Equal(profile.RoleUser))
	})

	Describe("extraction", func() {
		It("should archive and select a payslip that matches the profile", func() {
			ai.queue(slip("maria ", " ROSSI", 6, 2024))

			res, err := ws.Extract(ctx, pdf)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Archived).To(BeTrue())
			Expect(res.Payslip.ID).NotTo(BeEmpty())
			Expect(ws.Payslips()).To(HaveLen(1))
			snap := ws.Snapshot()
			Expect(snap.Selected.ID).To(Equal(res.Payslip.ID))
			Expect(snap.Alert).To(BeEmpty())
		})

		It("should only select a payslip of someone else and raise the alert", func() {
			ai.queue(slip("Maria", "Bianchi", 6, 2024))

			res, err := ws.Extract(ctx, pdf)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Archived).To(BeFalse())
			Expect(res.Alert).To(Equal(payslip.MismatchAlert))
			Expect(ws.Payslips()).To(BeEmpty())
			snap := ws.Snapshot()
			Expect(snap.Selected).NotTo(BeNil())
			Expect(snap.Alert).To(Equal(payslip.MismatchAlert))

			found, err := ws.Payslip(res.Payslip.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Employee.LastName).To(Equal("Bianchi"))
		})

		It("should surface extraction failures without creating a record", func() {
			ai.shouldFail = true
			ai.failError = apperrors.ErrExtractionFailed

			_, err := ws.Extract(ctx, pdf)

			Expect(err).To(MatchError(apperrors.ErrExtractionFailed))
			Expect(ws.Payslips()).To(BeEmpty())
		})

		It("should survive a reload from the same port", func() {
			ai.queue(slip("Maria", "Rossi", 6, 2024))
			_, err := ws.Extract(ctx, pdf)
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.SaveShift(ctx, shift("s1", "2024-06-03"))
			Expect(err).NotTo(HaveOccurred())

			reloaded := workspace.New(maria, opts)
			Expect(reloaded.Start(ctx)).To(Succeed())

			Expect(reloaded.Payslips()).To(HaveLen(1))
			Expect(reloaded.Payslips()[0].ID).To(Equal(ws.Payslips()[0].ID))
			Expect(reloaded.Payslips()[0].NetSalary.Equal(decimal.NewFromInt(1500))).To(BeTrue())
			Expect(reloaded.Calendar().Shifts).To(Equal(ws.Calendar().Shifts))
		})
	})

	Describe("deletion", func() {
		var june, may payslip.Payslip

		BeforeEach(func() {
			ai.queue(slip("Maria", "Rossi", 5, 2024), slip("Maria", "Rossi", 6, 2024))
			r1, err := ws.Extract(ctx, pdf)
			Expect(err).NotTo(HaveOccurred())
			r2, err := ws.Extract(ctx, pdf)
			Expect(err).NotTo(HaveOccurred())
			may, june = r1.Payslip, r2.Payslip
			_, err = ws.SelectPayslip(june.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should select the next payslip and then nothing", func() {
			snap, err := ws.DeletePayslip(ctx, june.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Selected.ID).To(Equal(may.ID))

			snap, err = ws.DeletePayslip(ctx, may.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Selected).To(BeNil())
			Expect(snap.ArchiveSize).To(Equal(0))
		})

		It("should report unknown ids", func() {
			_, err := ws.DeletePayslip(ctx, "missing")
			Expect(err).To(MatchError(apperrors.ErrPayslipNotFound))
		})
	})

	Describe("comparison", func() {
		var ids []string

		BeforeEach(func() {
			ids = nil
			ai.queue(slip("Maria", "Rossi", 4, 2024), slip("Maria", "Rossi", 5, 2024), slip("Maria", "Rossi", 6, 2024))
			for i := 0; i < 3; i++ {
				r, err := ws.Extract(ctx, pdf)
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, r.Payslip.ID)
			}
		})

		It("should keep the last two staged payslips", func() {
			for _, id := range ids {
				_, err := ws.StageForComparison(id)
				Expect(err).NotTo(HaveOccurred())
			}
			snap, err := ws.Compare(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.View).To(Equal(view.Compare))
			Expect(snap.Staged).To(HaveLen(2))
			Expect(snap.Staged[0].ID).To(Equal(ids[1]))
			Expect(snap.Staged[1].ID).To(Equal(ids[2]))

			text, err := ws.ComparisonAnalysis(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("ok"))
		})

		It("should refuse to compare fewer than two", func() {
			_, err := ws.StageForComparison(ids[0])
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.Compare(nil)
			Expect(err).To(MatchError(apperrors.ErrComparisonNotReady))
		})

		It("should compare an explicit pair", func() {
			snap, err := ws.Compare([]string{ids[2], ids[0]})
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Staged[0].ID).To(Equal(ids[2]))
		})

		It("should analyse history only against older payslips", func() {
			_, err := ws.HistoryAnalysis(ctx, ids[0])
			Expect(err).To(MatchError(apperrors.ErrNoHistory))

			res, err := ws.HistoryAnalysis(ctx, ids[2])
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Summary).To(Equal("ok"))
		})
	})

	Describe("calendar", func() {
		It("should keep one entry per date", func() {
			_, err := ws.SaveShift(ctx, shift("s1", "2024-06-03"))
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.SaveAbsence(ctx, schedule.Absence{ID: "a1", Date: "2024-06-03", Reason: schedule.ReasonMalattia})
			Expect(err).NotTo(HaveOccurred())

			cal := ws.Calendar()
			Expect(cal.Shifts).To(BeEmpty())
			Expect(cal.Absences).To(HaveLen(1))

			saved, err := ws.SaveShift(ctx, shift("s2", "2024-06-03"))
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("s2"))
			again, err := ws.SaveShift(ctx, shift("s3", "2024-06-03"))
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal("s2"))

			cal = ws.Calendar()
			Expect(cal.Shifts).To(HaveLen(1))
			Expect(cal.Absences).To(BeEmpty())
		})

		It("should store and delete leave plans", func() {
			_, err := ws.SaveLeavePlan(ctx, schedule.LeavePlan{ID: "l2", Type: schedule.LeaveFerie, StartDate: "2024-08-10", EndDate: "2024-08-20"})
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.SaveLeavePlan(ctx, schedule.LeavePlan{ID: "l1", Type: schedule.LeaveROL, StartDate: "2024-07-01", EndDate: "2024-07-01"})
			Expect(err).NotTo(HaveOccurred())

			plans := ws.LeavePlans()
			Expect(plans[0].ID).To(Equal("l1"))

			ws.DeleteLeavePlan(ctx, "l1")
			ws.DeleteLeavePlan(ctx, "l1")
			Expect(ws.LeavePlans()).To(HaveLen(1))
		})
	})

	Describe("assistant", func() {
		It("should answer from the archive", func() {
			msg, err := ws.Ask(ctx, workspace.AskRequest{Text: "ciao", Scope: workspace.ScopeArchive}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Text).To(Equal("risposta"))
			Expect(ws.Messages()).To(HaveLen(2))

			ws.ClearMessages()
			Expect(ws.Messages()).To(BeEmpty())
		})

		It("should need a selection for focused questions", func() {
			_, err := ws.Ask(ctx, workspace.AskRequest{Text: "ciao", Scope: workspace.ScopeFocused}, nil)
			Expect(err).To(MatchError(apperrors.ErrPayslipNotFound))
		})
	})

	Describe("logout and reset", func() {
		BeforeEach(func() {
			ai.queue(slip("Maria", "Rossi", 6, 2024))
			_, err := ws.Extract(ctx, pdf)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should clear memory on logout and keep persisted data", func() {
			ws.Logout()

			snap := ws.Snapshot()
			Expect(snap.View).To(Equal(view.Onboarding))
			Expect(snap.Selected).To(BeNil())
			Expect(ws.Payslips()).To(BeEmpty())
			Expect(port.Len()).To(BeNumerically(">", 0))
		})

		It("should remove persisted keys on reset", func() {
			Expect(ws.Reset(ctx)).To(Succeed())

			for _, name := range store.Keys {
				_, err := port.Load(ctx, store.ComposeKey(maria.UID, store.DefaultPrefix, name))
				Expect(err).To(MatchError(store.ErrNotFound))
			}
		})
	})
})

var _ = Describe("Workspace in remote mode", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		bus     *events.EventBus
		adapter *gormsync.Adapter
		ai      *mockAnalysis
		opts    workspace.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = newDB()
		bus = events.NewEventBus(quietLogger())
		adapter = gormsync.NewAdapter(db, bus, quietLogger())
		ai = &mockAnalysis{summary: "ok"}
		opts = workspace.Options{
			Mode:         view.ModeRemote,
			Port:         memory.New(),
			Remote:       adapter,
			Analysis:     ai,
			Streamer:     echoStreamer{},
			Bus:          bus,
			WriteTimeout: time.Second,
			Logger:       quietLogger(),
		}
	})

	It("should adopt the id assigned by the backend", func() {
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)
		ai.queue(slip("Maria", "Rossi", 6, 2024))

		res, err := ws.Extract(ctx, pdf)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() []string {
			var ids []string
			for _, p := range ws.Payslips() {
				ids = append(ids, p.ID)
			}
			return ids
		}).Should(Equal([]string{res.Payslip.ID}))
		Expect(ws.Snapshot().Selected.ID).To(Equal(res.Payslip.ID))

		var doc remoteDatamodel.Document
		Expect(db.Where("doc_id = ?", res.Payslip.ID).First(&doc).Error).To(Succeed())
		Expect(doc.UserID).To(Equal(maria.UID))
	})

	It("should list a payslip once when the backend echoes it before the create returns", func() {
		echo := &echoingRemote{capturingRemote: &capturingRemote{Adapter: adapter}}
		opts.Remote = echo
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)

		var seen [][]string
		var selected string
		echo.during = func(id string) {
			var ids []string
			for _, p := range ws.Payslips() {
				ids = append(ids, p.ID)
			}
			seen = append(seen, ids)
			selected = ws.Snapshot().Selected.ID
		}
		ai.queue(slip("Maria", "Rossi", 6, 2024))

		res, err := ws.Extract(ctx, pdf)
		Expect(err).NotTo(HaveOccurred())

		Expect(seen).To(Equal([][]string{{res.Payslip.ID}}))
		Expect(selected).To(Equal(res.Payslip.ID))
		ids := func() []string {
			var out []string
			for _, p := range ws.Payslips() {
				out = append(out, p.ID)
			}
			return out
		}
		Expect(ids()).To(Equal([]string{res.Payslip.ID}))
		Consistently(ids, "200ms").Should(Equal([]string{res.Payslip.ID}))
		Expect(ws.Snapshot().Selected.ID).To(Equal(res.Payslip.ID))
	})

	It("should drop the provisional payslip as soon as the assigned id is known", func() {
		echo := &echoingRemote{
			capturingRemote: &capturingRemote{Adapter: adapter},
			reshape: func(fields map[string]interface{}) {
				fields["company"] = map[string]interface{}{"name": "Acme S.p.A.", "taxId": "IT123"}
			},
		}
		opts.Remote = echo
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)
		ai.queue(slip("Maria", "Rossi", 6, 2024))

		res, err := ws.Extract(ctx, pdf)
		Expect(err).NotTo(HaveOccurred())

		list := ws.Payslips()
		Expect(list).To(HaveLen(1))
		Expect(list[0].ID).To(Equal(res.Payslip.ID))
		Expect(ws.Snapshot().Selected.ID).To(Equal(res.Payslip.ID))
		Consistently(func() int { return len(ws.Payslips()) }, "200ms").Should(Equal(1))
	})

	It("should replace collections from remote snapshots and repair the selection", func() {
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)
		ai.queue(slip("Maria", "Rossi", 5, 2024), slip("Maria", "Rossi", 6, 2024))
		may, err := ws.Extract(ctx, pdf)
		Expect(err).NotTo(HaveOccurred())
		june, err := ws.Extract(ctx, pdf)
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() int { return len(ws.Payslips()) }).Should(Equal(2))

		// Another device deletes June.
		Expect(adapter.Delete(ctx, maria.UID, remote.Payslips, june.Payslip.ID)).To(Succeed())

		Eventually(func() int { return len(ws.Payslips()) }).Should(Equal(1))
		Eventually(func() string { return ws.Snapshot().Selected.ID }).Should(Equal(may.Payslip.ID))
	})

	It("should restore the remote profile on start", func() {
		Expect(adapter.SaveProfile(ctx, "u-remote", profile.UserProfile{FirstName: "Laura", LastName: "Bianchi"})).To(Succeed())

		ws := workspace.New(apperrors.Identity{UID: "u-remote", Role: "user"}, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)

		p, ok := ws.Profile()
		Expect(ok).To(BeTrue())
		Expect(p.FullName()).To(Equal("Laura Bianchi"))
		Expect(ws.Snapshot().View).To(Equal(view.Dashboard))
	})

	It("should keep a cleared note after the backend echoes the save", func() {
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)

		first := shift("s1", "2024-06-03")
		first.Notes = "turno notte"
		_, err := ws.SaveShift(ctx, first)
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() string {
			list := ws.Calendar().Shifts
			if len(list) != 1 {
				return ""
			}
			return list[0].Notes
		}).Should(Equal("turno notte"))

		saved, err := ws.SaveShift(ctx, shift("s2", "2024-06-03"))
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ID).To(Equal("s1"))

		notes := func() []string {
			var out []string
			for _, s := range ws.Calendar().Shifts {
				out = append(out, s.Notes)
			}
			return out
		}
		Eventually(notes).Should(Equal([]string{""}))
		Consistently(notes, "200ms").Should(Equal([]string{""}))
	})

	It("should keep local changes and warn when the backend rejects a write", func() {
		var failures int
		var mu sync.Mutex
		cancel := bus.Listen(events.EventTypeRemoteWriteFault, func(ctx context.Context, e events.Event) error {
			mu.Lock()
			failures++
			mu.Unlock()
			return nil
		})
		DeferCleanup(cancel)

		opts.Remote = failingRemote{Adapter: adapter}
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())
		DeferCleanup(ws.Close)

		saved, err := ws.SaveShift(ctx, shift("s1", "2024-06-03"))
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ID).To(Equal("s1"))

		Expect(ws.Calendar().Shifts).To(HaveLen(1))
		Expect(ws.Snapshot().SyncWarning).To(Equal(workspace.SyncWarning))
		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return failures
		}).Should(Equal(1))
	})

	It("should ignore snapshots delivered after logout", func() {
		capture := &capturingRemote{Adapter: adapter}
		opts.Remote = capture
		ws := workspace.New(maria, opts)
		Expect(ws.Start(ctx)).To(Succeed())

		late := capture.callback(remote.Shifts)
		Expect(late).NotTo(BeNil())
		ws.Logout()

		doc, err := remote.NewDocument("s1", map[string]interface{}{"date": "2024-06-03", "intervals": []interface{}{}})
		Expect(err).NotTo(HaveOccurred())
		late([]remote.Document{doc})

		Expect(ws.Calendar().Shifts).To(BeEmpty())
	})
})
