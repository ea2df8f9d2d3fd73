package workspace_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/store/memory"
	"github.com/gianix81/payAnalyst/internal/view"
	"github.com/gianix81/payAnalyst/internal/workspace"
)

var _ = Describe("Manager", func() {
	var (
		ctx context.Context
		mgr *workspace.Manager
	)

	newManager := func(ttl time.Duration, maxActive int) *workspace.Manager {
		return workspace.NewManager(workspace.Options{
			Mode:     view.ModeLocal,
			Port:     memory.New(),
			Analysis: &mockAnalysis{},
			Streamer: echoStreamer{},
			Logger:   quietLogger(),
		}, ttl, maxActive)
	}

	BeforeEach(func() {
		ctx = context.Background()
		mgr = newManager(time.Minute, 0)
		DeferCleanup(mgr.Shutdown)
	})

	It("should open one workspace per user", func() {
		first, err := mgr.Open(ctx, maria)
		Expect(err).NotTo(HaveOccurred())
		second, err := mgr.Open(ctx, maria)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(BeIdenticalTo(first))
		Expect(mgr.Len()).To(Equal(1))
	})

	It("should refuse an identity without uid", func() {
		_, err := mgr.Open(ctx, apperrors.Identity{})
		Expect(err).To(MatchError(apperrors.ErrWorkspaceNotStarted))
	})

	It("should report workspaces that are not open", func() {
		_, err := mgr.Get("nobody")
		Expect(err).To(MatchError(apperrors.ErrWorkspaceNotStarted))
	})

	It("should close idle workspaces", func() {
		_, err := mgr.Open(ctx, maria)
		Expect(err).NotTo(HaveOccurred())

		Expect(mgr.ReapIdle(time.Now())).To(Equal(0))
		Expect(mgr.ReapIdle(time.Now().Add(2 * time.Minute))).To(Equal(1))
		Expect(mgr.Len()).To(Equal(0))
	})

	It("should evict the least recently used workspace beyond the limit", func() {
		small := newManager(time.Minute, 1)
		DeferCleanup(small.Shutdown)

		_, err := small.Open(ctx, maria)
		Expect(err).NotTo(HaveOccurred())
		_, err = small.Open(ctx, apperrors.Identity{UID: "u-other"})
		Expect(err).NotTo(HaveOccurred())

		Expect(small.Len()).To(Equal(1))
		_, err = small.Get(maria.UID)
		Expect(err).To(MatchError(apperrors.ErrWorkspaceNotStarted))
	})

	It("should follow sign-in and sign-out events", func() {
		bus := events.NewEventBus(quietLogger())
		mgr.Listen(bus)

		in := events.NewSignedInEvent("u-laura", "laura@example.com", "user", "google").
			WithNames("Laura", "Bianchi")
		Expect(bus.PublishSync(ctx, in)).To(Succeed())

		ws, err := mgr.Get("u-laura")
		Expect(err).NotTo(HaveOccurred())
		p, ok := ws.Profile()
		Expect(ok).To(BeTrue())
		Expect(p.FullName()).To(Equal("Laura Bianchi"))

		out := events.NewSignedOutEvent("u-laura")
		Expect(bus.PublishSync(ctx, out)).To(Succeed())
		Expect(mgr.Len()).To(Equal(0))
	})

	It("should accept a valid reaper schedule only", func() {
		Expect(mgr.StartReaper("0 */5 * * * *")).To(Succeed())
		Expect(mgr.StartReaper("not a spec")).To(HaveOccurred())
	})
})
