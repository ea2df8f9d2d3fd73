package gemini_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gianix81/payAnalyst/internal/gemini"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	var pool *gemini.Pool

	AfterEach(func() {
		pool.Shutdown()
	})

	It("should run jobs and return their error", func() {
		pool = gemini.NewPool(2, 4, quietLogger())
		Expect(pool.Do(context.Background(), func(context.Context) error { return nil })).To(Succeed())
		boom := errors.New("boom")
		Expect(pool.Do(context.Background(), func(context.Context) error { return boom })).To(MatchError(boom))
	})

	It("should never run more jobs than workers", func() {
		pool = gemini.NewPool(2, 16, quietLogger())
		var running, peak int32
		done := make(chan struct{}, 6)
		for i := 0; i < 6; i++ {
			go func() {
				_ = pool.Do(context.Background(), func(context.Context) error {
					n := atomic.AddInt32(&running, 1)
					for {
						p := atomic.LoadInt32(&peak)
						if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					atomic.AddInt32(&running, -1)
					return nil
				})
				done <- struct{}{}
			}()
		}
		for i := 0; i < 6; i++ {
			Eventually(done).Should(Receive())
		}
		Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 2))
	})

	It("should stop waiting when the caller's context ends", func() {
		pool = gemini.NewPool(1, 4, quietLogger())
		release := make(chan struct{})
		go func() {
			_ = pool.Do(context.Background(), func(context.Context) error {
				<-release
				return nil
			})
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		err := pool.Do(ctx, func(context.Context) error { return nil })
		Expect(err).To(MatchError(context.DeadlineExceeded))
		close(release)
	})
})
