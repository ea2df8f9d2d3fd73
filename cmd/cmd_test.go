package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/store/gormkv"
	"github.com/gianix81/payAnalyst/internal/store/memory"
)

func TestCmd(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Cmd Suite")
}

const testConfig = `
database:
  driver: sqlite
  source: ":memory:"
security:
  access_token_secret: 0123456789abcdef0123456789abcdef
  refresh_token_secret: fedcba9876543210fedcba9876543210
  access_token_duration: 10m
  bcrypt_cost: 10
observability:
  logging:
    level: error
ai:
  api_key: test-key
storage:
  mode: local
  driver: memory
identity:
  admin_emails:
    - Boss@Example.com
sessions:
  idle_ttl: 30m
`

var _ = ginkgo.Describe("command wiring", func() {
	var dir string

	ginkgo.BeforeEach(func() {
		dir = ginkgo.GinkgoT().TempDir()
		gomega.Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o600)).To(gomega.Succeed())
		configPath = dir
		ginkgo.DeferCleanup(func() { configPath = "." })
	})

	ginkgo.It("should load the file and fill in defaults", func() {
		cfg, err := loadConfig(dir)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(cfg.Server.Port).To(gomega.Equal(8080))
		gomega.Expect(cfg.Security.AccessTokenDuration.Minutes()).To(gomega.Equal(10.0))
		gomega.Expect(cfg.Storage.KeyPrefix).To(gomega.Equal("payslip_"))
		gomega.Expect(cfg.Sessions.ReapSpec).NotTo(gomega.BeEmpty())
		gomega.Expect(cfg.Identity.IsAdminEmail("boss@example.com")).To(gomega.BeTrue())
	})

	ginkgo.It("should reject a config that fails validation", func() {
		bad := []byte("database:\n  driver: oracle\n  source: x\n")
		gomega.Expect(os.WriteFile(filepath.Join(dir, "config.yml"), bad, 0o600)).To(gomega.Succeed())
		_, err := loadConfig(dir)
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should migrate a sqlite database from the models", func() {
		gomega.Expect(runMigration(nil, nil)).To(gomega.Succeed())
	})

	ginkgo.It("should pick the store named by the storage driver", func() {
		cfg, err := loadConfig(dir)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		db, err := initDB(cfg.Database)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		defer db.Close()

		port, err := initPort(cfg.Storage, db, nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(port).To(gomega.BeAssignableToTypeOf(&memory.Store{}))

		cfg.Storage.Driver = "gorm"
		port, err = initPort(cfg.Storage, db, nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(port).To(gomega.BeAssignableToTypeOf(&gormkv.Repository{}))

		cfg.Storage.Driver = "redis"
		_, err = initPort(cfg.Storage, db, nil)
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should stay local without a remote backend", func() {
		cfg := &internal.Config{}
		cfg.ApplyDefaults()
		adapter, err := initRemote(context.Background(), cfg, nil, nil, nil, nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(adapter).To(gomega.BeNil())

		app, err := initFirebase(context.Background(), cfg)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(app).To(gomega.BeNil())
	})
})

var _ = ginkgo.Describe("event publish", func() {
	ginkgo.It("should build every known event type", func() {
		for _, t := range []string{events.EventTypeSignedIn, events.EventTypeSignedOut, events.EventTypeRemoteChanged, events.EventTypeRemoteWriteFault} {
			ev, err := buildTestEvent(t)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(ev.EventType()).To(gomega.Equal(t))
		}
		_, err := buildTestEvent("nope")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should publish through the audit listeners", func() {
		gomega.Expect(publishTestEvent(events.EventTypeRemoteWriteFault)).To(gomega.Succeed())
	})
})
