package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"

	"github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/analysis"
	"github.com/gianix81/payAnalyst/internal/assistant"
	"github.com/gianix81/payAnalyst/internal/auth"
	authPostgres "github.com/gianix81/payAnalyst/internal/auth/postgres"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/gemini"
	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/transport/middleware"
	"github.com/gianix81/payAnalyst/internal/transport/rest"
	"github.com/gianix81/payAnalyst/internal/transport/swagger"
	"github.com/gianix81/payAnalyst/internal/user"
	userPostgres "github.com/gianix81/payAnalyst/internal/user/postgres"
	"github.com/gianix81/payAnalyst/internal/view"
	"github.com/gianix81/payAnalyst/internal/workspace"
	"github.com/gianix81/payAnalyst/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *database
	Redis    *redis.Client
	Bus      *events.EventBus
	Pool     *gemini.Pool
	Remote   remote.Adapter
	Sessions *workspace.Manager
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "mode", deps.Config.Storage.Mode, "storage", deps.Config.Storage.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

// close releases everything in reverse order of construction.
func (d *Dependencies) close() {
	if d.Sessions != nil {
		d.Sessions.Shutdown()
	}
	if d.Pool != nil {
		d.Pool.Shutdown()
	}
	if d.Remote != nil {
		if err := d.Remote.Close(); err != nil {
			d.Logger.Error("Remote close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{
		Config: config,
		DB:     db,
		Bus:    events.NewEventBus(lg),
		Router: chi.NewRouter(),
		Logger: lg,
	}

	subscribeAuditLog(deps.Bus, lg)

	fail := func(err error) (*Dependencies, error) {
		deps.close()
		return nil, err
	}

	if deps.Redis, err = initRedis(ctx, config.Redis); err != nil {
		return fail(err)
	}
	port, err := initPort(config.Storage, db, deps.Redis)
	if err != nil {
		return fail(err)
	}
	app, err := initFirebase(ctx, config)
	if err != nil {
		return fail(err)
	}
	if deps.Remote, err = initRemote(ctx, config, app, db, deps.Bus, lg); err != nil {
		return fail(fmt.Errorf("failed to initialize remote store: %w", err))
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:            config.AI.APIKey,
		BaseURL:           config.AI.BaseURL,
		APIVersion:        config.AI.APIVersion,
		Model:             config.AI.Model,
		Timeout:           config.AI.Timeout,
		RequestsPerMinute: config.AI.RequestsPerMinute,
		Burst:             config.AI.Burst,
	}, lg)
	if err != nil {
		return fail(err)
	}
	deps.Pool = gemini.NewPool(config.AI.MaxWorkers, config.AI.JobQueueSize, lg)

	taxTables, err := assistant.LoadTaxTables(config.Assistant.TaxTablesPath)
	if err != nil {
		return fail(err)
	}

	mode := view.ModeLocal
	if config.Storage.Mode == "remote" {
		mode = view.ModeRemote
	}
	deps.Sessions = workspace.NewManager(workspace.Options{
		Mode:         mode,
		Port:         port,
		KeyPrefix:    config.Storage.KeyPrefix,
		Remote:       deps.Remote,
		Analysis:     analysis.NewService(client, deps.Pool, lg),
		Streamer:     client,
		TaxTables:    taxTables,
		Bus:          deps.Bus,
		WriteTimeout: config.Remote.WriteTimeout,
		Logger:       lg,
	}, config.Sessions.IdleTTL, config.Sessions.MaxActive)
	if err := deps.Sessions.StartReaper(config.Sessions.ReapSpec); err != nil {
		return fail(fmt.Errorf("invalid sessions.reap_spec: %w", err))
	}
	deps.Sessions.Listen(deps.Bus)

	authService, err := initAuthService(ctx, config, db, app, deps.Bus, lg)
	if err != nil {
		return fail(err)
	}

	var lim *limiter.Limiter
	if config.RateLimit.Enabled {
		if lim, err = middleware.NewLimiter(config.RateLimit.Rate, deps.Redis); err != nil {
			return fail(err)
		}
	}

	var doc *openapi3.T
	if _, statErr := os.Stat(config.Server.OpenAPIPath); statErr == nil {
		if doc, err = swagger.Load(ctx, config.Server.OpenAPIPath); err != nil {
			return fail(err)
		}
	} else {
		lg.Warn("openapi document not found, swagger disabled", "path", config.Server.OpenAPIPath)
	}

	health := map[string]rest.Checker{
		"database": db.SQLX.PingContext,
	}
	if deps.Redis != nil {
		rdb := deps.Redis
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	routes := rest.Routes{
		Auth:           auth.NewHandler(authService),
		RBAC:           auth.NewRBACAuthorization(lg),
		Users:          user.NewHandler(user.NewService(userPostgres.NewRepository(db.SQLX)), deps.Sessions),
		Workspace:      workspace.NewHandler(deps.Sessions, config.Server.MaxUploadBytes),
		Health:         health,
		Limiter:        lim,
		AllowedOrigins: config.Server.Origins(),
		OpenAPIDoc:     doc,
	}
	if doc != nil {
		routes.OpenAPIPath = config.Server.OpenAPIPath
	}
	rest.RegisterAllRoutes(deps.Router, routes, lg)

	return deps, nil
}

func initAuthService(ctx context.Context, cfg *internal.Config, db *database, app *firebase.App, bus *events.EventBus, lg *slog.Logger) (*auth.Service, error) {
	opts := auth.Options{
		Bus:         bus,
		AdminEmails: cfg.Identity.AdminEmails,
		BCryptCost:  cfg.Security.BCryptCost,
		Logger:      lg,
	}

	if id := cfg.Identity.GoogleClientID; id != "" {
		google := auth.NewGoogleVerifier(id)
		opts.Google = google
		if cfg.Identity.GoogleClientSecret != "" && cfg.Identity.GoogleRedirectURL != "" {
			opts.GoogleOAuth = auth.NewGoogleOAuth(id, cfg.Identity.GoogleClientSecret, cfg.Identity.GoogleRedirectURL, google)
		}
	}

	if cfg.Identity.FirebaseEnabled && app != nil {
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get Firebase auth client: %w", err)
		}
		opts.Firebase = auth.NewFirebaseVerifier(client)
	}

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	return auth.NewService(authPostgres.NewRepository(db.Gorm), tokens, opts), nil
}
