package cmd

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/remote"
	"github.com/gianix81/payAnalyst/internal/remote/firestore"
	"github.com/gianix81/payAnalyst/internal/remote/gormsync"
	"github.com/gianix81/payAnalyst/internal/store"
	"github.com/gianix81/payAnalyst/internal/store/gormkv"
	"github.com/gianix81/payAnalyst/internal/store/memory"
	storeredis "github.com/gianix81/payAnalyst/internal/store/redis"
)

// database holds the two views the repositories use over one pool.
type database struct {
	Gorm *gorm.DB
	SQLX *sqlx.DB
}

func (d *database) Close() error {
	return d.SQLX.Close()
}

// initDB opens the configured database. gorm and sqlx share the same *sql.DB.
func initDB(cfg internal.DatabaseConfig) (*database, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.Driver {
	case "sqlite":
		gdb, err := gorm.Open(sqlite.Open(cfg.Source), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		// sqlite serialises writers anyway.
		sqlDB.SetMaxOpenConns(1)
		return &database{Gorm: gdb, SQLX: sqlx.NewDb(sqlDB, "sqlite3")}, nil
	default:
		dbConn, err := sqlx.Connect("pgx", cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
		dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
		dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

		if err := dbConn.Ping(); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), gcfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("failed to open gorm session: %w", err)
		}
		return &database{Gorm: gdb, SQLX: dbConn}, nil
	}
}

// initRedis returns nil when no address is configured.
func initRedis(ctx context.Context, cfg internal.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// initPort picks the persistence behind every workspace cache.
func initPort(cfg internal.StorageConfig, db *database, rdb *redis.Client) (store.Port, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("storage driver redis needs redis.addr")
		}
		return storeredis.NewRepository(rdb, cfg.TTL), nil
	default:
		return gormkv.NewRepository(db.Gorm, cfg.TTL), nil
	}
}

// initFirebase is only needed by the firestore remote or firebase sign-in.
func initFirebase(ctx context.Context, cfg *internal.Config) (*firebase.App, error) {
	if cfg.Remote.Driver != "firestore" && !cfg.Identity.FirebaseEnabled {
		return nil, nil
	}
	return firestore.NewApp(ctx, cfg.Remote.ProjectID, cfg.Remote.CredentialsFile)
}

// initRemote returns nil in local mode.
func initRemote(ctx context.Context, cfg *internal.Config, app *firebase.App, db *database, bus *events.EventBus, logger *slog.Logger) (remote.Adapter, error) {
	if cfg.Storage.Mode != "remote" {
		return nil, nil
	}
	if cfg.Remote.Driver == "firestore" {
		adapter, err := firestore.NewAdapter(ctx, app, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}
	return gormsync.NewAdapter(db.Gorm, bus, logger), nil
}
