package cmd

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	cacheDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/cache"
	remoteDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/remote"
	userDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/user"
	"github.com/gianix81/payAnalyst/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	// The SQL files target Postgres; a sqlite file is brought up from the models.
	if cfg.Database.Driver == "sqlite" {
		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Gorm.WithContext(ctx).AutoMigrate(&userDatamodel.Account{}, &cacheDatamodel.Entry{}, &remoteDatamodel.Document{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		lg.Info("sqlite schema migrated", "source", cfg.Database.Source)
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	lg.Info("migrations applied", "command", command, "dir", migrateDir)
	return nil
}
