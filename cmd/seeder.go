package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gianix81/payAnalyst/internal/auth"
	authPostgres "github.com/gianix81/payAnalyst/internal/auth/postgres"
	userDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/user"
)

type seedAccount struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
}

var seedAccounts = []seedAccount{
	{"gderosa@ymail.com", "Giovanni", "De Rosa", auth.RoleAdmin},
	{"laura.bianchi@example.com", "Laura", "Bianchi", auth.RoleUser},
	{"marco.verdi@example.com", "Marco", "Verdi", auth.RoleUser},
	{"giulia.russo@example.com", "Giulia", "Russo", auth.RoleUser},
	{"alessandro.ferrari@example.com", "Alessandro", "Ferrari", auth.RoleUser},
	{"sofia.esposito@example.com", "Sofia", "Esposito", auth.RoleUser},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the administrator and the demo accounts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			emails := make([]string, 0, len(seedAccounts))
			for _, a := range seedAccounts {
				emails = append(emails, a.Email)
			}
			res := db.Gorm.WithContext(ctx).Where("email IN ?", emails).Delete(&userDatamodel.Account{})
			if res.Error != nil {
				log.Fatalf("failed to clear seeded accounts: %v", res.Error)
			}
			fmt.Println("Removed seeded accounts:", res.RowsAffected)
		}

		hash, err := auth.HashPassword("password", cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		repo := authPostgres.NewRepository(db.Gorm)
		for _, a := range seedAccounts {
			if _, err := repo.FindByEmail(ctx, a.Email); err == nil {
				fmt.Println("account already exists:", a.Email)
				continue
			} else if !errors.Is(err, authPostgres.ErrAccountNotFound) {
				log.Fatalf("failed to look up %s: %v", a.Email, err)
			}

			role := a.Role
			if cfg.Identity.IsAdminEmail(a.Email) {
				role = auth.RoleAdmin
			}
			err := repo.Create(ctx, &auth.Account{
				UID:          uuid.NewString(),
				Email:        a.Email,
				FirstName:    a.FirstName,
				LastName:     a.LastName,
				Role:         role,
				Provider:     auth.ProviderAdmin,
				PasswordHash: hash,
				IsActive:     true,
			})
			if err != nil {
				log.Fatalf("failed to insert %s: %v", a.Email, err)
			}
			fmt.Printf("Seeded %s account: %s\n", role, a.Email)
		}

		fmt.Println("Accounts seeded successfully")
	},
}
