package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gianix81/payAnalyst/internal/auth"
	userDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/user"
)

var ErrAccountNotFound = errors.New("account not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByUID(ctx context.Context, uid string) (*auth.Account, error) {
	return r.first(ctx, "uid = ?", uid)
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*auth.Account, error) {
	var row userDatamodel.Account
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return auth.FromDataModel(&row), nil
}

// UpsertProvider inserts the account or refreshes names, provider and role of
// the one holding the same email.
func (r *Repository) UpsertProvider(ctx context.Context, a *auth.Account) (*auth.Account, error) {
	row := auth.ToDataModel(a)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "provider", "role", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return r.FindByEmail(ctx, a.Email)
}

// Create stores a locally administered account.
func (r *Repository) Create(ctx context.Context, a *auth.Account) error {
	if err := r.db.WithContext(ctx).Create(auth.ToDataModel(a)).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *Repository) TouchLogin(ctx context.Context, uid string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.Account{}).
		Where("uid = ?", uid).
		Update("last_login_at", at).Error
}
