package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gianix81/payAnalyst/internal/user"
)

const accountColumns = "uid, email, first_name, last_name, role, provider, is_active, last_login_at"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListAccounts(ctx context.Context) ([]user.User, error) {
	var users []user.User
	query := "SELECT " + accountColumns + " FROM accounts ORDER BY last_name, first_name"
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list accounts query: %w", err)
	}
	return users, nil
}

func (r *Repository) GetByUID(ctx context.Context, uid string) (*user.User, error) {
	var u user.User
	query := r.db.Rebind("SELECT " + accountColumns + " FROM accounts WHERE uid = ?")
	if err := r.db.GetContext(ctx, &u, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("get account query: %w", err)
	}
	return &u, nil
}
