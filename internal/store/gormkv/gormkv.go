package gormkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	cacheDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/cache"
	"github.com/gianix81/payAnalyst/internal/store"
)

// Repository persists cache values in the cache_entries table.
type Repository struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewRepository returns a Port over db. A zero ttl keeps values forever.
func NewRepository(db *gorm.DB, ttl time.Duration) *Repository {
	return &Repository{db: db, ttl: ttl}
}

func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	var entry cacheDatamodel.Entry
	err := r.db.WithContext(ctx).Where("cache_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry: %w", err)
	}
	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	return entry.Value, nil
}

func (r *Repository) Save(ctx context.Context, key string, value []byte) error {
	entry := cacheDatamodel.Entry{Key: key, Value: value}
	if r.ttl > 0 {
		exp := time.Now().Add(r.ttl)
		entry.ExpiresAt = &exp
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&cacheDatamodel.Entry{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

// PurgeExpired deletes entries whose ttl has elapsed and returns how many went.
func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&cacheDatamodel.Entry{})
	return res.RowsAffected, res.Error
}
