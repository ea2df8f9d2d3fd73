package cache

import "time"

// Entry is one persisted cache value keyed by <owner>:<prefix><name>.
type Entry struct {
	Key       string     `gorm:"column:cache_key;primaryKey;size:255"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string {
	return "cache_entries"
}
