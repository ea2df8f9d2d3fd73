package user

import "time"

// Account is a principal that can sign in. Password hashes exist only for
// locally administered accounts; provider accounts authenticate elsewhere.
type Account struct {
	ID           int64      `gorm:"primaryKey"`
	UID          string     `gorm:"column:uid;uniqueIndex;not null;size:128"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	FirstName    string     `gorm:"column:first_name"`
	LastName     string     `gorm:"column:last_name"`
	DateOfBirth  string     `gorm:"column:date_of_birth;size:10"`
	PlaceOfBirth string     `gorm:"column:place_of_birth"`
	Role         string     `gorm:"column:role;not null;default:user"`
	Provider     string     `gorm:"column:provider;not null;default:admin"`
	PasswordHash string     `gorm:"column:password_hash"`
	IsActive     bool       `gorm:"column:is_active;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
