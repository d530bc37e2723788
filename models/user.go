package models

import (
	"time"

	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// User represents a chat-platform customer. UserID is the platform's own id,
// not a local sequence.
type User struct {
	UserID       int64     `gorm:"primaryKey" json:"user_id"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	Username     string    `gorm:"size:255;index:idx_users_username" json:"username"`
	Phone        string    `gorm:"size:20;index:idx_users_phone" json:"phone"`
	LanguageCode string    `gorm:"size:10;default:'ru'" json:"language_code"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	LastActive   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_users_last_active" json:"last_active"`
}

func (User) TableName() string { return "users" }

// BeforeCreate normalizes defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.LanguageCode == "" {
		u.LanguageCode = "ru"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	if u.LastActive.IsZero() {
		u.LastActive = utils.UTCNow()
	}
	return nil
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	UserID      *int64     `json:"user_id,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	ActiveAfter *time.Time `json:"active_after,omitempty"`
}
