package models

import (
	"time"

	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// Admin grants a platform user the admin role. Admins are identified by their
// platform user id; there are no local credentials.
type Admin struct {
	UserID  int64     `gorm:"primaryKey" json:"user_id"`
	AddedBy *int64    `json:"added_by,omitempty"`
	AddedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"added_at"`
}

func (Admin) TableName() string { return "admins" }

// BeforeCreate normalizes defaults
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.AddedAt.IsZero() {
		a.AddedAt = utils.UTCNow()
	}
	return nil
}
