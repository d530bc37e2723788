package models

import (
	"time"

	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// Promotion is an admin-managed announcement shown to customers while its date
// window is open. Deletion is soft: rows are deactivated, never removed.
type Promotion struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	ImageURL    *string    `gorm:"size:512" json:"image_url,omitempty"`
	IsActive    *bool      `gorm:"default:true;index:idx_promotions_active" json:"is_active"`
	StartDate   *time.Time `gorm:"type:date;index:idx_promotions_dates" json:"start_date,omitempty"`
	EndDate     *time.Time `gorm:"type:date;index:idx_promotions_dates" json:"end_date,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Promotion) TableName() string { return "promotions" }

// BeforeCreate normalizes defaults
func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.IsActive == nil {
		p.IsActive = utils.ToPtr(true)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// PromotionFilter represents filter criteria for promotion queries
type PromotionFilter struct {
	ID       *uint      `json:"id,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	ActiveOn *time.Time `json:"active_on,omitempty"`
}
