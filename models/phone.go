package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
)

// TrustSource records how a phone became trusted
type TrustSource string

const (
	TrustSourceAuto  TrustSource = "auto"
	TrustSourceAdmin TrustSource = "admin"
)

// String returns the string representation of the source
func (s TrustSource) String() string {
	return string(s)
}

// Valid checks if the source is valid
func (s TrustSource) Valid() bool {
	switch s {
	case TrustSourceAuto, TrustSourceAdmin:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TrustSource
func (s *TrustSource) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = TrustSource(v)
	case []byte:
		*s = TrustSource(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TrustSource", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TrustSource
func (s TrustSource) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid TrustSource: %s", s)
	}
	return string(s), nil
}

// TrustedPhone marks a phone as verified for its owning user. At most one row
// per phone; trust is per-phone, not per-order.
type TrustedPhone struct {
	Phone    string      `gorm:"primaryKey;size:20" json:"phone"`
	UserID   int64       `gorm:"not null;index:idx_trusted_user" json:"user_id"`
	MarkedBy *int64      `json:"marked_by,omitempty"`
	MarkedAt time.Time   `gorm:"not null" json:"marked_at"`
	Source   TrustSource `gorm:"size:10;not null" json:"source"`
}

func (TrustedPhone) TableName() string { return "trusted_phones" }

// BeforeCreate normalizes defaults
func (t *TrustedPhone) BeforeCreate(tx *gorm.DB) error {
	if t.MarkedAt.IsZero() {
		t.MarkedAt = utils.UTCNow()
	}
	if t.Source == "" {
		t.Source = TrustSourceAuto
	}
	return nil
}

// PhoneAttempt counts order attempts from an unverified phone within a rolling
// 24-hour window.
type PhoneAttempt struct {
	Phone       string    `gorm:"primaryKey;size:20" json:"phone"`
	Attempts    int       `gorm:"not null;default:0" json:"attempts"`
	LastAttempt time.Time `gorm:"not null" json:"last_attempt"`
}

func (PhoneAttempt) TableName() string { return "phone_attempts" }

// Stale reports whether the attempt window has lapsed
func (a *PhoneAttempt) Stale(window time.Duration) bool {
	return utils.UTCNow().Sub(a.LastAttempt) > window
}

// BlockedPhone blocks a phone either until BlockedUntil or permanently when
// BlockedUntil is nil.
type BlockedPhone struct {
	Phone        string     `gorm:"primaryKey;size:20" json:"phone"`
	BlockedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"blocked_at"`
	Reason       string     `gorm:"size:255" json:"reason"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

func (BlockedPhone) TableName() string { return "blocked_phones" }

// Active reports whether the block is still in force
func (b *BlockedPhone) Active() bool {
	if b.BlockedUntil == nil {
		return true
	}
	return utils.UTCNow().Before(*b.BlockedUntil)
}
