package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PhoneRepositoryImpl implements PhoneRepository interface
type PhoneRepositoryImpl struct {
	*BaseRepository[models.TrustedPhone]
}

// NewPhoneRepository creates a new phone repository
func NewPhoneRepository(db *gorm.DB) PhoneRepository {
	return &PhoneRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TrustedPhone](db),
	}
}

// IsBlocked reports whether the phone has a block with no expiry or an expiry
// still in the future
func (r *PhoneRepositoryImpl) IsBlocked(ctx context.Context, phone string) (bool, error) {
	db := r.getDB(ctx)

	var blocked models.BlockedPhone
	err := db.Where("phone = ?", phone).First(&blocked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return blocked.Active(), nil
}

// Block records a block. A zero duration blocks permanently.
func (r *PhoneRepositoryImpl) Block(ctx context.Context, phone, reason string, duration time.Duration) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var until *time.Time
	if duration > 0 {
		until = utils.UTCNowAddPtr(duration)
	}

	blocked := models.BlockedPhone{
		Phone:        phone,
		BlockedAt:    utils.UTCNow(),
		Reason:       reason,
		BlockedUntil: until,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"blocked_at", "reason", "blocked_until"}),
	}).Create(&blocked).Error
	if err != nil {
		return fmt.Errorf("failed to block phone %s: %w", phone, err)
	}
	return nil
}

// Unblock removes a block record
func (r *PhoneRepositoryImpl) Unblock(ctx context.Context, phone string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("phone = ?", phone).Delete(&models.BlockedPhone{}).Error
	if err != nil {
		return fmt.Errorf("failed to unblock phone %s: %w", phone, err)
	}
	return nil
}

// Attempts returns the current attempt count. A counter older than the window
// is reset to zero.
func (r *PhoneRepositoryImpl) Attempts(ctx context.Context, phone string, window time.Duration) (int, error) {
	db := r.getDB(ctx)

	var attempt models.PhoneAttempt
	err := db.Where("phone = ?", phone).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	if attempt.Stale(window) {
		if err := r.ResetAttempts(ctx, phone); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return attempt.Attempts, nil
}

// AddAttempt increments the rolling attempt counter
func (r *PhoneRepositoryImpl) AddAttempt(ctx context.Context, phone string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	attempt := models.PhoneAttempt{
		Phone:       phone,
		Attempts:    1,
		LastAttempt: utils.UTCNow(),
	}
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}},
		DoUpdates: clause.Assignments(map[string]any{
			"attempts":     gorm.Expr("phone_attempts.attempts + 1"),
			"last_attempt": utils.UTCNow(),
		}),
	}).Create(&attempt).Error
	if err != nil {
		return fmt.Errorf("failed to add attempt for phone %s: %w", phone, err)
	}
	return nil
}

// ResetAttempts removes the attempt counter
func (r *PhoneRepositoryImpl) ResetAttempts(ctx context.Context, phone string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("phone = ?", phone).Delete(&models.PhoneAttempt{}).Error
	if err != nil {
		return fmt.Errorf("failed to reset attempts for phone %s: %w", phone, err)
	}
	return nil
}

// IsTrusted reports whether the phone has a trust record
func (r *PhoneRepositoryImpl) IsTrusted(ctx context.Context, phone string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.TrustedPhone{}).Where("phone = ?", phone).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Trust upserts the phone's trust record. At most one record per phone.
func (r *PhoneRepositoryImpl) Trust(ctx context.Context, phone string, userID int64, markedBy *int64, source models.TrustSource) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	trusted := models.TrustedPhone{
		Phone:    phone,
		UserID:   userID,
		MarkedBy: markedBy,
		MarkedAt: utils.UTCNow(),
		Source:   source,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "marked_by", "marked_at", "source"}),
	}).Create(&trusted).Error
	if err != nil {
		return fmt.Errorf("failed to trust phone %s: %w", phone, err)
	}
	return nil
}

// Untrust removes the phone's trust record
func (r *PhoneRepositoryImpl) Untrust(ctx context.Context, phone string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("phone = ?", phone).Delete(&models.TrustedPhone{}).Error
	if err != nil {
		return fmt.Errorf("failed to untrust phone %s: %w", phone, err)
	}
	return nil
}

// TrustedPhoneForUser returns a user's trusted phone, if any
func (r *PhoneRepositoryImpl) TrustedPhoneForUser(ctx context.Context, userID int64) (*models.TrustedPhone, error) {
	db := r.getDB(ctx)

	var trusted models.TrustedPhone
	err := db.Where("user_id = ?", userID).First(&trusted).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trusted, nil
}
