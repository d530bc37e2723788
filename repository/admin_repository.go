package repository

import (
	"context"
	"fmt"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminRepositoryImpl implements AdminRepository interface
type AdminRepositoryImpl struct {
	*BaseRepository[models.Admin]
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &AdminRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Admin](db),
	}
}

// IsAdmin reports whether the user has the admin role
func (r *AdminRepositoryImpl) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Admin{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add grants the admin role
func (r *AdminRepositoryImpl) Add(ctx context.Context, userID int64, addedBy *int64) error {
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

	admin := models.Admin{
		UserID:  userID,
		AddedBy: addedBy,
		AddedAt: utils.UTCNow(),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"added_by", "added_at"}),
	}).Create(&admin).Error
	if err != nil {
		return fmt.Errorf("failed to add admin %d: %w", userID, err)
	}
	return nil
}

// Remove revokes the admin role
func (r *AdminRepositoryImpl) Remove(ctx context.Context, userID int64) error {
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

	err = db.Where("user_id = ?", userID).Delete(&models.Admin{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove admin %d: %w", userID, err)
	}
	return nil
}

// List returns all admins, newest first
func (r *AdminRepositoryImpl) List(ctx context.Context) ([]*models.Admin, error) {
	db := r.getDB(ctx)

	var admins []*models.Admin
	err := db.Order("added_at DESC").Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}
