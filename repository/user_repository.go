package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User](db),
	}
}

// ByID finds a user by platform user id
func (r *UserRepositoryImpl) ByID(ctx context.Context, userID int64) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Upsert inserts or refreshes a user. Username and phone keep their previous
// value when the incoming one is empty.
func (r *UserRepositoryImpl) Upsert(ctx context.Context, user *models.User) error {
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

	user.LastActive = utils.UTCNow()
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"full_name":   user.FullName,
			"username":    gorm.Expr("COALESCE(NULLIF(?, ''), users.username)", user.Username),
			"phone":       gorm.Expr("COALESCE(NULLIF(?, ''), users.phone)", user.Phone),
			"last_active": user.LastActive,
		}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.UserID, err)
	}
	return nil
}

// ByPhone finds a user by phone number
func (r *UserRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Where("phone = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
