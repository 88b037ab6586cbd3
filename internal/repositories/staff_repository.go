package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
)

type StaffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{
		db: db,
	}
}

func (sr *StaffRepository) CreateUser(ctx context.Context, user *models.StaffUser) (*models.StaffUser, error) {
	if err := sr.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (sr *StaffRepository) GetByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	var user models.StaffUser
	err := sr.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsInHospital reports whether userID is a staff member of hospitalID.
func (sr *StaffRepository) ExistsInHospital(ctx context.Context, userID, hospitalID uint) (bool, error) {
	var count int64
	err := sr.db.WithContext(ctx).
		Model(&models.StaffUser{}).
		Where("id = ? AND hospital_id = ?", userID, hospitalID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *StaffRepository) SetOnlineStatus(ctx context.Context, userID uint, online bool, at time.Time) error {
	updates := map[string]interface{}{"is_online": online}
	if !online {
		updates["last_seen"] = at
	}
	return sr.db.WithContext(ctx).
		Model(&models.StaffUser{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

func (sr *StaffRepository) ListByIDs(ctx context.Context, hospitalID uint, ids []uint) ([]models.StaffUser, error) {
	var users []models.StaffUser
	if len(ids) == 0 {
		return users, nil
	}
	err := sr.db.WithContext(ctx).
		Where("hospital_id = ? AND id IN ?", hospitalID, ids).
		Order("id ASC").
		Find(&users).Error
	return users, err
}
