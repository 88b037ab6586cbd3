package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
	"emrSocket/internal/utils"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

func (nr *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return nr.db.WithContext(ctx).Create(notification).Error
}

// ListForUser returns notifications addressed to userID or to the whole
// hospital, newest first.
func (nr *NotificationRepository) ListForUser(ctx context.Context, hospitalID, userID uint, page, size int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	err := nr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Model(&models.Notification{}).
			Where("hospital_id = ? AND (user_id = ? OR user_id IS NULL)", hospitalID, userID)
		if err := scope.Count(&total).Error; err != nil {
			return err
		}
		return tx.
			Scopes(utils.Paginate(page, size)).
			Where("hospital_id = ? AND (user_id = ? OR user_id IS NULL)", hospitalID, userID).
			Order("created_at DESC, id DESC").
			Find(&notifications).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead stamps read_at on a notification owned by userID in hospitalID.
func (nr *NotificationRepository) MarkRead(ctx context.Context, hospitalID, userID, notificationID uint, at time.Time) (*models.Notification, error) {
	var notification models.Notification
	err := nr.db.WithContext(ctx).
		Where("id = ? AND hospital_id = ? AND user_id = ?", notificationID, hospitalID, userID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	if notification.ReadAt != nil {
		return &notification, nil
	}
	if err := nr.db.WithContext(ctx).Model(&notification).Update("read_at", at).Error; err != nil {
		return nil, err
	}
	notification.ReadAt = &at
	return &notification, nil
}
