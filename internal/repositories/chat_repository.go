package repositories

import (
	"context"

	"gorm.io/gorm"

	"emrSocket/internal/models"
	"emrSocket/internal/utils"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{
		db: db,
	}
}

func (chr *ChatRepository) SaveMessage(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error) {
	if err := chr.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// GetDirectMessages returns the conversation between two users of a hospital,
// newest first.
func (chr *ChatRepository) GetDirectMessages(ctx context.Context, hospitalID, userID, otherID uint, page, size int) ([]models.ChatMessage, int64, error) {
	var messages []models.ChatMessage
	var total int64

	where := "hospital_id = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))"
	args := []interface{}{hospitalID, userID, otherID, otherID, userID}

	err := chr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChatMessage{}).Where(where, args...).Count(&total).Error; err != nil {
			return err
		}
		return tx.Scopes(utils.Paginate(page, size)).
			Where(where, args...).
			Order("created_at DESC, id DESC").
			Find(&messages).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// GetHospitalChannel returns messages posted to the hospital-wide channel.
func (chr *ChatRepository) GetHospitalChannel(ctx context.Context, hospitalID uint, page, size int) ([]models.ChatMessage, int64, error) {
	var messages []models.ChatMessage
	var total int64

	err := chr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChatMessage{}).
			Where("hospital_id = ? AND receiver_id IS NULL", hospitalID).
			Count(&total).Error; err != nil {
			return err
		}
		return tx.Scopes(utils.Paginate(page, size)).
			Where("hospital_id = ? AND receiver_id IS NULL", hospitalID).
			Order("created_at DESC, id DESC").
			Find(&messages).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
