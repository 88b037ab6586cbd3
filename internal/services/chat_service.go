package services

import (
	"context"
	"time"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/interfaces"
	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	socketModels "emrSocket/internal/models/socket"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
)

type ChatService struct {
	chatRepo  *repositories.ChatRepository
	staffRepo *repositories.StaffRepository
	emitter   interfaces.RealtimeEmitter
	log       *logger.Logger
	now       func() time.Time
}

func NewChatService(
	chatRepo *repositories.ChatRepository,
	staffRepo *repositories.StaffRepository,
	emitter interfaces.RealtimeEmitter,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		staffRepo: staffRepo,
		emitter:   emitter,
		log:       log.With("component", "ChatService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage persists a chat line and pushes chat:message:new to the
// receiver's room, or to the hospital channel when there is no receiver.
func (cs *ChatService) SendMessage(ctx context.Context, sender realtime.Identity, body *models.SendChatMessageRequestBody) (*models.ChatMessageResponse, error) {
	if body.TargetUserID != nil {
		exists, err := cs.staffRepo.ExistsInHospital(ctx, *body.TargetUserID, sender.HospitalID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errs.ErrReceiverNotFound
		}
	}

	message, err := cs.chatRepo.SaveMessage(ctx, &models.ChatMessage{
		HospitalID:    sender.HospitalID,
		SenderID:      sender.UserID,
		ReceiverID:    body.TargetUserID,
		Content:       body.Message,
		AttachmentURL: body.AttachmentURL,
	})
	if err != nil {
		return nil, err
	}

	target := realtime.HospitalTarget(sender.HospitalID)
	if body.TargetUserID != nil {
		target = realtime.Target{Room: realtime.UserRoom(*body.TargetUserID), HospitalScope: sender.HospitalID}
	}
	err = cs.emitter.Emit(ctx, target, enums.SOCKET_EVENT_CHAT_MESSAGE_NEW, socketModels.ChatMessageNew{
		ChatMessagePayload: socketModels.ChatMessagePayload{
			TargetUserID:  body.TargetUserID,
			Message:       message.Content,
			AttachmentURL: message.AttachmentURL,
		},
		ID:        message.ID,
		From:      sender.UserID,
		Timestamp: cs.now(),
	})
	if err != nil {
		cs.log.Error("chat message stored but not pushed", "messageID", message.ID, "error", err)
	}

	return &models.ChatMessageResponse{
		Message:   message,
		Delivered: err == nil,
	}, nil
}

// GetHistory returns the direct conversation with `with`, or the hospital
// channel when with is nil.
func (cs *ChatService) GetHistory(ctx context.Context, identity realtime.Identity, with *uint, page, size int) (*models.PaginatedResponse, error) {
	var (
		messages []models.ChatMessage
		total    int64
		err      error
	)
	if with != nil {
		messages, total, err = cs.chatRepo.GetDirectMessages(ctx, identity.HospitalID, identity.UserID, *with, page, size)
	} else {
		messages, total, err = cs.chatRepo.GetHospitalChannel(ctx, identity.HospitalID, page, size)
	}
	if err != nil {
		return nil, err
	}
	return &models.PaginatedResponse{
		Items: messages,
		Page:  page,
		Size:  size,
		Total: total,
	}, nil
}
