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

type NotificationService struct {
	notificationRepo *repositories.NotificationRepository
	staffRepo        *repositories.StaffRepository
	emitter          interfaces.RealtimeEmitter
	log              *logger.Logger
	now              func() time.Time
}

func NewNotificationService(
	notificationRepo *repositories.NotificationRepository,
	staffRepo *repositories.StaffRepository,
	emitter interfaces.RealtimeEmitter,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		staffRepo:        staffRepo,
		emitter:          emitter,
		log:              log.With("component", "NotificationService"),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Send stores the notification and pushes it. The row is kept even when the
// push fails; Delivered reports whether the push was published.
func (ns *NotificationService) Send(ctx context.Context, sender realtime.Identity, body *models.CreateNotificationRequestBody) (*models.NotificationResponse, error) {
	if body.TargetUserID != nil {
		exists, err := ns.staffRepo.ExistsInHospital(ctx, *body.TargetUserID, sender.HospitalID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errs.ErrReceiverNotFound
		}
	}

	notificationType := body.Type
	if notificationType == "" {
		notificationType = "info"
	}
	notification := &models.Notification{
		HospitalID: sender.HospitalID,
		UserID:     body.TargetUserID,
		SenderID:   sender.UserID,
		Title:      body.Title,
		Message:    body.Message,
		Type:       notificationType,
		Link:       body.Link,
	}
	if err := ns.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}

	target := realtime.HospitalTarget(sender.HospitalID)
	if body.TargetUserID != nil {
		target = realtime.Target{Room: realtime.UserRoom(*body.TargetUserID), HospitalScope: sender.HospitalID}
	}
	err := ns.emitter.Emit(ctx, target, enums.SOCKET_EVENT_NOTIFICATION_NEW, socketModels.NotificationNew{
		NotificationSendPayload: socketModels.NotificationSendPayload{
			TargetUserID: body.TargetUserID,
			Title:        notification.Title,
			Message:      notification.Message,
			Type:         notification.Type,
			Link:         notification.Link,
		},
		ID:        notification.ID,
		SenderID:  sender.UserID,
		Timestamp: ns.now(),
	})
	if err != nil {
		ns.log.Error("notification stored but not pushed", "notificationID", notification.ID, "error", err)
	}

	return &models.NotificationResponse{
		Notification: notification,
		Delivered:    err == nil,
	}, nil
}

func (ns *NotificationService) List(ctx context.Context, identity realtime.Identity, page, size int) (*models.PaginatedResponse, error) {
	notifications, total, err := ns.notificationRepo.ListForUser(ctx, identity.HospitalID, identity.UserID, page, size)
	if err != nil {
		return nil, err
	}
	return &models.PaginatedResponse{
		Items: notifications,
		Page:  page,
		Size:  size,
		Total: total,
	}, nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, identity realtime.Identity, notificationID uint) (*models.Notification, error) {
	return ns.notificationRepo.MarkRead(ctx, identity.HospitalID, identity.UserID, notificationID, ns.now())
}
