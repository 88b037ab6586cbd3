package services

import (
	"context"
	"fmt"
	"time"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/interfaces"
	"emrSocket/internal/logger"
	socketModels "emrSocket/internal/models/socket"
	"emrSocket/internal/realtime"
	"emrSocket/internal/validators"
)

// RelayService turns validated client frames into outbound events. Identity
// always comes from the connection, never from the payload.
type RelayService struct {
	emitter interfaces.RealtimeEmitter
	log     *logger.Logger
	now     func() time.Time
}

func NewRelayService(emitter interfaces.RealtimeEmitter, log *logger.Logger) *RelayService {
	return &RelayService{
		emitter: emitter,
		log:     log.With("component", "RelayService"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (rs *RelayService) Relay(ctx context.Context, identity realtime.Identity, frame socketModels.SocketEvent) error {
	payload, err := validators.DecodeSocketEvent(frame)
	if err != nil {
		rs.log.Debug("rejected client event", "event", frame.Event, "userID", identity.UserID, "error", err)
		return err
	}

	now := rs.now()
	tenant := realtime.HospitalTarget(identity.HospitalID)

	switch p := payload.(type) {
	case *socketModels.AppointmentUpdatePayload:
		return rs.emitter.Emit(ctx, tenant, enums.SOCKET_EVENT_APPOINTMENT_UPDATED, socketModels.AppointmentUpdated{
			AppointmentUpdatePayload: *p,
			UserID:                   identity.UserID,
			Timestamp:                now,
		})

	case *socketModels.QueueUpdatePayload:
		return rs.emitter.Emit(ctx, tenant, enums.SOCKET_EVENT_QUEUE_UPDATED, socketModels.QueueUpdated{
			QueueUpdatePayload: *p,
			UserID:             identity.UserID,
			Timestamp:          now,
		})

	case *socketModels.NotificationSendPayload:
		return rs.emitter.Emit(ctx, rs.directOrTenant(identity, p.TargetUserID), enums.SOCKET_EVENT_NOTIFICATION_NEW, socketModels.NotificationNew{
			NotificationSendPayload: *p,
			SenderID:                identity.UserID,
			Timestamp:               now,
		})

	case *socketModels.UserStatusPayload:
		return rs.emitter.Emit(ctx, tenant, enums.SOCKET_EVENT_USER_STATUS_CHANGED, socketModels.UserStatusChanged{
			UserID:    identity.UserID,
			Status:    p.Status,
			Timestamp: now,
		})

	case *socketModels.ChatMessagePayload:
		return rs.emitter.Emit(ctx, rs.directOrTenant(identity, p.TargetUserID), enums.SOCKET_EVENT_CHAT_MESSAGE_NEW, socketModels.ChatMessageNew{
			ChatMessagePayload: *p,
			From:               identity.UserID,
			Timestamp:          now,
		})
	}

	return fmt.Errorf("%w: %s", errs.ErrUnknownEvent, frame.Event)
}

// directOrTenant addresses the target user's room, restricted to the
// sender's hospital, or the whole hospital when no target is given.
func (rs *RelayService) directOrTenant(identity realtime.Identity, target *uint) realtime.Target {
	if target == nil {
		return realtime.HospitalTarget(identity.HospitalID)
	}
	return realtime.Target{
		Room:          realtime.UserRoom(*target),
		HospitalScope: identity.HospitalID,
	}
}
