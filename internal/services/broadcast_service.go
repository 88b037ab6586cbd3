package services

import (
	"context"
	"strings"
	"time"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/interfaces"
	"emrSocket/internal/models"
	socketModels "emrSocket/internal/models/socket"
	"emrSocket/internal/realtime"
)

type BroadcastService struct {
	emitter interfaces.RealtimeEmitter
	now     func() time.Time
}

func NewBroadcastService(emitter interfaces.RealtimeEmitter) *BroadcastService {
	return &BroadcastService{
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve works out where an announcement goes. A super admin may address
// any hospital or any role room; an admin only their own hospital.
func (bs *BroadcastService) Resolve(sender realtime.Identity, body *models.BroadcastRequestBody) (realtime.Target, error) {
	role := strings.TrimSpace(body.Role)
	if role != "" && !enums.IsKnownRole(role) {
		return realtime.Target{}, errs.ErrUnknownRole
	}

	switch sender.Role {
	case enums.ROLE_SUPER_ADMIN:
		switch {
		case role != "":
			return realtime.Target{Room: realtime.RoleRoom(role), HospitalScope: body.HospitalID}, nil
		case body.HospitalID != 0:
			return realtime.HospitalTarget(body.HospitalID), nil
		}
		return realtime.Target{}, errs.ErrInvalidTarget

	case enums.ROLE_ADMIN:
		if body.HospitalID != 0 && body.HospitalID != sender.HospitalID {
			return realtime.Target{}, errs.ErrForbidden
		}
		if role != "" {
			return realtime.Target{Room: realtime.RoleRoom(role), HospitalScope: sender.HospitalID}, nil
		}
		return realtime.HospitalTarget(sender.HospitalID), nil
	}

	return realtime.Target{}, errs.ErrForbidden
}

func (bs *BroadcastService) Broadcast(ctx context.Context, sender realtime.Identity, body *models.BroadcastRequestBody) error {
	target, err := bs.Resolve(sender, body)
	if err != nil {
		return err
	}
	return bs.emitter.Emit(ctx, target, enums.SOCKET_EVENT_ANNOUNCEMENT_NEW, socketModels.Announcement{
		Title:     body.Title,
		Message:   body.Message,
		From:      sender.UserID,
		Timestamp: bs.now(),
	})
}
