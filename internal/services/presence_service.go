package services

import (
	"context"
	"time"

	"emrSocket/internal/interfaces"
	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
)

// PresenceService records who is connected. Failures are logged and never
// stop a connection from opening or closing.
type PresenceService struct {
	store     interfaces.PresenceStore
	staffRepo *repositories.StaffRepository
	log       *logger.Logger
	now       func() time.Time
}

func NewPresenceService(store interfaces.PresenceStore, staffRepo *repositories.StaffRepository, log *logger.Logger) *PresenceService {
	return &PresenceService{
		store:     store,
		staffRepo: staffRepo,
		log:       log.With("component", "PresenceService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (ps *PresenceService) Connected(ctx context.Context, identity realtime.Identity) {
	count, err := ps.store.Increment(ctx, identity.HospitalID, identity.UserID)
	if err != nil {
		ps.log.Warn("presence increment failed", "userID", identity.UserID, "hospitalID", identity.HospitalID, "error", err)
		return
	}
	if count == 1 && ps.staffRepo != nil {
		if err := ps.staffRepo.SetOnlineStatus(ctx, identity.UserID, true, ps.now()); err != nil {
			ps.log.Warn("failed to mark user online", "userID", identity.UserID, "error", err)
		}
	}
}

func (ps *PresenceService) Disconnected(ctx context.Context, identity realtime.Identity) {
	now := ps.now()
	remaining, err := ps.store.Decrement(ctx, identity.HospitalID, identity.UserID)
	if err != nil {
		ps.log.Warn("presence decrement failed", "userID", identity.UserID, "hospitalID", identity.HospitalID, "error", err)
	}
	if err := ps.store.TouchLastSeen(ctx, identity.UserID, now); err != nil {
		ps.log.Warn("failed to record last seen", "userID", identity.UserID, "error", err)
	}
	if err == nil && remaining == 0 && ps.staffRepo != nil {
		if err := ps.staffRepo.SetOnlineStatus(ctx, identity.UserID, false, now); err != nil {
			ps.log.Warn("failed to mark user offline", "userID", identity.UserID, "error", err)
		}
	}
}

// Reap clears counts left by instances that died without disconnecting their
// sockets and marks the users they leave behind offline.
func (ps *PresenceService) Reap(ctx context.Context, hospitalID uint) error {
	gone, err := ps.store.Reap(ctx, hospitalID)
	if err != nil {
		return err
	}
	if len(gone) == 0 || ps.staffRepo == nil {
		return nil
	}
	now := ps.now()
	for _, userID := range gone {
		if err := ps.staffRepo.SetOnlineStatus(ctx, userID, false, now); err != nil {
			ps.log.Warn("failed to mark reaped user offline", "userID", userID, "error", err)
		}
	}
	ps.log.Info("reaped stale presence", "hospitalID", hospitalID, "users", len(gone))
	return nil
}

// RunReaper reaps every hospital with presence entries each interval until
// ctx is cancelled.
func (ps *PresenceService) RunReaper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hospitals, err := ps.store.Hospitals(ctx)
			if err != nil {
				ps.log.Warn("presence reaper failed to list hospitals", "error", err)
				continue
			}
			for _, hospitalID := range hospitals {
				if err := ps.Reap(ctx, hospitalID); err != nil {
					ps.log.Warn("presence reap failed", "hospitalID", hospitalID, "error", err)
				}
			}
		}
	}
}

// OnlineUsers lists the staff of hospitalID with at least one live connection.
func (ps *PresenceService) OnlineUsers(ctx context.Context, hospitalID uint) ([]*models.StaffUserResponse, error) {
	if err := ps.Reap(ctx, hospitalID); err != nil {
		ps.log.Warn("presence reap failed", "hospitalID", hospitalID, "error", err)
	}
	ids, err := ps.store.Online(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	users, err := ps.staffRepo.ListByIDs(ctx, hospitalID, ids)
	if err != nil {
		return nil, err
	}
	online := make([]*models.StaffUserResponse, 0, len(users))
	for i := range users {
		user := users[i].ToResponse()
		user.IsOnline = true
		online = append(online, user)
	}
	return online, nil
}
