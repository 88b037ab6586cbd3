package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
	socketModels "emrSocket/internal/models/socket"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
	"emrSocket/internal/services"
	"emrSocket/internal/testutil"
)

func newNotificationService(t *testing.T, emitter *testutil.RecordingEmitter) (*services.NotificationService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	return services.NewNotificationService(
		repositories.NewNotificationRepository(db),
		repositories.NewStaffRepository(db),
		emitter,
		testutil.Logger(),
	), db
}

func TestNotificationService_SendDirect(t *testing.T) {
	emitter := &testutil.RecordingEmitter{}
	svc, db := newNotificationService(t, emitter)
	sender := testutil.CreateStaff(t, db, 1, "doctor", "doc@h1.org", "password1")
	receiver := testutil.CreateStaff(t, db, 1, "nurse", "nurse@h1.org", "password1")
	identity := realtime.Identity{UserID: sender.ID, HospitalID: 1, Role: "doctor"}

	response, err := svc.Send(context.Background(), identity, &models.CreateNotificationRequestBody{
		TargetUserID: &receiver.ID,
		Title:        "Bed 4",
		Message:      "Vitals due",
	})
	require.NoError(t, err)
	assert.True(t, response.Delivered)
	assert.Equal(t, "info", response.Notification.Type)
	assert.Equal(t, uint(1), response.Notification.HospitalID)

	emission, ok := emitter.Last()
	require.True(t, ok)
	assert.Equal(t, "notification:new", emission.Event)
	assert.Equal(t, realtime.Target{Room: realtime.UserRoom(receiver.ID), HospitalScope: 1}, emission.Target)
	assert.Equal(t, response.Notification.ID, emission.Payload.(socketModels.NotificationNew).ID)

	page, err := svc.List(context.Background(), realtime.Identity{UserID: receiver.ID, HospitalID: 1, Role: "nurse"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestNotificationService_ReceiverMustShareHospital(t *testing.T) {
	emitter := &testutil.RecordingEmitter{}
	svc, db := newNotificationService(t, emitter)
	sender := testutil.CreateStaff(t, db, 1, "doctor", "doc@h1.org", "password1")
	stranger := testutil.CreateStaff(t, db, 2, "nurse", "nurse@h2.org", "password1")

	_, err := svc.Send(context.Background(), realtime.Identity{UserID: sender.ID, HospitalID: 1, Role: "doctor"}, &models.CreateNotificationRequestBody{
		TargetUserID: &stranger.ID,
		Title:        "t",
		Message:      "m",
	})
	assert.ErrorIs(t, err, errs.ErrReceiverNotFound)
	assert.Empty(t, emitter.All())
}

func TestNotificationService_EmitFailureKeepsRow(t *testing.T) {
	emitter := &testutil.RecordingEmitter{Err: errors.New("bus down")}
	svc, db := newNotificationService(t, emitter)
	sender := testutil.CreateStaff(t, db, 1, "admin", "admin@h1.org", "password1")

	response, err := svc.Send(context.Background(), realtime.Identity{UserID: sender.ID, HospitalID: 1, Role: "admin"}, &models.CreateNotificationRequestBody{
		Title:   "Maintenance",
		Message: "Systems down at midnight",
	})
	require.NoError(t, err)
	assert.False(t, response.Delivered)
	assert.NotZero(t, response.Notification.ID)
}

func TestNotificationService_MarkRead(t *testing.T) {
	emitter := &testutil.RecordingEmitter{}
	svc, db := newNotificationService(t, emitter)
	sender := testutil.CreateStaff(t, db, 1, "doctor", "doc@h1.org", "password1")
	receiver := testutil.CreateStaff(t, db, 1, "nurse", "nurse@h1.org", "password1")
	ctx := context.Background()

	response, err := svc.Send(ctx, realtime.Identity{UserID: sender.ID, HospitalID: 1, Role: "doctor"}, &models.CreateNotificationRequestBody{
		TargetUserID: &receiver.ID,
		Title:        "t",
		Message:      "m",
	})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, realtime.Identity{UserID: sender.ID, HospitalID: 1, Role: "doctor"}, response.Notification.ID)
	assert.ErrorIs(t, err, errs.ErrNotificationNotFound)

	read, err := svc.MarkRead(ctx, realtime.Identity{UserID: receiver.ID, HospitalID: 1, Role: "nurse"}, response.Notification.ID)
	require.NoError(t, err)
	assert.NotNil(t, read.ReadAt)
}
