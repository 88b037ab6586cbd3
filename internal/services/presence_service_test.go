package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
	"emrSocket/internal/services"
	"emrSocket/internal/testutil"
)

type mockPresenceStore struct {
	mock.Mock
}

func (m *mockPresenceStore) Increment(ctx context.Context, hospitalID, userID uint) (int64, error) {
	args := m.Called(ctx, hospitalID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPresenceStore) Decrement(ctx context.Context, hospitalID, userID uint) (int64, error) {
	args := m.Called(ctx, hospitalID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPresenceStore) Online(ctx context.Context, hospitalID uint) ([]uint, error) {
	args := m.Called(ctx, hospitalID)
	return args.Get(0).([]uint), args.Error(1)
}

func (m *mockPresenceStore) Reap(ctx context.Context, hospitalID uint) ([]uint, error) {
	args := m.Called(ctx, hospitalID)
	return args.Get(0).([]uint), args.Error(1)
}

func (m *mockPresenceStore) Hospitals(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uint), args.Error(1)
}

func (m *mockPresenceStore) TouchLastSeen(ctx context.Context, userID uint, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func TestPresenceService_MultiDevice(t *testing.T) {
	db := testutil.DB(t)
	store := repositories.NewMemoryPresenceRepository()
	svc := services.NewPresenceService(store, repositories.NewStaffRepository(db), testutil.Logger())
	nurse := testutil.CreateStaff(t, db, 1, "nurse", "nurse@h1.org", "password1")
	identity := realtime.Identity{UserID: nurse.ID, HospitalID: 1, Role: "nurse"}
	ctx := context.Background()

	svc.Connected(ctx, identity)
	svc.Connected(ctx, identity)

	online, err := svc.OnlineUsers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, nurse.ID, online[0].ID)

	svc.Disconnected(ctx, identity)
	online, err = svc.OnlineUsers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, online, 1)

	svc.Disconnected(ctx, identity)
	online, err = svc.OnlineUsers(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, online)

	var stored models.StaffUser
	require.NoError(t, db.First(&stored, nurse.ID).Error)
	assert.False(t, stored.IsOnline)
	assert.NotNil(t, stored.LastSeen)
	_, seen := store.LastSeen(nurse.ID)
	assert.True(t, seen)
}

func TestPresenceService_OtherHospitalsAreHidden(t *testing.T) {
	db := testutil.DB(t)
	store := repositories.NewMemoryPresenceRepository()
	svc := services.NewPresenceService(store, repositories.NewStaffRepository(db), testutil.Logger())
	nurse := testutil.CreateStaff(t, db, 2, "nurse", "nurse@h2.org", "password1")

	svc.Connected(context.Background(), realtime.Identity{UserID: nurse.ID, HospitalID: 2, Role: "nurse"})

	online, err := svc.OnlineUsers(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestPresenceService_StoreFailuresAreSwallowed(t *testing.T) {
	store := &mockPresenceStore{}
	identity := realtime.Identity{UserID: 4, HospitalID: 1, Role: "doctor"}
	store.On("Increment", mock.Anything, uint(1), uint(4)).Return(int64(0), errors.New("redis down"))
	store.On("Decrement", mock.Anything, uint(1), uint(4)).Return(int64(0), errors.New("redis down"))
	store.On("TouchLastSeen", mock.Anything, uint(4), mock.AnythingOfType("time.Time")).Return(nil)

	svc := services.NewPresenceService(store, nil, testutil.Logger())
	assert.NotPanics(t, func() {
		svc.Connected(context.Background(), identity)
		svc.Disconnected(context.Background(), identity)
	})
	store.AssertExpectations(t)
}

func TestPresenceService_ReapedUsersGoOffline(t *testing.T) {
	db := testutil.DB(t)
	staffRepo := repositories.NewStaffRepository(db)
	stranded := testutil.CreateStaff(t, db, 1, "doctor", "stranded@h1.org", "password1")
	live := testutil.CreateStaff(t, db, 1, "nurse", "live@h1.org", "password1")
	ctx := context.Background()
	require.NoError(t, staffRepo.SetOnlineStatus(ctx, stranded.ID, true, time.Now().UTC()))
	require.NoError(t, staffRepo.SetOnlineStatus(ctx, live.ID, true, time.Now().UTC()))

	store := &mockPresenceStore{}
	store.On("Reap", mock.Anything, uint(1)).Return([]uint{stranded.ID}, nil)
	store.On("Online", mock.Anything, uint(1)).Return([]uint{live.ID}, nil)
	svc := services.NewPresenceService(store, staffRepo, testutil.Logger())

	online, err := svc.OnlineUsers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, live.ID, online[0].ID)

	var stored models.StaffUser
	require.NoError(t, db.First(&stored, stranded.ID).Error)
	assert.False(t, stored.IsOnline)
	require.NoError(t, db.First(&stored, live.ID).Error)
	assert.True(t, stored.IsOnline)
	store.AssertExpectations(t)
}

func TestPresenceService_ReapFailureStillListsOnline(t *testing.T) {
	db := testutil.DB(t)
	nurse := testutil.CreateStaff(t, db, 1, "nurse", "nurse@h1.org", "password1")
	store := &mockPresenceStore{}
	store.On("Reap", mock.Anything, uint(1)).Return([]uint(nil), errors.New("redis down"))
	store.On("Online", mock.Anything, uint(1)).Return([]uint{nurse.ID}, nil)
	svc := services.NewPresenceService(store, repositories.NewStaffRepository(db), testutil.Logger())

	online, err := svc.OnlineUsers(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, online, 1)
}

func TestPresenceService_RunReaperSweepsHospitals(t *testing.T) {
	swept := make(chan struct{})
	var once sync.Once
	store := &mockPresenceStore{}
	store.On("Hospitals", mock.Anything).Return([]uint{1, 2}, nil)
	store.On("Reap", mock.Anything, uint(1)).Return([]uint(nil), nil)
	store.On("Reap", mock.Anything, uint(2)).Return([]uint(nil), nil).Run(func(mock.Arguments) {
		once.Do(func() { close(swept) })
	})
	svc := services.NewPresenceService(store, nil, testutil.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunReaper(ctx, 10*time.Millisecond) }()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("reaper never reached the second hospital")
	}
	cancel()
	require.NoError(t, <-done)
}
