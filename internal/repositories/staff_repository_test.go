package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
	"emrSocket/internal/repositories"
	"emrSocket/internal/testutil"
)

func TestStaffRepository(t *testing.T) {
	db := testutil.DB(t)
	repo := repositories.NewStaffRepository(db)
	ctx := context.Background()

	doctor := testutil.CreateStaff(t, db, 1, "doctor", "doc@h1.org", "password1")
	nurse := testutil.CreateStaff(t, db, 1, "nurse", "nurse@h1.org", "password1")
	other := testutil.CreateStaff(t, db, 2, "nurse", "nurse@h2.org", "password1")

	found, err := repo.GetByEmail(ctx, "doc@h1.org")
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, found.ID)

	_, err = repo.GetByEmail(ctx, "nobody@h1.org")
	assert.ErrorIs(t, err, errs.ErrUserNotFound)

	exists, err := repo.ExistsInHospital(ctx, nurse.ID, 1)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsInHospital(ctx, other.ID, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	users, err := repo.ListByIDs(ctx, 1, []uint{nurse.ID, other.ID, doctor.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, doctor.ID, users[0].ID)
	assert.Equal(t, nurse.ID, users[1].ID)

	users, err = repo.ListByIDs(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStaffRepository_SetOnlineStatus(t *testing.T) {
	db := testutil.DB(t)
	repo := repositories.NewStaffRepository(db)
	nurse := testutil.CreateStaff(t, db, 1, "nurse", "nurse@h1.org", "password1")
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.SetOnlineStatus(ctx, nurse.ID, true, at))
	var stored models.StaffUser
	require.NoError(t, db.First(&stored, nurse.ID).Error)
	assert.True(t, stored.IsOnline)
	assert.Nil(t, stored.LastSeen)

	require.NoError(t, repo.SetOnlineStatus(ctx, nurse.ID, false, at))
	require.NoError(t, db.First(&stored, nurse.ID).Error)
	assert.False(t, stored.IsOnline)
	require.NotNil(t, stored.LastSeen)
	assert.True(t, at.Equal(*stored.LastSeen))
}
