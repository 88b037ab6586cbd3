// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
	"emrSocket/internal/servers/database"
	"emrSocket/internal/utils"
)

const TestSecret = "test-secret-key"
const TestIssuer = "emr-test"

// DB returns a migrated in-memory sqlite database private to t.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func Logger() *logger.Logger {
	return logger.NewNop()
}

// CreateStaff inserts a staff user with a bcrypt hash of password.
func CreateStaff(t *testing.T, db *gorm.DB, hospitalID uint, role, email, password string) *models.StaffUser {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.StaffUser{
		HospitalID:   hospitalID,
		FirstName:    "Test",
		LastName:     role,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type Emission struct {
	Target  realtime.Target
	Event   string
	Payload any
}

// RecordingEmitter captures emissions instead of publishing them.
type RecordingEmitter struct {
	mu        sync.Mutex
	Err       error
	Emissions []Emission
}

func (r *RecordingEmitter) Emit(_ context.Context, target realtime.Target, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Emissions = append(r.Emissions, Emission{Target: target, Event: event, Payload: payload})
	return nil
}

func (r *RecordingEmitter) EmitToHospital(ctx context.Context, hospitalID uint, event string, payload any) error {
	return r.Emit(ctx, realtime.HospitalTarget(hospitalID), event, payload)
}

func (r *RecordingEmitter) EmitToUser(ctx context.Context, userID uint, event string, payload any) error {
	return r.Emit(ctx, realtime.UserTarget(userID), event, payload)
}

func (r *RecordingEmitter) EmitToRole(ctx context.Context, role string, event string, payload any) error {
	return r.Emit(ctx, realtime.RoleTarget(role), event, payload)
}

func (r *RecordingEmitter) All() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emission(nil), r.Emissions...)
}

func (r *RecordingEmitter) Last() (Emission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Emissions) == 0 {
		return Emission{}, false
	}
	return r.Emissions[len(r.Emissions)-1], true
}
