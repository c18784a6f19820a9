package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/platform/services/auth/internal/models"
)

var baseTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))
	return db
}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	u := &models.User{Username: username, PasswordHash: "x", Roles: "USER", Active: true}
	require.NoError(t, NewGormUserRepo(db).Create(context.Background(), u))
	require.NotEqual(t, uuid.Nil, u.ID)
	return u
}
