package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/platform/services/auth/internal/models"
)

func TestGormUserRepo_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := initTestDB(t)
	r := NewGormUserRepo(db)

	u := createUser(t, db, "alice")

	byName, err := r.ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, []string{"USER"}, byName.RoleList())

	byID, err := r.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.True(t, byID.Active)
}

func TestGormUserRepo_CreateDuplicate(t *testing.T) {
	db := initTestDB(t)
	createUser(t, db, "bob")

	err := NewGormUserRepo(db).Create(context.Background(), &models.User{Username: "bob", PasswordHash: "y", Roles: "USER"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGormUserRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	r := NewGormUserRepo(initTestDB(t))

	_, err := r.ByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.ByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.SetActive(ctx, uuid.New(), false), ErrNotFound)
}

func TestGormUserRepo_SetActive(t *testing.T) {
	ctx := context.Background()
	db := initTestDB(t)
	r := NewGormUserRepo(db)
	u := createUser(t, db, "carol")

	require.NoError(t, r.SetActive(ctx, u.ID, false))

	got, err := r.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}
