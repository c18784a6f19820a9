package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkg_hash "github.com/Skotchmaster/platform/pkg/hash"
	"github.com/Skotchmaster/platform/services/auth/internal/models"
)

func newGormStore(t *testing.T) *GormRefreshStore {
	t.Helper()
	s := NewGormRefreshStore(initTestDB(t), time.Hour)
	s.Now = clockAt(baseTime)
	return s
}

func TestGormRefreshStore_CreateReplacesPreviousToken(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)
	owner := uuid.New()

	t1, err := s.Create(ctx, owner)
	require.NoError(t, err)
	t2, err := s.Create(ctx, owner)
	require.NoError(t, err)
	require.NotEqual(t, t1.Value, t2.Value)

	_, err = s.Find(ctx, t1.Value)
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := s.Find(ctx, t2.Value)
	require.NoError(t, err)
	assert.Equal(t, owner, found.UserID)
	assert.True(t, found.ExpiresAt.Equal(baseTime.Add(time.Hour)))

	var count int64
	require.NoError(t, s.DB.Model(&models.RefreshToken{}).Where("user_id = ?", owner).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormRefreshStore_StoresOnlyHash(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)

	rt, err := s.Create(ctx, uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, rt.Value)

	var stored models.RefreshToken
	require.NoError(t, s.DB.First(&stored).Error)
	assert.Equal(t, pkg_hash.Sha256Hex(rt.Value), stored.TokenHash)
	assert.NotEqual(t, rt.Value, stored.TokenHash)
	assert.Empty(t, stored.Value)
}

func TestGormRefreshStore_FindReturnsExpiredToken(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)
	s.Now = clockAt(baseTime.Add(-2 * time.Hour))

	rt, err := s.Create(ctx, uuid.New())
	require.NoError(t, err)

	found, err := s.Find(ctx, rt.Value)
	require.NoError(t, err)
	assert.False(t, found.Live(baseTime))
}

func TestGormRefreshStore_FindUnknown(t *testing.T) {
	_, err := newGormStore(t).Find(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRefreshStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)

	s.Now = clockAt(baseTime.Add(-2 * time.Hour))
	stale, err := s.Create(ctx, uuid.New())
	require.NoError(t, err)

	s.Now = clockAt(baseTime.Add(-time.Hour))
	boundary, err := s.Create(ctx, uuid.New())
	require.NoError(t, err)

	s.Now = clockAt(baseTime)
	live, err := s.Create(ctx, uuid.New())
	require.NoError(t, err)

	n, err := s.DeleteExpired(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, v := range []string{stale.Value, boundary.Value} {
		_, err := s.Find(ctx, v)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = s.Find(ctx, live.Value)
	assert.NoError(t, err)

	n, err = s.DeleteExpired(ctx, baseTime)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormRefreshStore_DeleteExpiredNeverRemovesLiveTokens(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)

	values := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		s.Now = clockAt(baseTime.Add(time.Duration(i-2) * 30 * time.Minute))
		rt, err := s.Create(ctx, uuid.New())
		require.NoError(t, err)
		values = append(values, rt.Value)
	}

	_, err := s.DeleteExpired(ctx, baseTime)
	require.NoError(t, err)

	for _, v := range values {
		rt, err := s.Find(ctx, v)
		if err != nil {
			assert.ErrorIs(t, err, ErrNotFound)
			continue
		}
		assert.True(t, rt.Live(baseTime), "live token %s must survive", v)
	}
}

func TestGormRefreshStore_DeleteAllForOwner(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)
	owner, other := uuid.New(), uuid.New()

	rt, err := s.Create(ctx, owner)
	require.NoError(t, err)
	keep, err := s.Create(ctx, other)
	require.NoError(t, err)

	n, err := s.DeleteAllForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Find(ctx, rt.Value)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find(ctx, keep.Value)
	assert.NoError(t, err)

	n, err = s.DeleteAllForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormRefreshStore_DeleteByValue(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)

	rt, err := s.Create(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, s.DeleteByValue(ctx, rt.Value))
	_, err = s.Find(ctx, rt.Value)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.DeleteByValue(ctx, rt.Value))
	assert.NoError(t, s.DeleteByValue(ctx, "never-issued"))
}
