package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkg_hash "github.com/Skotchmaster/platform/pkg/hash"
	"github.com/Skotchmaster/platform/services/auth/internal/models"
)

// GormRefreshStore keeps refresh tokens in the refresh_tokens table, one row
// per owner, keyed by the SHA-256 of the token value.
type GormRefreshStore struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time
}

func NewGormRefreshStore(db *gorm.DB, ttl time.Duration) *GormRefreshStore {
	return &GormRefreshStore{DB: db, TTL: ttl, Now: time.Now}
}

func (s *GormRefreshStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create issues a fresh token for owner. Any token the owner already had is
// replaced in the same statement, so the old value stops resolving at once.
func (s *GormRefreshStore) Create(ctx context.Context, owner uuid.UUID) (*models.RefreshToken, error) {
	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	now := s.now()
	rt := models.RefreshToken{
		TokenHash: pkg_hash.Sha256Hex(value),
		UserID:    owner,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	}

	err = s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_hash", "expires_at", "created_at"}),
		}).
		Create(&rt).Error
	if err != nil {
		return nil, err
	}

	rt.Value = value
	return &rt, nil
}

// Find returns the stored token for value, expired or not.
func (s *GormRefreshStore) Find(ctx context.Context, value string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.DB.WithContext(ctx).
		Where("token_hash = ?", pkg_hash.Sha256Hex(value)).
		First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *GormRefreshStore) DeleteByValue(ctx context.Context, value string) error {
	return s.DB.WithContext(ctx).
		Where("token_hash = ?", pkg_hash.Sha256Hex(value)).
		Delete(&models.RefreshToken{}).Error
}

func (s *GormRefreshStore) DeleteAllForOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("user_id = ?", owner).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes every token whose expiry is at or before before.
func (s *GormRefreshStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("expires_at <= ?", before.UTC()).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
