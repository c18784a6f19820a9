package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/platform/services/auth/internal/models"
)

// RefreshTokenStore holds at most one live refresh token per owner. Find
// returns repo.ErrNotFound for unknown values and does not filter expired
// rows; callers decide what expiry means.
type RefreshTokenStore interface {
	Create(ctx context.Context, owner uuid.UUID) (*models.RefreshToken, error)
	Find(ctx context.Context, value string) (*models.RefreshToken, error)
	DeleteByValue(ctx context.Context, value string) error
	DeleteAllForOwner(ctx context.Context, owner uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
