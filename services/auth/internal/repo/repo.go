package repo

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgdb "github.com/Skotchmaster/platform/pkg/db"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the Postgres schema up to date.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return pkgdb.Migrate(ctx, db, migrations, "migrations")
}

const tokenBytes = 32

func newTokenValue() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
