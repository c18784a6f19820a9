package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"  json:"username"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Roles        string    `gorm:"not null"              json:"roles"`
	Active       bool      `gorm:"not null"              json:"active"`
	CreatedAt    time.Time `gorm:"not null"              json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleList splits the stored comma-separated roles.
func (u *User) RoleList() []string {
	if u.Roles == "" {
		return nil
	}
	return strings.Split(u.Roles, ",")
}

// RefreshToken is one opaque refresh credential. Only the SHA-256 of the
// value is stored; Value is populated only on the token returned by Create.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"                      json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null"            json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"  json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null"                  json:"expires_at"`
	CreatedAt time.Time `gorm:"not null"                        json:"created_at"`

	Value string `gorm:"-" json:"-"`
}

// Live reports whether the token is still usable at now. The reaper uses the
// complementary predicate, so a live token is never swept.
func (t *RefreshToken) Live(now time.Time) bool {
	return t.ExpiresAt.After(now)
}
