package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/platform/pkg/events"
	pkg_hash "github.com/Skotchmaster/platform/pkg/hash"
	"github.com/Skotchmaster/platform/pkg/logging"
	"github.com/Skotchmaster/platform/pkg/roles"
	"github.com/Skotchmaster/platform/pkg/tokens"
	"github.com/Skotchmaster/platform/services/auth/internal/models"
	"github.com/Skotchmaster/platform/services/auth/internal/repo"
)

type AuthService struct {
	Users        UserStore
	RefreshStore RefreshTokenStore
	Issuer       *tokens.Issuer
	Events       events.Publisher
	// Rotate replaces the refresh token on every refresh. When false the
	// presented token is returned again and keeps its original expiry.
	Rotate bool
	Now    func() time.Time
}

type LoginResult struct {
	UserID       uuid.UUID
	Roles        []roles.Role
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	// AccessTTL is the lifetime the access token was issued with.
	AccessTTL    time.Duration
	RefreshExp   time.Time
}

func (h *AuthService) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

func (h *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrValidation
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Roles:        string(roles.Default),
		Active:       true,
		CreatedAt:    h.now(),
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			l.Warn("register_error", "reason", "user already exist", "username", username)
			return nil, ErrConflict
		}
		l.Error("register_error", "error", err)
		return nil, err
	}
	return user, nil
}

func (h *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := h.Users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login failed", "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		l.Warn("login failed", "reason", "inactive user")
		return nil, ErrUserInactive
	}

	access, err := h.Issuer.Issue(user.ID.String(), user.RoleList())
	if err != nil {
		return nil, err
	}
	rt, err := h.RefreshStore.Create(ctx, user.ID)
	if err != nil {
		l.Error("cannot store refresh token", "error", err)
		return nil, err
	}

	h.publish(ctx, events.AuthEvent{Type: events.Login, UserID: user.ID.String()})
	return &LoginResult{
		UserID:       user.ID,
		Roles:        roles.Normalize(user.RoleList()),
		AccessToken:  access.Token,
		RefreshToken: rt.Value,
		AccessExp:    access.ExpiresAt,
		AccessTTL:    access.ExpiresAt.Sub(access.IssuedAt),
		RefreshExp:   rt.ExpiresAt,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The access
// token always carries the user's current roles. Expired or unknown tokens
// yield ErrInvalidRefreshToken; an expired row is removed on the way out.
func (h *AuthService) Refresh(ctx context.Context, value string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if value == "" {
		return nil, ErrInvalidRefreshToken
	}

	rt, err := h.RefreshStore.Find(ctx, value)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh failed", "reason", "unknown token")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if !rt.Live(h.now()) {
		if err := h.RefreshStore.DeleteByValue(ctx, value); err != nil {
			l.Error("cannot delete expired refresh token", "error", err)
		}
		l.Warn("refresh failed", "reason", "expired token", "user_id", rt.UserID)
		return nil, ErrInvalidRefreshToken
	}

	user, err := h.Users.ByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if err := h.RefreshStore.DeleteByValue(ctx, value); err != nil {
				l.Error("cannot delete orphaned refresh token", "error", err)
			}
			l.Warn("refresh failed", "reason", "owner missing", "user_id", rt.UserID)
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !user.Active {
		if err := h.RefreshStore.DeleteByValue(ctx, value); err != nil {
			l.Error("cannot revoke refresh token", "error", err)
		}
		h.publish(ctx, events.AuthEvent{Type: events.RefreshRevoked, UserID: user.ID.String(), Reason: "inactive"})
		l.Warn("refresh failed", "reason", "inactive user", "user_id", user.ID)
		return nil, ErrUserInactive
	}

	access, err := h.Issuer.Issue(user.ID.String(), user.RoleList())
	if err != nil {
		return nil, err
	}

	res := &LoginResult{
		UserID:       user.ID,
		Roles:        roles.Normalize(user.RoleList()),
		AccessToken:  access.Token,
		AccessExp:    access.ExpiresAt,
		AccessTTL:    access.ExpiresAt.Sub(access.IssuedAt),
		RefreshToken: value,
		RefreshExp:   rt.ExpiresAt,
	}
	if h.Rotate {
		next, err := h.RefreshStore.Create(ctx, user.ID)
		if err != nil {
			l.Error("cannot rotate refresh token", "error", err)
			return nil, err
		}
		res.RefreshToken, res.RefreshExp = next.Value, next.ExpiresAt
	}

	h.publish(ctx, events.AuthEvent{Type: events.Refresh, UserID: user.ID.String()})
	return res, nil
}

// LogOut deletes every refresh token of userID and reports how many went.
// Access tokens already handed out stay valid until they expire.
func (h *AuthService) LogOut(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := h.RefreshStore.DeleteAllForOwner(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("logout failed", "user_id", userID, "error", err)
		return 0, err
	}
	h.publish(ctx, events.AuthEvent{Type: events.Logout, UserID: userID.String(), Count: n})
	return n, nil
}

// SetUserActive enables or disables an account. Disabling also revokes the
// user's refresh tokens; outstanding access tokens run out on their own.
func (h *AuthService) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	l := logging.FromContext(ctx).With("svc", "auth.set_active", "user_id", id)

	if err := h.Users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if active {
		l.Info("user activated")
		return nil
	}

	n, err := h.RefreshStore.DeleteAllForOwner(ctx, id)
	if err != nil {
		l.Error("cannot revoke refresh tokens", "error", err)
		return err
	}
	h.publish(ctx, events.AuthEvent{Type: events.RefreshRevoked, UserID: id.String(), Count: n, Reason: "deactivated"})
	l.Info("user deactivated", "revoked", n)
	return nil
}

func (h *AuthService) publish(ctx context.Context, ev events.AuthEvent) {
	if h.Events == nil {
		return
	}
	ev.At = h.now()
	if err := h.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("auth event dropped", "type", ev.Type, "error", err)
	}
}
