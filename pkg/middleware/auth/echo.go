package authmw

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/platform/pkg/logging"
	"github.com/Skotchmaster/platform/pkg/roles"
	"github.com/Skotchmaster/platform/pkg/tokens"
)

const (
	CtxIdentity = "identity"
	CtxUserID   = "user_id"
	CtxRoles    = "roles"
)

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// FromEcho returns the identity bound by RequireAuth or Optional.
func FromEcho(c echo.Context) (Identity, bool) {
	id, ok := c.Get(CtxIdentity).(Identity)
	return id, ok
}

// RequireAuth rejects unauthenticated requests with a uniform 401.
func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return g.middleware(next, true)
}

// Optional binds an identity when one can be established and lets
// anonymous requests through.
func (g *Gate) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return g.middleware(next, false)
}

func (g *Gate) middleware(next echo.HandlerFunc, requireAuth bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("mw", "auth_gate")

		d := g.Decide(c.Request(), requireAuth)
		switch d.Outcome {
		case Rejected:
			l.Warn("auth_rejected", "status", http.StatusUnauthorized, "reason", d.Reason)
			return echo.NewHTTPError(http.StatusUnauthorized, tokens.UniformMessage)
		case Authenticated:
			bind(c, d.Identity)
			l.Debug("auth_ok", "user_id", d.Identity.UserID, "tier", d.Identity.Tier.String())
		default:
			l.Debug("auth_anonymous", "reason", d.Reason)
		}
		return next(c)
	}
}

func bind(c echo.Context, id Identity) {
	c.Set(CtxIdentity, id)
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxRoles, id.Roles)
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
}

// RequireRole admits principals holding at least one of the given roles.
// Must run after RequireAuth.
func RequireRole(required ...roles.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := FromEcho(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, tokens.UniformMessage)
			}
			if !roles.HasAny(id.Roles, required...) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

// RequireVerified keeps fallback identities away from sensitive routes.
func RequireVerified(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := FromEcho(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, tokens.UniformMessage)
		}
		if id.Tier != TierVerified {
			return echo.NewHTTPError(http.StatusForbidden, "verified credential required")
		}
		return next(c)
	}
}
