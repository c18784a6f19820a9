package authmw

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/platform/pkg/authclient"
	"github.com/Skotchmaster/platform/pkg/logging"
	"github.com/Skotchmaster/platform/pkg/tokens"
)

const (
	// HeaderRefreshToken carries the client's refresh token on the way in and
	// the replacement on the way out.
	HeaderRefreshToken = "X-Refresh-Token"
	HeaderAccessToken  = "X-Access-Token"
	HeaderExpiresIn    = "X-Token-Expires-In"
)

type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*authclient.TokenPair, error)
}

// AutoRefresh trades an expired bearer token for a fresh pair when the
// client also sent its refresh token. Mount it ahead of the gate.
type AutoRefresh struct {
	verifier  TokenVerifier
	refresher Refresher
}

func NewAutoRefresh(v TokenVerifier, r Refresher) *AutoRefresh {
	return &AutoRefresh{verifier: v, refresher: r}
}

// Middleware never rejects on its own. If the refresh fails the request goes
// on with the expired token and the gate decides.
func (m *AutoRefresh) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		refresh := strings.TrimSpace(req.Header.Get(HeaderRefreshToken))
		req.Header.Del(HeaderRefreshToken)
		if refresh == "" {
			return next(c)
		}

		raw, ok := bearerToken(req)
		if !ok || raw == "" {
			return next(c)
		}
		if _, err := m.verifier.Verify(raw); !errors.Is(err, tokens.ErrExpired) {
			return next(c)
		}

		ctx := req.Context()
		l := logging.FromContext(ctx).With("mw", "auto_refresh")

		pair, err := m.refresher.RefreshTokens(ctx, refresh)
		if err != nil {
			l.Warn("auto_refresh_failed", "error", err)
			return next(c)
		}
		if _, err := m.verifier.Verify(pair.AccessToken); err != nil {
			l.Error("refreshed_token_invalid", "error", err)
			return next(c)
		}

		req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
		h := c.Response().Header()
		h.Set(HeaderAccessToken, pair.AccessToken)
		h.Set(HeaderRefreshToken, pair.RefreshToken)
		h.Set(HeaderExpiresIn, strconv.FormatInt(pair.ExpiresIn, 10))

		l.Info("access_token_refreshed")
		return next(c)
	}
}

var _ Refresher = (*authclient.Client)(nil)
