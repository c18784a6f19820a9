package authmw

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/platform/pkg/authclient"
)

type stubRefresher struct {
	pair  *authclient.TokenPair
	err   error
	calls []string
}

func (s *stubRefresher) RefreshTokens(_ context.Context, refreshToken string) (*authclient.TokenPair, error) {
	s.calls = append(s.calls, refreshToken)
	if s.err != nil {
		return nil, s.err
	}
	return s.pair, nil
}

func newRefreshEcho(f fixture, r Refresher) *echo.Echo {
	e := newTestEcho(NewGate(f.verifier, Options{}))
	e.Use(NewAutoRefresh(f.verifier, r).Middleware)
	return e
}

func withRefresh(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set(HeaderRefreshToken, tok) }
}

func TestAutoRefresh_ExpiredTokenIsReplaced(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fresh := f.token(t, fallbackUser, "admin")
	r := &stubRefresher{pair: &authclient.TokenPair{AccessToken: fresh, RefreshToken: "rt-2", ExpiresIn: 3600}}
	e := newRefreshEcho(f, r)

	rec := serve(e, get("/admin", withBearer(f.expiredToken(t, fallbackUser)), withRefresh("rt-1")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"rt-1"}, r.calls)
	assert.Equal(t, fresh, rec.Header().Get(HeaderAccessToken))
	assert.Equal(t, "rt-2", rec.Header().Get(HeaderRefreshToken))
	assert.Equal(t, "3600", rec.Header().Get(HeaderExpiresIn))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, fallbackUser, body["user_id"])
	assert.Equal(t, "verified", body["tier"])
}

func TestAutoRefresh_LeavesOtherRequestsAlone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r := &stubRefresher{pair: &authclient.TokenPair{AccessToken: f.token(t, fallbackUser)}}
	e := newRefreshEcho(f, r)

	// live token
	rec := serve(e, get("/private", withBearer(f.token(t, fallbackUser)), withRefresh("rt-1")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderAccessToken))

	// forged token is not an expiry
	rec = serve(e, get("/private", withBearer("garbage"), withRefresh("rt-1")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// expired token without a refresh token
	rec = serve(e, get("/private", withBearer(f.expiredToken(t, fallbackUser))))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, r.calls)
}

func TestAutoRefresh_FailedRefreshFallsToGate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r := &stubRefresher{err: &authclient.StatusError{Code: http.StatusUnauthorized, Message: "invalid refresh token"}}
	e := newRefreshEcho(f, r)
	expired := f.expiredToken(t, fallbackUser)

	rec := serve(e, get("/private", withBearer(expired), withRefresh("stale")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"invalid or expired token"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get(HeaderAccessToken))

	rec = serve(e, get("/public", withBearer(expired), withRefresh("stale")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"anonymous":true}`, rec.Body.String())

	assert.Equal(t, []string{"stale", "stale"}, r.calls)
}
