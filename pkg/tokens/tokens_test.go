package tokens

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/platform/pkg/roles"
)

var (
	testKey  = []byte("test-jwt-secret")
	baseTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testKey, 15*time.Minute, WithClock(fixedClock(baseTime)))
	require.NoError(t, err)
	return iss
}

func newTestVerifier(t *testing.T, at time.Time, opts ...Option) *Verifier {
	t.Helper()
	v, err := NewVerifier(testKey, append([]Option{WithClock(fixedClock(at))}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestIssueVerify_AdminRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t).IssueWithTTL("U1", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, baseTime, tok.IssuedAt)
	assert.Equal(t, baseTime.Add(time.Hour), tok.ExpiresAt)

	p, err := newTestVerifier(t, baseTime).Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "U1", Roles: []roles.Role{roles.Admin}}, p)
}

func TestIssueVerify_RoundTripBeforeExpiry(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t)
	cases := []struct {
		userID string
		roles  []string
		ttl    time.Duration
	}{
		{"u-1", nil, time.Second},
		{"u-2", []string{"user"}, time.Minute},
		{"u-3", []string{"ROLE_MODERATOR", "user", "unknown"}, 15 * time.Minute},
		{"4f9e2b1c-8a77-4c55-9d0e-0a3c9b5e7f11", []string{"admin", "Admin"}, 24 * time.Hour},
	}

	for _, tc := range cases {
		tok, err := iss.IssueWithTTL(tc.userID, tc.roles, tc.ttl)
		require.NoError(t, err)

		for _, at := range []time.Time{baseTime, baseTime.Add(tc.ttl / 2), baseTime.Add(tc.ttl - time.Nanosecond)} {
			p, err := newTestVerifier(t, at).Verify(tok.Token)
			require.NoError(t, err, "user %s at %s", tc.userID, at)
			assert.Equal(t, tc.userID, p.UserID)
			assert.Equal(t, roles.Normalize(tc.roles), p.Roles)
		}
	}

	// A fractional ttl cannot be represented in exp without cutting the
	// token's life short, so it is refused instead.
	for _, ttl := range []time.Duration{1500 * time.Millisecond, time.Minute + time.Millisecond} {
		_, err := iss.IssueWithTTL("u-5", nil, ttl)
		assert.ErrorIs(t, err, ErrInvalidTTL, "ttl %s", ttl)
	}
}

func TestVerify_ExpiredAtAndAfterDeadline(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t).IssueWithTTL("U1", []string{"user"}, time.Hour)
	require.NoError(t, err)

	for _, at := range []time.Time{baseTime.Add(time.Hour), baseTime.Add(time.Hour + time.Second), baseTime.Add(48 * time.Hour)} {
		_, err := newTestVerifier(t, at).Verify(tok.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExpired)
		assert.True(t, IsVerificationError(err))
	}
}

func TestVerify_OneSecondTokenAfterTwoSeconds(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t).IssueWithTTL("U1", []string{"admin"}, time.Second)
	require.NoError(t, err)

	_, err = newTestVerifier(t, baseTime.Add(2*time.Second)).Verify(tok.Token)
	require.Error(t, err)
	assert.True(t, IsVerificationError(err))
}

func TestVerify_LeewayToleratesSkew(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t).IssueWithTTL("U1", nil, time.Minute)
	require.NoError(t, err)

	at := baseTime.Add(time.Minute + 5*time.Second)
	_, err = newTestVerifier(t, at, WithLeeway(10*time.Second)).Verify(tok.Token)
	require.NoError(t, err)

	_, err = newTestVerifier(t, at).Verify(tok.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_WrongKey(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t).Issue("U1", []string{"user"})
	require.NoError(t, err)

	v, err := NewVerifier([]byte("other-secret"), WithClock(fixedClock(baseTime)))
	require.NoError(t, err)

	_, err = v.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_RejectsOtherAlgorithmWithSameKey(t *testing.T) {
	t.Parallel()

	claims := jwt.MapClaims{"sub": "U1", "roles": []string{"admin"}, "exp": baseTime.Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testKey)
	require.NoError(t, err)

	_, err = newTestVerifier(t, baseTime).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, baseTime)
	for _, raw := range []string{"", "not-a-jwt", "not.a.jwt", "a.b"} {
		_, err := v.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerify_RequiresSubjectAndExpiry(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, baseTime)

	noSub, err := jwt.NewWithClaims(SigningMethod, jwt.MapClaims{"exp": baseTime.Add(time.Hour).Unix()}).SignedString(testKey)
	require.NoError(t, err)
	_, err = v.Verify(noSub)
	assert.ErrorIs(t, err, ErrMalformed)

	noExp, err := jwt.NewWithClaims(SigningMethod, jwt.MapClaims{"sub": "U1"}).SignedString(testKey)
	require.NoError(t, err)
	_, err = v.Verify(noExp)
	assert.ErrorIs(t, err, ErrMalformed)

	inverted, err := jwt.NewWithClaims(SigningMethod, jwt.MapClaims{
		"sub": "U1",
		"iat": baseTime.Add(2 * time.Hour).Unix(),
		"exp": baseTime.Add(time.Hour).Unix(),
	}).SignedString(testKey)
	require.NoError(t, err)
	_, err = v.Verify(inverted)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_LegacyRoleClaimMatchesList(t *testing.T) {
	t.Parallel()

	reg := jwt.RegisteredClaims{
		Subject:   "U1",
		IssuedAt:  jwt.NewNumericDate(baseTime),
		ExpiresAt: jwt.NewNumericDate(baseTime.Add(time.Hour)),
	}
	legacy, err := Encode(AccessClaims{RegisteredClaims: reg, Roles: []string{"admin"}, Shape: RolesLegacy}, testKey)
	require.NoError(t, err)
	list, err := Encode(AccessClaims{RegisteredClaims: reg, Roles: []string{"admin"}, Shape: RolesList}, testKey)
	require.NoError(t, err)

	v := newTestVerifier(t, baseTime)
	fromLegacy, err := v.Verify(legacy)
	require.NoError(t, err)
	fromList, err := v.Verify(list)
	require.NoError(t, err)
	assert.Equal(t, fromList, fromLegacy)

	claims, err := v.Decode(legacy)
	require.NoError(t, err)
	assert.Equal(t, RolesLegacy, claims.Shape)
}

func TestVerify_NoRoleClaimYieldsEmptySet(t *testing.T) {
	t.Parallel()

	signed, err := Encode(AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "U1", ExpiresAt: jwt.NewNumericDate(baseTime.Add(time.Hour))},
		Shape:            RolesAbsent,
	}, testKey)
	require.NoError(t, err)

	p, err := newTestVerifier(t, baseTime).Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "U1", p.UserID)
	assert.Empty(t, p.Roles)
}

func TestAccessClaims_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		roles []string
		shape RoleShape
	}{
		{name: "list", body: `{"sub":"u","roles":["admin","user"]}`, roles: []string{"admin", "user"}, shape: RolesList},
		{name: "legacy", body: `{"sub":"u","role":"admin"}`, roles: []string{"admin"}, shape: RolesLegacy},
		{name: "roles as string", body: `{"sub":"u","roles":"admin"}`, roles: []string{"admin"}, shape: RolesList},
		{name: "list wins over legacy", body: `{"sub":"u","roles":["user"],"role":"admin"}`, roles: []string{"user"}, shape: RolesList},
		{name: "null roles falls back", body: `{"sub":"u","roles":null,"role":"admin"}`, roles: []string{"admin"}, shape: RolesLegacy},
		{name: "absent", body: `{"sub":"u"}`, roles: []string{}, shape: RolesAbsent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var c AccessClaims
			require.NoError(t, json.Unmarshal([]byte(tt.body), &c))
			assert.Equal(t, "u", c.Subject)
			assert.Equal(t, tt.roles, c.Roles)
			assert.Equal(t, tt.shape, c.Shape)
		})
	}

	var c AccessClaims
	assert.Error(t, json.Unmarshal([]byte(`{"sub":"u","roles":42}`), &c))
}

func TestIssuer_Configuration(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(nil, time.Minute)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewIssuer(testKey, 0)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewIssuer(testKey, 90*time.Second+time.Millisecond)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewVerifier(nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = (&Issuer{}).Issue("U1", nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestIssuer_RejectsBadInput(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t)

	_, err := iss.IssueWithTTL("U1", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = iss.IssueWithTTL("U1", nil, -time.Minute)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = iss.Issue("", nil)
	assert.Error(t, err)
}

func TestIssuer_DefaultTTL(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t).Issue("U1", nil)
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(15*time.Minute), tok.ExpiresAt)

	claims, err := newTestVerifier(t, baseTime).Decode(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, RolesList, claims.Shape)
	assert.NotEmpty(t, claims.ID)
}
