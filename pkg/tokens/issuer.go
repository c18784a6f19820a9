package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/platform/pkg/roles"
)

// SigningMethod is the single algorithm every issuer and verifier agrees on.
var SigningMethod = jwt.SigningMethodHS256

type Option func(*options)

type options struct {
	now    func() time.Time
	leeway time.Duration
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLeeway sets the tolerated clock skew for expiry checks.
func WithLeeway(d time.Duration) Option {
	return func(o *options) { o.leeway = d }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(key []byte, defaultTTL time.Duration, opts ...Option) (*Issuer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: signing key is empty", ErrConfiguration)
	}
	if !validTTL(defaultTTL) {
		return nil, fmt.Errorf("%w: default access ttl: %w", ErrConfiguration, ErrInvalidTTL)
	}
	o := buildOptions(opts)
	return &Issuer{key: key, ttl: defaultTTL, now: o.now}, nil
}

// exp is encoded in whole seconds, so a fractional ttl would make the token
// die before the ExpiresAt we report.
func validTTL(ttl time.Duration) bool {
	return ttl >= jwt.TimePrecision && ttl%jwt.TimePrecision == 0
}

// Issue signs an access token for userID with the default ttl.
func (i *Issuer) Issue(userID string, rawRoles []string) (*IssuedToken, error) {
	return i.IssueWithTTL(userID, rawRoles, i.ttl)
}

// IssueWithTTL signs an access token that expires ttl after now. Roles are
// written in canonical form under the list-shaped claim; an empty set is
// allowed and left for the verifying side to default.
func (i *Issuer) IssueWithTTL(userID string, rawRoles []string, ttl time.Duration) (*IssuedToken, error) {
	if i == nil || len(i.key) == 0 {
		return nil, fmt.Errorf("%w: signing key is empty", ErrConfiguration)
	}
	if userID == "" {
		return nil, fmt.Errorf("issue token: empty user id")
	}
	if !validTTL(ttl) {
		return nil, ErrInvalidTTL
	}

	iat := i.now().Truncate(jwt.TimePrecision)
	exp := iat.Add(ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Roles: roles.Strings(roles.Normalize(rawRoles)),
		Shape: RolesList,
	}

	signed, err := Encode(claims, i.key)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: signed, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Encode signs an arbitrary claim set. It is the write half of the codec and
// is also used to produce legacy-shaped tokens.
func Encode(claims AccessClaims, key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("%w: signing key is empty", ErrConfiguration)
	}
	signed, err := jwt.NewWithClaims(SigningMethod, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
