package tokens

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/platform/pkg/roles"
)

// Principal is the identity extracted from a verified token.
type Principal struct {
	UserID string
	Roles  []roles.Role
}

type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(key []byte, opts ...Option) (*Verifier, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: verification key is empty", ErrConfiguration)
	}
	o := buildOptions(opts)
	if o.leeway < 0 {
		return nil, fmt.Errorf("%w: negative clock skew", ErrConfiguration)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{SigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(o.leeway),
		jwt.WithTimeFunc(o.now),
	)
	return &Verifier{key: key, parser: parser}, nil
}

// Decode checks signature and expiry and returns the typed claims. Errors
// wrap exactly one of ErrInvalidSignature, ErrExpired or ErrMalformed.
func (v *Verifier) Decode(token string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := v.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid {
		return nil, ErrMalformed
	}
	return &claims, nil
}

// Verify returns the principal carried by token with normalized roles. A
// token without any role claim yields an empty role set.
func (v *Verifier) Verify(token string) (Principal, error) {
	claims, err := v.Decode(token)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID: claims.Subject,
		Roles:  roles.Normalize(claims.Roles),
	}, nil
}
