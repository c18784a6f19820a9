package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrMalformed        = errors.New("malformed token")

	// ErrConfiguration is fatal at startup, never a per-request outcome.
	ErrConfiguration = errors.New("auth configuration error")
	ErrInvalidTTL    = errors.New("token ttl must be a positive whole number of seconds")
)

// UniformMessage is the only thing a caller ever learns about a rejected
// access token, whatever the underlying reason.
const UniformMessage = "invalid or expired token"

// IsVerificationError reports whether err is one of the access-token
// verification failures.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrExpired) || errors.Is(err, ErrMalformed)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
