// Package tokens issues and verifies the platform's signed access tokens.
// Every service links this package so that claim shape and signing
// algorithm cannot drift between issuers and verifiers.
package tokens

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RoleShape records which of the two historical role claims a token used.
type RoleShape int

const (
	RolesAbsent RoleShape = iota
	// RolesList is the current `roles` array claim.
	RolesList
	// RolesLegacy is the single-string `role` claim older issuers wrote.
	RolesLegacy
)

var (
	errMissingSubject = errors.New("token has no subject")
	errExpiryOrder    = errors.New("token expires before it was issued")
)

// AccessClaims is the typed claim set carried by an access token. Both role
// shapes are resolved into Roles once, at decode time.
type AccessClaims struct {
	jwt.RegisteredClaims
	Roles []string
	Shape RoleShape
}

type wireClaims struct {
	jwt.RegisteredClaims
	Roles json.RawMessage `json:"roles,omitempty"`
	Role  *string         `json:"role,omitempty"`
}

func (c AccessClaims) MarshalJSON() ([]byte, error) {
	switch c.Shape {
	case RolesLegacy:
		var role string
		if len(c.Roles) > 0 {
			role = c.Roles[0]
		}
		return json.Marshal(struct {
			jwt.RegisteredClaims
			Role string `json:"role"`
		}{c.RegisteredClaims, role})
	case RolesAbsent:
		return json.Marshal(c.RegisteredClaims)
	default:
		rs := c.Roles
		if rs == nil {
			rs = []string{}
		}
		return json.Marshal(struct {
			jwt.RegisteredClaims
			Roles []string `json:"roles"`
		}{c.RegisteredClaims, rs})
	}
}

// UnmarshalJSON accepts `roles` as an array (or a lone string) and falls back
// to the legacy `role` string. When both are present the list wins.
func (c *AccessClaims) UnmarshalJSON(b []byte) error {
	var w wireClaims
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	c.RegisteredClaims = w.RegisteredClaims
	c.Roles, c.Shape = []string{}, RolesAbsent

	switch {
	case len(w.Roles) > 0 && !bytes.Equal(w.Roles, []byte("null")):
		var list []string
		if err := json.Unmarshal(w.Roles, &list); err != nil {
			var one string
			if json.Unmarshal(w.Roles, &one) != nil {
				return fmt.Errorf("roles claim: %w", err)
			}
			list = []string{one}
		}
		c.Roles, c.Shape = list, RolesList
	case w.Role != nil:
		c.Roles, c.Shape = []string{*w.Role}, RolesLegacy
	}
	return nil
}

// Validate is called by the jwt parser after the registered time claims
// have been checked.
func (c AccessClaims) Validate() error {
	if c.Subject == "" {
		return errMissingSubject
	}
	if c.IssuedAt != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(c.IssuedAt.Time) {
		return errExpiryOrder
	}
	return nil
}
