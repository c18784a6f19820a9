// Package authmw is the per-request authorization gate shared by every
// service: bearer token first, trusted identity headers as a configurable
// fallback, and echo middlewares for role and trust-tier checks.
package authmw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/platform/pkg/roles"
	"github.com/Skotchmaster/platform/pkg/tokens"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRoles  = "X-User-Roles"
)

var (
	ErrNoCredential            = errors.New("no credential presented")
	ErrInvalidFallbackIdentity = errors.New("fallback identity header is not a valid user id")
)

// Tier tells how an identity was established.
type Tier int

const (
	TierNone Tier = iota
	// TierFallback identities come from headers set by a trusted internal caller.
	TierFallback
	// TierVerified identities come from a verified signed token.
	TierVerified
)

func (t Tier) String() string {
	switch t {
	case TierVerified:
		return "verified"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

type Outcome int

const (
	Anonymous Outcome = iota
	Authenticated
	Rejected
)

type Identity struct {
	tokens.Principal
	Tier Tier
}

// Decision is the gate's verdict for one request. Reason is for logs only
// and must never reach the caller.
type Decision struct {
	Outcome  Outcome
	Identity Identity
	Reason   error
}

type TokenVerifier interface {
	Verify(token string) (tokens.Principal, error)
}

type Options struct {
	// FallbackEnabled honors HeaderUserID/HeaderRoles when no valid token is present.
	FallbackEnabled bool
	// FallbackOnInvalidToken lets a presented but invalid bearer token fall
	// through to the fallback headers. When false such a request is rejected.
	FallbackOnInvalidToken bool
}

type Gate struct {
	verifier TokenVerifier
	opts     Options
}

func NewGate(v TokenVerifier, opts Options) *Gate {
	return &Gate{verifier: v, opts: opts}
}

// Decide runs the gate state machine. It never mutates token state.
func (g *Gate) Decide(r *http.Request, requireAuth bool) Decision {
	raw, presented := bearerToken(r)

	var reason error
	if presented {
		p, err := g.verify(raw)
		if err == nil {
			p.Roles = roles.OrDefault(p.Roles)
			return Decision{Outcome: Authenticated, Identity: Identity{Principal: p, Tier: TierVerified}}
		}
		reason = err
	}

	if g.opts.FallbackEnabled && (reason == nil || g.opts.FallbackOnInvalidToken) {
		id, ok, err := fallbackIdentity(r)
		switch {
		case ok:
			return Decision{Outcome: Authenticated, Identity: id}
		case err != nil && reason == nil:
			reason = err
		}
	}

	if reason == nil {
		reason = ErrNoCredential
	}
	if requireAuth {
		return Decision{Outcome: Rejected, Reason: reason}
	}
	return Decision{Outcome: Anonymous, Reason: reason}
}

func (g *Gate) verify(raw string) (tokens.Principal, error) {
	if raw == "" {
		return tokens.Principal{}, tokens.ErrMalformed
	}
	return g.verifier.Verify(raw)
}

// bearerToken reports whether a Bearer credential was presented. Other
// Authorization schemes count as no credential.
func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, rest, _ := strings.Cut(h, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func fallbackIdentity(r *http.Request) (Identity, bool, error) {
	rawID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if rawID == "" {
		return Identity{}, false, nil
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Identity{}, false, ErrInvalidFallbackIdentity
	}
	return Identity{
		Principal: tokens.Principal{
			UserID: id.String(),
			Roles:  roles.OrDefault(roles.FromCSV(r.Header.Get(HeaderRoles))),
		},
		Tier: TierFallback,
	}, true, nil
}

// StripIdentityHeaders removes caller-supplied identity headers. Edge
// services call it before anything reads the request.
func StripIdentityHeaders(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderRoles)
}

// ForwardIdentity writes a verified identity as trusted headers for a
// downstream hop. Fallback identities are never re-forwarded.
func ForwardIdentity(h http.Header, id Identity) {
	StripIdentityHeaders(h)
	if id.Tier != TierVerified || id.UserID == "" {
		return
	}
	h.Set(HeaderUserID, id.UserID)
	h.Set(HeaderRoles, roles.CSV(id.Roles))
}
