// Package roles canonicalizes role strings coming from tokens and trusted
// headers against the closed set of roles the platform knows about.
package roles

import (
	"slices"
	"strings"
)

type Role string

const (
	User      Role = "USER"
	Moderator Role = "MODERATOR"
	Admin     Role = "ADMIN"
)

// Default is the least-privileged role, applied when a principal carries none.
const Default = User

// prefix is the optional marker some services put in front of role names.
const prefix = "ROLE_"

// rank orders known roles from least to most privileged.
var rank = map[Role]int{
	User:      0,
	Moderator: 1,
	Admin:     2,
}

func Known(r Role) bool {
	_, ok := rank[r]
	return ok
}

// Normalize trims, strips the optional prefix, upper-cases and filters raw
// role strings. Unknown entries are dropped. The result is deduplicated and
// ordered from least to most privileged; it is empty, not nil-or-error, when
// nothing survives.
func Normalize(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, s := range raw {
		r, ok := Parse(s)
		if !ok || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Role) int { return rank[a] - rank[b] })
	return out
}

// Parse canonicalizes a single raw role.
func Parse(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		s = s[len(prefix):]
	}
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !Known(r) {
		return "", false
	}
	return r, true
}

// FromCSV normalizes a comma-separated list, as carried by the roles header.
func FromCSV(v string) []Role {
	if strings.TrimSpace(v) == "" {
		return []Role{}
	}
	return Normalize(strings.Split(v, ","))
}

// OrDefault returns rs, or the least-privileged role when rs is empty.
func OrDefault(rs []Role) []Role {
	if len(rs) == 0 {
		return []Role{Default}
	}
	return rs
}

func Strings(rs []Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func CSV(rs []Role) string {
	return strings.Join(Strings(rs), ",")
}

func Has(rs []Role, want Role) bool {
	return slices.Contains(rs, want)
}

// HasAny reports whether rs contains at least one of want.
func HasAny(rs []Role, want ...Role) bool {
	for _, w := range want {
		if Has(rs, w) {
			return true
		}
	}
	return false
}
