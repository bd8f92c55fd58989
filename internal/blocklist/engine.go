// Package blocklist implements the block/allow decision engine.
//
// The engine holds three domain sets: the compiled-in default set, the
// domains the user blocked on top of it, and the default entries the user
// overrode back to allowed. The two user sets are replaced wholesale
// whenever the preference collaborator pushes an update; readers always
// see either the old set or the new one, never a mix.
package blocklist

import (
	"strings"
	"sync/atomic"
)

// Provenance states which domain set produced a verdict.
type Provenance int

const (
	// Allowed means the hostname matched no set.
	Allowed Provenance = iota
	// Default means the hostname matched the built-in set and was not overridden.
	Default
	// UserBlocked means the user blocked the hostname explicitly.
	// A user block wins unconditionally, even over a user unblock.
	UserBlocked
	// UserUnblockedOverride means a built-in entry matched but the user
	// overrode it; the hostname is allowed while still present in the
	// default set.
	UserUnblockedOverride
)

// Blocked reports whether the verdict denies resolution.
func (p Provenance) Blocked() bool {
	return p == Default || p == UserBlocked
}

func (p Provenance) String() string {
	switch p {
	case Default:
		return "default"
	case UserBlocked:
		return "user-blocked"
	case UserUnblockedOverride:
		return "overridden"
	default:
		return "allowed"
	}
}

// domainSet supports exact and subdomain matching against normalized entries.
type domainSet map[string]struct{}

func newDomainSet(domains []string) domainSet {
	s := make(domainSet, len(domains))
	for _, d := range domains {
		if d = normalize(d); d != "" {
			s[d] = struct{}{}
		}
	}
	return s
}

// matches reports whether host equals an entry or is a subdomain of one.
// It walks the hostname's label boundaries, so "a.b.doubleclick.net"
// checks "a.b.doubleclick.net", "b.doubleclick.net", "doubleclick.net",
// "net" against the set.
func (s domainSet) matches(host string) bool {
	for h := host; h != ""; {
		if _, ok := s[h]; ok {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return false
}

func normalize(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// Engine answers "is this hostname blocked". Safe for concurrent use:
// classification reads run lock-free against atomic set snapshots.
type Engine struct {
	defaults      domainSet // process-lifetime constant
	userBlocked   atomic.Pointer[domainSet]
	userUnblocked atomic.Pointer[domainSet]
}

// New creates an engine over the given default domains.
func New(defaults []string) *Engine {
	e := &Engine{defaults: newDomainSet(defaults)}
	empty := newDomainSet(nil)
	e.userBlocked.Store(&empty)
	e.userUnblocked.Store(&empty)
	return e
}

// UpdateUserDomains replaces the user-blocked set atomically.
func (e *Engine) UpdateUserDomains(domains []string) {
	s := newDomainSet(domains)
	e.userBlocked.Store(&s)
}

// UpdateUserUnblockedDomains replaces the user-unblocked override set atomically.
func (e *Engine) UpdateUserUnblockedDomains(domains []string) {
	s := newDomainSet(domains)
	e.userUnblocked.Store(&s)
}

// Classify returns the provenance of the verdict for hostname.
// Precedence: a user block always wins; a default match may be overridden
// by a user unblock; anything else is allowed.
func (e *Engine) Classify(hostname string) Provenance {
	host := normalize(hostname)
	if (*e.userBlocked.Load()).matches(host) {
		return UserBlocked
	}
	if e.defaults.matches(host) {
		if (*e.userUnblocked.Load()).matches(host) {
			return UserUnblockedOverride
		}
		return Default
	}
	return Allowed
}

// IsBlocked reports whether hostname should receive a synthetic
// negative response instead of being forwarded upstream.
func (e *Engine) IsBlocked(hostname string) bool {
	return e.Classify(hostname).Blocked()
}

// IsBlockedByDefault reports membership in the built-in set alone,
// ignoring user overrides.
func (e *Engine) IsBlockedByDefault(hostname string) bool {
	return e.defaults.matches(normalize(hostname))
}

// IsBlockedByUser reports membership in the user-blocked set alone.
func (e *Engine) IsBlockedByUser(hostname string) bool {
	return (*e.userBlocked.Load()).matches(normalize(hostname))
}

// IsUnblockedByUser reports membership in the user-unblocked set alone.
func (e *Engine) IsUnblockedByUser(hostname string) bool {
	return (*e.userUnblocked.Load()).matches(normalize(hostname))
}
