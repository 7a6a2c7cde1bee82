package session

import (
	"log/slog"
	"time"
)

// ExpiryPolicy decides what IsAuthenticated means for a cached entry.
type ExpiryPolicy int

const (
	// PresenceOnly treats any cached entry as authenticated.
	PresenceOnly ExpiryPolicy = iota
	// RequireUnexpired additionally requires ExpiresAt to be in the future.
	RequireUnexpired
)

func (p ExpiryPolicy) String() string {
	switch p {
	case PresenceOnly:
		return "presence"
	case RequireUnexpired:
		return "unexpired"
	default:
		return "unknown"
	}
}

func (p ExpiryPolicy) allows(e TokenEntry, now time.Time) bool {
	if p == RequireUnexpired {
		return !e.Expired(now)
	}
	return true
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for flow and listener diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now, used for expiry math and listener handles.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLocation lets the Manager clear the fragment after a successful parse.
func WithLocation(loc Location) Option {
	return func(m *Manager) { m.location = loc }
}

// WithExpiryPolicy selects how IsAuthenticated treats expired entries.
func WithExpiryPolicy(p ExpiryPolicy) Option {
	return func(m *Manager) { m.policy = p }
}
