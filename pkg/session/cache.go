package session

import (
	"math"
	"sort"
	"time"
)

// MaxExpiresIn is the largest expires_in, in seconds, that fits a
// time.Duration.
const MaxExpiresIn = math.MaxInt64 / int64(time.Second)

// TokenEntry is a cached access token. Entries are immutable once stored.
type TokenEntry struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the entry has reached its expiry at now.
func (e TokenEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TokenCache maps audiences to access tokens with a distinguished default
// slot addressed by the empty audience. It is not safe for concurrent use;
// Manager guards it with its state lock.
type TokenCache struct {
	def       *TokenEntry
	audiences map[string]TokenEntry
}

// NewTokenCache returns an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{audiences: make(map[string]TokenEntry)}
}

// Get returns the entry for audience, or the default entry for "".
func (c *TokenCache) Get(audience string) (TokenEntry, bool) {
	if audience == "" {
		if c.def == nil {
			return TokenEntry{}, false
		}
		return *c.def, true
	}
	e, ok := c.audiences[audience]
	return e, ok
}

// Put stores e. An empty audience replaces the default slot. A named
// audience replaces its own slot and seeds the default slot only when the
// default is still empty.
func (c *TokenCache) Put(audience string, e TokenEntry) {
	if audience == "" {
		c.def = &e
		return
	}
	c.audiences[audience] = e
	if c.def == nil {
		def := e
		c.def = &def
	}
}

// HasDefault reports whether the default slot is populated.
func (c *TokenCache) HasDefault() bool { return c.def != nil }

// Audiences returns the named audiences in sorted order.
func (c *TokenCache) Audiences() []string {
	out := make([]string, 0, len(c.audiences))
	for aud := range c.audiences {
		out = append(out, aud)
	}
	sort.Strings(out)
	return out
}

// Len counts populated slots, the default included.
func (c *TokenCache) Len() int {
	n := len(c.audiences)
	if c.def != nil {
		n++
	}
	return n
}

// Clear empties every slot.
func (c *TokenCache) Clear() {
	c.def = nil
	clear(c.audiences)
}
