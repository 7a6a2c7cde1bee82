package domain

import "time"

// LoginSession is the provider-side session behind the session cookie. Only
// the fingerprint of the cookie value is kept.
type LoginSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s LoginSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
