package authsdk

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/aussiebroadwan/authsession/pkg/session"
)

// ParseFragment decodes an implicit-flow callback fragment (without the
// leading '#'). An error=... fragment is returned as an *OAuth2Error with that
// code; a fragment without an access token is an invalid_hash error.
func ParseFragment(fragment string) (*session.AuthResult, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" {
		return nil, invalidHash("callback fragment is empty")
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return nil, invalidHash("callback fragment is not form encoded")
	}

	if code := values.Get("error"); code != "" {
		return nil, NewOAuth2Error(0, code, values.Get("error_description"))
	}

	res := &session.AuthResult{
		AccessToken: values.Get("access_token"),
		IDToken:     values.Get("id_token"),
		TokenType:   values.Get("token_type"),
		Scope:       values.Get("scope"),
		State:       values.Get("state"),
	}
	if res.AccessToken == "" {
		return nil, invalidHash("callback fragment has no access_token")
	}

	if raw := values.Get("expires_in"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, invalidHash("expires_in is not a non-negative integer")
		}
		if n > session.MaxExpiresIn {
			return nil, invalidHash("expires_in is out of range")
		}
		res.ExpiresIn = n
	}

	return res, nil
}

// Callback is a session.Location backed by memory. It stands in for the
// browser address bar: whatever receives the provider redirect calls Set.
type Callback struct {
	mu       sync.RWMutex
	fragment string
}

func NewCallback() *Callback { return &Callback{} }

// Set stores the fragment of rawURL. A URL without one clears the callback.
func (c *Callback) Set(rawURL string) {
	_, frag, _ := strings.Cut(rawURL, "#")
	c.SetFragment(frag)
}

func (c *Callback) SetFragment(fragment string) {
	c.mu.Lock()
	c.fragment = strings.TrimPrefix(fragment, "#")
	c.mu.Unlock()
}

func (c *Callback) Fragment() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fragment
}

func (c *Callback) ClearFragment() { c.SetFragment("") }

var _ session.Location = (*Callback)(nil)
