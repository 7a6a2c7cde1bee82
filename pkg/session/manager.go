package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/idx"
)

// Manager holds the authentication state of one client session.
type Manager struct {
	props    Properties
	provider Provider
	location Location
	logger   *slog.Logger
	now      func() time.Time
	policy   ExpiryPolicy

	// flowMu serializes ParseHash and CheckSession.
	flowMu sync.Mutex

	mu      sync.RWMutex
	tokens  *TokenCache
	idToken string
	profile Profile

	subs *registry
}

// New validates props, builds the provider through newProvider and returns a
// Manager with an empty session.
func New(props Properties, newProvider ProviderFunc, opts ...Option) (*Manager, error) {
	if newProvider == nil {
		return nil, ErrNoProvider
	}
	if err := props.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		props:  props,
		logger: slog.Default(),
		now:    time.Now,
		tokens: NewTokenCache(),
	}
	for _, opt := range opts {
		opt(m)
	}

	provider, err := newProvider(ProviderConfig{
		Properties:   props,
		ResponseType: ResponseTypeImplicit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFactory, err)
	}
	if provider == nil {
		return nil, ErrNoProvider
	}

	m.provider = provider
	m.subs = newRegistry(idx.NewGenerator(nil))
	m.logger = m.logger.With("component", "session", "client_id", props.ClientID)
	return m, nil
}

// Properties returns the connection parameters the Manager was built with.
func (m *Manager) Properties() Properties { return m.props }

// SignIn hands control to the provider's hosted login.
func (m *Manager) SignIn(ctx context.Context) error {
	m.logger.DebugContext(ctx, "sign in", "audience", m.props.Audience)
	return m.provider.Authorize(ctx, AuthorizeOptions{
		Audience: m.props.Audience,
		Scope:    m.props.Scope,
	})
}

// SignOut drops the local session, notifies listeners and then asks the
// provider to end its session. returnTo defaults to Properties.ReturnTo.
func (m *Manager) SignOut(ctx context.Context, returnTo string) error {
	m.clearSession(ctx)

	if returnTo == "" {
		returnTo = m.props.ReturnTo
	}
	return m.provider.Logout(ctx, LogoutOptions{
		ReturnTo: returnTo,
		ClientID: m.props.ClientID,
	})
}

// ParseHash consumes the authentication result in the current location
// fragment, clears the fragment and loads the user profile into the default
// slot. Provider errors are returned unchanged and leave the state intact.
func (m *Manager) ParseHash(ctx context.Context) (Profile, error) {
	m.flowMu.Lock()
	defer m.flowMu.Unlock()

	result, err := m.provider.ParseHash(ctx)
	if err != nil {
		m.logger.DebugContext(ctx, "parse hash failed", "error", err)
		return nil, err
	}
	if result == nil {
		return nil, ErrEmptyResult
	}

	m.clearFragment()
	return m.loadProfile(ctx, result, "")
}

// CheckSession silently re-authenticates for audience. It reports false with
// a nil error when the provider answers login_required. When a default token
// is already cached the profile is not re-fetched; the new token is cached
// for the audience and listeners are notified. scope defaults to DefaultScope.
func (m *Manager) CheckSession(ctx context.Context, audience, scope string) (bool, error) {
	if scope == "" {
		scope = DefaultScope
	}

	m.flowMu.Lock()
	defer m.flowMu.Unlock()

	result, err := m.provider.CheckSession(ctx, CheckSessionOptions{
		Audience: audience,
		Scope:    scope,
	})
	if err != nil {
		if IsLoginRequired(err) {
			m.logger.DebugContext(ctx, "check session: login required", "audience", audience)
			return false, nil
		}
		return false, err
	}
	if result == nil {
		return false, ErrEmptyResult
	}

	m.mu.Lock()
	if m.tokens.HasDefault() {
		m.tokens.Put(audience, m.entryFor(result))
		m.mu.Unlock()

		m.logger.DebugContext(ctx, "check session: token cached", "audience", audience)
		m.notify(ctx, true, audience)
		return true, nil
	}
	m.mu.Unlock()

	m.clearFragment()
	if _, err := m.loadProfile(ctx, result, audience); err != nil {
		return false, err
	}
	return true, nil
}

// loadProfile fetches the profile for result and commits the new session.
// Nothing is written unless the fetch succeeds.
func (m *Manager) loadProfile(ctx context.Context, result *AuthResult, audience string) (Profile, error) {
	profile, err := m.provider.UserInfo(ctx, result.AccessToken)
	if err != nil {
		m.logger.DebugContext(ctx, "userinfo failed", "audience", audience, "error", err)
		return nil, err
	}

	m.mu.Lock()
	m.tokens.Put(audience, m.entryFor(result))
	m.idToken = result.IDToken
	m.profile = profile.Clone()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session established", "audience", audience, "sub", profile.Subject())
	m.notify(ctx, true, audience)
	return profile.Clone(), nil
}

func (m *Manager) clearSession(ctx context.Context) {
	m.mu.Lock()
	m.tokens.Clear()
	m.idToken = ""
	m.profile = nil
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session cleared")
	m.notify(ctx, false, "")
}

func (m *Manager) clearFragment() {
	if m.location != nil {
		m.location.ClearFragment()
	}
}

// entryFor stamps r with its expiry. ExpiresIn is clamped to
// [0, MaxExpiresIn] so the duration cannot overflow.
func (m *Manager) entryFor(r *AuthResult) TokenEntry {
	secs := min(max(r.ExpiresIn, 0), MaxExpiresIn)
	return TokenEntry{
		AccessToken: r.AccessToken,
		ExpiresAt:   m.now().Add(time.Duration(secs) * time.Second),
	}
}

// Profile returns a copy of the cached profile.
func (m *Manager) Profile() (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.profile == nil {
		return nil, false
	}
	return m.profile.Clone(), true
}

// IDToken returns the identity token of the current session, or "".
func (m *Manager) IDToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idToken
}

// Token returns the cache entry for audience ("" for the default slot).
func (m *Manager) Token(audience string) (TokenEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.Get(audience)
}

// AccessToken returns the cached token for audience without checking expiry.
func (m *Manager) AccessToken(audience string) (string, bool) {
	e, ok := m.Token(audience)
	if !ok {
		return "", false
	}
	return e.AccessToken, true
}

// IsAuthenticated reports whether audience has a cached token acceptable to
// the manager's ExpiryPolicy.
func (m *Manager) IsAuthenticated(audience string) bool {
	e, ok := m.Token(audience)
	if !ok {
		return false
	}
	return m.policy.allows(e, m.now())
}

// Audiences lists the named audiences with cached tokens.
func (m *Manager) Audiences() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.Audiences()
}

// Subscribe registers fn for state changes and returns a function that
// removes it. The returned function is safe to call more than once.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	id := m.subs.add(fn)
	var once sync.Once
	return func() {
		once.Do(func() { m.subs.remove(id) })
	}
}

// Listeners counts registered listeners.
func (m *Manager) Listeners() int { return m.subs.len() }

func (m *Manager) notify(ctx context.Context, authenticated bool, audience string) {
	for _, s := range m.subs.snapshot() {
		m.invoke(ctx, s, authenticated, audience)
	}
}

func (m *Manager) invoke(ctx context.Context, s subscription, authenticated bool, audience string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "listener panicked",
				"listener", s.id.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.fn(authenticated, audience)
}
