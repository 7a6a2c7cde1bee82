package session_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/session"
	"github.com/stretchr/testify/require"
)

var testProps = session.Properties{
	ClientID:    "abc",
	Domain:      "x.example.com",
	RedirectURI: "https://app/cb",
	ReturnTo:    "https://app/",
}

type notification struct {
	authenticated bool
	audience      string
}

func newManager(t *testing.T, p *fakeProvider, opts ...session.Option) (*session.Manager, *fakeLocation, time.Time) {
	t.Helper()

	now := time.Unix(1700000000, 0).UTC()
	loc := &fakeLocation{fragment: "access_token=x"}
	base := []session.Option{
		session.WithLogger(slog.New(slog.DiscardHandler)),
		session.WithClock(func() time.Time { return now }),
		session.WithLocation(loc),
	}
	m, err := session.New(testProps, session.StaticProvider(p), append(base, opts...)...)
	require.NoError(t, err)
	return m, loc, now
}

func record(m *session.Manager) (*[]notification, func()) {
	var mu sync.Mutex
	got := &[]notification{}
	unsub := m.Subscribe(func(authenticated bool, audience string) {
		mu.Lock()
		defer mu.Unlock()
		*got = append(*got, notification{authenticated, audience})
	})
	return got, unsub
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires provider", func(t *testing.T) {
		t.Parallel()
		_, err := session.New(testProps, nil)
		require.ErrorIs(t, err, session.ErrNoProvider)
	})

	t.Run("rejects missing client id", func(t *testing.T) {
		t.Parallel()
		_, err := session.New(session.Properties{Domain: "x"}, session.StaticProvider(&fakeProvider{}))
		require.ErrorIs(t, err, session.ErrInvalidProperties)
	})

	t.Run("rejects missing domain", func(t *testing.T) {
		t.Parallel()
		_, err := session.New(session.Properties{ClientID: "abc"}, session.StaticProvider(&fakeProvider{}))
		require.ErrorIs(t, err, session.ErrInvalidProperties)
	})

	t.Run("factory receives implicit flow config", func(t *testing.T) {
		t.Parallel()
		var got session.ProviderConfig
		_, err := session.New(testProps, func(cfg session.ProviderConfig) (session.Provider, error) {
			got = cfg
			return &fakeProvider{}, nil
		})
		require.NoError(t, err)
		require.Equal(t, session.ResponseTypeImplicit, got.ResponseType)
		require.Equal(t, testProps, got.Properties)
	})

	t.Run("factory error is wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		_, err := session.New(testProps, func(session.ProviderConfig) (session.Provider, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)
		require.ErrorIs(t, err, session.ErrProviderFactory)
	})

	t.Run("properties returned verbatim", func(t *testing.T) {
		t.Parallel()
		m, _, _ := newManager(t, &fakeProvider{})
		require.Equal(t, testProps, m.Properties())
		require.False(t, m.IsAuthenticated(""))
	})
}

func TestCheckSession(t *testing.T) {
	t.Parallel()

	t.Run("login required resolves false", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{checkErr: &codeError{code: "login_required"}}
		m, _, _ := newManager(t, p)
		got, _ := record(m)

		ok, err := m.CheckSession(context.Background(), "", "")
		require.NoError(t, err)
		require.False(t, ok)
		require.False(t, m.IsAuthenticated(""))
		require.Empty(t, *got)
		require.Equal(t, []session.CheckSessionOptions{{Scope: "openid"}}, p.checkCalls)
	})

	t.Run("other provider errors pass through", func(t *testing.T) {
		t.Parallel()
		provErr := &codeError{code: "invalid_token"}
		m, _, _ := newManager(t, &fakeProvider{checkErr: provErr})

		ok, err := m.CheckSession(context.Background(), "", "")
		require.False(t, ok)
		require.Same(t, provErr, err)
	})

	t.Run("first session seeds default and audience", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{
			checkResult: &session.AuthResult{AccessToken: "tok1", IDToken: "id1", ExpiresIn: 3600},
			profile:     session.Profile{"sub": "user-1", "name": "Ada"},
		}
		m, loc, now := newManager(t, p)
		got, _ := record(m)

		ok, err := m.CheckSession(context.Background(), "urn:api", "openid profile")
		require.NoError(t, err)
		require.True(t, ok)

		def, ok := m.AccessToken("")
		require.True(t, ok)
		aud, ok := m.AccessToken("urn:api")
		require.True(t, ok)
		require.Equal(t, "tok1", def)
		require.Equal(t, "tok1", aud)

		entry, _ := m.Token("urn:api")
		require.Equal(t, now.Add(time.Hour), entry.ExpiresAt)

		profile, ok := m.Profile()
		require.True(t, ok)
		require.Equal(t, "user-1", profile.Subject())
		require.Equal(t, "id1", m.IDToken())
		require.Equal(t, []string{"tok1"}, p.userInfoTokens)
		require.Equal(t, 1, loc.cleared)
		require.Equal(t, []notification{{true, "urn:api"}}, *got)
		require.Equal(t, "openid profile", p.checkCalls[0].Scope)
	})

	t.Run("existing session skips profile fetch", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{
			hashResult: &session.AuthResult{AccessToken: "first", IDToken: "id0", ExpiresIn: 60},
			profile:    session.Profile{"sub": "user-1"},
		}
		m, _, now := newManager(t, p)

		_, err := m.ParseHash(context.Background())
		require.NoError(t, err)
		before, _ := m.Profile()

		p.checkResult = &session.AuthResult{AccessToken: "other", IDToken: "id9", ExpiresIn: 7200}
		p.profile = session.Profile{"sub": "someone-else"}
		got, _ := record(m)

		ok, err := m.CheckSession(context.Background(), "urn:other", "")
		require.NoError(t, err)
		require.True(t, ok)

		tok, _ := m.AccessToken("urn:other")
		require.Equal(t, "other", tok)
		entry, _ := m.Token("urn:other")
		require.Equal(t, now.Add(2*time.Hour), entry.ExpiresAt)

		def, _ := m.AccessToken("")
		require.Equal(t, "first", def)

		after, _ := m.Profile()
		require.Equal(t, before, after)
		require.Equal(t, "id0", m.IDToken())
		require.Equal(t, 1, p.userInfoCount())
		require.Equal(t, []notification{{true, "urn:other"}}, *got)
	})

	t.Run("existing session refreshes default slot for empty audience", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{
			hashResult: &session.AuthResult{AccessToken: "first", IDToken: "id0", ExpiresIn: 60},
			profile:    session.Profile{"sub": "user-1"},
		}
		m, _, now := newManager(t, p)

		_, err := m.ParseHash(context.Background())
		require.NoError(t, err)

		p.checkResult = &session.AuthResult{AccessToken: "second", ExpiresIn: 600}
		got, _ := record(m)

		ok, err := m.CheckSession(context.Background(), "", "")
		require.NoError(t, err)
		require.True(t, ok)

		entry, ok := m.Token("")
		require.True(t, ok)
		require.Equal(t, "second", entry.AccessToken)
		require.Equal(t, now.Add(10*time.Minute), entry.ExpiresAt)
		require.Empty(t, m.Audiences())
		require.Equal(t, 1, p.userInfoCount())
		require.Equal(t, []notification{{true, ""}}, *got)
	})

	t.Run("userinfo failure leaves state untouched", func(t *testing.T) {
		t.Parallel()
		infoErr := errors.New("userinfo down")
		p := &fakeProvider{
			checkResult: &session.AuthResult{AccessToken: "tok1", ExpiresIn: 3600},
			userInfoErr: infoErr,
		}
		m, _, _ := newManager(t, p)
		got, _ := record(m)

		ok, err := m.CheckSession(context.Background(), "urn:api", "")
		require.ErrorIs(t, err, infoErr)
		require.False(t, ok)
		require.False(t, m.IsAuthenticated(""))
		require.False(t, m.IsAuthenticated("urn:api"))
		require.Empty(t, *got)
	})

	t.Run("nil result is an error", func(t *testing.T) {
		t.Parallel()
		m, _, _ := newManager(t, &fakeProvider{})
		_, err := m.CheckSession(context.Background(), "", "")
		require.ErrorIs(t, err, session.ErrEmptyResult)
	})
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	t.Run("success loads profile into default slot", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{
			hashResult: &session.AuthResult{AccessToken: "tok", IDToken: "idt", ExpiresIn: 600},
			profile:    session.Profile{"sub": "u1", "email": "u1@example.com"},
		}
		m, loc, now := newManager(t, p)
		got, _ := record(m)

		profile, err := m.ParseHash(context.Background())
		require.NoError(t, err)
		require.Equal(t, "u1@example.com", profile.Email())

		require.True(t, m.IsAuthenticated(""))
		tok, _ := m.AccessToken("")
		require.Equal(t, "tok", tok)
		entry, _ := m.Token("")
		require.Equal(t, now.Add(10*time.Minute), entry.ExpiresAt)
		require.Empty(t, m.Audiences())
		require.Empty(t, loc.fragment)
		require.Equal(t, []notification{{true, ""}}, *got)
	})

	t.Run("provider error passes through and keeps fragment", func(t *testing.T) {
		t.Parallel()
		hashErr := &codeError{code: "invalid_hash"}
		m, loc, _ := newManager(t, &fakeProvider{hashErr: hashErr})

		_, err := m.ParseHash(context.Background())
		require.Same(t, hashErr, err)
		require.Equal(t, 0, loc.cleared)
		require.False(t, m.IsAuthenticated(""))
	})

	t.Run("returned profile is a copy", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{
			hashResult: &session.AuthResult{AccessToken: "tok"},
			profile:    session.Profile{"sub": "u1"},
		}
		m, _, _ := newManager(t, p)

		profile, err := m.ParseHash(context.Background())
		require.NoError(t, err)
		profile["sub"] = "mutated"

		cached, _ := m.Profile()
		require.Equal(t, "u1", cached.Subject())
	})
}

func TestSignInSignOut(t *testing.T) {
	t.Parallel()

	t.Run("sign in forwards configured audience", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		props := testProps
		props.Audience = "urn:api"
		props.Scope = "openid email"
		m, err := session.New(props, session.StaticProvider(p))
		require.NoError(t, err)

		require.NoError(t, m.SignIn(context.Background()))
		require.Equal(t, []session.AuthorizeOptions{{Audience: "urn:api", Scope: "openid email"}}, p.authorizeCalls)
	})

	t.Run("sign out clears every audience", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{
			checkResult: &session.AuthResult{AccessToken: "a", IDToken: "id", ExpiresIn: 60},
			profile:     session.Profile{"sub": "u"},
		}
		m, _, _ := newManager(t, p)
		ctx := context.Background()

		for _, aud := range []string{"urn:a", "urn:b"} {
			ok, err := m.CheckSession(ctx, aud, "")
			require.NoError(t, err)
			require.True(t, ok)
		}
		got, _ := record(m)

		require.NoError(t, m.SignOut(ctx, ""))

		for _, aud := range []string{"", "urn:a", "urn:b"} {
			require.False(t, m.IsAuthenticated(aud))
			_, ok := m.AccessToken(aud)
			require.False(t, ok)
		}
		_, ok := m.Profile()
		require.False(t, ok)
		require.Empty(t, m.IDToken())
		require.Equal(t, []notification{{false, ""}}, *got)
		require.Equal(t, []session.LogoutOptions{{ReturnTo: "https://app/", ClientID: "abc"}}, p.logoutCalls)
	})

	t.Run("explicit return target wins", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{}
		m, _, _ := newManager(t, p)

		require.NoError(t, m.SignOut(context.Background(), "https://app/bye"))
		require.Equal(t, "https://app/bye", p.logoutCalls[0].ReturnTo)
	})
}

func TestAudienceImpliesDefault(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{profile: session.Profile{"sub": "u"}}
	m, _, _ := newManager(t, p)
	ctx := context.Background()

	for i, aud := range []string{"urn:one", "urn:two", "urn:one"} {
		p.checkResult = &session.AuthResult{AccessToken: aud, ExpiresIn: int64(60 * (i + 1))}
		_, err := m.CheckSession(ctx, aud, "")
		require.NoError(t, err)

		require.True(t, m.IsAuthenticated(aud))
		require.True(t, m.IsAuthenticated(""))
		def, _ := m.AccessToken("")
		require.Equal(t, "urn:one", def)
	}
}

func TestExpiryPolicy(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	clock := &now
	p := &fakeProvider{
		hashResult: &session.AuthResult{AccessToken: "tok", ExpiresIn: 60},
		profile:    session.Profile{"sub": "u"},
	}

	presence, err := session.New(testProps, session.StaticProvider(p),
		session.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	strict, err := session.New(testProps, session.StaticProvider(p),
		session.WithClock(func() time.Time { return *clock }),
		session.WithExpiryPolicy(session.RequireUnexpired))
	require.NoError(t, err)

	for _, m := range []*session.Manager{presence, strict} {
		_, err := m.ParseHash(context.Background())
		require.NoError(t, err)
		require.True(t, m.IsAuthenticated(""))
	}

	*clock = now.Add(2 * time.Minute)

	require.True(t, presence.IsAuthenticated(""))
	require.False(t, strict.IsAuthenticated(""))

	tok, ok := strict.AccessToken("")
	require.True(t, ok)
	require.Equal(t, "tok", tok)
	require.Equal(t, "unexpired", session.RequireUnexpired.String())
}

func TestHugeExpiresInStaysInFuture(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		hashResult: &session.AuthResult{AccessToken: "tok", ExpiresIn: math.MaxInt64},
		profile:    session.Profile{"sub": "u"},
	}
	m, _, now := newManager(t, p, session.WithExpiryPolicy(session.RequireUnexpired))

	_, err := m.ParseHash(context.Background())
	require.NoError(t, err)

	entry, ok := m.Token("")
	require.True(t, ok)
	require.True(t, entry.ExpiresAt.After(now))
	require.Equal(t, now.Add(time.Duration(session.MaxExpiresIn)*time.Second), entry.ExpiresAt)
	require.True(t, m.IsAuthenticated(""))
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("unsubscribe removes only that listener", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{hashResult: &session.AuthResult{AccessToken: "t"}, profile: session.Profile{}}
		m, _, _ := newManager(t, p)

		a, unsubA := record(m)
		b, _ := record(m)
		require.Equal(t, 2, m.Listeners())

		unsubA()
		unsubA()
		require.Equal(t, 1, m.Listeners())

		_, err := m.ParseHash(context.Background())
		require.NoError(t, err)

		require.Empty(t, *a)
		require.Equal(t, []notification{{true, ""}}, *b)
	})

	t.Run("same tick subscriptions do not collide", func(t *testing.T) {
		t.Parallel()
		m, _, _ := newManager(t, &fakeProvider{})

		var calls atomic.Int32
		unsubs := make([]func(), 0, 100)
		for range 100 {
			unsubs = append(unsubs, m.Subscribe(func(bool, string) { calls.Add(1) }))
		}
		require.Equal(t, 100, m.Listeners())

		unsubs[50]()
		require.NoError(t, m.SignOut(context.Background(), ""))
		require.Equal(t, int32(99), calls.Load())
	})

	t.Run("panicking listener does not stop the others", func(t *testing.T) {
		t.Parallel()
		m, _, _ := newManager(t, &fakeProvider{})

		m.Subscribe(func(bool, string) { panic("boom") })
		got, _ := record(m)

		require.NotPanics(t, func() {
			require.NoError(t, m.SignOut(context.Background(), ""))
		})
		require.Equal(t, []notification{{false, ""}}, *got)
	})

	t.Run("listener may read manager state", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{hashResult: &session.AuthResult{AccessToken: "t"}, profile: session.Profile{"sub": "u"}}
		m, _, _ := newManager(t, p)

		var seen string
		m.Subscribe(func(bool, string) {
			seen, _ = m.AccessToken("")
		})

		_, err := m.ParseHash(context.Background())
		require.NoError(t, err)
		require.Equal(t, "t", seen)
	})

	t.Run("handles do not depend on the injected clock", func(t *testing.T) {
		t.Parallel()
		m, err := session.New(testProps, session.StaticProvider(&fakeProvider{}),
			session.WithLogger(slog.New(slog.DiscardHandler)),
			session.WithClock(func() time.Time { return time.Time{} }))
		require.NoError(t, err)

		var unsub func()
		require.NotPanics(t, func() { unsub = m.Subscribe(func(bool, string) {}) })
		require.Equal(t, 1, m.Listeners())
		unsub()
		require.Zero(t, m.Listeners())
	})

	t.Run("nil listener is ignored", func(t *testing.T) {
		t.Parallel()
		m, _, _ := newManager(t, &fakeProvider{})
		unsub := m.Subscribe(nil)
		unsub()
		require.Zero(t, m.Listeners())
	})
}

func TestFlowsAreSerialized(t *testing.T) {
	t.Parallel()

	var inFlight, maxInFlight atomic.Int32
	p := &fakeProvider{
		checkResult: &session.AuthResult{AccessToken: "t", ExpiresIn: 60},
		profile:     session.Profile{"sub": "u"},
	}
	p.onCheck = func() {
		n := inFlight.Add(1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	}
	m, _, _ := newManager(t, p)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			aud := ""
			if i%2 == 0 {
				aud = "urn:even"
			}
			if _, err := m.CheckSession(context.Background(), aud, ""); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInFlight.Load())
	require.Equal(t, 1, p.userInfoCount())
	require.True(t, m.IsAuthenticated("urn:even"))
}

func TestIsLoginRequired(t *testing.T) {
	t.Parallel()

	require.True(t, session.IsLoginRequired(&codeError{code: "login_required"}))
	require.True(t, session.IsLoginRequired(errors.Join(errors.New("ctx"), &codeError{code: "login_required"})))
	require.False(t, session.IsLoginRequired(&codeError{code: "consent_required"}))
	require.False(t, session.IsLoginRequired(errors.New("login_required")))
	require.False(t, session.IsLoginRequired(nil))
	require.Equal(t, "consent_required", session.ErrorCode(&codeError{code: "consent_required"}))
}
