package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "http://idp.test"
	testClient   = "spa"
	testRedirect = "http://127.0.0.1:8085/callback"
)

type fixture struct {
	store     *store.Memory
	login     *LoginService
	tokens    *TokenService
	authorize *AuthorizeService
	verifier  jwtx.Verifier
	user      domain.User
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	st := store.NewMemory()
	now := time.Unix(1700000000, 0).UTC()

	login, err := NewLoginService(st, cryptox.NewPasswordHasher("pepper"), time.Hour)
	require.NoError(t, err)
	login.Now = func() time.Time { return now }

	user, err := login.CreateUser(ctx, "alice", "correct horse", "Alice", "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, st.Clients().CreateClient(ctx, domain.Client{
		ID:           testClient,
		RedirectURIs: []string{testRedirect},
		Audiences:    []string{"urn:api"},
	}))

	key, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("k1", key)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	tokens := &TokenService{Signer: signer, Issuer: testIssuer, Now: func() time.Time { return now }}

	return &fixture{
		store:     st,
		login:     login,
		tokens:    tokens,
		authorize: &AuthorizeService{Store: st, Login: login, Tokens: tokens},
		verifier: jwtx.NewVerifierEdDSA(keys, jwtx.VerifyOptions{
			Issuer: testIssuer,
			Now:    func() time.Time { return now },
		}),
		user: user,
		now:  now,
	}
}

func (f *fixture) request() AuthorizeRequest {
	return AuthorizeRequest{
		ResponseType: "token id_token",
		ClientID:     testClient,
		RedirectURI:  testRedirect,
		Scope:        []string{"openid"},
		State:        "st",
		Nonce:        "n1",
	}
}

func TestLoginService(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	t.Run("authenticate", func(t *testing.T) {
		u, err := f.login.Authenticate(ctx, "ALICE", "correct horse")
		require.NoError(t, err)
		require.Equal(t, f.user.ID, u.ID)

		_, err = f.login.Authenticate(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = f.login.Authenticate(ctx, "bob", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("session lifecycle", func(t *testing.T) {
		token, sess, err := f.login.IssueSession(ctx, f.user.ID)
		require.NoError(t, err)
		require.NotEqual(t, token, sess.TokenHash)
		require.Equal(t, f.now.Add(time.Hour), sess.ExpiresAt)

		got, u, err := f.login.ResolveSession(ctx, token)
		require.NoError(t, err)
		require.Equal(t, sess.ID, got.ID)
		require.Equal(t, "alice", u.Username)

		require.NoError(t, f.login.RevokeSession(ctx, token))
		_, _, err = f.login.ResolveSession(ctx, token)
		require.ErrorIs(t, err, ErrLoginRequired)

		require.NoError(t, f.login.RevokeSession(ctx, "unknown"))
	})

	t.Run("empty token", func(t *testing.T) {
		_, _, err := f.login.ResolveSession(ctx, "")
		require.ErrorIs(t, err, ErrLoginRequired)
	})
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("password login issues tokens and a session", func(t *testing.T) {
		f := newFixture(t)
		req := f.request()
		req.Audience = "urn:api"
		req.Username = "alice"
		req.Password = "correct horse"

		resp, err := f.authorize.Authorize(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, resp.NewSession)
		require.Equal(t, "Bearer", resp.Fragment.Get("token_type"))
		require.Equal(t, "3600", resp.Fragment.Get("expires_in"))
		require.Equal(t, "st", resp.Fragment.Get("state"))
		require.Equal(t, "openid", resp.Fragment.Get("scope"))

		access, err := f.verifier.Verify(resp.Fragment.Get("access_token"))
		require.NoError(t, err)
		require.Equal(t, f.user.ID, access.Subject)
		require.Contains(t, []string(access.Audience), "urn:api")
		require.Contains(t, []string(access.Audience), f.tokens.UserInfoAudience())

		id, err := f.verifier.Verify(resp.Fragment.Get("id_token"))
		require.NoError(t, err)
		require.Equal(t, "n1", id.Nonce)
		require.Equal(t, jwtx.AccessTokenHash(resp.Fragment.Get("access_token")), id.ATHash)
		require.Equal(t, "alice@example.com", id.Email)

		loc, err := url.Parse(resp.Location())
		require.NoError(t, err)
		require.Equal(t, "/callback", loc.Path)
		require.NotEmpty(t, loc.Fragment)
	})

	t.Run("existing session", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.login.IssueSession(ctx, f.user.ID)
		require.NoError(t, err)

		req := f.request()
		req.Prompt = "none"
		req.SessionToken = token
		resp, err := f.authorize.Authorize(ctx, req)
		require.NoError(t, err)
		require.Nil(t, resp.NewSession)
		require.NotEmpty(t, resp.Fragment.Get("access_token"))
	})

	t.Run("prompt none without session", func(t *testing.T) {
		f := newFixture(t)
		req := f.request()
		req.Prompt = "none"
		req.Username = "alice"
		req.Password = "correct horse"

		_, err := f.authorize.Authorize(ctx, req)
		require.ErrorIs(t, err, ErrLoginRequired)

		var re *RedirectError
		require.True(t, errors.As(err, &re))
		require.Equal(t, testRedirect, re.RedirectURI)
		require.Equal(t, "st", re.State)
	})

	t.Run("prompt login ignores the cookie", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.login.IssueSession(ctx, f.user.ID)
		require.NoError(t, err)

		req := f.request()
		req.Prompt = "login"
		req.SessionToken = token
		_, err = f.authorize.Authorize(ctx, req)
		require.ErrorIs(t, err, ErrLoginRequired)
	})

	t.Run("id_token only", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.login.IssueSession(ctx, f.user.ID)
		require.NoError(t, err)

		req := f.request()
		req.ResponseType = "id_token"
		req.SessionToken = token
		resp, err := f.authorize.Authorize(ctx, req)
		require.NoError(t, err)
		require.False(t, resp.Fragment.Has("access_token"))
		require.True(t, resp.Fragment.Has("id_token"))
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		cases := []struct {
			name   string
			mutate func(*AuthorizeRequest)
			err    error
			redir  bool
		}{
			{"missing client", func(r *AuthorizeRequest) { r.ClientID = "" }, ErrInvalidRequest, false},
			{"unknown client", func(r *AuthorizeRequest) { r.ClientID = "nope" }, ErrInvalidClient, false},
			{"redirect mismatch", func(r *AuthorizeRequest) { r.RedirectURI = "http://evil/cb" }, ErrRedirectURIMismatch, false},
			{"code flow", func(r *AuthorizeRequest) { r.ResponseType = "code" }, ErrUnsupportedResponseType, true},
			{"missing nonce", func(r *AuthorizeRequest) { r.Nonce = "" }, ErrInvalidRequest, true},
			{"audience", func(r *AuthorizeRequest) { r.Audience = "urn:other" }, ErrInvalidAudience, true},
			{"no openid", func(r *AuthorizeRequest) { r.Scope = []string{"email"} }, ErrInvalidScope, true},
			{"bad password", func(r *AuthorizeRequest) { r.Username, r.Password = "alice", "nope" }, ErrInvalidCredentials, false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := f.request()
				tc.mutate(&req)
				_, err := f.authorize.Authorize(ctx, req)
				require.ErrorIs(t, err, tc.err)

				var re *RedirectError
				require.Equal(t, tc.redir, errors.As(err, &re))
			})
		}
	})
}

func TestParseResponseType(t *testing.T) {
	t.Parallel()

	for _, rt := range []string{"token", "id_token", "token id_token", "id_token token"} {
		_, _, err := ParseResponseType(rt)
		require.NoError(t, err, rt)
	}
	for _, rt := range []string{"", "code", "token code", "token id_token token"} {
		_, _, err := ParseResponseType(rt)
		require.ErrorIs(t, err, ErrUnsupportedResponseType, rt)
	}
}

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.login.IssueSession(ctx, f.user.ID)
	require.NoError(t, err)

	hk := NewHousekeepingService(f.store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Now = func() time.Time { return f.now }
	require.Equal(t, 0, hk.Cleanup(ctx))

	hk.Now = func() time.Time { return f.now.Add(2 * time.Hour) }
	require.Equal(t, 1, hk.Cleanup(ctx))

	hk.Start()
	hk.Start()
	hk.Stop()
	require.NotPanics(t, hk.Stop)

	t.Run("stop before start", func(t *testing.T) {
		hk := NewHousekeepingService(f.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
		require.NotPanics(t, hk.Stop)
		hk.Start()
		require.NotPanics(t, hk.Stop)
	})
}
