package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// DefaultSessionTTL is how long a login session cookie stays valid.
const DefaultSessionTTL = 12 * time.Hour

// LoginService checks credentials and manages login sessions.
type LoginService struct {
	Store      store.Store
	Hasher     *cryptox.PasswordHasher
	SessionTTL time.Duration
	Now        func() time.Time

	// dummyHash is verified against when the user does not exist, so unknown
	// usernames cost the same as wrong passwords.
	dummyHash string
}

// NewLoginService returns a LoginService with defaults applied.
func NewLoginService(st store.Store, hasher *cryptox.PasswordHasher, ttl time.Duration) (*LoginService, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	dummy, err := hasher.Hash(cryptox.MustGenerateToken(cryptox.TokenSize128))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &LoginService{
		Store:      st,
		Hasher:     hasher,
		SessionTTL: ttl,
		Now:        time.Now,
		dummyHash:  dummy,
	}, nil
}

// CreateUser hashes password and stores a new user.
func (s *LoginService) CreateUser(ctx context.Context, username, password, name, email string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrInvalidRequest
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.Now().UTC(),
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate returns the user matching username and password or
// ErrInvalidCredentials.
func (s *LoginService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.Hasher.Verify(password, s.dummyHash)
			log.Info("login failed", "reason", "unknown_user")
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Info("login failed", "reason", "bad_password", "user_id", u.ID)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	return u, nil
}

// IssueSession starts a login session for userID and returns the cookie value.
func (s *LoginService) IssueSession(ctx context.Context, userID string) (string, domain.LoginSession, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.LoginSession{}, err
	}

	now := s.Now().UTC()
	sess := domain.LoginSession{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.SessionTTL),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return "", domain.LoginSession{}, err
	}

	slogx.FromContext(ctx).Info("login session issued", "session_id", sess.ID, "user_id", userID)
	return token, sess, nil
}

// ResolveSession returns the live session and user for a cookie value, or
// ErrLoginRequired.
func (s *LoginService) ResolveSession(ctx context.Context, token string) (domain.LoginSession, domain.User, error) {
	if token == "" {
		return domain.LoginSession{}, domain.User{}, ErrLoginRequired
	}

	sess, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token), s.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginSession{}, domain.User{}, ErrLoginRequired
		}
		return domain.LoginSession{}, domain.User{}, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginSession{}, domain.User{}, ErrLoginRequired
		}
		return domain.LoginSession{}, domain.User{}, err
	}

	return sess, u, nil
}

// RevokeSession ends the session behind a cookie value. Unknown values are
// not an error.
func (s *LoginService) RevokeSession(ctx context.Context, token string) error {
	sess, _, err := s.ResolveSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrLoginRequired) {
			return nil
		}
		return err
	}
	if err := s.Store.Sessions().DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	slogx.FromContext(ctx).Info("login session revoked", "session_id", sess.ID)
	return nil
}
