package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// TokenService mints implicit-flow tokens.
type TokenService struct {
	Signer    jwtx.Signer
	Issuer    string
	AccessTTL time.Duration
	IDTTL     time.Duration
	Now       func() time.Time
}

// TokenRequest describes the tokens to mint for one authorize response.
type TokenRequest struct {
	User      domain.User
	ClientID  string
	SessionID string
	Audience  string
	Scopes    []string
	Nonce     string

	IncludeAccess bool
	IncludeID     bool
}

// TokenSet is what ends up in the redirect fragment.
type TokenSet struct {
	AccessToken string
	IDToken     string
	ExpiresIn   int64
	Scope       string
}

// Issue signs the requested tokens. The access token is always valid for the
// userinfo endpoint, and also for the requested audience if there is one.
func (s *TokenService) Issue(req TokenRequest) (TokenSet, error) {
	now := s.now()
	scope := strings.Join(req.Scopes, " ")

	var out TokenSet
	out.Scope = scope

	if req.IncludeAccess {
		aud := []string{s.UserInfoAudience()}
		if req.Audience != "" {
			aud = append([]string{req.Audience}, aud...)
		}
		ttl := s.accessTTL()
		access, err := s.Signer.Sign(jwtx.NewAccessClaims(jwtx.AccessParams{
			Issuer:   s.Issuer,
			Subject:  req.User.ID,
			Audience: aud,
			ClientID: req.ClientID,
			SID:      req.SessionID,
			Scope:    scope,
			TTL:      ttl,
			Now:      now,
		}))
		if err != nil {
			return TokenSet{}, fmt.Errorf("failed to sign access token: %w", err)
		}
		out.AccessToken = access
		out.ExpiresIn = int64(ttl / time.Second)
	}

	if req.IncludeID {
		ttl := s.IDTTL
		if ttl <= 0 {
			ttl = jwtx.DefaultIDTokenTTL
		}
		idt, err := s.Signer.Sign(jwtx.NewIDClaims(jwtx.IDParams{
			Issuer:      s.Issuer,
			Subject:     req.User.ID,
			ClientID:    req.ClientID,
			SID:         req.SessionID,
			Nonce:       req.Nonce,
			AccessToken: out.AccessToken,
			Name:        req.User.Name,
			Email:       req.User.Email,
			Username:    req.User.Username,
			TTL:         ttl,
			Now:         now,
		}))
		if err != nil {
			return TokenSet{}, fmt.Errorf("failed to sign id token: %w", err)
		}
		out.IDToken = idt
	}

	return out, nil
}

// UserInfoAudience is the audience every access token carries so it can be
// presented to the userinfo endpoint.
func (s *TokenService) UserInfoAudience() string {
	return strings.TrimSuffix(s.Issuer, "/") + "/userinfo"
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
