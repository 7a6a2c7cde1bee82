package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes for tokens minted by the development provider.
const (
	DefaultAccessTokenTTL = time.Hour
	DefaultIDTokenTTL     = 10 * time.Minute
)

// Claims covers both access tokens and OIDC identity tokens. Fields that do
// not apply to a token type are left empty and omitted on the wire.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID at the provider.
	SID string `json:"sid,omitempty"`

	// Authorized party, the client the token was issued to.
	AZP string `json:"azp,omitempty"`

	// Space-delimited OAuth scope (access tokens).
	Scope string `json:"scope,omitempty"`

	// Nonce echoed from the authorize request (identity tokens).
	Nonce string `json:"nonce,omitempty"`

	// Hash of the access token issued alongside (identity tokens).
	ATHash string `json:"at_hash,omitempty"`

	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// Scopes splits Scope into its entries.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// AccessParams describe an access token to mint.
type AccessParams struct {
	Issuer   string
	Subject  string
	Audience []string
	ClientID string
	SID      string
	Scope    string
	TTL      time.Duration
	Now      time.Time
}

// NewAccessClaims builds minimally-correct access token claims.
func NewAccessClaims(p AccessParams) Claims {
	return Claims{
		RegisteredClaims: registered(p.Issuer, p.Subject, p.Audience, p.TTL, p.Now),
		SID:              p.SID,
		AZP:              p.ClientID,
		Scope:            p.Scope,
	}
}

// IDParams describe an identity token to mint.
type IDParams struct {
	Issuer      string
	Subject     string
	ClientID    string
	SID         string
	Nonce       string
	AccessToken string
	Name        string
	Email       string
	Username    string
	TTL         time.Duration
	Now         time.Time
}

// NewIDClaims builds identity token claims. The audience is the client.
func NewIDClaims(p IDParams) Claims {
	c := Claims{
		RegisteredClaims:  registered(p.Issuer, p.Subject, []string{p.ClientID}, p.TTL, p.Now),
		SID:               p.SID,
		AZP:               p.ClientID,
		Nonce:             p.Nonce,
		Name:              p.Name,
		Email:             p.Email,
		PreferredUsername: p.Username,
	}
	if p.AccessToken != "" {
		c.ATHash = AccessTokenHash(p.AccessToken)
	}
	return c
}

func registered(iss, sub string, aud []string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return jwt.RegisteredClaims{
		Issuer:    iss,
		Subject:   sub,
		Audience:  jwt.ClaimStrings(aud),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry checks exp and nbf against now, allowing leeway for skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateNonce checks the identity token nonce. An empty expected value
// skips the check.
func (c *Claims) ValidateNonce(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Nonce != expected {
		return ErrNonce
	}
	return nil
}
