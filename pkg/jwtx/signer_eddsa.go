package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// EdDSASigner signs tokens with an Ed25519 key.
type EdDSASigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewSignerEdDSA wraps an in-memory Ed25519 key.
func NewSignerEdDSA(kid string, key ed25519.PrivateKey) (*EdDSASigner, error) {
	if kid == "" {
		return nil, errors.New("jwtx: signer kid is required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 private key size")
	}
	return &EdDSASigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

// NewSignerEdDSAFromPEM loads a PKCS8 PEM encoded Ed25519 key.
func NewSignerEdDSAFromPEM(kid string, pemKey []byte) (*EdDSASigner, error) {
	key, err := cryptox.ParseEd25519PEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signer key: %w", err)
	}
	return NewSignerEdDSA(kid, key)
}

func (s *EdDSASigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *EdDSASigner) KID() string { return s.kid }

// Sign encodes claims as a compact JWS with the kid header set.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the verification key for publishing in a JWKS.
func (s *EdDSASigner) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, "sig", s.Alg(), s.pub)
}
