package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
}

// AccessTokenHash computes the OIDC at_hash for a token signed with a
// SHA-256 family algorithm: the left half of the digest, base64url encoded.
func AccessTokenHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
