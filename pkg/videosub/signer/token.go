package signer

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PlaybackClaims is the claim set carried by hosted playback tokens. The
// resource claim binds the token to a single artifact.
type PlaybackClaims struct {
	jwt.RegisteredClaims
	Resource string `json:"resource"`
}

// TokenSigner issues RS256 bearer tokens scoped to one artifact and one
// viewer.
type TokenSigner struct {
	key   *rsa.PrivateKey
	keyID string
}

// NewTokenSigner parses a PEM-encoded RSA private key and returns a token
// signer. keyID is emitted as the kid header so the verifier can select
// the public key.
func NewTokenSigner(pemKey []byte, keyID string) (*TokenSigner, error) {
	key, err := parseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return &TokenSigner{key: key, keyID: keyID}, nil
}

// KeyID returns the kid emitted in token headers.
func (s *TokenSigner) KeyID() string { return s.keyID }

// Issue signs a token granting viewerID access to resource until now+ttl.
func (s *TokenSigner) Issue(resource, viewerID string, now time.Time, ttl time.Duration) (string, error) {
	claims := PlaybackClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Resource: resource,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignFailed, err)
	}
	return signed, nil
}

// Verify parses and validates a token against the signer's public key and
// returns its claims. Used by tests and local verification tooling.
func (s *TokenSigner) Verify(tokenString string) (*PlaybackClaims, error) {
	claims := &PlaybackClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return &s.key.PublicKey, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
