// Package signer implements the low-level grant signing primitives: a
// canned-policy URL signer compatible with CDN edge verification, and an
// RS256 bearer token signer for the hosted playback API.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyInvalid indicates the private key PEM could not be parsed.
	ErrKeyInvalid = errors.New("signing key is not a valid RSA private key")

	// ErrSignFailed indicates the RSA signing operation itself failed.
	ErrSignFailed = errors.New("policy signing failed")
)

// urlSafe remaps the three base64 characters that are unsafe in URLs. The
// remap is applied after standard encoding; it is not base64.URLEncoding.
var urlSafe = strings.NewReplacer("+", "-", "=", "_", "/", "~")

// PolicySigner signs canned access policies with RSA-SHA1, producing the
// signature format CDN edges verify.
type PolicySigner struct {
	key       *rsa.PrivateKey
	keyPairID string
}

// NewPolicySigner parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8)
// and returns a signer bound to the given key pair id.
func NewPolicySigner(pemKey []byte, keyPairID string) (*PolicySigner, error) {
	key, err := parseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return &PolicySigner{key: key, keyPairID: keyPairID}, nil
}

// KeyPairID returns the identifier the CDN uses to select the public key.
func (s *PolicySigner) KeyPairID() string { return s.keyPairID }

// CannedPolicy builds the policy document for a resource URL expiring at
// the given epoch second. The byte layout is fixed; the edge verifier
// hashes exactly these bytes.
func CannedPolicy(resource string, expiresAt int64) string {
	return fmt.Sprintf(`{"Statement":[{"Resource":"%s","Condition":{"DateLessThan":{"AWS:EpochTime":%d}}}]}`,
		resource, expiresAt)
}

// Sign signs the policy bytes and returns the URL-safe encoded signature.
// RSASSA-PKCS1-v1_5 over SHA-1 is deterministic: signing the same policy
// with the same key always yields the same bytes.
func (s *PolicySigner) Sign(policy string) (string, error) {
	digest := sha1.Sum([]byte(policy))
	sig, err := rsa.SignPKCS1v15(nil, s.key, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignFailed, err)
	}
	return urlSafe.Replace(base64.StdEncoding.EncodeToString(sig)), nil
}

// SignResource signs a canned policy for the resource and expiry in one
// step.
func (s *PolicySigner) SignResource(resource string, expiresAt int64) (string, error) {
	return s.Sign(CannedPolicy(resource, expiresAt))
}

func parseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKeyInvalid)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyInvalid, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not RSA", ErrKeyInvalid)
	}
	return key, nil
}

// GenerateTestKey creates a throwaway RSA key pair in PEM form. Intended
// for tests and local development only.
func GenerateTestKey(bits int) ([]byte, *rsa.PublicKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return pemKey, &key.PublicKey, nil
}
