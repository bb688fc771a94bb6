package playback_test

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/playback"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/signer"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newCDNIssuer(t *testing.T) (*playback.CDNIssuer, *rsa.PublicKey) {
	t.Helper()
	pemKey, pub, err := signer.GenerateTestKey(2048)
	require.NoError(t, err)
	issuer, err := playback.NewCDNIssuer(pemKey, "KEYPAIR123", "https://cdn.example.com",
		playback.WithCDNNow(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return issuer, pub
}

func TestCDNIssuerGrantShape(t *testing.T) {
	issuer, _ := newCDNIssuer(t)

	grant, err := issuer.IssueGrant(context.Background(), videosub.GrantRequest{
		Resource: "videos/abc",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	wantExpires := fixedNow.Add(time.Hour).Unix()
	assert.Equal(t, "https://cdn.example.com/videos/abc", grant.Resource)
	assert.Equal(t, time.Unix(wantExpires, 0).UTC(), grant.ExpiresAt)
	assert.Equal(t, "KEYPAIR123", grant.KeyID)

	assert.True(t, strings.HasPrefix(grant.URL, "https://cdn.example.com/videos/abc?Expires="))
	assert.Contains(t, grant.URL, fmt.Sprintf("Expires=%d", wantExpires))
	assert.Contains(t, grant.URL, "&Key-Pair-Id=KEYPAIR123")
}

func TestCDNSignatureVerifies(t *testing.T) {
	issuer, pub := newCDNIssuer(t)

	grant, err := issuer.IssueGrant(context.Background(), videosub.GrantRequest{
		Resource: "videos/abc",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	parsed, err := url.Parse(grant.URL)
	require.NoError(t, err)
	q := parsed.Query()

	expires, err := strconv.ParseInt(q.Get("Expires"), 10, 64)
	require.NoError(t, err)

	policy := signer.CannedPolicy(grant.Resource, expires)
	reversed := strings.NewReplacer("-", "+", "_", "=", "~", "/").Replace(q.Get("Signature"))
	sig, err := base64.StdEncoding.DecodeString(reversed)
	require.NoError(t, err)

	digest := sha1.Sum([]byte(policy))
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig))
}

func TestCDNDispositionIsSignedIn(t *testing.T) {
	issuer, pub := newCDNIssuer(t)

	grant, err := issuer.IssueGrant(context.Background(), videosub.GrantRequest{
		Resource:            "videos/abc",
		TTL:                 time.Hour,
		DispositionFilename: "final cut.mp4",
	})
	require.NoError(t, err)

	// The disposition appears before the grant parameters, inside the
	// signed resource.
	assert.Contains(t, grant.Resource, "response-content-disposition=")
	assert.Contains(t, grant.URL, grant.Resource+"&Expires=")

	// The policy that verifies is the one over the disposition-bearing
	// resource; a URL with the disposition stripped fails verification.
	parsed, err := url.Parse(grant.URL)
	require.NoError(t, err)
	q := parsed.Query()
	expires, err := strconv.ParseInt(q.Get("Expires"), 10, 64)
	require.NoError(t, err)
	reversed := strings.NewReplacer("-", "+", "_", "=", "~", "/").Replace(q.Get("Signature"))
	sig, err := base64.StdEncoding.DecodeString(reversed)
	require.NoError(t, err)

	good := sha1.Sum([]byte(signer.CannedPolicy(grant.Resource, expires)))
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, good[:], sig))

	stripped := sha1.Sum([]byte(signer.CannedPolicy("https://cdn.example.com/videos/abc", expires)))
	assert.Error(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, stripped[:], sig))
}

func TestCDNIssuerRequiresConfiguration(t *testing.T) {
	_, err := playback.NewCDNIssuer(nil, "KP", "https://cdn.example.com")
	assert.ErrorIs(t, err, videosub.ErrNotConfigured)

	pemKey, _, err := signer.GenerateTestKey(2048)
	require.NoError(t, err)
	_, err = playback.NewCDNIssuer(pemKey, "", "https://cdn.example.com")
	assert.ErrorIs(t, err, videosub.ErrNotConfigured)
	_, err = playback.NewCDNIssuer(pemKey, "KP", "")
	assert.ErrorIs(t, err, videosub.ErrNotConfigured)
}

func TestTokenIssuerGrant(t *testing.T) {
	pemKey, _, err := signer.GenerateTestKey(2048)
	require.NoError(t, err)
	// A real clock here: the token must still be valid when verified below.
	now := time.Now().UTC().Truncate(time.Second)
	issuer, err := playback.NewTokenIssuer(pemKey, "key-1", "https://video.example.com/play",
		playback.WithTokenNow(func() time.Time { return now }))
	require.NoError(t, err)

	grant, err := issuer.IssueGrant(context.Background(), videosub.GrantRequest{
		Resource: "artifact-42",
		ViewerID: "viewer-7",
		TTL:      30 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://video.example.com/play/artifact-42", grant.Resource)
	assert.True(t, strings.HasPrefix(grant.URL, grant.Resource+"?token="))
	assert.Equal(t, now.Add(30*time.Minute), grant.ExpiresAt)

	// The token itself must be parseable and bound to the right artifact.
	ts, err := signer.NewTokenSigner(pemKey, "key-1")
	require.NoError(t, err)
	token := strings.TrimPrefix(grant.URL, grant.Resource+"?token=")
	claims, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "artifact-42", claims.Resource)
	assert.Equal(t, "viewer-7", claims.Subject)
}
