// Package playback provides the grant issuers: CDN signed URLs backed by a
// canned policy, and bearer tokens for the hosted playback API.
package playback

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/signer"
)

// CDNIssuer issues signed playback URLs verified at the CDN edge.
type CDNIssuer struct {
	signer  *signer.PolicySigner
	baseURL string

	// now is swappable in tests.
	now func() time.Time
}

// CDNOption configures a CDNIssuer.
type CDNOption func(*CDNIssuer)

// WithCDNNow injects a time source for expiry computation.
func WithCDNNow(now func() time.Time) CDNOption {
	return func(i *CDNIssuer) { i.now = now }
}

// NewCDNIssuer builds an issuer from a PEM private key, key pair id and the
// CDN base URL. Missing key material returns ErrNotConfigured so callers
// can distinguish misconfiguration from signing failures.
func NewCDNIssuer(pemKey []byte, keyPairID, baseURL string, opts ...CDNOption) (*CDNIssuer, error) {
	if len(pemKey) == 0 || keyPairID == "" || baseURL == "" {
		return nil, videosub.ErrNotConfigured
	}
	ps, err := signer.NewPolicySigner(pemKey, keyPairID)
	if err != nil {
		return nil, err
	}
	return newCDNIssuer(ps, baseURL, opts...), nil
}

func newCDNIssuer(ps *signer.PolicySigner, baseURL string, opts ...CDNOption) *CDNIssuer {
	i := &CDNIssuer{
		signer:  ps,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueGrant signs the full resource URL, including any disposition
// override, and appends the grant parameters. The disposition is part of
// the signed resource string; appending it after signing would let a
// client strip or alter it.
func (i *CDNIssuer) IssueGrant(ctx context.Context, req videosub.GrantRequest) (*videosub.SignedGrant, error) {
	if req.Resource == "" {
		return nil, fmt.Errorf("%w: empty resource", videosub.ErrInvalidInput)
	}

	resource := i.baseURL + "/" + strings.TrimLeft(req.Resource, "/")
	if req.DispositionFilename != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", req.DispositionFilename)
		resource += "?response-content-disposition=" + url.QueryEscape(disposition)
	}

	expiresAt := i.now().UTC().Add(req.TTL).Unix()
	sig, err := i.signer.SignResource(resource, expiresAt)
	if err != nil {
		return nil, err
	}

	sep := "?"
	if strings.Contains(resource, "?") {
		sep = "&"
	}
	signed := fmt.Sprintf("%s%sExpires=%d&Signature=%s&Key-Pair-Id=%s",
		resource, sep, expiresAt, sig, i.signer.KeyPairID())

	return &videosub.SignedGrant{
		URL:       signed,
		Resource:  resource,
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
		KeyID:     i.signer.KeyPairID(),
	}, nil
}
