package playback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/signer"
)

// TokenIssuer issues playback URLs carrying an RS256 bearer token, for the
// hosted video API.
type TokenIssuer struct {
	signer  *signer.TokenSigner
	baseURL string
	now     func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenNow injects a time source for expiry computation.
func WithTokenNow(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer builds an issuer from a PEM private key, key id and the
// playback base URL.
func NewTokenIssuer(pemKey []byte, keyID, baseURL string, opts ...TokenOption) (*TokenIssuer, error) {
	if len(pemKey) == 0 || baseURL == "" {
		return nil, videosub.ErrNotConfigured
	}
	ts, err := signer.NewTokenSigner(pemKey, keyID)
	if err != nil {
		return nil, err
	}
	i := &TokenIssuer{
		signer:  ts,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueGrant returns the playback URL with the bearer token in the query
// string. The token is bound to both the artifact and the viewer.
func (i *TokenIssuer) IssueGrant(ctx context.Context, req videosub.GrantRequest) (*videosub.SignedGrant, error) {
	if req.Resource == "" {
		return nil, fmt.Errorf("%w: empty resource", videosub.ErrInvalidInput)
	}

	now := i.now().UTC()
	token, err := i.signer.Issue(req.Resource, req.ViewerID, now, req.TTL)
	if err != nil {
		return nil, err
	}

	resource := i.baseURL + "/" + strings.TrimLeft(req.Resource, "/")
	return &videosub.SignedGrant{
		URL:       resource + "?token=" + token,
		Resource:  resource,
		ExpiresAt: now.Add(req.TTL),
		KeyID:     i.signer.KeyID(),
	}, nil
}
