package s3_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	s3store "github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/store/s3"
)

func newTestStore(t *testing.T) *s3store.Store {
	t.Helper()
	store, err := s3store.New(s3store.Config{
		Region:          "us-east-1",
		Bucket:          "videos",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        "http://127.0.0.1:9000",
		UsePathStyle:    true,
		KeyPrefix:       "videos/",
	})
	require.NoError(t, err)
	return store
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := s3store.New(s3store.Config{})
	assert.Error(t, err)
}

// Presigning is pure client-side computation, so direct reservations can be
// exercised without a live bucket.
func TestReserveDirectIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := videosub.ReserveRequest{
		IdempotencyKey: "slot-1",
		FileName:       "recital.mp4",
		MimeType:       "video/mp4",
		SizeBytes:      1200,
		Transport:      videosub.TransportDirect,
	}

	first, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, first.ArtifactID)
	assert.Contains(t, first.UploadEndpoint, first.ArtifactID)

	// A retried reservation reuses the artifact; only the URL is refreshed.
	second, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ArtifactID, second.ArtifactID)

	// A different key allocates a different artifact.
	other := req
	other.IdempotencyKey = "slot-2"
	third, err := store.Reserve(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ArtifactID, third.ArtifactID)
}
