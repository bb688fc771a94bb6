package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/store/memory"
)

func TestReserveIsIdempotent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	req := videosub.ReserveRequest{
		IdempotencyKey: "key-1",
		FileName:       "clip.mp4",
		SizeBytes:      1000,
		Transport:      videosub.TransportChunked,
	}

	first, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	second, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ArtifactID, second.ArtifactID)

	req.IdempotencyKey = "key-2"
	third, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ArtifactID, third.ArtifactID)
}

func TestChunkSequencing(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	res, err := store.Reserve(ctx, videosub.ReserveRequest{
		IdempotencyKey: "key-1",
		SizeBytes:      1000,
		Transport:      videosub.TransportChunked,
	})
	require.NoError(t, err)

	confirmed, err := store.UploadChunk(ctx, videosub.ChunkParams{
		ArtifactID: res.ArtifactID,
		Offset:     0,
		Length:     400,
		Body:       strings.NewReader(strings.Repeat("x", 400)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), confirmed)

	_, err = store.UploadChunk(ctx, videosub.ChunkParams{
		ArtifactID: res.ArtifactID,
		Offset:     500,
		Length:     100,
		Body:       strings.NewReader(strings.Repeat("x", 100)),
	})
	assert.ErrorIs(t, err, videosub.ErrOffsetMismatch)

	offset, err := store.Offset(ctx, res.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), offset)

	confirmed, err = store.UploadChunk(ctx, videosub.ChunkParams{
		ArtifactID: res.ArtifactID,
		Offset:     400,
		Length:     600,
		Body:       strings.NewReader(strings.Repeat("x", 600)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), confirmed)

	status, err := store.Status(ctx, res.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, videosub.ArtifactReady, status.State)
	assert.Equal(t, int64(1000), status.SizeBytes)
}

func TestDeleteToleratesMissing(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	res, err := store.Reserve(ctx, videosub.ReserveRequest{SizeBytes: 10})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, res.ArtifactID))
	require.NoError(t, store.Delete(ctx, res.ArtifactID))
	require.NoError(t, store.Delete(ctx, "never-existed"))

	status, err := store.Status(ctx, res.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, videosub.ArtifactMissing, status.State)
}
