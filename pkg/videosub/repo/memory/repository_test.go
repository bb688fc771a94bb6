package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/repo/memory"
)

func newSession() *videosub.UploadSession {
	now := time.Now().UTC()
	return &videosub.UploadSession{
		ID:             uuid.New(),
		ArtifactID:     "artifact-1",
		OwnerID:        uuid.New(),
		AssignmentID:   uuid.New(),
		SubmissionID:   uuid.New(),
		FileName:       "clip.mp4",
		ExpectedSize:   1000,
		Transport:      videosub.TransportChunked,
		Status:         videosub.SessionStatusCreated,
		IdempotencyKey: "key-1",
		CreatedAt:      now,
		UpdatedAt:      now,
		Deadline:       now.Add(time.Hour),
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	session := newSession()
	require.NoError(t, repo.CreateSession(ctx, session))

	got, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.ArtifactID, got.ArtifactID)

	byKey, err := repo.GetSessionByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, byKey.ID)

	got.BytesConfirmed = 500
	got.Status = videosub.SessionStatusUploading
	require.NoError(t, repo.UpdateSession(ctx, got))

	updated, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.BytesConfirmed)
	assert.Equal(t, videosub.SessionStatusUploading, updated.Status)
}

func TestSessionNotFound(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	_, err := repo.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, videosub.ErrSessionNotFound)

	_, err = repo.GetSessionByIdempotencyKey(ctx, "nope")
	assert.ErrorIs(t, err, videosub.ErrSessionNotFound)

	err = repo.UpdateSession(ctx, newSession())
	assert.ErrorIs(t, err, videosub.ErrSessionNotFound)
}

func TestSessionCopiesAreDefensive(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	session := newSession()
	require.NoError(t, repo.CreateSession(ctx, session))

	// Mutating the caller's struct must not leak into the stored copy.
	session.Status = videosub.SessionStatusFailed
	got, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, videosub.SessionStatusCreated, got.Status)

	// Mutating a returned copy must not change stored state either.
	got.BytesConfirmed = 999
	again, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.BytesConfirmed)
}

func TestListStaleSessions(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	old := newSession()
	old.IdempotencyKey = "old"
	old.CreatedAt = now.Add(-2 * time.Hour)
	require.NoError(t, repo.CreateSession(ctx, old))

	fresh := newSession()
	fresh.IdempotencyKey = "fresh"
	require.NoError(t, repo.CreateSession(ctx, fresh))

	done := newSession()
	done.IdempotencyKey = "done"
	done.CreatedAt = now.Add(-2 * time.Hour)
	done.Status = videosub.SessionStatusCompleted
	require.NoError(t, repo.CreateSession(ctx, done))

	stale, err := repo.ListStaleSessions(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestUpsertVideoRecord(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	submissionID := uuid.New()

	record := &videosub.VideoRecord{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		OwnerID:      uuid.New(),
		Status:       videosub.VideoStatusUploading,
	}
	require.NoError(t, repo.UpsertVideoRecord(ctx, record))

	record.Status = videosub.VideoStatusReady
	record.FileSize = 1200
	require.NoError(t, repo.UpsertVideoRecord(ctx, record))

	got, err := repo.GetVideoRecordBySubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, videosub.VideoStatusReady, got.Status)
	assert.Equal(t, int64(1200), got.FileSize)

	_, err = repo.GetVideoRecordBySubmission(ctx, uuid.New())
	assert.ErrorIs(t, err, videosub.ErrRecordNotFound)
}

func TestIncrementRateCounter(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	userID := uuid.New()
	bucket := time.Now().UTC().Truncate(time.Hour)

	for want := int64(1); want <= 3; want++ {
		count, err := repo.IncrementRateCounter(ctx, userID, videosub.RateOpUploadSlot, bucket)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	// A different operation and a different bucket count separately.
	count, err := repo.IncrementRateCounter(ctx, userID, videosub.RateOpPlaybackGrant, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.IncrementRateCounter(ctx, userID, videosub.RateOpUploadSlot, bucket.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
