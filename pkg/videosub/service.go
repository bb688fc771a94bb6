package videosub

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the video submission library
type Service interface {
	// Upload session operations
	CreateUploadSession(ctx context.Context, req CreateUploadSessionRequest) (*UploadSession, error)
	GetUploadSession(ctx context.Context, id uuid.UUID) (*UploadSession, error)
	UploadChunk(ctx context.Context, req UploadChunkRequest) (int64, error)
	ConfirmUpload(ctx context.Context, sessionID uuid.UUID) (*VideoRecord, error)
	CleanupSession(ctx context.Context, sessionID uuid.UUID) error

	// Playback operations
	IssuePlaybackGrant(ctx context.Context, req IssueGrantRequest) (*SignedGrant, error)

	// Video record operations
	GetVideoRecord(ctx context.Context, submissionID uuid.UUID) (*VideoRecord, error)
	CopyVideoRecord(ctx context.Context, req CopyVideoRecordRequest) (*VideoRecord, error)
	DeleteVideo(ctx context.Context, submissionID uuid.UUID) error

	// ReapStale sweeps sessions that never reached a terminal state within
	// the retention window. Returns the number of sessions swept.
	ReapStale(ctx context.Context) (int, error)
}
