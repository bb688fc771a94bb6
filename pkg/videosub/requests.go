package videosub

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Request/Response DTOs

// CreateUploadSessionRequest contains parameters for requesting an upload slot.
type CreateUploadSessionRequest struct {
	OwnerID      uuid.UUID
	AssignmentID uuid.UUID
	SubmissionID uuid.UUID
	FileName     string
	MimeType     string
	FileSize     int64
}

// UploadChunkRequest contains parameters for accepting one chunk.
type UploadChunkRequest struct {
	SessionID uuid.UUID
	Offset    int64
	Length    int64
	Body      io.Reader
}

// IssueGrantRequest contains parameters for issuing a playback grant.
type IssueGrantRequest struct {
	SubmissionID uuid.UUID
	// ArtifactID is the artifact the caller claims the submission is bound
	// to. A mismatch with the stored record denies access.
	ArtifactID string
	Requester  Principal
	TTL        time.Duration
	// DispositionFilename requests a download disposition override; it is
	// signed into the grant, never appended afterwards.
	DispositionFilename string
}

// CopyVideoRecordRequest duplicates a record under a new identity when a
// submission is duplicated. Remote storage is shared, not copied.
type CopyVideoRecordRequest struct {
	FromSubmissionID uuid.UUID
	ToSubmissionID   uuid.UUID
	ToOwnerID        uuid.UUID
}
