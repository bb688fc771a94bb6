package videosub

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// VideoStore is the interface a storage backend must implement. Two
// implementations exist: an S3 bucket fronted by a CDN, and a hosted video
// API speaking the TUS resumable protocol.
type VideoStore interface {
	// Reserve allocates a remote artifact identity and an upload endpoint.
	// Reserving twice with the same idempotency key returns the same
	// reservation.
	Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error)

	// UploadChunk sends one chunk at the given offset. The backend verifies
	// the offset matches its confirmed byte count and returns the new
	// confirmed count.
	UploadChunk(ctx context.Context, params ChunkParams) (int64, error)

	// Offset reports the backend's confirmed byte count for an artifact.
	Offset(ctx context.Context, artifactID string) (int64, error)

	// Status reports the processing state of a completed upload.
	Status(ctx context.Context, artifactID string) (*ArtifactStatus, error)

	// Delete removes the remote artifact. Deleting an artifact that does
	// not exist is success, not an error.
	Delete(ctx context.Context, artifactID string) error
}

// ReserveRequest contains parameters for reserving a remote upload slot.
type ReserveRequest struct {
	IdempotencyKey string
	FileName       string
	MimeType       string
	SizeBytes      int64
	Transport      TransportKind
}

// Reservation is the remote identity and endpoint for a reserved upload.
type Reservation struct {
	ArtifactID     string
	UploadEndpoint string
}

// ChunkParams contains parameters for uploading one chunk.
type ChunkParams struct {
	ArtifactID     string
	UploadEndpoint string
	Offset         int64
	Length         int64
	Body           io.Reader
}

// Repository defines the interface for session and record persistence.
type Repository interface {
	// Upload session operations
	CreateSession(ctx context.Context, session *UploadSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*UploadSession, error)
	GetSessionByIdempotencyKey(ctx context.Context, key string) (*UploadSession, error)
	UpdateSession(ctx context.Context, session *UploadSession) error
	// ListStaleSessions returns sessions still in created or uploading
	// whose creation time is before the cutoff.
	ListStaleSessions(ctx context.Context, before time.Time) ([]*UploadSession, error)

	// Video record operations. UpsertVideoRecord is keyed by submission id:
	// a second upsert for the same submission updates in place.
	UpsertVideoRecord(ctx context.Context, record *VideoRecord) error
	GetVideoRecordBySubmission(ctx context.Context, submissionID uuid.UUID) (*VideoRecord, error)

	// IncrementRateCounter atomically bumps the counter for
	// (user, operation, hour bucket) and returns the new value.
	IncrementRateCounter(ctx context.Context, userID uuid.UUID, op RateOp, bucket time.Time) (int64, error)
}

// GrantIssuer builds signed playback grants. Implementations live in the
// playback package (CDN canned policy and hosted bearer token).
type GrantIssuer interface {
	IssueGrant(ctx context.Context, req GrantRequest) (*SignedGrant, error)
}

// GrantRequest contains parameters for issuing a playback grant.
type GrantRequest struct {
	// Resource is the artifact identity or object key to grant access to.
	Resource string
	// ViewerID binds the grant to the requesting principal where the
	// scheme supports it (bearer tokens).
	ViewerID string
	TTL      time.Duration
	// DispositionFilename, when set, is included in the signed resource
	// string as a response-content-disposition override. It is signed in,
	// never appended after signing.
	DispositionFilename string
}

// Clock abstracts wall time and delay so confirmation polling, deadlines
// and retry backoff are testable without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock { return realClock{} }
