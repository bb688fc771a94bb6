package videosub

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the domain type for upload session lifecycle states.
type SessionStatus string

// Session status constants (typed).
const (
	SessionStatusCreated   SessionStatus = "created"
	SessionStatusUploading SessionStatus = "uploading"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// VideoStatus is the domain type for video record lifecycle states.
type VideoStatus string

// Video status constants (typed).
const (
	VideoStatusPending   VideoStatus = "pending"
	VideoStatusUploading VideoStatus = "uploading"
	VideoStatusReady     VideoStatus = "ready"
	VideoStatusError     VideoStatus = "error"
	VideoStatusDeleted   VideoStatus = "deleted"
)

// TransportKind selects how bytes travel to the storage backend.
type TransportKind string

const (
	// TransportDirect is a single PUT of the whole file.
	TransportDirect TransportKind = "direct"
	// TransportChunked is the resumable, offset-tracked protocol.
	TransportChunked TransportKind = "chunked"
)

// UploadSession tracks a single in-flight upload. It is owned by the
// requesting principal until confirmed or reaped, and mutated only by
// UploadChunk (offset bookkeeping), ConfirmUpload and the reaper.
type UploadSession struct {
	ID             uuid.UUID     `json:"id"`
	ArtifactID     string        `json:"artifact_id"`
	OwnerID        uuid.UUID     `json:"owner_id"`
	AssignmentID   uuid.UUID     `json:"assignment_id"`
	SubmissionID   uuid.UUID     `json:"submission_id"`
	FileName       string        `json:"file_name,omitempty"`
	MimeType       string        `json:"mime_type,omitempty"`
	ExpectedSize   int64         `json:"expected_size"`
	Transport      TransportKind `json:"transport"`
	UploadEndpoint string        `json:"upload_endpoint"`
	// ChunkSize is the advisory chunk size for chunked transport. Clients
	// should send chunks of this size but may deviate; it is never enforced.
	ChunkSize      int64         `json:"chunk_size,omitempty"`
	BytesConfirmed int64         `json:"bytes_confirmed"`
	Status         SessionStatus `json:"status"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Deadline       time.Time     `json:"deadline"`
}

// VideoRecord is the persisted metadata for a stored video. One record per
// submission; writes go through ConfirmUpload, DeleteVideo and the reaper
// only, never through chunk handlers.
type VideoRecord struct {
	ID              uuid.UUID   `json:"id"`
	ArtifactID      string      `json:"artifact_id"`
	SubmissionID    uuid.UUID   `json:"submission_id"`
	OwnerID         uuid.UUID   `json:"owner_id"`
	Status          VideoStatus `json:"status"`
	FileSize        int64       `json:"file_size,omitempty"`
	DurationSeconds int64       `json:"duration_seconds,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	DeletedAt       *time.Time  `json:"deleted_at,omitempty"`
}

// SignedGrant is an ephemeral playback credential. It is never persisted;
// its only lifetime is the response that carries it.
type SignedGrant struct {
	URL       string    `json:"url"`
	Resource  string    `json:"resource"`
	ExpiresAt time.Time `json:"expires_at"`
	KeyID     string    `json:"key_id,omitempty"`
}

// AccessReason explains an access decision.
type AccessReason string

const (
	AccessReasonOwner            AccessReason = "owner"
	AccessReasonGrader           AccessReason = "grader"
	AccessReasonAdmin            AccessReason = "admin"
	AccessReasonNotFound         AccessReason = "not_found"
	AccessReasonIdentityMismatch AccessReason = "identity_mismatch"
	AccessReasonNotReady         AccessReason = "not_ready"
	AccessReasonForbidden        AccessReason = "forbidden"
)

// AccessDecision is the ephemeral result of evaluating the access table.
// It must be recomputed on every request; roles and record state can change
// between any two calls.
type AccessDecision struct {
	Allowed bool         `json:"allowed"`
	Reason  AccessReason `json:"reason"`
	// Status carries the record's current state when Reason is not_ready,
	// so the caller can render a useful message.
	Status VideoStatus `json:"status,omitempty"`
}

// Principal is the requester identity plus the capability facts the
// collaborating platform asserts about it. The service never looks these up
// itself.
type Principal struct {
	UserID    uuid.UUID `json:"user_id"`
	CanSubmit bool      `json:"can_submit"`
	CanGrade  bool      `json:"can_grade"`
	IsAdmin   bool      `json:"is_admin"`
}

// ArtifactState is the processing state reported by a storage backend.
type ArtifactState string

const (
	ArtifactProcessing ArtifactState = "processing"
	ArtifactReady      ArtifactState = "ready"
	ArtifactMissing    ArtifactState = "missing"
	ArtifactFailed     ArtifactState = "failed"
)

// ArtifactStatus is what a backend knows about a stored artifact.
type ArtifactStatus struct {
	State           ArtifactState
	SizeBytes       int64
	DurationSeconds int64
	Message         string
}

// RateOp names a rate-limited operation kind.
type RateOp string

const (
	RateOpUploadSlot    RateOp = "upload_slot"
	RateOpPlaybackGrant RateOp = "grant"
)
