package videosub

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrNotConfigured indicates playback signing key material is absent
	ErrNotConfigured = errors.New("playback signing is not configured")

	// ErrQuotaExceeded indicates the file size exceeds the configured ceiling
	ErrQuotaExceeded = errors.New("file size exceeds the configured ceiling")

	// ErrRateLimited indicates the caller exhausted its hourly request budget
	ErrRateLimited = errors.New("too many requests in the current hour")

	// ErrSessionNotFound indicates an upload session was not found
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrSessionExpired indicates an upload session passed its deadline
	ErrSessionExpired = errors.New("upload session has expired")

	// ErrOffsetMismatch indicates a chunk offset that is not exactly the
	// confirmed byte count (gaps and overlaps are both rejected)
	ErrOffsetMismatch = errors.New("chunk offset does not match confirmed bytes")

	// ErrRecordNotFound indicates a video record was not found
	ErrRecordNotFound = errors.New("video record not found")

	// ErrArtifactNotFound indicates the remote artifact does not exist
	ErrArtifactNotFound = errors.New("remote artifact not found")

	// ErrInvalidInput indicates a request that can never succeed as given
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSessionStatus indicates an operation illegal in the session's state
	ErrInvalidSessionStatus = errors.New("invalid upload session status")

	// ErrInvalidVideoStatus indicates an illegal video record transition
	ErrInvalidVideoStatus = errors.New("invalid video status transition")

	// ErrAccessDenied indicates the access table denied the request
	ErrAccessDenied = errors.New("access denied")
)

// ErrorKind is the coarse error taxonomy surfaced to callers.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration_error"
	KindValidation    ErrorKind = "validation_error"
	KindTransient     ErrorKind = "transient_error"
	KindAccessDenied  ErrorKind = "access_denied"
	KindNotFound      ErrorKind = "not_found"
)

// transienter is implemented by errors that are worth retrying.
type transienter interface {
	Transient() bool
}

// TransientError marks a failure (network, 5xx, 429, expired auth) that is
// expected to succeed on retry. Storage backends wrap such failures before
// returning them.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string   { return e.Err.Error() }
func (e *TransientError) Unwrap() error   { return e.Err }
func (e *TransientError) Transient() bool { return true }

// IsTransient reports whether err is marked retryable anywhere in its chain.
func IsTransient(err error) bool {
	var t transienter
	return errors.As(err, &t) && t.Transient()
}

// KindOf classifies any error returned by this package into the taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return KindConfiguration
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrArtifactNotFound):
		return KindNotFound
	case IsTransient(err):
		return KindTransient
	default:
		return KindValidation
	}
}

// Suggestions returns the caller-facing remediation hints for an error kind.
// Callers are expected to render these next to the error message.
func Suggestions(kind ErrorKind) []string {
	switch kind {
	case KindConfiguration:
		return []string{
			"check the playback signing key and key pair id configuration",
			"contact the site administrator",
		}
	case KindTransient:
		return []string{
			"retry the request",
			"check your network connection",
		}
	case KindValidation:
		return []string{
			"verify the file size, type and upload offset",
		}
	case KindAccessDenied:
		return []string{
			"verify you have permission to view this submission",
		}
	case KindNotFound:
		return []string{
			"the video may still be uploading, or was removed",
		}
	default:
		return nil
	}
}

// SessionError represents an error related to upload session operations
type SessionError struct {
	SessionID uuid.UUID
	Op        string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session operation %s failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// RecordError represents an error related to video record operations
type RecordError struct {
	SubmissionID uuid.UUID
	Op           string
	Err          error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for submission %s: %v", e.Op, e.SubmissionID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StoreError represents an error from a storage backend
type StoreError struct {
	Backend  string
	Artifact string
	Op       string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for artifact %s on backend %s: %v", e.Op, e.Artifact, e.Backend, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AccessDeniedError carries the decision that denied a playback grant.
type AccessDeniedError struct {
	Decision AccessDecision
}

func (e *AccessDeniedError) Error() string {
	if e.Decision.Reason == AccessReasonNotReady && e.Decision.Status != "" {
		return fmt.Sprintf("access denied: %s (status: %s)", e.Decision.Reason, e.Decision.Status)
	}
	return fmt.Sprintf("access denied: %s", e.Decision.Reason)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }
