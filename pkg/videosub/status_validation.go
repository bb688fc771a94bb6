package videosub

import (
	"fmt"
	"time"
)

// canAcceptChunk checks whether a session may accept more bytes.
// Returns nil if the chunk handler may proceed.
func canAcceptChunk(session *UploadSession, now time.Time) error {
	switch session.Status {
	case SessionStatusCreated, SessionStatusUploading:
		if now.After(session.Deadline) {
			return fmt.Errorf("%w: deadline was %s", ErrSessionExpired, session.Deadline.Format(time.RFC3339))
		}
		return nil
	case SessionStatusCompleted:
		return fmt.Errorf("%w: session already completed", ErrInvalidSessionStatus)
	case SessionStatusFailed:
		return fmt.Errorf("%w: session already failed", ErrInvalidSessionStatus)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidSessionStatus, session.Status)
	}
}

// canConfirmSession checks whether confirmation may run for a session. A
// chunked session must have every byte confirmed first, or a stray confirm
// from a retrying client would end a still-resumable upload. Direct sessions
// may confirm any time; the backend is authoritative for their bytes.
func canConfirmSession(session *UploadSession) error {
	switch session.Status {
	case SessionStatusCreated, SessionStatusUploading:
		if session.Transport == TransportChunked && session.BytesConfirmed < session.ExpectedSize {
			return fmt.Errorf("%w: confirmed %d of %d bytes", ErrInvalidSessionStatus,
				session.BytesConfirmed, session.ExpectedSize)
		}
		return nil
	case SessionStatusCompleted:
		return nil
	case SessionStatusFailed:
		return fmt.Errorf("%w: session failed and cannot be confirmed", ErrInvalidSessionStatus)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidSessionStatus, session.Status)
	}
}

// canTransitionVideo validates a video record status change. A record never
// moves backwards from ready to uploading, and deleted is terminal.
func canTransitionVideo(from, to VideoStatus) error {
	if from == to {
		return nil
	}
	switch from {
	case VideoStatusReady:
		if to == VideoStatusUploading || to == VideoStatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidVideoStatus, from, to)
		}
		return nil
	case VideoStatusDeleted:
		return fmt.Errorf("%w: %s is terminal", ErrInvalidVideoStatus, from)
	case VideoStatusPending, VideoStatusUploading, VideoStatusError:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidVideoStatus, from)
	}
}
