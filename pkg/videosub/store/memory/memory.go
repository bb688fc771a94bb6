// Package memory provides an in-memory VideoStore for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

type artifact struct {
	id           string
	expectedSize int64
	received     int64
	state        videosub.ArtifactState
	duration     int64
	message      string
	// pollsLeft counts status checks remaining before a processing
	// artifact flips to ready. Tests use it to exercise the polling
	// schedule.
	pollsLeft int
}

// Store is an in-memory implementation of the videosub.VideoStore interface
type Store struct {
	mu           sync.RWMutex
	artifacts    map[string]*artifact
	reservations map[string]string // idempotency key -> artifact id
}

// New creates a new in-memory video store
func New() *Store {
	return &Store{
		artifacts:    make(map[string]*artifact),
		reservations: make(map[string]string),
	}
}

// Reserve allocates an artifact id and a synthetic upload endpoint. The
// same idempotency key always returns the same reservation.
func (s *Store) Reserve(ctx context.Context, req videosub.ReserveRequest) (*videosub.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.reservations[req.IdempotencyKey]; ok {
		return &videosub.Reservation{
			ArtifactID:     id,
			UploadEndpoint: "mem://" + id,
		}, nil
	}

	id := uuid.New().String()
	s.artifacts[id] = &artifact{
		id:           id,
		expectedSize: req.SizeBytes,
		state:        videosub.ArtifactProcessing,
	}
	if req.IdempotencyKey != "" {
		s.reservations[req.IdempotencyKey] = id
	}
	return &videosub.Reservation{
		ArtifactID:     id,
		UploadEndpoint: "mem://" + id,
	}, nil
}

// UploadChunk consumes one chunk at the given offset and returns the new
// confirmed byte count. An artifact whose bytes are all received becomes
// ready.
func (s *Store) UploadChunk(ctx context.Context, params videosub.ChunkParams) (int64, error) {
	s.mu.Lock()
	a, ok := s.artifacts[params.ArtifactID]
	s.mu.Unlock()
	if !ok {
		return 0, videosub.ErrArtifactNotFound
	}

	s.mu.RLock()
	received := a.received
	s.mu.RUnlock()
	if params.Offset != received {
		return 0, fmt.Errorf("%w: got %d, have %d", videosub.ErrOffsetMismatch, params.Offset, received)
	}

	n, err := io.Copy(io.Discard, params.Body)
	if err != nil {
		return 0, &videosub.TransientError{Err: err}
	}
	if params.Length > 0 && n != params.Length {
		return 0, fmt.Errorf("%w: chunk declared %d bytes, carried %d", videosub.ErrInvalidInput, params.Length, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a.received += n
	if a.received >= a.expectedSize && a.pollsLeft == 0 && a.state == videosub.ArtifactProcessing {
		a.state = videosub.ArtifactReady
	}
	return a.received, nil
}

// Offset reports the confirmed byte count for an artifact.
func (s *Store) Offset(ctx context.Context, artifactID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[artifactID]
	if !ok {
		return 0, videosub.ErrArtifactNotFound
	}
	return a.received, nil
}

// Status reports the artifact's processing state. Each call on a
// processing artifact with polls remaining decrements the poll counter.
func (s *Store) Status(ctx context.Context, artifactID string) (*videosub.ArtifactStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[artifactID]
	if !ok {
		return &videosub.ArtifactStatus{State: videosub.ArtifactMissing}, nil
	}
	if a.pollsLeft > 0 {
		a.pollsLeft--
		if a.pollsLeft == 0 && a.received >= a.expectedSize {
			a.state = videosub.ArtifactReady
		}
	}
	return &videosub.ArtifactStatus{
		State:           a.state,
		SizeBytes:       a.received,
		DurationSeconds: a.duration,
		Message:         a.message,
	}, nil
}

// Delete removes the artifact. Deleting an absent artifact is success.
func (s *Store) Delete(ctx context.Context, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, artifactID)
	return nil
}

// Test hooks

// Exists reports whether the artifact is present.
func (s *Store) Exists(artifactID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.artifacts[artifactID]
	return ok
}

// SetProcessing holds the artifact in processing for the next n status
// checks, after which it becomes ready if fully received.
func (s *Store) SetProcessing(artifactID string, polls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.artifacts[artifactID]; ok {
		a.state = videosub.ArtifactProcessing
		a.pollsLeft = polls
	}
}

// FailArtifact marks the artifact failed with the given message.
func (s *Store) FailArtifact(artifactID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.artifacts[artifactID]; ok {
		a.state = videosub.ArtifactFailed
		a.message = message
	}
}

// SetDuration sets the duration reported once the artifact is ready.
func (s *Store) SetDuration(artifactID string, seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.artifacts[artifactID]; ok {
		a.duration = seconds
	}
}

// MarkReady forces an artifact directly to ready with the given size, for
// direct-transport flows where bytes bypass UploadChunk.
func (s *Store) MarkReady(artifactID string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.artifacts[artifactID]; ok {
		a.state = videosub.ArtifactReady
		a.received = size
	}
}
