// Package memory provides an in-memory Repository for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

// Repository implements videosub.Repository using in-memory storage
type Repository struct {
	mu            sync.RWMutex
	sessions      map[uuid.UUID]*videosub.UploadSession
	sessionsByKey map[string]uuid.UUID          // idempotency key -> session id
	records       map[uuid.UUID]*videosub.VideoRecord // keyed by submission id
	counters      map[string]int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		sessions:      make(map[uuid.UUID]*videosub.UploadSession),
		sessionsByKey: make(map[string]uuid.UUID),
		records:       make(map[uuid.UUID]*videosub.VideoRecord),
		counters:      make(map[string]int64),
	}
}

// Upload session operations

func (r *Repository) CreateSession(ctx context.Context, session *videosub.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to avoid external modifications
	sessionCopy := *session
	r.sessions[session.ID] = &sessionCopy
	if session.IdempotencyKey != "" {
		r.sessionsByKey[session.IdempotencyKey] = session.ID
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*videosub.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, videosub.ErrSessionNotFound
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

func (r *Repository) GetSessionByIdempotencyKey(ctx context.Context, key string) (*videosub.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.sessionsByKey[key]
	if !exists {
		return nil, videosub.ErrSessionNotFound
	}
	session, exists := r.sessions[id]
	if !exists {
		return nil, videosub.ErrSessionNotFound
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

func (r *Repository) UpdateSession(ctx context.Context, session *videosub.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; !exists {
		return videosub.ErrSessionNotFound
	}
	sessionCopy := *session
	r.sessions[session.ID] = &sessionCopy
	return nil
}

func (r *Repository) ListStaleSessions(ctx context.Context, before time.Time) ([]*videosub.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*videosub.UploadSession
	for _, session := range r.sessions {
		if session.Status != videosub.SessionStatusCreated && session.Status != videosub.SessionStatusUploading {
			continue
		}
		if session.CreatedAt.Before(before) {
			sessionCopy := *session
			stale = append(stale, &sessionCopy)
		}
	}
	return stale, nil
}

// Video record operations

func (r *Repository) UpsertVideoRecord(ctx context.Context, record *videosub.VideoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordCopy := *record
	if record.DeletedAt != nil {
		deletedAt := *record.DeletedAt
		recordCopy.DeletedAt = &deletedAt
	}
	r.records[record.SubmissionID] = &recordCopy
	return nil
}

func (r *Repository) GetVideoRecordBySubmission(ctx context.Context, submissionID uuid.UUID) (*videosub.VideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[submissionID]
	if !exists {
		return nil, videosub.ErrRecordNotFound
	}
	recordCopy := *record
	if record.DeletedAt != nil {
		deletedAt := *record.DeletedAt
		recordCopy.DeletedAt = &deletedAt
	}
	return &recordCopy, nil
}

// Rate counter operations

func (r *Repository) IncrementRateCounter(ctx context.Context, userID uuid.UUID, op videosub.RateOp, bucket time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s|%s|%d", userID, op, bucket.Unix())
	r.counters[key]++
	return r.counters[key], nil
}
