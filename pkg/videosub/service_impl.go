package videosub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/retry"
)

// Tunable defaults. All of them can be overridden through options.
const (
	DefaultDirectUploadThreshold = 200 << 20 // 200 MiB
	DefaultQuotaCeiling          = 2 << 30   // 2 GiB
	DefaultChunkSize             = 50 << 20  // 50 MiB
	DefaultSessionRetention      = 1 * time.Hour
	DefaultMaxUploadSlotsPerHour = 20
	DefaultMaxGrantsPerHour      = 120
	DefaultRecheckInterval       = 60 * time.Second
)

// defaultConfirmDelays is the confirmation polling schedule: five status
// checks roughly a minute apart in total.
var defaultConfirmDelays = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	15 * time.Second,
	15 * time.Second,
}

// service implements the Service interface
type service struct {
	repo   Repository
	store  VideoStore
	issuer GrantIssuer
	clock  Clock
	logger *slog.Logger

	retrier *retry.Controller

	directThreshold  int64
	quotaCeiling     int64
	chunkSize        int64
	sessionRetention time.Duration
	maxUploadSlots   int64
	maxGrants        int64
	grantTTL         time.Duration
	confirmDelays    []time.Duration
	recheckInterval  time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) { s.repo = repo }
}

// WithVideoStore sets the storage backend for the service
func WithVideoStore(store VideoStore) Option {
	return func(s *service) { s.store = store }
}

// WithGrantIssuer sets the playback grant issuer. Without one, playback
// grant requests fail with ErrNotConfigured.
func WithGrantIssuer(issuer GrantIssuer) Option {
	return func(s *service) { s.issuer = issuer }
}

// WithClock injects a clock; tests use this to avoid real delays.
func WithClock(clock Clock) Option {
	return func(s *service) { s.clock = clock }
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithDirectUploadThreshold sets the size below which direct transport is chosen.
func WithDirectUploadThreshold(bytes int64) Option {
	return func(s *service) { s.directThreshold = bytes }
}

// WithQuotaCeiling sets the maximum accepted file size.
func WithQuotaCeiling(bytes int64) Option {
	return func(s *service) { s.quotaCeiling = bytes }
}

// WithChunkSize sets the advisory chunk size reported to clients.
func WithChunkSize(bytes int64) Option {
	return func(s *service) { s.chunkSize = bytes }
}

// WithSessionRetention sets how long a session may stay non-terminal before
// the reaper sweeps it.
func WithSessionRetention(d time.Duration) Option {
	return func(s *service) { s.sessionRetention = d }
}

// WithRateLimits sets the hourly budgets for upload slots and playback grants.
func WithRateLimits(uploadSlots, grants int64) Option {
	return func(s *service) {
		s.maxUploadSlots = uploadSlots
		s.maxGrants = grants
	}
}

// WithGrantTTL sets the default playback grant lifetime.
func WithGrantTTL(d time.Duration) Option {
	return func(s *service) { s.grantTTL = d }
}

// WithConfirmDelays overrides the confirmation polling schedule.
func WithConfirmDelays(delays []time.Duration) Option {
	return func(s *service) { s.confirmDelays = delays }
}

// WithRetryController sets the controller wrapping remote reserve, status
// and delete calls.
func WithRetryController(c *retry.Controller) Option {
	return func(s *service) { s.retrier = c }
}

// WithRecheckInterval sets the minimum time between confirmation attempts
// for a record the polling budget left in uploading.
func WithRecheckInterval(d time.Duration) Option {
	return func(s *service) { s.recheckInterval = d }
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		directThreshold:  DefaultDirectUploadThreshold,
		quotaCeiling:     DefaultQuotaCeiling,
		chunkSize:        DefaultChunkSize,
		sessionRetention: DefaultSessionRetention,
		maxUploadSlots:   DefaultMaxUploadSlotsPerHour,
		maxGrants:        DefaultMaxGrantsPerHour,
		grantTTL:         1 * time.Hour,
		confirmDelays:    defaultConfirmDelays,
		recheckInterval:  DefaultRecheckInterval,
	}

	for _, option := range options {
		option(s)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("video store is required")
	}
	if s.clock == nil {
		s.clock = NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.retrier == nil {
		s.retrier = retry.New()
	}
	if s.retrier.Sleep == nil {
		s.retrier.Sleep = s.clock.Sleep
	}

	return s, nil
}

// Upload session operations

func (s *service) CreateUploadSession(ctx context.Context, req CreateUploadSessionRequest) (*UploadSession, error) {
	if req.FileSize <= 0 {
		return nil, fmt.Errorf("%w: file size must be positive", ErrInvalidInput)
	}
	if req.MimeType != "" && !strings.HasPrefix(req.MimeType, "video/") {
		return nil, fmt.Errorf("%w: unsupported mime type %q", ErrInvalidInput, req.MimeType)
	}
	if req.FileSize > s.quotaCeiling {
		return nil, fmt.Errorf("%w: %d bytes exceeds ceiling of %d", ErrQuotaExceeded, req.FileSize, s.quotaCeiling)
	}

	now := s.clock.Now().UTC()
	if err := s.checkRate(ctx, req.OwnerID, RateOpUploadSlot, s.maxUploadSlots, now); err != nil {
		return nil, err
	}

	key := idempotencyKey(req)
	if existing, err := s.repo.GetSessionByIdempotencyKey(ctx, key); err == nil {
		if existing.Status == SessionStatusCreated || existing.Status == SessionStatusUploading {
			return existing, nil
		}
	}

	transport := TransportChunked
	if req.FileSize < s.directThreshold {
		transport = TransportDirect
	}

	var reservation *Reservation
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var rerr error
		reservation, rerr = s.store.Reserve(ctx, ReserveRequest{
			IdempotencyKey: key,
			FileName:       req.FileName,
			MimeType:       req.MimeType,
			SizeBytes:      req.FileSize,
			Transport:      transport,
		})
		return rerr
	})
	if err != nil {
		return nil, &SessionError{Op: "reserve", Err: err}
	}

	session := &UploadSession{
		ID:             uuid.New(),
		ArtifactID:     reservation.ArtifactID,
		OwnerID:        req.OwnerID,
		AssignmentID:   req.AssignmentID,
		SubmissionID:   req.SubmissionID,
		FileName:       req.FileName,
		MimeType:       req.MimeType,
		ExpectedSize:   req.FileSize,
		Transport:      transport,
		UploadEndpoint: reservation.UploadEndpoint,
		ChunkSize:      s.chunkSize,
		Status:         SessionStatusCreated,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
		Deadline:       now.Add(s.sessionRetention),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, &SessionError{SessionID: session.ID, Op: "create", Err: err}
	}

	s.logger.Info("upload session created",
		"session_id", session.ID,
		"artifact_id", session.ArtifactID,
		"transport", session.Transport,
		"expected_size", session.ExpectedSize)

	return session, nil
}

func (s *service) GetUploadSession(ctx context.Context, id uuid.UUID) (*UploadSession, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *service) UploadChunk(ctx context.Context, req UploadChunkRequest) (int64, error) {
	session, err := s.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return 0, &SessionError{SessionID: req.SessionID, Op: "upload_chunk", Err: err}
	}

	if err := canAcceptChunk(session, s.clock.Now().UTC()); err != nil {
		return 0, &SessionError{SessionID: session.ID, Op: "upload_chunk", Err: err}
	}
	if req.Offset != session.BytesConfirmed {
		return 0, &SessionError{
			SessionID: session.ID,
			Op:        "upload_chunk",
			Err:       fmt.Errorf("%w: got offset %d, confirmed %d", ErrOffsetMismatch, req.Offset, session.BytesConfirmed),
		}
	}
	if req.Length <= 0 {
		return 0, &SessionError{SessionID: session.ID, Op: "upload_chunk",
			Err: fmt.Errorf("%w: chunk length must be positive", ErrInvalidInput)}
	}
	// The chunk size is advisory only; clients may send larger or smaller
	// chunks, and direct transport sends the whole file in one call.
	if req.Offset+req.Length > session.ExpectedSize {
		return 0, &SessionError{SessionID: session.ID, Op: "upload_chunk",
			Err: fmt.Errorf("%w: chunk would exceed expected size %d", ErrInvalidInput, session.ExpectedSize)}
	}

	// Chunk bodies are one-shot readers, so the transfer itself is not
	// retried here; transient failures surface to the client, which resumes
	// from the confirmed offset.
	confirmed, err := s.store.UploadChunk(ctx, ChunkParams{
		ArtifactID:     session.ArtifactID,
		UploadEndpoint: session.UploadEndpoint,
		Offset:         req.Offset,
		Length:         req.Length,
		Body:           req.Body,
	})
	if err != nil {
		return 0, &StoreError{Artifact: session.ArtifactID, Op: "upload_chunk", Err: err}
	}

	session.BytesConfirmed = confirmed
	session.Status = SessionStatusUploading
	if confirmed == session.ExpectedSize {
		session.Status = SessionStatusCompleted
	}
	session.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return 0, &SessionError{SessionID: session.ID, Op: "upload_chunk", Err: err}
	}

	return confirmed, nil
}

// ConfirmUpload is the only writer of VideoRecord status for completed
// uploads. It polls the backend on a fixed schedule and then records the
// outcome. Calling it twice for the same session is safe: the status check
// is idempotent and the record is upserted by submission id.
func (s *service) ConfirmUpload(ctx context.Context, sessionID uuid.UUID) (*VideoRecord, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, &SessionError{SessionID: sessionID, Op: "confirm", Err: err}
	}
	if err := canConfirmSession(session); err != nil {
		return nil, &SessionError{SessionID: sessionID, Op: "confirm", Err: err}
	}

	// Already reconciled: return the existing record without touching the
	// backend again. A record still in uploading is only re-checked after
	// the minimum re-check interval.
	if existing, err := s.repo.GetVideoRecordBySubmission(ctx, session.SubmissionID); err == nil {
		if existing.ArtifactID == session.ArtifactID {
			if existing.Status == VideoStatusReady {
				return existing, nil
			}
			if existing.Status == VideoStatusUploading &&
				s.clock.Now().UTC().Sub(existing.UpdatedAt) < s.recheckInterval {
				return existing, nil
			}
		}
	}

	var status *ArtifactStatus
	for i := 0; ; i++ {
		err := s.retrier.Do(ctx, func(ctx context.Context) error {
			var serr error
			status, serr = s.store.Status(ctx, session.ArtifactID)
			return serr
		})
		if err != nil {
			if errors.Is(err, ErrArtifactNotFound) {
				status = &ArtifactStatus{State: ArtifactMissing}
			} else {
				return nil, &StoreError{Artifact: session.ArtifactID, Op: "status", Err: err}
			}
		}
		if status.State != ArtifactProcessing || i >= len(s.confirmDelays) {
			break
		}
		if err := s.clock.Sleep(ctx, s.confirmDelays[i]); err != nil {
			return nil, err
		}
	}

	return s.reconcile(ctx, session, status)
}

// reconcile writes the terminal outcome of a confirmation poll into both
// the session and the video record.
func (s *service) reconcile(ctx context.Context, session *UploadSession, status *ArtifactStatus) (*VideoRecord, error) {
	now := s.clock.Now().UTC()

	var videoStatus VideoStatus
	var sessionStatus SessionStatus
	switch status.State {
	case ArtifactReady:
		videoStatus = VideoStatusReady
		sessionStatus = SessionStatusCompleted
	case ArtifactMissing:
		videoStatus = VideoStatusDeleted
		sessionStatus = SessionStatusFailed
	case ArtifactFailed:
		videoStatus = VideoStatusError
		sessionStatus = SessionStatusFailed
	default:
		// Still processing after the polling budget. Leave the record in
		// uploading; the caller may re-check later.
		videoStatus = VideoStatusUploading
		sessionStatus = SessionStatusCompleted
	}

	record, err := s.repo.GetVideoRecordBySubmission(ctx, session.SubmissionID)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, &RecordError{SubmissionID: session.SubmissionID, Op: "confirm", Err: err}
		}
		record = &VideoRecord{
			ID:           uuid.New(),
			SubmissionID: session.SubmissionID,
			OwnerID:      session.OwnerID,
			Status:       VideoStatusPending,
			CreatedAt:    now,
		}
	}

	if err := canTransitionVideo(record.Status, videoStatus); err != nil {
		// A ready record never regresses; report it as-is.
		if record.Status == VideoStatusReady {
			return record, nil
		}
		return nil, &RecordError{SubmissionID: session.SubmissionID, Op: "confirm", Err: err}
	}

	record.ArtifactID = session.ArtifactID
	record.Status = videoStatus
	record.UpdatedAt = now
	if status.State == ArtifactReady {
		record.FileSize = status.SizeBytes
		if record.FileSize == 0 {
			record.FileSize = session.ExpectedSize
		}
		record.DurationSeconds = status.DurationSeconds
		record.ErrorMessage = ""
	}
	if status.State == ArtifactFailed {
		record.ErrorMessage = status.Message
	}
	if videoStatus == VideoStatusDeleted {
		record.DeletedAt = &now
	}

	if err := s.repo.UpsertVideoRecord(ctx, record); err != nil {
		return nil, &RecordError{SubmissionID: session.SubmissionID, Op: "confirm", Err: err}
	}

	session.Status = sessionStatus
	session.UpdatedAt = now
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, &SessionError{SessionID: session.ID, Op: "confirm", Err: err}
	}

	s.logger.Info("upload reconciled",
		"session_id", session.ID,
		"submission_id", session.SubmissionID,
		"video_status", record.Status)

	return record, nil
}

// CleanupSession releases a session the client abandoned. It is idempotent
// and tolerates an already-cleaned remote artifact.
func (s *service) CleanupSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return &SessionError{SessionID: sessionID, Op: "cleanup", Err: err}
	}
	// Only created and uploading sessions hold releasable work. A completed
	// session owns a confirmed or confirmable artifact, and a cancel may
	// arrive after confirmation; a failed session is already released.
	if session.Status == SessionStatusCompleted || session.Status == SessionStatusFailed {
		return nil
	}

	if err := s.releaseSession(ctx, session, VideoStatusDeleted, "upload cancelled"); err != nil {
		return err
	}
	return nil
}

// ReapStale sweeps sessions that never reached a terminal state within the
// retention window. Safe to run concurrently with itself: remote deletes
// tolerate absence and record writes are idempotent.
func (s *service) ReapStale(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-s.sessionRetention)
	stale, err := s.repo.ListStaleSessions(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, session := range stale {
		if err := s.releaseSession(ctx, session, VideoStatusDeleted, "upload abandoned"); err != nil {
			s.logger.Error("failed to reap session", "session_id", session.ID, "err", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("reaped stale upload sessions", "count", swept)
	}
	return swept, nil
}

// releaseSession deletes the remote artifact and marks local state. Used by
// both cleanup and the reaper.
func (s *service) releaseSession(ctx context.Context, session *UploadSession, recordStatus VideoStatus, reason string) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, session.ArtifactID)
	})
	if err != nil && !errors.Is(err, ErrArtifactNotFound) {
		return &StoreError{Artifact: session.ArtifactID, Op: "delete", Err: err}
	}

	now := s.clock.Now().UTC()
	session.Status = SessionStatusFailed
	session.UpdatedAt = now
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return &SessionError{SessionID: session.ID, Op: "release", Err: err}
	}

	record, err := s.repo.GetVideoRecordBySubmission(ctx, session.SubmissionID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return &RecordError{SubmissionID: session.SubmissionID, Op: "release", Err: err}
	}
	if record.Status == VideoStatusReady || record.Status == VideoStatusDeleted {
		// A completed upload is not release material; a deleted record is done.
		return nil
	}
	record.Status = recordStatus
	record.ErrorMessage = reason
	record.UpdatedAt = now
	if recordStatus == VideoStatusDeleted {
		record.DeletedAt = &now
	}
	if err := s.repo.UpsertVideoRecord(ctx, record); err != nil {
		return &RecordError{SubmissionID: session.SubmissionID, Op: "release", Err: err}
	}
	return nil
}

// Playback operations

func (s *service) IssuePlaybackGrant(ctx context.Context, req IssueGrantRequest) (*SignedGrant, error) {
	now := s.clock.Now().UTC()
	if err := s.checkRate(ctx, req.Requester.UserID, RateOpPlaybackGrant, s.maxGrants, now); err != nil {
		return nil, err
	}

	record, err := s.repo.GetVideoRecordBySubmission(ctx, req.SubmissionID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, &RecordError{SubmissionID: req.SubmissionID, Op: "grant", Err: err}
	}

	decision := Evaluate(req.Requester, AccessClaim{ArtifactID: req.ArtifactID}, record)
	if !decision.Allowed {
		return nil, &AccessDeniedError{Decision: decision}
	}

	if s.issuer == nil {
		return nil, ErrNotConfigured
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.grantTTL
	}
	grant, err := s.issuer.IssueGrant(ctx, GrantRequest{
		Resource:            record.ArtifactID,
		ViewerID:            req.Requester.UserID.String(),
		TTL:                 ttl,
		DispositionFilename: req.DispositionFilename,
	})
	if err != nil {
		return nil, &RecordError{SubmissionID: req.SubmissionID, Op: "grant", Err: err}
	}
	return grant, nil
}

// Video record operations

func (s *service) GetVideoRecord(ctx context.Context, submissionID uuid.UUID) (*VideoRecord, error) {
	return s.repo.GetVideoRecordBySubmission(ctx, submissionID)
}

// CopyVideoRecord duplicates a record under a new identity when a submission
// is duplicated. The remote artifact is shared; only local metadata forks.
func (s *service) CopyVideoRecord(ctx context.Context, req CopyVideoRecordRequest) (*VideoRecord, error) {
	src, err := s.repo.GetVideoRecordBySubmission(ctx, req.FromSubmissionID)
	if err != nil {
		return nil, &RecordError{SubmissionID: req.FromSubmissionID, Op: "copy", Err: err}
	}
	if src.Status == VideoStatusDeleted {
		return nil, &RecordError{SubmissionID: req.FromSubmissionID, Op: "copy",
			Err: fmt.Errorf("%w: source record is deleted", ErrRecordNotFound)}
	}

	now := s.clock.Now().UTC()
	dup := *src
	dup.ID = uuid.New()
	dup.SubmissionID = req.ToSubmissionID
	if req.ToOwnerID != uuid.Nil {
		dup.OwnerID = req.ToOwnerID
	}
	dup.CreatedAt = now
	dup.UpdatedAt = now

	if err := s.repo.UpsertVideoRecord(ctx, &dup); err != nil {
		return nil, &RecordError{SubmissionID: req.ToSubmissionID, Op: "copy", Err: err}
	}
	return &dup, nil
}

// DeleteVideo hard-deletes the remote artifact and soft-marks the local
// record deleted. A missing remote artifact is already-cleaned, not an error.
func (s *service) DeleteVideo(ctx context.Context, submissionID uuid.UUID) error {
	record, err := s.repo.GetVideoRecordBySubmission(ctx, submissionID)
	if err != nil {
		return &RecordError{SubmissionID: submissionID, Op: "delete", Err: err}
	}
	if record.Status == VideoStatusDeleted {
		return nil
	}

	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, record.ArtifactID)
	})
	if err != nil && !errors.Is(err, ErrArtifactNotFound) {
		return &StoreError{Artifact: record.ArtifactID, Op: "delete", Err: err}
	}

	now := s.clock.Now().UTC()
	record.Status = VideoStatusDeleted
	record.DeletedAt = &now
	record.UpdatedAt = now
	if err := s.repo.UpsertVideoRecord(ctx, record); err != nil {
		return &RecordError{SubmissionID: submissionID, Op: "delete", Err: err}
	}
	return nil
}

// Helper methods

func (s *service) checkRate(ctx context.Context, userID uuid.UUID, op RateOp, limit int64, now time.Time) error {
	if limit <= 0 {
		return nil
	}
	bucket := now.Truncate(time.Hour)
	count, err := s.repo.IncrementRateCounter(ctx, userID, op, bucket)
	if err != nil {
		return fmt.Errorf("rate counter: %w", err)
	}
	if count > limit {
		return fmt.Errorf("%w: %s limit is %d per hour", ErrRateLimited, op, limit)
	}
	return nil
}

// idempotencyKey derives a stable key for a slot request so a retried
// request reuses the same remote reservation.
func idempotencyKey(req CreateUploadSessionRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", req.OwnerID, req.AssignmentID, req.SubmissionID, req.FileName, req.FileSize)
	return hex.EncodeToString(h.Sum(nil))
}
