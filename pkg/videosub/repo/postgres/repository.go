// Package postgres provides a PostgreSQL-backed Repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements videosub.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Upload session operations

func (r *Repository) CreateSession(ctx context.Context, session *videosub.UploadSession) error {
	query := `
		INSERT INTO upload_session (
			id, artifact_id, owner_id, assignment_id, submission_id,
			file_name, mime_type, expected_size, transport, upload_endpoint,
			chunk_size, bytes_confirmed, status, idempotency_key,
			created_at, updated_at, deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.ArtifactID, session.OwnerID, session.AssignmentID,
		session.SubmissionID, session.FileName, session.MimeType,
		session.ExpectedSize, session.Transport, session.UploadEndpoint,
		session.ChunkSize, session.BytesConfirmed, session.Status, session.IdempotencyKey,
		session.CreatedAt, session.UpdatedAt, session.Deadline)

	if err != nil {
		return r.handlePostgresError("create session", err)
	}
	return nil
}

const sessionColumns = `
	id, artifact_id, owner_id, assignment_id, submission_id,
	file_name, mime_type, expected_size, transport, upload_endpoint,
	chunk_size, bytes_confirmed, status, idempotency_key,
	created_at, updated_at, deadline`

func (r *Repository) scanSession(row pgx.Row) (*videosub.UploadSession, error) {
	var s videosub.UploadSession
	err := row.Scan(
		&s.ID, &s.ArtifactID, &s.OwnerID, &s.AssignmentID, &s.SubmissionID,
		&s.FileName, &s.MimeType, &s.ExpectedSize, &s.Transport, &s.UploadEndpoint,
		&s.ChunkSize, &s.BytesConfirmed, &s.Status, &s.IdempotencyKey,
		&s.CreatedAt, &s.UpdatedAt, &s.Deadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, videosub.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*videosub.UploadSession, error) {
	query := `SELECT` + sessionColumns + ` FROM upload_session WHERE id = $1`
	return r.scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetSessionByIdempotencyKey(ctx context.Context, key string) (*videosub.UploadSession, error) {
	query := `SELECT` + sessionColumns + ` FROM upload_session
		WHERE idempotency_key = $1
		ORDER BY created_at DESC LIMIT 1`
	return r.scanSession(r.db.QueryRow(ctx, query, key))
}

func (r *Repository) UpdateSession(ctx context.Context, session *videosub.UploadSession) error {
	query := `
		UPDATE upload_session SET
			bytes_confirmed = $2, status = $3, upload_endpoint = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		session.ID, session.BytesConfirmed, session.Status,
		session.UploadEndpoint, session.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update session", err)
	}
	if tag.RowsAffected() == 0 {
		return videosub.ErrSessionNotFound
	}
	return nil
}

func (r *Repository) ListStaleSessions(ctx context.Context, before time.Time) ([]*videosub.UploadSession, error) {
	query := `SELECT` + sessionColumns + ` FROM upload_session
		WHERE status IN ($1, $2) AND created_at < $3`

	rows, err := r.db.Query(ctx, query,
		videosub.SessionStatusCreated, videosub.SessionStatusUploading, before)
	if err != nil {
		return nil, r.handlePostgresError("list stale sessions", err)
	}
	defer rows.Close()

	var sessions []*videosub.UploadSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan session", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate session rows", err)
	}
	return sessions, nil
}

// Video record operations

func (r *Repository) UpsertVideoRecord(ctx context.Context, record *videosub.VideoRecord) error {
	query := `
		INSERT INTO video_record (
			id, artifact_id, submission_id, owner_id, status,
			file_size, duration_seconds, error_message,
			created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (submission_id) DO UPDATE SET
			artifact_id = EXCLUDED.artifact_id,
			owner_id = EXCLUDED.owner_id,
			status = EXCLUDED.status,
			file_size = EXCLUDED.file_size,
			duration_seconds = EXCLUDED.duration_seconds,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.ArtifactID, record.SubmissionID, record.OwnerID,
		record.Status, record.FileSize, record.DurationSeconds,
		record.ErrorMessage, record.CreatedAt, record.UpdatedAt, record.DeletedAt)

	if err != nil {
		return r.handlePostgresError("upsert video record", err)
	}
	return nil
}

func (r *Repository) GetVideoRecordBySubmission(ctx context.Context, submissionID uuid.UUID) (*videosub.VideoRecord, error) {
	query := `
		SELECT id, artifact_id, submission_id, owner_id, status,
		       file_size, duration_seconds, error_message,
		       created_at, updated_at, deleted_at
		FROM video_record WHERE submission_id = $1`

	var rec videosub.VideoRecord
	err := r.db.QueryRow(ctx, query, submissionID).Scan(
		&rec.ID, &rec.ArtifactID, &rec.SubmissionID, &rec.OwnerID, &rec.Status,
		&rec.FileSize, &rec.DurationSeconds, &rec.ErrorMessage,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, videosub.ErrRecordNotFound
		}
		return nil, r.handlePostgresError("get video record", err)
	}
	return &rec, nil
}

// Rate counter operations

func (r *Repository) IncrementRateCounter(ctx context.Context, userID uuid.UUID, op videosub.RateOp, bucket time.Time) (int64, error) {
	query := `
		INSERT INTO rate_counter (user_id, operation, bucket, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, operation, bucket) DO UPDATE SET
			count = rate_counter.count + 1
		RETURNING count`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, op, bucket).Scan(&count); err != nil {
		return 0, r.handlePostgresError("increment rate counter", err)
	}
	return count, nil
}
