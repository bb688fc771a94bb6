// Package s3 implements a VideoStore on an S3-compatible bucket. Direct
// transfers use presigned PUT URLs; chunked transfers use multipart
// uploads driven part by part.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned upload URLs (default: 3600)
	KeyPrefix       string // Object key prefix, e.g. "videos/"
}

// mpUpload tracks an in-flight multipart upload.
type mpUpload struct {
	uploadID     string
	key          string
	expectedSize int64
	received     int64
	parts        []types.CompletedPart
	completed    bool
}

// Store is an S3-compatible implementation of the videosub.VideoStore interface
type Store struct {
	client          *awss3.Client
	presignClient   *awss3.PresignClient
	bucket          string
	keyPrefix       string
	presignDuration time.Duration

	mu           sync.Mutex
	uploads      map[string]*mpUpload // artifact id -> multipart state
	reservations map[string]reserved  // idempotency key -> allocated slot
}

// reserved remembers an allocated slot so a retried Reserve with the same
// idempotency key reuses the artifact instead of allocating a new one.
type reserved struct {
	artifactID string
	transport  videosub.TransportKind
}

// New creates a new S3-compatible video store
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PresignDuration == 0 {
		cfg.PresignDuration = 3600
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := awss3.NewFromConfig(awsCfg, s3Options...)

	return &Store{
		client:          client,
		presignClient:   awss3.NewPresignClient(client),
		bucket:          cfg.Bucket,
		keyPrefix:       cfg.KeyPrefix,
		presignDuration: time.Duration(cfg.PresignDuration) * time.Second,
		uploads:         make(map[string]*mpUpload),
		reservations:    make(map[string]reserved),
	}, nil
}

func (s *Store) objectKey(artifactID string) string {
	return s.keyPrefix + artifactID
}

// Reserve allocates an object key. Direct transfers get a presigned PUT
// URL; chunked transfers start a multipart upload and return the object
// key as endpoint.
func (s *Store) Reserve(ctx context.Context, req videosub.ReserveRequest) (*videosub.Reservation, error) {
	s.mu.Lock()
	if r, ok := s.reservations[req.IdempotencyKey]; ok {
		if up, ok := s.uploads[r.artifactID]; ok {
			s.mu.Unlock()
			return &videosub.Reservation{ArtifactID: r.artifactID, UploadEndpoint: up.key}, nil
		}
		if r.transport == videosub.TransportDirect {
			// Same object key, fresh presigned URL.
			s.mu.Unlock()
			return s.presignDirect(ctx, r.artifactID, req.MimeType)
		}
	}
	s.mu.Unlock()

	artifactID := uuid.New().String()
	key := s.objectKey(artifactID)

	if req.Transport == videosub.TransportDirect {
		if req.IdempotencyKey != "" {
			s.mu.Lock()
			s.reservations[req.IdempotencyKey] = reserved{artifactID: artifactID, transport: req.Transport}
			s.mu.Unlock()
		}
		return s.presignDirect(ctx, artifactID, req.MimeType)
	}

	out, err := s.client.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.MimeType),
	})
	if err != nil {
		return nil, classify(err, "create multipart upload")
	}

	s.mu.Lock()
	s.uploads[artifactID] = &mpUpload{
		uploadID:     aws.ToString(out.UploadId),
		key:          key,
		expectedSize: req.SizeBytes,
	}
	if req.IdempotencyKey != "" {
		s.reservations[req.IdempotencyKey] = reserved{artifactID: artifactID, transport: req.Transport}
	}
	s.mu.Unlock()

	return &videosub.Reservation{ArtifactID: artifactID, UploadEndpoint: key}, nil
}

func (s *Store) presignDirect(ctx context.Context, artifactID, mimeType string) (*videosub.Reservation, error) {
	presigned, err := s.presignClient.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(artifactID)),
		ContentType: aws.String(mimeType),
	}, func(o *awss3.PresignOptions) {
		o.Expires = s.presignDuration
	})
	if err != nil {
		return nil, classify(err, "presign")
	}
	return &videosub.Reservation{ArtifactID: artifactID, UploadEndpoint: presigned.URL}, nil
}

// UploadChunk sends one part of a multipart upload. Parts are strictly
// sequential; the final part completes the upload.
func (s *Store) UploadChunk(ctx context.Context, params videosub.ChunkParams) (int64, error) {
	s.mu.Lock()
	up, ok := s.uploads[params.ArtifactID]
	s.mu.Unlock()
	if !ok {
		return 0, videosub.ErrArtifactNotFound
	}
	if params.Offset != up.received {
		return 0, fmt.Errorf("%w: got %d, have %d", videosub.ErrOffsetMismatch, params.Offset, up.received)
	}

	partNumber := int32(len(up.parts) + 1)
	out, err := s.client.UploadPart(ctx, &awss3.UploadPartInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(up.key),
		UploadId:      aws.String(up.uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          params.Body,
		ContentLength: aws.Int64(params.Length),
	})
	if err != nil {
		return up.received, classify(err, "upload part")
	}

	s.mu.Lock()
	up.parts = append(up.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	up.received += params.Length
	received := up.received
	done := up.received >= up.expectedSize
	s.mu.Unlock()

	if done {
		_, err := s.client.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(up.key),
			UploadId: aws.String(up.uploadID),
			MultipartUpload: &types.CompletedMultipartUpload{
				Parts: up.parts,
			},
		})
		if err != nil {
			return received, classify(err, "complete multipart upload")
		}
		s.mu.Lock()
		up.completed = true
		s.mu.Unlock()
	}

	return received, nil
}

// Offset reports the confirmed byte count for an in-flight multipart
// upload, falling back to the stored object size.
func (s *Store) Offset(ctx context.Context, artifactID string) (int64, error) {
	s.mu.Lock()
	up, ok := s.uploads[artifactID]
	s.mu.Unlock()
	if ok {
		return up.received, nil
	}

	status, err := s.Status(ctx, artifactID)
	if err != nil {
		return 0, err
	}
	if status.State == videosub.ArtifactMissing {
		return 0, videosub.ErrArtifactNotFound
	}
	return status.SizeBytes, nil
}

// Status heads the object. S3 has no transcoding pipeline, so a present
// object is ready and duration is unknown.
func (s *Store) Status(ctx context.Context, artifactID string) (*videosub.ArtifactStatus, error) {
	key := s.objectKey(artifactID)

	s.mu.Lock()
	if up, ok := s.uploads[artifactID]; ok && !up.completed {
		received := up.received
		s.mu.Unlock()
		return &videosub.ArtifactStatus{
			State:     videosub.ArtifactProcessing,
			SizeBytes: received,
		}, nil
	}
	s.mu.Unlock()

	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return &videosub.ArtifactStatus{State: videosub.ArtifactMissing}, nil
		}
		return nil, classify(err, "head object")
	}

	return &videosub.ArtifactStatus{
		State:     videosub.ArtifactReady,
		SizeBytes: aws.ToInt64(out.ContentLength),
	}, nil
}

// Delete removes the object and aborts any in-flight multipart upload. A
// missing object is success.
func (s *Store) Delete(ctx context.Context, artifactID string) error {
	s.mu.Lock()
	up, ok := s.uploads[artifactID]
	if ok {
		delete(s.uploads, artifactID)
	}
	s.mu.Unlock()

	if ok && !up.completed {
		_, err := s.client.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(up.key),
			UploadId: aws.String(up.uploadID),
		})
		if err != nil && !isNotFound(err) {
			return classify(err, "abort multipart upload")
		}
	}

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(artifactID)),
	})
	if err != nil && !isNotFound(err) {
		return classify(err, "delete object")
	}
	return nil
}

// isNotFound recognizes the object-absent error shapes S3-compatible
// services return.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "NoSuchUpload"
	}
	return strings.Contains(err.Error(), "StatusCode: 404")
}

// classify wraps S3 failures, marking server-side and network failures
// transient so callers retry them.
func classify(err error, op string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorFault() {
		case smithy.FaultServer:
			return &videosub.TransientError{Err: fmt.Errorf("s3 %s: %w", op, err)}
		case smithy.FaultClient:
			return fmt.Errorf("s3 %s: %w", op, err)
		}
	}
	// Transport-level failures (connection reset, DNS) have no API fault.
	return &videosub.TransientError{Err: fmt.Errorf("s3 %s: %w", op, err)}
}
