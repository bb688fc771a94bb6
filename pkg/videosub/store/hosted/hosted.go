// Package hosted implements a VideoStore against a hosted video API that
// speaks the TUS resumable upload protocol for transfers and plain JSON
// for reservation, status and deletion.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

const tusVersion = "1.0.0"

// Config options for the hosted backend
type Config struct {
	BaseURL    string // API base, e.g. https://video.example.com/api
	APIKey     string // Bearer credential for API calls
	HTTPClient *http.Client
}

// Store is a hosted-API implementation of the videosub.VideoStore interface
type Store struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a new hosted video store
func New(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Store{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}, nil
}

// BaseURL returns the configured API base.
func (s *Store) BaseURL() string { return s.baseURL }

type reserveResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Size     int64  `json:"size"`
	Duration int64  `json:"duration"`
	Error    string `json:"error"`
}

// Reserve creates a remote video shell. The upload endpoint comes back in
// the Location header; the artifact id in the JSON body.
func (s *Store) Reserve(ctx context.Context, req videosub.ReserveRequest) (*videosub.Reservation, error) {
	body, err := json.Marshal(map[string]interface{}{
		"filename":  req.FileName,
		"mime_type": req.MimeType,
		"size":      req.SizeBytes,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/videos", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Tus-Resumable", tusVersion)
	httpReq.Header.Set("Upload-Length", strconv.FormatInt(req.SizeBytes, 10))
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &videosub.TransientError{Err: fmt.Errorf("hosted reserve: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, s.statusError("reserve", resp)
	}

	var rr reserveResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("hosted reserve: decoding response: %w", err)
	}
	endpoint := resp.Header.Get("Location")
	if endpoint == "" {
		endpoint = s.baseURL + "/videos/" + rr.ID
	}

	return &videosub.Reservation{ArtifactID: rr.ID, UploadEndpoint: endpoint}, nil
}

// UploadChunk PATCHes one chunk at the given offset, TUS-style. The new
// confirmed byte count comes back in the Upload-Offset header.
func (s *Store) UploadChunk(ctx context.Context, params videosub.ChunkParams) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPatch, params.UploadEndpoint, params.Body)
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Tus-Resumable", tusVersion)
	httpReq.Header.Set("Upload-Offset", strconv.FormatInt(params.Offset, 10))
	httpReq.Header.Set("Content-Type", "application/offset+octet-stream")
	if params.Length > 0 {
		httpReq.ContentLength = params.Length
	}
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, &videosub.TransientError{Err: fmt.Errorf("hosted upload chunk: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return 0, s.statusError("upload chunk", resp)
	}

	offset, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("hosted upload chunk: bad Upload-Offset header: %w", err)
	}
	return offset, nil
}

// Offset HEADs the upload endpoint for the confirmed byte count.
func (s *Store) Offset(ctx context.Context, artifactID string) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/videos/"+artifactID, nil)
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Tus-Resumable", tusVersion)
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, &videosub.TransientError{Err: fmt.Errorf("hosted offset: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, s.statusError("offset", resp)
	}
	return strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
}

// Status fetches the processing state of a video.
func (s *Store) Status(ctx context.Context, artifactID string) (*videosub.ArtifactStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/videos/"+artifactID, nil)
	if err != nil {
		return nil, err
	}
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &videosub.TransientError{Err: fmt.Errorf("hosted status: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return &videosub.ArtifactStatus{State: videosub.ArtifactMissing}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError("status", resp)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("hosted status: decoding response: %w", err)
	}

	state := videosub.ArtifactProcessing
	switch sr.Status {
	case "ready", "complete":
		state = videosub.ArtifactReady
	case "error", "failed":
		state = videosub.ArtifactFailed
	case "deleted":
		state = videosub.ArtifactMissing
	}
	return &videosub.ArtifactStatus{
		State:           state,
		SizeBytes:       sr.Size,
		DurationSeconds: sr.Duration,
		Message:         sr.Error,
	}, nil
}

// Delete removes the remote video. A 404 means it is already gone.
func (s *Store) Delete(ctx context.Context, artifactID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/videos/"+artifactID, nil)
	if err != nil {
		return err
	}
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return &videosub.TransientError{Err: fmt.Errorf("hosted delete: %w", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		return nil
	default:
		return s.statusError("delete", resp)
	}
}

func (s *Store) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

// statusError maps an unexpected response status to the error taxonomy.
// Server-side and throttling statuses are transient; an expired credential
// is transient too since the key may be rotated out from under a long
// upload.
func (s *Store) statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("hosted %s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %v", videosub.ErrOffsetMismatch, err)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %v", videosub.ErrArtifactNotFound, err)
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return &videosub.TransientError{Err: err}
	default:
		return err
	}
}
