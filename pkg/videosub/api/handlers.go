// Package api exposes the video submission service over HTTP. Routes are
// JWT-protected; token claims carry the caller's identity and capabilities.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

// Handler wraps the service for HTTP access
type Handler struct {
	svc       videosub.Service
	tokenAuth *jwtauth.JWTAuth
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler wrapper
func NewHandler(svc videosub.Service, tokenAuth *jwtauth.JWTAuth, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, tokenAuth: tokenAuth, logger: logger}
}

// Routes sets up the HTTP routes
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(Principal)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/sessions", h.handleCreateSession)
			r.Get("/sessions/{session_id}", h.handleGetSession)
			r.Post("/sessions/{session_id}/chunks", h.handleUploadChunk)
			r.Post("/sessions/{session_id}/confirm", h.handleConfirm)
			r.Post("/sessions/{session_id}/cleanup", h.handleCleanup)

			r.Get("/submissions/{submission_id}/video", h.handleGetVideo)
			r.Get("/submissions/{submission_id}/grant", h.handleIssueGrant)
			r.Delete("/submissions/{submission_id}/video", h.handleDeleteVideo)
			r.Post("/submissions/{submission_id}/copy", h.handleCopyVideo)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Request/response payloads

type createSessionRequest struct {
	AssignmentID string `json:"assignment_id"`
	SubmissionID string `json:"submission_id"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

type sessionResponse struct {
	ID             string `json:"id"`
	ArtifactID     string `json:"artifact_id"`
	Transport      string `json:"transport"`
	UploadEndpoint string `json:"upload_endpoint"`
	BytesConfirmed int64  `json:"bytes_confirmed"`
	ExpectedSize   int64  `json:"expected_size"`
	Status         string `json:"status"`
	Deadline       string `json:"deadline"`
}

func toSessionResponse(s *videosub.UploadSession) sessionResponse {
	return sessionResponse{
		ID:             s.ID.String(),
		ArtifactID:     s.ArtifactID,
		Transport:      string(s.Transport),
		UploadEndpoint: s.UploadEndpoint,
		BytesConfirmed: s.BytesConfirmed,
		ExpectedSize:   s.ExpectedSize,
		Status:         string(s.Status),
		Deadline:       s.Deadline.Format(time.RFC3339),
	}
}

type videoResponse struct {
	SubmissionID    string `json:"submission_id"`
	ArtifactID      string `json:"artifact_id"`
	Status          string `json:"status"`
	FileSize        int64  `json:"file_size"`
	DurationSeconds int64  `json:"duration_seconds"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

func toVideoResponse(rec *videosub.VideoRecord) videoResponse {
	return videoResponse{
		SubmissionID:    rec.SubmissionID.String(),
		ArtifactID:      rec.ArtifactID,
		Status:          string(rec.Status),
		FileSize:        rec.FileSize,
		DurationSeconds: rec.DurationSeconds,
		ErrorMessage:    rec.ErrorMessage,
	}
}

type grantResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Handlers

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}
	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}
	submissionID, err := uuid.Parse(req.SubmissionID)
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	session, err := h.svc.CreateUploadSession(r.Context(), videosub.CreateUploadSessionRequest{
		OwnerID:      p.UserID,
		AssignmentID: assignmentID,
		SubmissionID: submissionID,
		FileName:     req.FileName,
		MimeType:     req.MimeType,
		FileSize:     req.FileSize,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toSessionResponse(session))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	session, err := h.svc.GetUploadSession(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, toSessionResponse(session))
}

func (h *Handler) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}
	offset, err := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	confirmed, err := h.svc.UploadChunk(r.Context(), videosub.UploadChunkRequest{
		SessionID: sessionID,
		Offset:    offset,
		Length:    r.ContentLength,
		Body:      r.Body,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Upload-Offset", strconv.FormatInt(confirmed, 10))
	render.NoContent(w, r)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	record, err := h.svc.ConfirmUpload(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, toVideoResponse(record))
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	if err := h.svc.CleanupSession(r.Context(), sessionID); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "submission_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	record, err := h.svc.GetVideoRecord(r.Context(), submissionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, toVideoResponse(record))
}

func (h *Handler) handleIssueGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	submissionID, err := uuid.Parse(chi.URLParam(r, "submission_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	grant, err := h.svc.IssuePlaybackGrant(r.Context(), videosub.IssueGrantRequest{
		SubmissionID:        submissionID,
		ArtifactID:          r.URL.Query().Get("artifact_id"),
		Requester:           p,
		DispositionFilename: r.URL.Query().Get("download_as"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, grantResponse{
		URL:       grant.URL,
		ExpiresAt: grant.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "submission_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}

	if err := h.svc.DeleteVideo(r.Context(), submissionID); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

type copyVideoRequest struct {
	ToSubmissionID string `json:"to_submission_id"`
	ToOwnerID      string `json:"to_owner_id"`
}

func (h *Handler) handleCopyVideo(w http.ResponseWriter, r *http.Request) {
	fromID, err := uuid.Parse(chi.URLParam(r, "submission_id"))
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}
	var req copyVideoRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}
	toID, err := uuid.Parse(req.ToSubmissionID)
	if err != nil {
		h.renderError(w, r, videosub.ErrInvalidInput)
		return
	}
	var toOwner uuid.UUID
	if req.ToOwnerID != "" {
		if toOwner, err = uuid.Parse(req.ToOwnerID); err != nil {
			h.renderError(w, r, videosub.ErrInvalidInput)
			return
		}
	}

	record, err := h.svc.CopyVideoRecord(r.Context(), videosub.CopyVideoRecordRequest{
		FromSubmissionID: fromID,
		ToSubmissionID:   toID,
		ToOwnerID:        toOwner,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toVideoResponse(record))
}

// renderError maps the service error taxonomy to HTTP statuses and renders
// the uniform error payload.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	kind := videosub.KindOf(err)

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, videosub.ErrOffsetMismatch):
		status = http.StatusConflict
	case errors.Is(err, videosub.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, videosub.ErrSessionExpired):
		status = http.StatusGone
	default:
		switch kind {
		case videosub.KindNotFound:
			status = http.StatusNotFound
		case videosub.KindAccessDenied:
			status = http.StatusForbidden
		case videosub.KindConfiguration:
			status = http.StatusServiceUnavailable
		case videosub.KindTransient:
			status = http.StatusBadGateway
		}
	}

	if status >= 500 {
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:       err.Error(),
		Kind:        string(kind),
		Suggestions: videosub.Suggestions(kind),
	})
}
