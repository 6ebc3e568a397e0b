// Package httpintake exposes a GuardedStore over HTTP with gin.
package httpintake

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gobeaver/uploadguard"
	"github.com/gobeaver/uploadguard/filevalidator"
	"github.com/gobeaver/uploadguard/ratelimit"
)

const (
	// FileField is the multipart field holding the upload.
	FileField = "file"

	// FolderField is the form value naming the requested folder.
	FolderField = "folder"

	// multipartOverhead is allowed on top of the largest file ceiling for
	// boundaries, part headers and the folder value.
	multipartOverhead = 64 * filevalidator.KB

	// maxMemory is how much of a parsed form is held in memory before
	// file parts spill to temporary files.
	maxMemory = 1 * filevalidator.MB
)

// UploadResponse is returned with 201 Created.
type UploadResponse struct {
	Path     string `json:"path"`
	Folder   string `json:"folder"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// ErrorResponse is returned for every refused upload. It never says which
// rule fired.
type ErrorResponse struct {
	Reason     string `json:"reason"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// Handler serves upload requests
type Handler struct {
	guard          *uploadguard.GuardedStore
	logger         *slog.Logger
	trustForwarded bool
	maxBodyBytes   int64
}

// Option configures a Handler
type Option func(*Handler)

// WithTrustForwarded keys the rate limiter on the first X-Forwarded-For
// entry. Only enable it behind a proxy that sets the header.
func WithTrustForwarded(trust bool) Option {
	return func(h *Handler) {
		h.trustForwarded = trust
	}
}

// WithMaxBodyBytes caps the request body read by the handler
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		h.maxBodyBytes = n
	}
}

// WithLogger sets the logger for transport errors
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a Handler. The default body cap is the largest size ceiling
// of the guard's validator plus multipart overhead.
func New(guard *uploadguard.GuardedStore, opts ...Option) *Handler {
	h := &Handler{
		guard:  guard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.maxBodyBytes <= 0 {
		limits := guard.Intake().Validator().GetConstraints().Limits
		h.maxBodyBytes = max(limits.Default, limits.PDF) + multipartOverhead
	}
	return h
}

// Register mounts the upload route
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/uploads", h.Upload)
}

// Upload handles POST /uploads
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	if err := c.Request.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.transportError(c, err)
		return
	}
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}

	attempt := uploadguard.Attempt{
		Folder:   c.PostForm(FolderField),
		CallerID: ratelimit.CallerID(c.Request, h.trustForwarded),
	}

	// A missing file part is still an attempt: it counts against the
	// caller and is refused by the filename stage.
	file, header, err := c.Request.FormFile(FileField)
	switch {
	case err == nil:
		defer file.Close()
		attempt.Body = file
		attempt.Size = header.Size
		attempt.Filename = header.Filename
		attempt.MIMEType = header.Header.Get("Content-Type")
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.transportError(c, err)
		return
	}

	v, err := h.guard.Save(c.Request.Context(), attempt)
	if err != nil && v.Accepted {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Reason:  string(uploadguard.ReasonInternal),
			Message: uploadguard.ReasonInternal.Message(),
		})
		return
	}
	if !v.Accepted {
		h.reject(c, v.Rejection)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Path:     v.Path(),
		Folder:   v.SafeFolder,
		Name:     v.SafeFilename,
		Type:     string(v.DetectedType),
		MIMEType: v.MIMEType,
		Size:     v.Size,
	})
}

func (h *Handler) reject(c *gin.Context, rej *uploadguard.Rejection) {
	if rej.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(rej.RetryAfter))
	}
	c.JSON(StatusFor(rej.Reason), ErrorResponse{
		Reason:     string(rej.Reason),
		Message:    rej.Message,
		RetryAfter: rej.RetryAfter,
	})
}

// transportError answers requests whose body could not be parsed. These
// never reach the intake.
func (h *Handler) transportError(c *gin.Context, err error) {
	reason := uploadguard.ReasonReadFailed
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		reason = uploadguard.ReasonDeclaredSizeExceeded
	}

	h.logger.WarnContext(c.Request.Context(), "upload request unreadable",
		"reason", string(reason),
		"caller", ratelimit.CallerID(c.Request, h.trustForwarded),
		"error", err,
	)
	c.JSON(StatusFor(reason), ErrorResponse{
		Reason:  string(reason),
		Message: reason.Message(),
	})
}

// StatusFor maps a rejection reason to an HTTP status
func StatusFor(reason uploadguard.Reason) int {
	switch reason {
	case uploadguard.ReasonRateLimited:
		return http.StatusTooManyRequests
	case uploadguard.ReasonDeclaredSizeExceeded:
		return http.StatusRequestEntityTooLarge
	case uploadguard.ReasonUnrecognizedType, uploadguard.ReasonDeclaredTypeMismatch:
		return http.StatusUnsupportedMediaType
	case uploadguard.ReasonUnsafeFilename, uploadguard.ReasonBufferTooSmall, uploadguard.ReasonReadFailed:
		return http.StatusBadRequest
	case uploadguard.ReasonMaliciousContent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
