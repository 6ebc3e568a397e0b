package uploadguard

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable code of a rejected upload
type Reason string

const (
	ReasonRateLimited          Reason = "rate_limited"
	ReasonUnsafeFilename       Reason = "unsafe_filename"
	ReasonDeclaredSizeExceeded Reason = "declared_size_exceeded"
	ReasonReadFailed           Reason = "read_failed"
	ReasonBufferTooSmall       Reason = "buffer_too_small"
	ReasonUnrecognizedType     Reason = "unrecognized_type"
	ReasonDeclaredTypeMismatch Reason = "declared_type_mismatch"
	ReasonMaliciousContent     Reason = "malicious_content"
	ReasonInternal             Reason = "internal_error"
)

// Reasons lists every reason code in stage order.
var Reasons = []Reason{
	ReasonRateLimited,
	ReasonUnsafeFilename,
	ReasonDeclaredSizeExceeded,
	ReasonReadFailed,
	ReasonBufferTooSmall,
	ReasonUnrecognizedType,
	ReasonDeclaredTypeMismatch,
	ReasonMaliciousContent,
	ReasonInternal,
}

// Messages shown to uploaders never say which rule fired.
var reasonMessages = map[Reason]string{
	ReasonRateLimited:          "too many upload attempts, try again later",
	ReasonUnsafeFilename:       "file name is not allowed",
	ReasonDeclaredSizeExceeded: "file is too large",
	ReasonReadFailed:           "file could not be read",
	ReasonBufferTooSmall:       "file is too small to identify",
	ReasonUnrecognizedType:     "file type is not supported",
	ReasonDeclaredTypeMismatch: "file content does not match its declared type",
	ReasonMaliciousContent:     "file content is not allowed",
	ReasonInternal:             "upload could not be processed",
}

// Message returns the generic uploader-facing text for a reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return reasonMessages[ReasonInternal]
}

// Rejection explains why an upload was refused. It implements error and
// matches ErrRejected with errors.Is.
type Rejection struct {
	// Reason is the machine-readable code.
	Reason Reason

	// Message is safe to return to the uploader.
	Message string

	// RetryAfter is set for ReasonRateLimited: whole seconds until the
	// caller's window resets.
	RetryAfter int

	// Stage is the name of the stage that refused the upload.
	Stage string

	// detail names the exact rule that fired. Logged, never returned.
	detail string
	err    error
}

func newRejection(reason Reason, detail string, err error) *Rejection {
	return &Rejection{
		Reason:  reason,
		Message: reason.Message(),
		detail:  detail,
		err:     err,
	}
}

// Error implements the error interface
func (r *Rejection) Error() string {
	return fmt.Sprintf("upload rejected: %s: %s", r.Reason, r.Message)
}

// Unwrap returns the underlying validation or read error, if any
func (r *Rejection) Unwrap() error {
	return r.err
}

// Is reports whether target is ErrRejected
func (r *Rejection) Is(target error) bool {
	return target == ErrRejected
}

// Detail returns the internal description of what fired. Do not show it to
// uploaders: it tells an attacker which pattern to avoid.
func (r *Rejection) Detail() string {
	return r.detail
}

// IsRejection checks if an error is a Rejection
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}

// IsReason checks if an error is a Rejection with the given reason
func IsReason(err error, reason Reason) bool {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason == reason
	}
	return false
}

// GetReason returns the reason of a Rejection, or empty string if not a Rejection
func GetReason(err error) Reason {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}
