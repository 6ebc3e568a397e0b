package uploadguard

import (
	"bytes"
	"io"
)

// Attempt is one upload as the caller described it. Nothing in it is trusted.
type Attempt struct {
	// Body is the uploaded content. It is read at most once, and never past
	// the size ceiling for the declared MIME type.
	Body io.Reader

	// Size is the declared size in bytes. Zero or negative means unknown;
	// the read is still capped.
	Size int64

	// Filename is the caller-supplied name. Only checked, never stored.
	Filename string

	// MIMEType is the caller-declared content type.
	MIMEType string

	// Folder is the caller-requested storage folder.
	Folder string

	// CallerID keys the rate limiter. Empty shares the "unknown" bucket.
	CallerID string
}

// NewAttempt builds an Attempt over an in-memory buffer.
func NewAttempt(content []byte, filename, mimeType, folder, callerID string) Attempt {
	return Attempt{
		Body:     bytes.NewReader(content),
		Size:     int64(len(content)),
		Filename: filename,
		MIMEType: mimeType,
		Folder:   folder,
		CallerID: callerID,
	}
}
