package filevalidator

import (
	"fmt"
	"io"
)

// MinSniffLength is the smallest buffer the detector will look at.
// Anything shorter is treated as truncated or corrupt.
const MinSniffLength = 8

// SniffLength is how many leading bytes DetectReader reads.
// It covers the longest built-in signature with room for additions.
const SniffLength = 512

// Detect matches the leading bytes of data against the registry.
// Signatures are tried in order and the first match wins.
func (r *Registry) Detect(data []byte) (Signature, error) {
	if len(data) < MinSniffLength {
		return Signature{}, NewValidationError(ErrorTypeTooSmall,
			fmt.Sprintf("file too small: %d bytes (min: %d bytes)", len(data), MinSniffLength))
	}

	for _, sig := range r.signatures {
		if sig.Matches(data) {
			return sig, nil
		}
	}

	return Signature{}, NewValidationError(ErrorTypeUnrecognized, "unsupported or dangerous file type")
}

// DetectReader reads up to SniffLength bytes from reader and detects the type.
// The reader is consumed; callers that need the content should buffer it first.
func (r *Registry) DetectReader(reader io.Reader) (Signature, error) {
	buf := make([]byte, SniffLength)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Signature{}, NewValidationError(ErrorTypeUnrecognized, "failed to read file for type detection")
	}
	return r.Detect(buf[:n])
}

// DetectType detects data with the default registry.
func DetectType(data []byte) (Signature, error) {
	return DefaultRegistry().Detect(data)
}
