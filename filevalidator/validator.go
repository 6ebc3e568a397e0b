// Package filevalidator provides the stateless checks behind upload intake.
package filevalidator

import (
	"bytes"
	"context"
	"io"
)

// Validator provides the main interface for validating files
type Validator interface {
	// ValidateBytes runs every content-independent and content check on an
	// in-memory file and returns the detected signature.
	ValidateBytes(content []byte, filename, declaredMIME string) (Signature, error)

	// ValidateReader reads at most the size ceiling from reader and validates it.
	ValidateReader(ctx context.Context, reader io.Reader, filename, declaredMIME string, size int64) (Signature, error)

	// GetConstraints returns the current validation constraints
	GetConstraints() Constraints
}

// FileValidator implements the Validator interface
type FileValidator struct {
	constraints Constraints
}

// New creates a new file validator with the given constraints.
// Nil fields are filled from DefaultConstraints.
func New(constraints Constraints) *FileValidator {
	return &FileValidator{
		constraints: constraints.withDefaults(),
	}
}

// NewDefault creates a new file validator with sensible default constraints
func NewDefault() *FileValidator {
	return &FileValidator{
		constraints: DefaultConstraints(),
	}
}

// GetConstraints returns the current validation constraints
func (v *FileValidator) GetConstraints() Constraints {
	return v.constraints
}

// CheckFilename rejects filenames carrying a denylisted extension in any part.
func (v *FileValidator) CheckFilename(filename string) error {
	return v.constraints.Denylist.Check(filename)
}

// CheckDeclaredSize rejects a declared size above the ceiling for its MIME type.
func (v *FileValidator) CheckDeclaredSize(declaredMIME string, size int64) error {
	return v.constraints.Limits.Check(declaredMIME, size)
}

// SizeLimit returns the ceiling for a declared MIME type.
func (v *FileValidator) SizeLimit(declaredMIME string) int64 {
	return v.constraints.Limits.For(declaredMIME)
}

// Detect identifies content by its magic bytes.
func (v *FileValidator) Detect(content []byte) (Signature, error) {
	return v.constraints.Registry.Detect(content)
}

// CheckMIME cross-checks the declared MIME type against a detected signature.
func (v *FileValidator) CheckMIME(declaredMIME string, detected Signature) error {
	return CheckDeclaredMIME(declaredMIME, detected)
}

// Scan looks for injection markers in the head of content.
func (v *FileValidator) Scan(content []byte) error {
	return v.constraints.Scanner.Scan(content)
}

// SanitizeFolder maps a declared folder onto the whitelist.
func (v *FileValidator) SanitizeFolder(declared string) string {
	return v.constraints.Folders.Sanitize(declared)
}

// GenerateName returns a stored filename for a detected signature.
func (v *FileValidator) GenerateName(detected Signature) (string, error) {
	return v.constraints.Names.Generate(detected.Extension)
}

// ValidateBytes runs the checks in intake order, cheapest first.
func (v *FileValidator) ValidateBytes(content []byte, filename, declaredMIME string) (Signature, error) {
	if err := v.CheckFilename(filename); err != nil {
		return Signature{}, err
	}
	if err := v.CheckDeclaredSize(declaredMIME, int64(len(content))); err != nil {
		return Signature{}, err
	}

	sig, err := v.Detect(content)
	if err != nil {
		return Signature{}, err
	}
	if err := v.CheckMIME(declaredMIME, sig); err != nil {
		return Signature{}, err
	}
	if err := v.Scan(content); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// ValidateReader validates a stream. The declared size is checked before
// reading, and the read itself is capped one byte past the ceiling so a
// body larger than declared is still refused.
func (v *FileValidator) ValidateReader(ctx context.Context, reader io.Reader, filename, declaredMIME string, size int64) (Signature, error) {
	select {
	case <-ctx.Done():
		return Signature{}, ctx.Err()
	default:
	}

	if err := v.CheckFilename(filename); err != nil {
		return Signature{}, err
	}
	if err := v.CheckDeclaredSize(declaredMIME, size); err != nil {
		return Signature{}, err
	}

	content, err := ReadLimited(reader, v.SizeLimit(declaredMIME))
	if err != nil {
		return Signature{}, err
	}
	return v.ValidateBytes(content, filename, declaredMIME)
}

// ReadLimited reads all of reader, failing with a size error once more than
// limit bytes arrive. A non-positive limit reads without a cap.
func ReadLimited(reader io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(reader)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, NewValidationError(ErrorTypeSize, "file size exceeds maximum allowed size")
	}
	return buf.Bytes(), nil
}
