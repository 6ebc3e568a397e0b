package uploadguard

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a stored upload
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	ContentType string
	Metadata    map[string]string
}

// Store is where accepted uploads are written. Paths are slash separated
// and relative to the store root, e.g. "news/1718000000123_ab12cd34ef56ab78.jpg".
type Store interface {
	// Write stores content at path.
	Write(ctx context.Context, path string, r io.Reader, opts ...WriteOption) error

	// Read returns a stream of the content at path.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// FileExists checks if a file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// Stat returns metadata for the file at path.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Drivers expose extra capabilities through type assertion:
//
//	if m, ok := store.(CanMatch); ok {
//	    files, err := m.Match(ctx, "news/*.jpg")
//	}

// CanMatch indicates the store can list files by glob pattern.
// Patterns follow github.com/gobwas/glob with '/' as the separator,
// so "*" stays inside one folder and "**" crosses folders.
type CanMatch interface {
	Match(ctx context.Context, pattern string) ([]FileInfo, error)
}

// CanChecksum indicates the store can hash stored content itself.
type CanChecksum interface {
	Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error)
}
