package memory

import (
	"bytes"
	"context"
	"io"
	"maps"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/uploadguard"
	"github.com/gobwas/glob"
)

// memoryFile represents a file stored in memory
type memoryFile struct {
	content     []byte
	contentType string
	metadata    map[string]string
	modTime     time.Time
}

// Adapter provides an in-memory implementation of uploadguard.Store.
// Useful for tests and for running the intake without a disk.
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*memoryFile
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory store
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	return &Adapter{
		files:   make(map[string]*memoryFile),
		maxSize: maxSize,
	}
}

// Write implements uploadguard.Store
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader, options ...uploadguard.WriteOption) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p, ok := normalizePath(p)
	if !ok {
		return &uploadguard.PathError{Op: "write", Path: p, Err: uploadguard.ErrNotAllowed}
	}

	// Read content into memory
	data, err := io.ReadAll(content)
	if err != nil {
		return &uploadguard.PathError{Op: "write", Path: p, Err: err}
	}

	opts := uploadguard.ApplyWriteOptions(options...)

	a.mu.Lock()
	defer a.mu.Unlock()

	newSize := a.size + int64(len(data))
	if existing, exists := a.files[p]; exists {
		if !opts.Overwrite {
			return &uploadguard.PathError{Op: "write", Path: p, Err: uploadguard.ErrExist}
		}
		newSize -= int64(len(existing.content))
	}

	if a.maxSize > 0 && newSize > a.maxSize {
		return &uploadguard.PathError{Op: "write", Path: p, Err: uploadguard.ErrInvalidSize}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a.files[p] = &memoryFile{
		content:     data,
		contentType: contentType,
		metadata:    maps.Clone(opts.Metadata),
		modTime:     time.Now(),
	}
	a.size = newSize

	return nil
}

// Read implements uploadguard.Store
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p, _ = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return nil, &uploadguard.PathError{Op: "read", Path: p, Err: uploadguard.ErrNotExist}
	}

	return io.NopCloser(bytes.NewReader(file.content)), nil
}

// Delete implements uploadguard.Store
func (a *Adapter) Delete(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p, _ = normalizePath(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	file, exists := a.files[p]
	if !exists {
		return &uploadguard.PathError{Op: "delete", Path: p, Err: uploadguard.ErrNotExist}
	}

	a.size -= int64(len(file.content))
	delete(a.files, p)

	return nil
}

// FileExists implements uploadguard.Store
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	p, _ = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.files[p]
	return exists, nil
}

// Stat implements uploadguard.Store
func (a *Adapter) Stat(ctx context.Context, p string) (*uploadguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p, _ = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return nil, &uploadguard.PathError{Op: "stat", Path: p, Err: uploadguard.ErrNotExist}
	}

	info := file.info(p)
	return &info, nil
}

// Match implements uploadguard.CanMatch. Results are sorted by path.
func (a *Adapter) Match(ctx context.Context, pattern string) ([]uploadguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	g, err := glob.Compile(strings.TrimPrefix(pattern, "/"), '/')
	if err != nil {
		return nil, &uploadguard.PathError{Op: "match", Path: pattern, Err: err}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var matches []uploadguard.FileInfo
	for p, file := range a.files {
		if g.Match(p) {
			matches = append(matches, file.info(p))
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}

// Checksum implements uploadguard.CanChecksum
func (a *Adapter) Checksum(ctx context.Context, p string, algorithm uploadguard.ChecksumAlgorithm) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	p, _ = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return "", &uploadguard.PathError{Op: "checksum", Path: p, Err: uploadguard.ErrNotExist}
	}

	checksum, err := uploadguard.ChecksumBytes(file.content, algorithm)
	if err != nil {
		return "", &uploadguard.PathError{Op: "checksum", Path: p, Err: err}
	}
	return checksum, nil
}

// Clear removes all files
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files = make(map[string]*memoryFile)
	a.size = 0
}

// Size returns the total stored bytes
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of stored files
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

func (f *memoryFile) info(p string) uploadguard.FileInfo {
	return uploadguard.FileInfo{
		Name:        path.Base(p),
		Path:        p,
		Size:        int64(len(f.content)),
		ModTime:     f.modTime,
		ContentType: f.contentType,
		Metadata:    maps.Clone(f.metadata),
	}
}

// normalizePath cleans a slash-separated path and reports whether it stays
// inside the store (no traversal, not empty)
func normalizePath(p string) (string, bool) {
	if strings.Contains(p, "..") || strings.ContainsRune(p, '\\') {
		return p, false
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p, p != ""
}

// Ensure Adapter implements interfaces
var (
	_ uploadguard.Store       = (*Adapter)(nil)
	_ uploadguard.CanMatch    = (*Adapter)(nil)
	_ uploadguard.CanChecksum = (*Adapter)(nil)
)
