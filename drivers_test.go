package uploadguard

import (
	"bytes"
	"context"
	"io"
	"maps"
	"path"
	"sync"
	"time"
)

func init() {
	// Register test drivers
	RegisterDriver("test", newTestDriver)
}

func newTestDriver(cfg *Config) (Store, error) {
	return newTestStore(), nil
}

type testFile struct {
	data []byte
	info FileInfo
}

// testStore is a map-backed Store for tests in this package. The real
// drivers import this package, so they cannot be used here.
type testStore struct {
	mu    sync.Mutex
	files map[string]testFile
}

func newTestStore() *testStore {
	return &testStore{files: make(map[string]testFile)}
}

func (s *testStore) Write(ctx context.Context, p string, r io.Reader, opts ...WriteOption) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o := ApplyWriteOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[p]; exists && !o.Overwrite {
		return &PathError{Op: "write", Path: p, Err: ErrExist}
	}
	s.files[p] = testFile{
		data: data,
		info: FileInfo{
			Name:        path.Base(p),
			Path:        p,
			Size:        int64(len(data)),
			ModTime:     time.Now(),
			ContentType: o.ContentType,
			Metadata:    maps.Clone(o.Metadata),
		},
	}
	return nil
}

func (s *testStore) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[p]
	if !ok {
		return nil, &PathError{Op: "read", Path: p, Err: ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (s *testStore) FileExists(ctx context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[p]
	return ok, nil
}

func (s *testStore) Stat(ctx context.Context, p string) (*FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[p]
	if !ok {
		return nil, &PathError{Op: "stat", Path: p, Err: ErrNotExist}
	}
	info := f.info
	return &info, nil
}

func (s *testStore) Delete(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; !ok {
		return &PathError{Op: "delete", Path: p, Err: ErrNotExist}
	}
	delete(s.files, p)
	return nil
}

func (s *testStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
