package uploadguard

import (
	"bytes"
	"context"
	"fmt"
)

// GuardedStore writes uploads to a Store only after the Intake accepts them.
// The stored path and name come from the verdict; the caller's filename and
// folder never reach the store.
type GuardedStore struct {
	store     Store
	intake    *Intake
	algorithm ChecksumAlgorithm
	options   []WriteOption
}

// GuardOption configures a GuardedStore
type GuardOption func(*GuardedStore)

// WithChecksumAlgorithm selects the checksum stored with each file
func WithChecksumAlgorithm(algorithm ChecksumAlgorithm) GuardOption {
	return func(g *GuardedStore) {
		g.algorithm = algorithm
	}
}

// WithWriteOptions adds options applied to every write, before the
// guard's own content type and metadata
func WithWriteOptions(opts ...WriteOption) GuardOption {
	return func(g *GuardedStore) {
		g.options = append(g.options, opts...)
	}
}

// NewGuardedStore creates a GuardedStore
func NewGuardedStore(store Store, intake *Intake, opts ...GuardOption) *GuardedStore {
	g := &GuardedStore{
		store:     store,
		intake:    intake,
		algorithm: ChecksumXXHash,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the underlying store
func (g *GuardedStore) Store() Store {
	return g.store
}

// Intake returns the intake uploads are evaluated by
func (g *GuardedStore) Intake() *Intake {
	return g.intake
}

// Save evaluates a and, if accepted, writes the validated bytes to
// "<SafeFolder>/<SafeFilename>". The verdict is always returned. The error
// is the Rejection when refused, or a storage error when the write failed.
func (g *GuardedStore) Save(ctx context.Context, a Attempt) (*Verdict, error) {
	v := g.intake.EvaluateContext(ctx, a)
	if !v.Accepted {
		return v, v.Rejection
	}

	content := v.Content()
	sum, err := ChecksumBytes(content, g.algorithm)
	if err != nil {
		return v, fmt.Errorf("checksum %s: %w", v.Path(), err)
	}

	opts := make([]WriteOption, 0, len(g.options)+2)
	opts = append(opts, g.options...)
	opts = append(opts,
		WithContentType(v.MIMEType),
		WithMetadata(map[string]string{
			MetadataChecksum:          sum,
			MetadataChecksumAlgorithm: string(g.algorithm),
			MetadataDetectedType:      string(v.DetectedType),
		}),
	)

	if err := g.store.Write(ctx, v.Path(), bytes.NewReader(content), opts...); err != nil {
		g.intake.logger.ErrorContext(ctx, "failed to store accepted upload",
			"path", v.Path(),
			"error", err,
		)
		return v, err
	}
	return v, nil
}

// Verify recomputes the checksum of a stored file and compares it with the
// one recorded at save time
func (g *GuardedStore) Verify(ctx context.Context, path string) (bool, error) {
	info, err := g.store.Stat(ctx, path)
	if err != nil {
		return false, err
	}

	expected := info.Metadata[MetadataChecksum]
	algorithm := ChecksumAlgorithm(info.Metadata[MetadataChecksumAlgorithm])
	if expected == "" || algorithm == "" {
		return false, &PathError{Op: "verify", Path: path, Err: ErrNotSupported}
	}

	if cs, ok := g.store.(CanChecksum); ok {
		actual, err := cs.Checksum(ctx, path, algorithm)
		if err != nil {
			return false, err
		}
		return actual == expected, nil
	}

	rc, err := g.store.Read(ctx, path)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	actual, err := CalculateChecksum(rc, algorithm)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// Match lists stored files matching a glob pattern, if the store supports it
func (g *GuardedStore) Match(ctx context.Context, pattern string) ([]FileInfo, error) {
	m, ok := g.store.(CanMatch)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot match patterns", ErrNotSupported)
	}
	return m.Match(ctx, pattern)
}
