package filevalidator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// MinRandomBytes is the least entropy a generated name may carry.
const MinRandomBytes = 8

// NameGenerator produces stored filenames of the form
// "<unix-ms>_<hex>.<ext>". The caller-declared name never contributes.
type NameGenerator struct {
	now         func() time.Time
	random      io.Reader
	randomBytes int
}

// NewNameGenerator creates a generator using crypto/rand and the wall clock.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		now:         time.Now,
		random:      rand.Reader,
		randomBytes: MinRandomBytes,
	}
}

// WithClock returns a copy of g that reads time from now.
func (g *NameGenerator) WithClock(now func() time.Time) *NameGenerator {
	c := *g
	c.now = now
	return &c
}

// WithEntropy returns a copy of g that draws n random bytes from r.
// n below MinRandomBytes is raised to MinRandomBytes.
func (g *NameGenerator) WithEntropy(r io.Reader, n int) *NameGenerator {
	c := *g
	c.random = r
	c.randomBytes = max(n, MinRandomBytes)
	return &c
}

// Generate returns a fresh stored filename for a canonical extension.
func (g *NameGenerator) Generate(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if !isSafeExtension(ext) {
		return "", NewValidationError(ErrorTypeFileName, fmt.Sprintf("invalid canonical extension %q", ext))
	}

	buf := make([]byte, g.randomBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return fmt.Sprintf("%d_%s.%s", g.now().UnixMilli(), hex.EncodeToString(buf), ext), nil
}

// SecureFilename generates a stored filename with the default generator.
func SecureFilename(ext string) (string, error) {
	return NewNameGenerator().Generate(ext)
}

func isSafeExtension(ext string) bool {
	if ext == "" || len(ext) > 10 {
		return false
	}
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
