package filevalidator

import (
	"io"
	"time"
)

// Builder provides a fluent API for constructing validators
type Builder struct {
	constraints Constraints
}

// NewBuilder creates a new validator builder with sensible defaults
func NewBuilder() *Builder {
	return &Builder{
		constraints: DefaultConstraints(),
	}
}

// --- Size constraints ---

// MaxSize sets the ceiling for every declared type except PDF
func (b *Builder) MaxSize(size int64) *Builder {
	b.constraints.Limits.Default = size
	return b
}

// MaxPDFSize sets the ceiling for declared PDFs
func (b *Builder) MaxPDFSize(size int64) *Builder {
	b.constraints.Limits.PDF = size
	return b
}

// --- Type detection ---

// Registry replaces the signature table
func (b *Builder) Registry(registry *Registry) *Builder {
	b.constraints.Registry = registry
	return b
}

// AddSignatures appends signatures after the current table
func (b *Builder) AddSignatures(signatures ...Signature) *Builder {
	b.constraints.Registry = b.constraints.Registry.With(signatures...)
	return b
}

// --- Filename constraints ---

// BlockExtensions adds extension tokens to the denylist
func (b *Builder) BlockExtensions(exts ...string) *Builder {
	b.constraints.Denylist = b.constraints.Denylist.With(exts...)
	return b
}

// Denylist replaces the extension denylist
func (b *Builder) Denylist(denylist ExtensionDenylist) *Builder {
	b.constraints.Denylist = denylist
	return b
}

// --- Folder constraints ---

// Folders replaces the folder whitelist
func (b *Builder) Folders(fallback string, folders ...string) *Builder {
	b.constraints.Folders = NewFolderWhitelist(fallback, folders...)
	return b
}

// --- Content scanning ---

// ScanLimit sets how many leading bytes the content scanner inspects
func (b *Builder) ScanLimit(limit int) *Builder {
	b.constraints.Scanner = NewContentScanner(limit, b.constraints.Scanner.markers...)
	return b
}

// Markers replaces the injection markers
func (b *Builder) Markers(markers ...InjectionMarker) *Builder {
	b.constraints.Scanner = NewContentScanner(b.constraints.Scanner.limit, markers...)
	return b
}

// --- Naming ---

// Clock sets the time source used in stored filenames
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.constraints.Names = b.constraints.Names.WithClock(now)
	return b
}

// Entropy sets the random source and byte count used in stored filenames
func (b *Builder) Entropy(r io.Reader, n int) *Builder {
	b.constraints.Names = b.constraints.Names.WithEntropy(r, n)
	return b
}

// --- Build ---

// Build creates the validator with the configured constraints
func (b *Builder) Build() *FileValidator {
	return New(b.constraints)
}

// Constraints returns the current constraints (for inspection)
func (b *Builder) Constraints() Constraints {
	return b.constraints
}
