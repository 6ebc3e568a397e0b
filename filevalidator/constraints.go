package filevalidator

import "fmt"

// Size constants for easier file size configuration
const (
	KB = int64(1024)
	MB = KB * 1024
	GB = MB * 1024
)

// SizeLimits holds the declared-size ceilings, chosen by declared MIME type.
type SizeLimits struct {
	// Default applies to every declared type except PDF.
	Default int64

	// PDF applies when the declared MIME type is a PDF.
	PDF int64
}

// DefaultSizeLimits returns 5 MB for general uploads and 10 MB for PDFs.
func DefaultSizeLimits() SizeLimits {
	return SizeLimits{
		Default: 5 * MB,
		PDF:     10 * MB,
	}
}

// For returns the ceiling for a declared MIME type.
func (l SizeLimits) For(declaredMIME string) int64 {
	if IsPDFMIME(declaredMIME) {
		return l.PDF
	}
	return l.Default
}

// Check rejects a size above the ceiling for declaredMIME.
func (l SizeLimits) Check(declaredMIME string, size int64) error {
	limit := l.For(declaredMIME)
	if limit > 0 && size > limit {
		return NewValidationError(ErrorTypeSize,
			fmt.Sprintf("file size too big: %d bytes (max: %d bytes)", size, limit))
	}
	return nil
}

// Constraints bundles the static tables the validator works from.
// Every field is read-only once a validator is built.
type Constraints struct {
	// Registry is the ordered signature table used for type detection.
	Registry *Registry

	// Denylist holds extension tokens refused in any filename part.
	Denylist ExtensionDenylist

	// Folders is the storage folder whitelist.
	Folders *FolderWhitelist

	// Scanner inspects the head of the content for injection markers.
	Scanner *ContentScanner

	// Limits are the declared-size ceilings.
	Limits SizeLimits

	// Names generates stored filenames.
	Names *NameGenerator
}

// DefaultConstraints creates a new set of constraints with sensible defaults
func DefaultConstraints() Constraints {
	return Constraints{
		Registry: DefaultRegistry(),
		Denylist: DefaultExtensionDenylist(),
		Folders:  DefaultFolderWhitelist(),
		Scanner:  DefaultContentScanner(),
		Limits:   DefaultSizeLimits(),
		Names:    NewNameGenerator(),
	}
}

// withDefaults fills nil fields from DefaultConstraints.
func (c Constraints) withDefaults() Constraints {
	d := DefaultConstraints()
	if c.Registry == nil {
		c.Registry = d.Registry
	}
	if c.Denylist == nil {
		c.Denylist = d.Denylist
	}
	if c.Folders == nil {
		c.Folders = d.Folders
	}
	if c.Scanner == nil {
		c.Scanner = d.Scanner
	}
	if c.Limits == (SizeLimits{}) {
		c.Limits = d.Limits
	}
	if c.Names == nil {
		c.Names = d.Names
	}
	return c
}
