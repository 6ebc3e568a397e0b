package filevalidator

import (
	"bytes"
	"slices"
	"strings"
	"sync"
)

// TypeName identifies a binary format the registry can recognise.
type TypeName string

const (
	TypeJPEG TypeName = "jpeg"
	TypePNG  TypeName = "png"
	TypeGIF  TypeName = "gif"
	TypeWebP TypeName = "webp"
	TypePDF  TypeName = "pdf"
)

// Signature describes one recognisable file type.
type Signature struct {
	// Type is the closed name of the format.
	Type TypeName

	// Magic holds alternative leading byte patterns; any one of them matches.
	Magic [][]byte

	// Extension is the canonical extension, without the dot, used for stored names.
	Extension string

	// MIMETypes lists the declared MIME types that are honest for this format.
	// Compared case-insensitively.
	MIMETypes []string

	// Verify is an optional secondary check run after a magic match. Returning
	// false lets detection continue with the next signature.
	Verify func(data []byte) bool
}

// Matches reports whether data starts with one of the signature's magic
// patterns and passes its secondary check.
func (s Signature) Matches(data []byte) bool {
	for _, magic := range s.Magic {
		if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], magic) {
			continue
		}
		if s.Verify != nil && !s.Verify(data) {
			return false
		}
		return true
	}
	return false
}

// AcceptsMIME reports whether declared is one of the signature's MIME types.
func (s Signature) AcceptsMIME(declared string) bool {
	declared = NormalizeMIME(declared)
	if declared == "" {
		return false
	}
	for _, mime := range s.MIMETypes {
		if strings.EqualFold(mime, declared) {
			return true
		}
	}
	return false
}

// PrimaryMIME returns the first accepted MIME type, used as the stored content type.
func (s Signature) PrimaryMIME() string {
	if len(s.MIMETypes) == 0 {
		return "application/octet-stream"
	}
	return s.MIMETypes[0]
}

// riffMarker returns a Verify func that checks a RIFF form type at offset 8.
func riffMarker(marker string) func([]byte) bool {
	return func(data []byte) bool {
		return len(data) >= 12 && string(data[8:12]) == marker
	}
}

// DefaultSignatures returns the built-in signature table in detection order.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			Type:      TypeJPEG,
			Magic:     [][]byte{{0xFF, 0xD8, 0xFF}},
			Extension: "jpg",
			MIMETypes: []string{"image/jpeg", "image/jpg", "image/pjpeg"},
		},
		{
			Type:      TypePNG,
			Magic:     [][]byte{{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
			Extension: "png",
			MIMETypes: []string{"image/png"},
		},
		{
			Type:      TypeGIF,
			Magic:     [][]byte{[]byte("GIF87a"), []byte("GIF89a")},
			Extension: "gif",
			MIMETypes: []string{"image/gif"},
		},
		{
			// RIFF is shared with WAV and AVI, hence the form type check.
			Type:      TypeWebP,
			Magic:     [][]byte{[]byte("RIFF")},
			Extension: "webp",
			MIMETypes: []string{"image/webp"},
			Verify:    riffMarker("WEBP"),
		},
		{
			Type:      TypePDF,
			Magic:     [][]byte{[]byte("%PDF-")},
			Extension: "pdf",
			MIMETypes: []string{"application/pdf", "application/x-pdf"},
		},
	}
}

// Registry is an ordered, read-only table of signatures.
// It is safe for concurrent use.
type Registry struct {
	signatures []Signature
}

// NewRegistry creates a registry that checks signatures in the given order.
func NewRegistry(signatures ...Signature) *Registry {
	return &Registry{signatures: slices.Clone(signatures)}
}

// Global default registry (lazy initialized)
var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the shared registry built from DefaultSignatures.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(DefaultSignatures()...)
	})
	return defaultRegistry
}

// With returns a new registry with extra signatures appended after the
// existing ones. The receiver is not modified.
func (r *Registry) With(signatures ...Signature) *Registry {
	all := make([]Signature, 0, len(r.signatures)+len(signatures))
	all = append(all, r.signatures...)
	all = append(all, signatures...)
	return &Registry{signatures: all}
}

// Signatures returns a copy of the table in detection order.
func (r *Registry) Signatures() []Signature {
	return slices.Clone(r.signatures)
}

// Lookup finds the signature for a type name.
func (r *Registry) Lookup(name TypeName) (Signature, bool) {
	for _, sig := range r.signatures {
		if sig.Type == name {
			return sig, true
		}
	}
	return Signature{}, false
}

// Types returns the registered type names in detection order.
func (r *Registry) Types() []TypeName {
	names := make([]TypeName, len(r.signatures))
	for i, sig := range r.signatures {
		names[i] = sig.Type
	}
	return names
}

// Count returns the number of registered signatures
func (r *Registry) Count() int {
	return len(r.signatures)
}
