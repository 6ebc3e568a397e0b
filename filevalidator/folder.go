package filevalidator

import (
	"slices"
	"strings"
)

// DefaultFolder is the fallback storage folder.
const DefaultFolder = "general"

// DefaultFolders is the built-in storage folder whitelist.
var DefaultFolders = []string{DefaultFolder, "news", "events", "gallery", "pages", "documents", "team"}

// FolderWhitelist maps declared folder names onto a closed set of tokens.
// It is read-only after construction.
type FolderWhitelist struct {
	allowed  map[string]struct{}
	fallback string
}

// NewFolderWhitelist creates a whitelist. The fallback is always a member.
// Tokens are lowercased; tokens with characters outside [a-z0-9_-] are ignored.
func NewFolderWhitelist(fallback string, folders ...string) *FolderWhitelist {
	fallback = strings.ToLower(stripFolder(fallback))
	if fallback == "" {
		fallback = DefaultFolder
	}

	w := &FolderWhitelist{
		allowed:  map[string]struct{}{fallback: {}},
		fallback: fallback,
	}
	for _, folder := range folders {
		token := strings.ToLower(strings.TrimSpace(folder))
		if token != "" && stripFolder(token) == token {
			w.allowed[token] = struct{}{}
		}
	}
	return w
}

// DefaultFolderWhitelist returns the built-in whitelist.
func DefaultFolderWhitelist() *FolderWhitelist {
	return NewFolderWhitelist(DefaultFolder, DefaultFolders...)
}

// Sanitize always returns a whitelisted token.
//
// Traversal sequences, separators and any character outside [A-Za-z0-9_-]
// are stripped and the result lowercased. If anything had to be stripped,
// or the result is not whitelisted, the fallback is returned: a declared
// folder is either already a clean token or it is not trusted at all.
func (w *FolderWhitelist) Sanitize(declared string) string {
	cleaned := stripFolder(declared)
	if cleaned != declared {
		return w.fallback
	}

	token := strings.ToLower(cleaned)
	if _, ok := w.allowed[token]; !ok {
		return w.fallback
	}
	return token
}

// Contains reports whether folder is a whitelist token.
func (w *FolderWhitelist) Contains(folder string) bool {
	_, ok := w.allowed[folder]
	return ok
}

// Fallback returns the token used for anything not on the whitelist.
func (w *FolderWhitelist) Fallback() string {
	return w.fallback
}

// Folders returns the whitelist tokens in sorted order.
func (w *FolderWhitelist) Folders() []string {
	folders := make([]string, 0, len(w.allowed))
	for folder := range w.allowed {
		folders = append(folders, folder)
	}
	slices.Sort(folders)
	return folders
}

// SanitizeFolder sanitizes declared against the default whitelist.
func SanitizeFolder(declared string) string {
	return defaultFolders.Sanitize(declared)
}

var defaultFolders = DefaultFolderWhitelist()

// stripFolder removes "..", path separators and every byte outside
// [A-Za-z0-9_-].
func stripFolder(s string) string {
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "\\", "")

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		}
	}
	return b.String()
}
