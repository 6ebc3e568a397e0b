package filevalidator

import (
	"fmt"
	"strings"
)

// NormalizeMIME lowercases a declared MIME type and drops any parameters,
// so "Image/JPEG; charset=binary" becomes "image/jpeg".
func NormalizeMIME(declared string) string {
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = declared[:idx]
	}
	return strings.ToLower(strings.TrimSpace(declared))
}

// IsPDFMIME reports whether a declared MIME type claims to be a PDF.
func IsPDFMIME(declared string) bool {
	switch NormalizeMIME(declared) {
	case "application/pdf", "application/x-pdf":
		return true
	}
	return false
}

// CheckDeclaredMIME confirms that the declared MIME type is one the detected
// signature accepts. It must only be called after detection has succeeded.
func CheckDeclaredMIME(declared string, detected Signature) error {
	if detected.AcceptsMIME(declared) {
		return nil
	}
	return NewValidationError(ErrorTypeMIME,
		fmt.Sprintf("declared type %q does not match detected %s content", NormalizeMIME(declared), detected.Type))
}

// MatchesDeclaredMIME looks up the detected type and tests declared against
// its accepted set. Unknown type names never match.
func (r *Registry) MatchesDeclaredMIME(declared string, detected TypeName) bool {
	sig, ok := r.Lookup(detected)
	if !ok {
		return false
	}
	return sig.AcceptsMIME(declared)
}
