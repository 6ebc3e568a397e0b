package filevalidator

import (
	"fmt"
	"regexp"
)

// DefaultScanLimit bounds how much of a file the scanner reads, whatever its size.
const DefaultScanLimit = 10000

// InjectionMarker is a named pattern the scanner looks for.
type InjectionMarker struct {
	Name    string
	Pattern *regexp.Regexp
}

// defaultMarkers are matched case-insensitively against the scanned prefix.
var defaultMarkers = []InjectionMarker{
	{Name: "php open tag", Pattern: regexp.MustCompile(`(?i)<\?php`)},
	{Name: "php short echo tag", Pattern: regexp.MustCompile(`<\?=`)},
	{Name: "asp/jsp tag", Pattern: regexp.MustCompile(`<%`)},
	{Name: "script tag", Pattern: regexp.MustCompile(`(?i)<script`)},
	{Name: "template expression", Pattern: regexp.MustCompile(`\{\{`)},
	{Name: "template statement", Pattern: regexp.MustCompile(`\{%`)},
	{Name: "eval call", Pattern: regexp.MustCompile(`(?i)\beval\s*\(`)},
	{Name: "exec call", Pattern: regexp.MustCompile(`(?i)\b(?:shell_)?exec\s*\(`)},
	{Name: "system call", Pattern: regexp.MustCompile(`(?i)\bsystem\s*\(`)},
	{Name: "passthru call", Pattern: regexp.MustCompile(`(?i)\bpassthru\s*\(`)},
	{Name: "popen call", Pattern: regexp.MustCompile(`(?i)\b(?:popen|proc_open)\s*\(`)},
	{Name: "assert call", Pattern: regexp.MustCompile(`(?i)\bassert\s*\(`)},
	{Name: "base64_decode call", Pattern: regexp.MustCompile(`(?i)\bbase64_decode\s*\(`)},
	{Name: "unserialize call", Pattern: regexp.MustCompile(`(?i)\bunserialize\s*\(`)},
	{Name: "pickle loads", Pattern: regexp.MustCompile(`(?i)\bpickle\.loads\b`)},
	{Name: "java runtime exec", Pattern: regexp.MustCompile(`(?i)Runtime\.getRuntime\b`)},
}

// ContentScanner looks for script and code-injection markers in the head
// of a file. It is read-only after construction and safe for concurrent use.
type ContentScanner struct {
	limit   int
	markers []InjectionMarker
}

// NewContentScanner creates a scanner over the first limit bytes.
// A non-positive limit falls back to DefaultScanLimit; no markers means the
// built-in set.
func NewContentScanner(limit int, markers ...InjectionMarker) *ContentScanner {
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	if len(markers) == 0 {
		markers = defaultMarkers
	}
	return &ContentScanner{limit: limit, markers: markers}
}

// DefaultContentScanner returns a scanner with the built-in markers and limit.
func DefaultContentScanner() *ContentScanner {
	return NewContentScanner(DefaultScanLimit)
}

// Limit returns the number of leading bytes inspected.
func (s *ContentScanner) Limit() int {
	return s.limit
}

// Scan returns a content ValidationError naming the first marker found.
// Detected type is irrelevant: a valid image can still be a polyglot.
func (s *ContentScanner) Scan(data []byte) error {
	if len(data) > s.limit {
		data = data[:s.limit]
	}
	for _, marker := range s.markers {
		if marker.Pattern.Match(data) {
			return NewValidationError(ErrorTypeContent, fmt.Sprintf("found %s", marker.Name))
		}
	}
	return nil
}

// ScanContent scans data with the default scanner.
func ScanContent(data []byte) error {
	return defaultScanner.Scan(data)
}

var defaultScanner = DefaultContentScanner()
