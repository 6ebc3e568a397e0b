package filevalidator

import (
	"fmt"
	"strings"
)

// dangerousExtensions is the built-in denylist. Entries are bare tokens
// without the dot, compared case-insensitively against every dot-separated
// part of a filename.
var dangerousExtensions = []string{
	// Server-side code
	"php", "php3", "php4", "php5", "php7", "php8", "phtml", "pht", "phps", "phar",
	"asp", "aspx", "ascx", "ashx", "asmx", "cer", "jsp", "jspx", "jsf",
	"cgi", "pl", "py", "pyc", "rb", "cfm", "cfml",

	// Executables and shell
	"exe", "dll", "so", "dylib", "bat", "cmd", "com", "msi", "scr", "pif", "cpl",
	"sh", "bash", "zsh", "ksh", "ps1", "psm1", "vb", "vbs", "vbe", "js", "jse",
	"mjs", "wsf", "wsh", "hta", "jar", "war", "lnk", "reg",

	// Markup that can carry script
	"html", "htm", "xhtml", "shtml", "shtm", "stm", "svg", "svgz", "xml", "xsl", "xslt",

	// Web-tier configuration
	"htaccess", "htpasswd", "ini", "config",
}

// ExtensionDenylist is a set of lowercase extension tokens.
type ExtensionDenylist map[string]struct{}

// NewExtensionDenylist builds a denylist. Tokens may be given with or without
// a leading dot and in any case.
func NewExtensionDenylist(exts ...string) ExtensionDenylist {
	d := make(ExtensionDenylist, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			d[ext] = struct{}{}
		}
	}
	return d
}

// DefaultExtensionDenylist returns a fresh copy of the built-in denylist.
func DefaultExtensionDenylist() ExtensionDenylist {
	return NewExtensionDenylist(dangerousExtensions...)
}

// With returns a new denylist containing the receiver's tokens and exts.
func (d ExtensionDenylist) With(exts ...string) ExtensionDenylist {
	merged := NewExtensionDenylist(exts...)
	for ext := range d {
		merged[ext] = struct{}{}
	}
	return merged
}

// Contains reports whether ext (with or without dot) is denylisted.
func (d ExtensionDenylist) Contains(ext string) bool {
	_, ok := d[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// Check rejects filenames where any dot-separated part is denylisted, so
// "shell.php.jpg" and "x.PHP" are both refused. It never looks at content.
func (d ExtensionDenylist) Check(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return NewValidationError(ErrorTypeFileName, "empty filename")
	}
	if strings.ContainsRune(filename, 0) {
		return NewValidationError(ErrorTypeFileName, "filename contains NUL byte")
	}

	for _, part := range strings.Split(filename, ".") {
		if d.Contains(strings.TrimSpace(part)) {
			return NewValidationError(ErrorTypeFileName,
				fmt.Sprintf("filename part %q is a blocked extension", part))
		}
	}
	return nil
}

// CheckFilename checks filename against the built-in denylist.
func CheckFilename(filename string) error {
	return defaultDenylist.Check(filename)
}

var defaultDenylist = DefaultExtensionDenylist()
