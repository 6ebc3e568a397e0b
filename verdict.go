package uploadguard

import (
	"fmt"
	"path"
	"time"

	"github.com/gobeaver/uploadguard/filevalidator"
)

// Verdict is the outcome of evaluating an Attempt.
type Verdict struct {
	// Accepted indicates whether the upload passed every stage
	Accepted bool

	// Rejection is set when Accepted is false
	Rejection *Rejection

	// DetectedType is the type identified from magic bytes
	DetectedType filevalidator.TypeName

	// MIMEType is the canonical MIME type of DetectedType
	MIMEType string

	// SafeExtension is the canonical extension of DetectedType
	SafeExtension string

	// SafeFilename is the generated stored name
	SafeFilename string

	// SafeFolder is the whitelisted storage folder
	SafeFolder string

	// Size is the number of bytes actually read
	Size int64

	// CallerID is the rate-limit key the attempt was counted against
	CallerID string

	// Checks records every stage that ran, in order
	Checks []CheckResult

	// Duration is how long evaluation took
	Duration time.Duration

	content []byte
}

// CheckResult represents the result of a single stage
type CheckResult struct {
	Name    string        // stage name, e.g. "rate_limit", "detect"
	Passed  bool          // whether this stage passed
	Message string        // human-readable result
	Took    time.Duration // how long this stage took
}

// Err returns the Rejection as an error, or nil if accepted
func (v *Verdict) Err() error {
	if v.Accepted || v.Rejection == nil {
		return nil
	}
	return v.Rejection
}

// Reason returns the rejection reason, or empty string if accepted
func (v *Verdict) Reason() Reason {
	if v.Rejection == nil {
		return ""
	}
	return v.Rejection.Reason
}

// Path returns "<SafeFolder>/<SafeFilename>" for an accepted upload
func (v *Verdict) Path() string {
	if !v.Accepted {
		return ""
	}
	return path.Join(v.SafeFolder, v.SafeFilename)
}

// Content returns the validated bytes of an accepted upload.
// The slice is shared; do not modify it.
func (v *Verdict) Content() []byte {
	if !v.Accepted {
		return nil
	}
	return v.content
}

// StageNames returns the names of the stages that ran, in order
func (v *Verdict) StageNames() []string {
	names := make([]string, len(v.Checks))
	for i, c := range v.Checks {
		names[i] = c.Name
	}
	return names
}

// FailedCheck returns the stage that rejected the upload
func (v *Verdict) FailedCheck() (CheckResult, bool) {
	for _, check := range v.Checks {
		if !check.Passed {
			return check, true
		}
	}
	return CheckResult{}, false
}

// Summary returns a human-readable summary of the verdict
func (v *Verdict) Summary() string {
	if v.Accepted {
		return fmt.Sprintf("✓ accepted %s as %s (%s, %s) in %v",
			v.Path(),
			v.DetectedType,
			v.MIMEType,
			filevalidator.FormatSizeReadable(v.Size),
			v.Duration.Round(time.Microsecond),
		)
	}

	if v.Rejection == nil {
		return "✗ rejected"
	}
	summary := fmt.Sprintf("✗ rejected: %s (%s)", v.Rejection.Reason, v.Rejection.Message)
	if v.Rejection.RetryAfter > 0 {
		summary += fmt.Sprintf(", retry after %ds", v.Rejection.RetryAfter)
	}
	return summary
}
