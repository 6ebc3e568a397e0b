package uploadguard

import (
	"context"
	"fmt"

	"github.com/gobeaver/uploadguard/filevalidator"
)

// Stage names, in evaluation order.
const (
	StageRateLimit    = "rate_limit"
	StageFilename     = "filename"
	StageDeclaredSize = "declared_size"
	StageRead         = "read"
	StageDetect       = "detect"
	StageMIME         = "mime"
	StageScan         = "scan"
	StageIdentifiers  = "identifiers"
)

// evaluation carries state between the stages of one Evaluate call.
type evaluation struct {
	intake    *Intake
	attempt   Attempt
	content   []byte
	signature filevalidator.Signature
	verdict   *Verdict
}

type stage struct {
	name   string
	passed string
	run    func(ctx context.Context, ev *evaluation) *Rejection
}

// Cheapest and least trusting first: nothing touches the body until the
// caller, name and declared size have been accepted.
func defaultStages() []stage {
	return []stage{
		{name: StageRateLimit, passed: "within rate limit", run: checkRateLimit},
		{name: StageFilename, passed: "no denylisted extension", run: checkFilename},
		{name: StageDeclaredSize, passed: "declared size within ceiling", run: checkDeclaredSize},
		{name: StageRead, passed: "body read within ceiling", run: readBody},
		{name: StageDetect, passed: "type identified", run: detectType},
		{name: StageMIME, passed: "declared type matches content", run: checkMIME},
		{name: StageScan, passed: "no injection markers", run: scanContent},
		{name: StageIdentifiers, passed: "stored name generated", run: assignIdentifiers},
	}
}

func checkRateLimit(_ context.Context, ev *evaluation) *Rejection {
	d := ev.intake.limiter.Allow(ev.verdict.CallerID)
	if d.Allowed {
		return nil
	}
	rej := newRejection(ReasonRateLimited,
		fmt.Sprintf("caller %s is over its attempt limit", ev.verdict.CallerID), nil)
	rej.RetryAfter = d.RetryAfter
	return rej
}

func checkFilename(_ context.Context, ev *evaluation) *Rejection {
	if err := ev.intake.validator.CheckFilename(ev.attempt.Filename); err != nil {
		return newRejection(ReasonUnsafeFilename, filevalidator.GetErrorMessage(err), err)
	}
	return nil
}

func checkDeclaredSize(_ context.Context, ev *evaluation) *Rejection {
	if err := ev.intake.validator.CheckDeclaredSize(ev.attempt.MIMEType, ev.attempt.Size); err != nil {
		return newRejection(ReasonDeclaredSizeExceeded, filevalidator.GetErrorMessage(err), err)
	}
	return nil
}

// readBody reads at most ceiling+1 bytes, so a body longer than its
// declared size is refused even though the declared size passed.
func readBody(ctx context.Context, ev *evaluation) *Rejection {
	if err := ctx.Err(); err != nil {
		return newRejection(ReasonReadFailed, "context done before read", err)
	}
	if ev.attempt.Body == nil {
		ev.content = nil
		ev.verdict.Size = 0
		return nil
	}

	limit := ev.intake.validator.SizeLimit(ev.attempt.MIMEType)
	content, err := filevalidator.ReadLimited(ev.attempt.Body, limit)
	if err != nil {
		if filevalidator.IsErrorOfType(err, filevalidator.ErrorTypeSize) {
			return newRejection(ReasonDeclaredSizeExceeded,
				fmt.Sprintf("body exceeds %d byte ceiling", limit), err)
		}
		return newRejection(ReasonReadFailed, err.Error(), err)
	}

	ev.content = content
	ev.verdict.Size = int64(len(content))
	return nil
}

func detectType(_ context.Context, ev *evaluation) *Rejection {
	sig, err := ev.intake.validator.Detect(ev.content)
	if err != nil {
		if filevalidator.IsErrorOfType(err, filevalidator.ErrorTypeTooSmall) {
			return newRejection(ReasonBufferTooSmall, filevalidator.GetErrorMessage(err), err)
		}
		return newRejection(ReasonUnrecognizedType, filevalidator.GetErrorMessage(err), err)
	}

	ev.signature = sig
	ev.verdict.DetectedType = sig.Type
	ev.verdict.MIMEType = sig.PrimaryMIME()
	ev.verdict.SafeExtension = sig.Extension
	return nil
}

func checkMIME(_ context.Context, ev *evaluation) *Rejection {
	if err := ev.intake.validator.CheckMIME(ev.attempt.MIMEType, ev.signature); err != nil {
		return newRejection(ReasonDeclaredTypeMismatch, filevalidator.GetErrorMessage(err), err)
	}
	return nil
}

func scanContent(_ context.Context, ev *evaluation) *Rejection {
	if err := ev.intake.validator.Scan(ev.content); err != nil {
		return newRejection(ReasonMaliciousContent, filevalidator.GetErrorMessage(err), err)
	}
	return nil
}

func assignIdentifiers(_ context.Context, ev *evaluation) *Rejection {
	name, err := ev.intake.validator.GenerateName(ev.signature)
	if err != nil {
		return newRejection(ReasonInternal, err.Error(), err)
	}
	ev.verdict.SafeFilename = name
	ev.verdict.SafeFolder = ev.intake.validator.SanitizeFolder(ev.attempt.Folder)
	return nil
}
