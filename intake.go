package uploadguard

import (
	"context"
	"log/slog"
	"time"

	"github.com/gobeaver/uploadguard/filevalidator"
	"github.com/gobeaver/uploadguard/ratelimit"
)

// RateLimiter decides whether a caller may make another attempt.
// *ratelimit.Limiter implements it.
type RateLimiter interface {
	Allow(key string) ratelimit.Decision
}

// Intake runs every upload through a fixed sequence of stages and produces
// a Verdict. It is safe for concurrent use; the rate limiter is the only
// shared mutable state.
type Intake struct {
	validator *filevalidator.FileValidator
	limiter   RateLimiter
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
	stages    []stage
}

// Option configures an Intake
type Option func(*Intake)

// WithLimiter sets the rate limiter. The default allows 10 attempts per
// caller per minute.
func WithLimiter(limiter RateLimiter) Option {
	return func(in *Intake) {
		in.limiter = limiter
	}
}

// WithLogger sets the logger rejections and acceptances are written to
func WithLogger(logger *slog.Logger) Option {
	return func(in *Intake) {
		in.logger = logger
	}
}

// WithMetrics records every verdict in m
func WithMetrics(m *Metrics) Option {
	return func(in *Intake) {
		in.metrics = m
	}
}

// WithClock sets the time source used to measure evaluation
func WithClock(now func() time.Time) Option {
	return func(in *Intake) {
		in.now = now
	}
}

// NewIntake creates an Intake. A nil validator uses filevalidator defaults.
func NewIntake(validator *filevalidator.FileValidator, opts ...Option) *Intake {
	if validator == nil {
		validator = filevalidator.NewDefault()
	}

	in := &Intake{
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}

	if in.limiter == nil {
		in.limiter = ratelimit.NewDefault()
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	in.stages = defaultStages()
	return in
}

// Validator returns the validator the intake checks against
func (in *Intake) Validator() *filevalidator.FileValidator {
	return in.validator
}

// Stages returns the stage names in evaluation order
func (in *Intake) Stages() []string {
	names := make([]string, len(in.stages))
	for i, s := range in.stages {
		names[i] = s.name
	}
	return names
}

// Evaluate runs a through every stage, stopping at the first rejection
func (in *Intake) Evaluate(a Attempt) *Verdict {
	return in.EvaluateContext(context.Background(), a)
}

// EvaluateContext is Evaluate with a context. Cancellation is observed
// before the body is read.
func (in *Intake) EvaluateContext(ctx context.Context, a Attempt) *Verdict {
	start := in.now()
	ev := &evaluation{
		intake:  in,
		attempt: a,
		verdict: &Verdict{CallerID: a.CallerID},
	}
	if ev.verdict.CallerID == "" {
		ev.verdict.CallerID = ratelimit.UnknownCaller
	}

	for _, s := range in.stages {
		stageStart := in.now()
		rej := s.run(ctx, ev)
		check := CheckResult{
			Name:   s.name,
			Passed: rej == nil,
			Took:   in.now().Sub(stageStart),
		}
		if rej != nil {
			rej.Stage = s.name
			check.Message = rej.Message
			ev.verdict.Checks = append(ev.verdict.Checks, check)
			ev.verdict.Rejection = rej
			break
		}
		check.Message = s.passed
		ev.verdict.Checks = append(ev.verdict.Checks, check)
	}

	v := ev.verdict
	v.Accepted = v.Rejection == nil
	if v.Accepted {
		v.content = ev.content
	}
	v.Duration = in.now().Sub(start)

	in.record(ctx, a, v)
	return v
}

func (in *Intake) record(ctx context.Context, a Attempt, v *Verdict) {
	in.metrics.Observe(v)

	if v.Accepted {
		in.logger.InfoContext(ctx, "upload accepted",
			"caller", v.CallerID,
			"type", string(v.DetectedType),
			"folder", v.SafeFolder,
			"name", v.SafeFilename,
			"size", v.Size,
			"duration", v.Duration,
		)
		return
	}

	in.logger.WarnContext(ctx, "upload rejected",
		"caller", v.CallerID,
		"reason", string(v.Rejection.Reason),
		"stage", v.Rejection.Stage,
		"detail", v.Rejection.Detail(),
		"filename", a.Filename,
		"declared_mime", a.MIMEType,
		"declared_size", a.Size,
	)
}
