// Package ratelimit implements a fixed-window attempt limiter keyed by caller.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultLimit is the number of attempts allowed per window.
	DefaultLimit = 10

	// DefaultWindow is the fixed window length.
	DefaultWindow = 60 * time.Second

	// DefaultMaxKeys bounds the number of callers tracked at once.
	DefaultMaxKeys = 10000

	// UnknownCaller is the shared bucket for attempts without an identity.
	UnknownCaller = "unknown"
)

// Config configures a Limiter.
type Config struct {
	// Limit is the number of attempts allowed per window.
	Limit int

	// Window is the fixed window length, started by a caller's first attempt.
	Window time.Duration

	// MaxKeys caps tracked callers. When full, the least recently started
	// window is dropped and that caller starts over.
	MaxKeys int
}

// DefaultConfig returns 10 attempts per 60 seconds.
func DefaultConfig() Config {
	return Config{
		Limit:   DefaultLimit,
		Window:  DefaultWindow,
		MaxKeys: DefaultMaxKeys,
	}
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool

	// RetryAfter is the whole number of seconds until the window resets.
	// Zero when Allowed.
	RetryAfter int
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts attempts per caller in fixed windows. Windows expire from
// memory on their own once they have reset.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows *expirable.LRU[string, *window]
	now     func() time.Time
}

// New creates a Limiter. Zero fields fall back to DefaultConfig.
func New(cfg Config) *Limiter {
	d := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = d.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = d.Window
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = d.MaxKeys
	}

	return &Limiter{
		limit:   cfg.Limit,
		window:  cfg.Window,
		windows: expirable.NewLRU[string, *window](cfg.MaxKeys, nil, cfg.Window),
		now:     time.Now,
	}
}

// NewDefault creates a Limiter with DefaultConfig.
func NewDefault() *Limiter {
	return New(DefaultConfig())
}

// WithClock replaces the limiter's time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// Allow records an attempt for key and reports whether it is within the limit.
// The read-check-write is serialized, so concurrent attempts from one caller
// never exceed the limit.
func (l *Limiter) Allow(key string) Decision {
	if key == "" {
		key = UnknownCaller
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows.Get(key)
	if !ok || !now.Before(w.resetAt) {
		l.windows.Add(key, &window{count: 1, resetAt: now.Add(l.window)})
		return Decision{Allowed: true}
	}

	if w.count >= l.limit {
		return Decision{Allowed: false, RetryAfter: retryAfter(w.resetAt.Sub(now))}
	}

	w.count++
	return Decision{Allowed: true}
}

// Remaining returns how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	if key == "" {
		key = UnknownCaller
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows.Peek(key)
	if !ok || !l.now().Before(w.resetAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key's window.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows.Remove(key)
}

// Tracked returns the number of callers with a live window.
func (l *Limiter) Tracked() int {
	return l.windows.Len()
}

// Limit returns the attempts allowed per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

func retryAfter(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
