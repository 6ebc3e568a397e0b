package uploadguard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/gobeaver/uploadguard/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

// Service wires an Intake, a Store and the ambient stack from one Config.
type Service struct {
	Config  *Config
	Intake  *Intake
	Store   Store
	Guard   *GuardedStore
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
	Metrics *Metrics
}

// Global instance
var (
	defaultService *Service
	defaultOnce    sync.Once
	defaultErr     error
)

// Builder provides a way to create Service instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Service instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Service instance using the builder's prefix
func (b *Builder) New(opts ...ServiceOption) (*Service, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// ServiceOption customizes New
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	registerer prometheus.Registerer
	store      Store
	logger     *slog.Logger
}

// WithRegisterer registers metrics on reg instead of the default registerer
func WithRegisterer(reg prometheus.Registerer) ServiceOption {
	return func(o *serviceOptions) {
		o.registerer = reg
	}
}

// WithStore uses store instead of creating one from the configured driver
func WithStore(store Store) ServiceOption {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithServiceLogger uses logger instead of one built from the config
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// Init initializes the global service instance
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultService, defaultErr = New(cfg)
	})

	return defaultErr
}

// New creates a new service instance with given config
func New(cfg *Config, opts ...ServiceOption) (*Service, error) {
	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := validateConfig(cfg, o.store != nil); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	algorithm, err := ParseChecksumAlgorithm(cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = CreateDriver(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create driver: %w", err)
		}
	}

	logger := o.logger
	if logger == nil {
		logger = NewLogger(cfg.LogConfig())
	}

	metrics, err := NewMetrics(cfg.MetricsNamespace, o.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	limiter := ratelimit.New(cfg.LimiterConfig())
	intake := NewIntake(cfg.ValidatorBuilder().Build(),
		WithLimiter(limiter),
		WithLogger(logger),
		WithMetrics(metrics),
	)

	return &Service{
		Config:  cfg,
		Intake:  intake,
		Store:   store,
		Guard:   NewGuardedStore(store, intake, WithChecksumAlgorithm(algorithm)),
		Limiter: limiter,
		Logger:  logger,
		Metrics: metrics,
	}, nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config, hasStore bool) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.MaxFileSize < 0 || cfg.MaxPDFSize < 0 {
		return errors.New("size ceilings must not be negative")
	}
	if cfg.RateLimit < 0 || cfg.RateWindowSeconds < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	if hasStore {
		return nil
	}

	switch cfg.Driver {
	case "":
		return errors.New("driver is required")
	case "local":
		if cfg.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	}
	return nil
}

// Default returns the global instance, initializing if needed with error handling
func Default() (*Service, error) {
	if defaultService == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultService, nil
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv() (*Service, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultService = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
