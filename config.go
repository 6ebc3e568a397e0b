package uploadguard

import (
	"strings"
	"time"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/gobeaver/uploadguard/filevalidator"
	"github.com/gobeaver/uploadguard/ratelimit"
)

type Config struct {
	// Storage driver for accepted uploads (local, memory)
	Driver string `env:"UPLOADGUARD_DRIVER,default:local"`

	// Local driver configuration
	LocalBasePath string `env:"UPLOADGUARD_LOCAL_BASE_PATH,default:./uploads"`

	// Declared-size ceilings
	MaxFileSize int64 `env:"UPLOADGUARD_MAX_FILE_SIZE,default:5242880"` // 5MB
	MaxPDFSize  int64 `env:"UPLOADGUARD_MAX_PDF_SIZE,default:10485760"` // 10MB

	// Rate limiting
	RateLimit         int  `env:"UPLOADGUARD_RATE_LIMIT,default:10"`
	RateWindowSeconds int  `env:"UPLOADGUARD_RATE_WINDOW_SECONDS,default:60"`
	MaxTrackedCallers int  `env:"UPLOADGUARD_MAX_TRACKED_CALLERS,default:10000"`
	TrustForwardedFor bool `env:"UPLOADGUARD_TRUST_FORWARDED_FOR,default:true"`

	// Content checks
	ScanLimit         int    `env:"UPLOADGUARD_SCAN_LIMIT,default:10000"`
	BlockedExtensions string `env:"UPLOADGUARD_BLOCKED_EXTENSIONS"` // comma-separated, added to the built-in list

	// Folder whitelist
	Folders       string `env:"UPLOADGUARD_FOLDERS"` // comma-separated, empty = built-in list
	DefaultFolder string `env:"UPLOADGUARD_DEFAULT_FOLDER,default:general"`

	// Stored files
	ChecksumAlgorithm string `env:"UPLOADGUARD_CHECKSUM_ALGORITHM,default:xxhash"`

	// HTTP server
	Host string `env:"UPLOADGUARD_HOST"`
	Port int    `env:"UPLOADGUARD_PORT,default:8080"`

	// Observability
	LogLevel         string `env:"UPLOADGUARD_LOG_LEVEL,default:info"`
	LogFormat        string `env:"UPLOADGUARD_LOG_FORMAT,default:text"`
	MetricsNamespace string `env:"UPLOADGUARD_METRICS_NAMESPACE,default:uploadguard"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidatorBuilder returns a filevalidator builder reflecting the config
func (c *Config) ValidatorBuilder() *filevalidator.Builder {
	b := filevalidator.NewBuilder()

	if c.MaxFileSize > 0 {
		b.MaxSize(c.MaxFileSize)
	}
	if c.MaxPDFSize > 0 {
		b.MaxPDFSize(c.MaxPDFSize)
	}
	if c.ScanLimit > 0 {
		b.ScanLimit(c.ScanLimit)
	}
	if exts := splitList(c.BlockedExtensions); len(exts) > 0 {
		b.BlockExtensions(exts...)
	}

	folders := splitList(c.Folders)
	if len(folders) == 0 {
		folders = filevalidator.DefaultFolders
	}
	b.Folders(c.DefaultFolder, folders...)

	return b
}

// LimiterConfig returns the rate limiter settings
func (c *Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		Limit:   c.RateLimit,
		Window:  time.Duration(c.RateWindowSeconds) * time.Second,
		MaxKeys: c.MaxTrackedCallers,
	}
}

// LogConfig returns the logger settings
func (c *Config) LogConfig() LogConfig {
	return LogConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
