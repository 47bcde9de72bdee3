// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/orgoj/rotalog/internal/iputil"
	"github.com/orgoj/rotalog/internal/level"
)

const (
	BackendIndexed    = "indexed"
	BackendLumberjack = "lumberjack"

	DefaultFilePath = "log/detail/detail_log.log"
	// maxFilesLimit guards against configs that would make every rotation
	// walk an absurd number of candidate names.
	maxFilesLimit = 200000
	maxBufferSize = 64 * 1024 * 1024
)

// Config is the root of the YAML configuration.
type Config struct {
	Console  ConsoleConfig  `yaml:"console"`
	File     FileConfig     `yaml:"file"`
	Format   FormatConfig   `yaml:"format"`
	Filters  []FilterRule   `yaml:"filters" validate:"dive"`
	Admin    AdminConfig    `yaml:"admin"`
	Profiler ProfilerConfig `yaml:"profiler"`
}

// ConsoleConfig controls the console sink.
type ConsoleConfig struct {
	Enabled bool        `yaml:"enabled"`
	Level   level.Level `yaml:"level"`
	Target  string      `yaml:"target" validate:"oneof=stdout stderr"`
}

// FileConfig controls the file sink.
type FileConfig struct {
	Enabled           bool        `yaml:"enabled"`
	Backend           string      `yaml:"backend" validate:"oneof=indexed lumberjack"`
	Path              string      `yaml:"path"`
	MaxSize           string      `yaml:"max_size" validate:"required"`
	MaxFiles          int         `yaml:"max_files" validate:"gte=0"`
	RotateOnOpen      bool        `yaml:"rotate_on_open"`
	Level             level.Level `yaml:"level"`
	FlushLevel        level.Level `yaml:"flush_level"`
	OpenRetries       uint        `yaml:"open_retries" validate:"gte=1,lte=100"`
	OpenRetryInterval string      `yaml:"open_retry_interval" validate:"required"`
	RenameRetryDelay  string      `yaml:"rename_retry_delay" validate:"required"`
	FileMode          string      `yaml:"file_mode" validate:"required"`
	BufferSize        string      `yaml:"buffer_size" validate:"required"`
}

// FormatConfig controls record rendering.
type FormatConfig struct {
	TimeLayout       string `yaml:"time_layout"`
	MaxMessageLength int    `yaml:"max_message_length" validate:"gte=0"`
}

// FilterRule drops records below MinLevel whose call-site file matches Match.
type FilterRule struct {
	Match    string      `yaml:"match" validate:"required"`
	MinLevel level.Level `yaml:"min_level"`
}

// AdminConfig controls the optional HTTP admin endpoint.
type AdminConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Listen     string   `yaml:"listen" validate:"required"`
	AllowedIPs []string `yaml:"allowed_ips"`
	RateLimit  int      `yaml:"rate_limit" validate:"gte=0"` // mutating requests per minute, 0 = unlimited
}

// ProfilerConfig controls the scope profiler and its dedicated rotating file.
type ProfilerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	MaxSize  string `yaml:"max_size" validate:"required"`
	MaxFiles int    `yaml:"max_files" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Console: ConsoleConfig{
			Enabled: true,
			Level:   level.Debug,
			Target:  "stdout",
		},
		File: FileConfig{
			Enabled:           true,
			Backend:           BackendIndexed,
			Path:              DefaultFilePath,
			MaxSize:           "50MB",
			MaxFiles:          10,
			Level:             level.Debug,
			FlushLevel:        level.Info,
			OpenRetries:       5,
			OpenRetryInterval: "10ms",
			RenameRetryDelay:  "100ms",
			FileMode:          "0644",
			BufferSize:        "4KB",
		},
		Format: FormatConfig{
			TimeLayout: "2006-01-02 15:04:05.000000",
		},
		Admin: AdminConfig{
			Listen:     "127.0.0.1:9470",
			AllowedIPs: []string{"127.0.0.1", "::1"},
			RateLimit:  60,
		},
		Profiler: ProfilerConfig{
			Path:     "log/profiler/profiler.log",
			MaxSize:  "50MB",
			MaxFiles: 10,
		},
	}
}

// LoadConfig reads, decodes and validates the YAML file at path. Keys that
// are absent keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig decodes and validates YAML data. source is used in errors only.
func ParseConfig(data []byte, source string) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file '%s': %w", source, err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ValidateConfig runs struct tag validation followed by semantic checks.
func ValidateConfig(cfg *Config) error {
	validate := validator.New()

	err := validate.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		messages := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			messages = append(messages, fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", fe.Namespace(), fe.Tag()))
		}
		return errors.New(strings.Join(messages, "; "))
	}

	return validateConfig(cfg)
}

// validateConfig performs the checks struct tags cannot express.
func validateConfig(cfg *Config) error {
	levels := map[string]level.Level{
		"console.level":    cfg.Console.Level,
		"file.level":       cfg.File.Level,
		"file.flush_level": cfg.File.FlushLevel,
	}
	for name, l := range levels {
		if !l.Valid() {
			return fmt.Errorf("%s: invalid level %d", name, int8(l))
		}
	}

	if cfg.File.Enabled {
		if strings.TrimSpace(cfg.File.Path) == "" {
			return errors.New("file.path is required when file logging is enabled")
		}
		size, err := cfg.File.MaxSizeBytes()
		if err != nil {
			return fmt.Errorf("file.max_size: %w", err)
		}
		if size <= 0 {
			return fmt.Errorf("file.max_size must be positive, got '%s'", cfg.File.MaxSize)
		}
		if cfg.File.Backend == BackendLumberjack && cfg.File.MaxFiles < 1 {
			return fmt.Errorf("file.max_files must be positive for the lumberjack backend, got %d", cfg.File.MaxFiles)
		}
		if cfg.File.MaxFiles > maxFilesLimit {
			return fmt.Errorf("file.max_files must not exceed %d, got %d", maxFilesLimit, cfg.File.MaxFiles)
		}
		if _, err := cfg.File.OpenRetryIntervalDuration(); err != nil {
			return fmt.Errorf("file.open_retry_interval: %w", err)
		}
		if _, err := cfg.File.RenameRetryDelayDuration(); err != nil {
			return fmt.Errorf("file.rename_retry_delay: %w", err)
		}
		if _, err := cfg.File.FileModePerm(); err != nil {
			return fmt.Errorf("file.file_mode: %w", err)
		}
		if _, err := cfg.File.BufferSizeBytes(); err != nil {
			return fmt.Errorf("file.buffer_size: %w", err)
		}
	}

	for i, rule := range cfg.Filters {
		if !rule.MinLevel.Valid() {
			return fmt.Errorf("filters[%d].min_level: invalid level %d", i, int8(rule.MinLevel))
		}
		if _, err := glob.Compile(rule.Match, '/'); err != nil {
			return fmt.Errorf("filters[%d].match '%s': %w", i, rule.Match, err)
		}
	}

	if cfg.Admin.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Admin.Listen); err != nil {
			return fmt.Errorf("admin.listen '%s': %w", cfg.Admin.Listen, err)
		}
		if len(cfg.Admin.AllowedIPs) == 0 {
			return errors.New("admin.allowed_ips must list at least one IP or CIDR when admin is enabled")
		}
		if _, err := iputil.ParseCIDRs(cfg.Admin.AllowedIPs); err != nil {
			return fmt.Errorf("admin.allowed_ips: %w", err)
		}
	}

	if cfg.Profiler.Enabled {
		if strings.TrimSpace(cfg.Profiler.Path) == "" {
			return errors.New("profiler.path is required when the profiler is enabled")
		}
		size, err := ParseSize(cfg.Profiler.MaxSize)
		if err != nil {
			return fmt.Errorf("profiler.max_size: %w", err)
		}
		if size <= 0 {
			return fmt.Errorf("profiler.max_size must be positive, got '%s'", cfg.Profiler.MaxSize)
		}
	}

	return nil
}

// MaxSizeBytes parses MaxSize.
func (f FileConfig) MaxSizeBytes() (int64, error) {
	return ParseSize(f.MaxSize)
}

// OpenRetryIntervalDuration parses OpenRetryInterval.
func (f FileConfig) OpenRetryIntervalDuration() (time.Duration, error) {
	return ParseDuration(f.OpenRetryInterval)
}

// RenameRetryDelayDuration parses RenameRetryDelay.
func (f FileConfig) RenameRetryDelayDuration() (time.Duration, error) {
	return ParseDuration(f.RenameRetryDelay)
}

// FileModePerm parses FileMode as octal permission bits, e.g. "0640".
func (f FileConfig) FileModePerm() (os.FileMode, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(f.FileMode), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode '%s'", f.FileMode)
	}
	mode := os.FileMode(v)
	if mode&^os.ModePerm != 0 {
		return 0, fmt.Errorf("mode '%s' has bits outside %o", f.FileMode, os.ModePerm)
	}
	return mode, nil
}

// BufferSizeBytes parses BufferSize. Only the indexed backend buffers writes.
func (f FileConfig) BufferSizeBytes() (int, error) {
	n, err := ParseSize(f.BufferSize)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > maxBufferSize {
		return 0, fmt.Errorf("must be between 1 and %d bytes, got '%s'", maxBufferSize, f.BufferSize)
	}
	return int(n), nil
}

// ParseDuration parses a duration string. Besides time.ParseDuration units it
// accepts a "d" (days) suffix. The result must be positive.
func ParseDuration(durationStr string) (time.Duration, error) {
	durationStr = strings.TrimSpace(durationStr)
	if durationStr == "" {
		return 0, errors.New("duration string cannot be empty")
	}

	lower := strings.ToLower(durationStr)
	if strings.HasSuffix(lower, "d") {
		days, err := strconv.ParseInt(strings.TrimSuffix(lower, "d"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format for days in '%s': %w", durationStr, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("duration must be positive: '%s'", durationStr)
		}
		d := time.Duration(days) * 24 * time.Hour
		if d <= 0 {
			return 0, fmt.Errorf("duration %dd results in overflow", days)
		}
		return d, nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format '%s': %w", durationStr, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: '%s'", durationStr)
	}
	return d, nil
}

var sizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"KB", 1024},
	{"K", 1024},
	{"MB", 1024 * 1024},
	{"M", 1024 * 1024},
	{"GB", 1024 * 1024 * 1024},
	{"G", 1024 * 1024 * 1024},
}

// ParseSize parses a byte count with an optional K/KB/M/MB/G/GB suffix
// (powers of 1024, case-insensitive).
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, errors.New("size string cannot be empty")
	}

	var multiplier int64 = 1
	numStr := sizeStr
	for _, u := range sizeUnits {
		if strings.HasSuffix(sizeStr, u.suffix) {
			multiplier = u.multiplier
			numStr = strings.TrimSpace(strings.TrimSuffix(sizeStr, u.suffix))
			break
		}
	}

	num, ok := new(big.Int).SetString(numStr, 10)
	if !ok {
		return 0, fmt.Errorf("invalid number format in size string '%s'", sizeStr)
	}
	if num.Sign() < 0 {
		return 0, fmt.Errorf("size cannot be negative: %s", num.String())
	}

	result := new(big.Int).Mul(num, big.NewInt(multiplier))
	if !result.IsInt64() {
		return 0, fmt.Errorf("size value '%s' results in overflow (exceeds max int64)", sizeStr)
	}
	return result.Int64(), nil
}
