package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgoj/rotalog/internal/level"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, content string) string {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "config.yaml")
	err := os.WriteFile(tempFile, []byte(content), 0644)
	require.NoError(t, err, "Failed to create temporary config file")
	return tempFile
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(&cfg))

	assert.Equal(t, level.Debug, cfg.Console.Level)
	assert.Equal(t, level.Debug, cfg.File.Level)
	assert.Equal(t, level.Info, cfg.File.FlushLevel)
	assert.Equal(t, DefaultFilePath, cfg.File.Path)
	assert.Equal(t, uint(5), cfg.File.OpenRetries)

	interval, err := cfg.File.OpenRetryIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, interval)

	delay, err := cfg.File.RenameRetryDelayDuration()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, delay)

	mode, err := cfg.File.FileModePerm()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), mode)

	bufSize, err := cfg.File.BufferSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, 4096, bufSize)
}

func TestFileConfigAccessors(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		buffer   string
		wantMode os.FileMode
		wantBuf  int
		wantErr  bool
	}{
		{"owner only", "0600", "64KB", 0o600, 64 * 1024, false},
		{"no leading zero", "640", "512", 0o640, 512, false},
		{"not octal", "0698", "4KB", 0, 0, true},
		{"setuid bit", "4755", "4KB", 0, 0, true},
		{"zero buffer", "0644", "0", 0, 0, true},
		{"huge buffer", "0644", "1GB", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := FileConfig{FileMode: tt.mode, BufferSize: tt.buffer}
			mode, modeErr := fc.FileModePerm()
			buf, bufErr := fc.BufferSizeBytes()
			if tt.wantErr {
				assert.True(t, modeErr != nil || bufErr != nil)
				return
			}
			require.NoError(t, modeErr)
			require.NoError(t, bufErr)
			assert.Equal(t, tt.wantMode, mode)
			assert.Equal(t, tt.wantBuf, buf)
		})
	}
}

func TestLoadConfig_Example(t *testing.T) {
	cfg, err := LoadConfig("../../config/example.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, BackendIndexed, cfg.File.Backend)
	size, err := cfg.File.MaxSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(50*1024*1024), size)
	require.Len(t, cfg.Filters, 1)
	assert.Equal(t, level.Warn, cfg.Filters[0].MinLevel)
	assert.False(t, cfg.Admin.Enabled)
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	path := createTempConfigFile(t, `
console:
  level: WARNING
file:
  max_size: 1KB
  max_files: 3
admin:
  enabled: true
  allowed_ips: ["10.0.0.0/8"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Console.Enabled)
	assert.Equal(t, level.Warn, cfg.Console.Level)
	assert.Equal(t, "stdout", cfg.Console.Target)
	assert.Equal(t, 3, cfg.File.MaxFiles)
	assert.Equal(t, DefaultFilePath, cfg.File.Path)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Admin.AllowedIPs)
	assert.Equal(t, "127.0.0.1:9470", cfg.Admin.Listen)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidCases(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"bad yaml", "console: [", "error parsing config file"},
		{"unknown level", "console:\n  level: loud\n", "unknown log level"},
		{"bad target", "console:\n  target: syslog\n", "Console.Target"},
		{"bad backend", "file:\n  backend: s3\n", "File.Backend"},
		{"negative max files", "file:\n  max_files: -1\n", "File.MaxFiles"},
		{"lumberjack without backups", "file:\n  backend: lumberjack\n  max_files: 0\n", "file.max_files must be positive for the lumberjack backend"},
		{"too many max files", "file:\n  max_files: 300000\n", "file.max_files"},
		{"zero open retries", "file:\n  open_retries: 0\n", "File.OpenRetries"},
		{"bad size", "file:\n  max_size: 10X\n", "file.max_size"},
		{"zero size", "file:\n  max_size: 0\n", "file.max_size must be positive"},
		{"empty path", "file:\n  path: \"\"\n", "file.path is required"},
		{"bad interval", "file:\n  open_retry_interval: soon\n", "file.open_retry_interval"},
		{"bad rename delay", "file:\n  rename_retry_delay: -1s\n", "file.rename_retry_delay"},
		{"bad file mode", "file:\n  file_mode: rw-r--r--\n", "file.file_mode"},
		{"bad buffer size", "file:\n  buffer_size: 0\n", "file.buffer_size"},
		{"negative message length", "format:\n  max_message_length: -5\n", "Format.MaxMessageLength"},
		{"filter without match", "filters:\n  - min_level: warn\n", "Match"},
		{"bad glob", "filters:\n  - match: \"[\"\n    min_level: warn\n", "filters[0].match"},
		{"bad listen", "admin:\n  enabled: true\n  listen: nowhere\n", "admin.listen"},
		{"bad allowed ip", "admin:\n  enabled: true\n  allowed_ips: [\"300.1.1.1\"]\n", "admin.allowed_ips"},
		{"empty allowed ips", "admin:\n  enabled: true\n  allowed_ips: []\n", "at least one"},
		{"negative rate limit", "admin:\n  rate_limit: -1\n", "Admin.RateLimit"},
		{"profiler without path", "profiler:\n  enabled: true\n  path: \"\"\n", "profiler.path"},
		{"profiler bad size", "profiler:\n  enabled: true\n  max_size: 0\n", "profiler.max_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempConfigFile(t, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestValidateConfig_DisabledFileSkipsFileChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File.Enabled = false
	cfg.File.Path = ""
	cfg.File.MaxSize = "0"
	cfg.File.FileMode = "bogus"
	assert.NoError(t, ValidateConfig(&cfg))
}

func TestValidateConfig_InvalidLevelValue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File.FlushLevel = level.Level(99)
	err := ValidateConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file.flush_level")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		durationStr string
		expected    time.Duration
		wantErr     bool
	}{
		{"milliseconds", "10ms", 10 * time.Millisecond, false},
		{"seconds", "30s", 30 * time.Second, false},
		{"days", "2d", 48 * time.Hour, false},
		{"days uppercase", "1D", 24 * time.Hour, false},
		{"with spaces", " 5m ", 5 * time.Minute, false},
		{"zero", "0s", 0, true},
		{"zero days", "0d", 0, true},
		{"negative", "-1s", 0, true},
		{"negative days", "-3d", 0, true},
		{"bad days", "xd", 0, true},
		{"garbage", "soon", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.durationStr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		name     string
		sizeStr  string
		expected int64
		wantErr  bool
	}{
		{"valid bytes no suffix", "1024", 1024, false},
		{"valid kilobytes K", "10K", 10 * 1024, false},
		{"valid kilobytes KB", "2KB", 2 * 1024, false},
		{"valid megabytes M", "5M", 5 * 1024 * 1024, false},
		{"valid megabytes MB", "100MB", 100 * 1024 * 1024, false},
		{"valid gigabytes G", "1G", 1 * 1024 * 1024 * 1024, false},
		{"valid gigabytes GB", "2GB", 2 * 1024 * 1024 * 1024, false},
		{"valid lowercase k", "5k", 5 * 1024, false},
		{"valid lowercase mb", "50mb", 50 * 1024 * 1024, false},
		{"valid with space", " 100 MB ", 100 * 1024 * 1024, false},
		{"zero bytes", "0", 0, false},
		{"zero kilobytes", "0k", 0, false},
		{"invalid number", "abcM", 0, true},
		{"invalid suffix", "10X", 0, true},
		{"negative number", "-5M", 0, true},
		{"empty string", "", 0, true},
		{"suffix only", "MB", 0, true},
		{"overflow G large number", "9000000000G", 0, true},
		{"max int64 bytes", "9223372036854775807", 9223372036854775807, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.sizeStr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSize() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("ParseSize() = %v, want %v", got, tt.expected)
			}
		})
	}
}
