package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/moontest/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Model    ModelConfig          `toml:"model"`
	Browser  BrowserConfig        `toml:"browser"`
	Capture  CaptureConfig        `toml:"capture"`
	Fixtures FixturesConfig       `toml:"fixtures"`
	MCP      MCPConfig            `toml:"mcp"`
	Logging  common.LoggingConfig `toml:"logging"`
}

// ModelConfig locates the vision model and the service answering queries.
type ModelConfig struct {
	Path           string `toml:"path"`
	Endpoint       string `toml:"endpoint"`
	Timeout        string `toml:"timeout"`
	AnswerCacheTTL string `toml:"answer_cache_ttl"`
	CacheEntries   int    `toml:"cache_entries"`
}

// BrowserConfig contains browser session settings.
type BrowserConfig struct {
	Headless          bool   `toml:"headless"`
	RemoteURL         string `toml:"remote_url"`
	ExecPath          string `toml:"exec_path"`
	RecordVideo       bool   `toml:"record_video"`
	ViewportWidth     int    `toml:"viewport_width"`
	ViewportHeight    int    `toml:"viewport_height"`
	NavigationTimeout string `toml:"navigation_timeout"`
	RetryAttempts     int    `toml:"retry_attempts"`
	RetryDelay        string `toml:"retry_delay"`
	FullPage          bool   `toml:"full_page"`
}

// CaptureConfig contains screenshot capture settings.
type CaptureConfig struct {
	OutputDir   string `toml:"output_dir"`
	Count       int    `toml:"count"`
	QuietWindow string `toml:"quiet_window"`
}

// FixturesConfig configures the local static server for fixture pages.
type FixturesConfig struct {
	Root string `toml:"root"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Name string `toml:"name"`
	Port string `toml:"port"`
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides applies MOONTEST_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MOONTEST_MODEL_PATH"); v != "" {
		config.Model.Path = v
	}
	if v := os.Getenv("MOONTEST_MODEL_ENDPOINT"); v != "" {
		config.Model.Endpoint = v
	}
	if v := os.Getenv("MOONTEST_OUTPUT_DIR"); v != "" {
		config.Capture.OutputDir = v
	}
	if v := os.Getenv("MOONTEST_BROWSER_REMOTE_URL"); v != "" {
		config.Browser.RemoteURL = v
	}
	if v := os.Getenv("MOONTEST_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = b
		}
	}
	if v := os.Getenv("MOONTEST_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Browser.RetryAttempts = n
		}
	}
	if v := os.Getenv("MOONTEST_FIXTURES_ROOT"); v != "" {
		config.Fixtures.Root = v
	}
	if v := os.Getenv("MOONTEST_FIXTURES_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Fixtures.Port = p
		}
	}
	if v := os.Getenv("MOONTEST_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, modelPath, outputDir string, headed bool) {
	if modelPath != "" {
		config.Model.Path = modelPath
	}
	if outputDir != "" {
		config.Capture.OutputDir = outputDir
	}
	if headed {
		config.Browser.Headless = false
	}
}

// Validate returns a list of configuration problems. An empty list means the
// configuration is usable.
func (c *Config) Validate() []string {
	var issues []string

	if strings.TrimSpace(c.Model.Path) == "" {
		issues = append(issues, "model.path is required")
	} else if _, err := os.Stat(c.Model.Path); err != nil {
		issues = append(issues, fmt.Sprintf("model not found at %s", c.Model.Path))
	}
	if strings.TrimSpace(c.Model.Endpoint) == "" {
		issues = append(issues, "model.endpoint is required")
	}
	if strings.TrimSpace(c.Capture.OutputDir) == "" {
		issues = append(issues, "capture.output_dir is required")
	}
	if c.Capture.Count < 1 {
		issues = append(issues, fmt.Sprintf("capture.count must be at least 1, got %d", c.Capture.Count))
	}
	if c.Browser.RetryAttempts < 1 {
		issues = append(issues, fmt.Sprintf("browser.retry_attempts must be at least 1, got %d", c.Browser.RetryAttempts))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		issues = append(issues, fmt.Sprintf("browser viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight))
	}
	durations := []struct{ name, value string }{
		{"browser.navigation_timeout", c.Browser.NavigationTimeout},
		{"browser.retry_delay", c.Browser.RetryDelay},
		{"capture.quiet_window", c.Capture.QuietWindow},
		{"model.timeout", c.Model.Timeout},
		{"model.answer_cache_ttl", c.Model.AnswerCacheTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			issues = append(issues, fmt.Sprintf("%s: invalid duration %q", d.name, d.value))
		}
	}

	return issues
}

// EnsureOutputDir creates the screenshot output directory if absent.
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.Capture.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", c.Capture.OutputDir, err)
	}
	return nil
}

// ResultsPath is the location of the persisted result array.
func (c *Config) ResultsPath() string {
	return filepath.Join(c.Capture.OutputDir, "results.json")
}

// VideoDir is where session recordings are written.
func (c *Config) VideoDir() string {
	return filepath.Join(c.Capture.OutputDir, "videos")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetNavigationTimeout returns the navigation bound, 30s if unset or invalid.
func (c *BrowserConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(c.NavigationTimeout, 30*time.Second)
}

// GetRetryDelay returns the pause between session attempts.
func (c *BrowserConfig) GetRetryDelay() time.Duration {
	return parseDuration(c.RetryDelay, time.Second)
}

// GetQuietWindow returns how long the network must stay idle after
// navigation.
func (c *CaptureConfig) GetQuietWindow() time.Duration {
	return parseDuration(c.QuietWindow, 500*time.Millisecond)
}

// GetTimeout returns the per-request model timeout.
func (c *ModelConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

// GetAnswerCacheTTL returns the answer cache lifetime. Zero disables the cache.
func (c *ModelConfig) GetAnswerCacheTTL() time.Duration {
	return parseDuration(c.AnswerCacheTTL, 0)
}
