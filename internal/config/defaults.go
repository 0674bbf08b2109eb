package config

import "github.com/bobmcallan/moontest/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Path:           "models/moondream-0_5b-int8.mf.gz",
			Endpoint:       "http://localhost:2020",
			Timeout:        "60s",
			AnswerCacheTTL: "0s",
			CacheEntries:   256,
		},
		Browser: BrowserConfig{
			Headless:          true,
			RecordVideo:       true,
			ViewportWidth:     1280,
			ViewportHeight:    720,
			NavigationTimeout: "30s",
			RetryAttempts:     3,
			RetryDelay:        "1s",
		},
		Capture: CaptureConfig{
			OutputDir:   "artifacts/screenshots",
			Count:       5,
			QuietWindow: "500ms",
		},
		Fixtures: FixturesConfig{
			Root: "fixtures/pages",
			Host: "127.0.0.1",
			Port: 8000,
		},
		MCP: MCPConfig{
			Name: "Moontest-MCP",
			Port: "4250",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/moontest.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
