package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Browser.ViewportWidth != 1280 || cfg.Browser.ViewportHeight != 720 {
		t.Errorf("expected default viewport 1280x720, got %dx%d", cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}
	if cfg.Browser.RetryAttempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Browser.RetryAttempts)
	}
	if cfg.Browser.GetRetryDelay() != time.Second {
		t.Errorf("expected default retry delay 1s, got %v", cfg.Browser.GetRetryDelay())
	}
	if cfg.Browser.GetNavigationTimeout() != 30*time.Second {
		t.Errorf("expected default navigation timeout 30s, got %v", cfg.Browser.GetNavigationTimeout())
	}
	if cfg.Capture.Count != 5 {
		t.Errorf("expected default capture count 5, got %d", cfg.Capture.Count)
	}
	if cfg.Model.GetAnswerCacheTTL() != 0 {
		t.Errorf("expected answer cache disabled by default, got %v", cfg.Model.GetAnswerCacheTTL())
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Capture.OutputDir != "artifacts/screenshots" {
		t.Errorf("expected default output dir, got %s", cfg.Capture.OutputDir)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "moontest.toml")

	content := `
[model]
path = "/models/md.mf.gz"
endpoint = "http://vision:2020"

[browser]
retry_attempts = 5
retry_delay = "250ms"
viewport_width = 375
viewport_height = 812

[capture]
output_dir = "/tmp/shots"
count = 7
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Model.Path != "/models/md.mf.gz" {
		t.Errorf("expected model path /models/md.mf.gz, got %s", cfg.Model.Path)
	}
	if cfg.Browser.RetryAttempts != 5 {
		t.Errorf("expected retry attempts 5, got %d", cfg.Browser.RetryAttempts)
	}
	if cfg.Browser.GetRetryDelay() != 250*time.Millisecond {
		t.Errorf("expected retry delay 250ms, got %v", cfg.Browser.GetRetryDelay())
	}
	if cfg.Capture.Count != 7 {
		t.Errorf("expected capture count 7, got %d", cfg.Capture.Count)
	}
	// Untouched sections keep defaults
	if cfg.Browser.GetNavigationTimeout() != 30*time.Second {
		t.Errorf("expected default navigation timeout, got %v", cfg.Browser.GetNavigationTimeout())
	}
}

func TestLoadFromFiles_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	os.WriteFile(base, []byte("[capture]\noutput_dir = \"/base\"\ncount = 3\n"), 0644)
	os.WriteFile(override, []byte("[capture]\noutput_dir = \"/override\"\n"), 0644)

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Capture.OutputDir != "/override" {
		t.Errorf("expected later file to win, got %s", cfg.Capture.OutputDir)
	}
	if cfg.Capture.Count != 3 {
		t.Errorf("expected count from base file, got %d", cfg.Capture.Count)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/moontest.toml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("[capture\ncount = "), 0644)

	_, err := LoadFromFiles(path)
	if err == nil {
		t.Error("expected parse error for invalid TOML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MOONTEST_MODEL_PATH", "/env/model")
	t.Setenv("MOONTEST_OUTPUT_DIR", "/env/out")
	t.Setenv("MOONTEST_BROWSER_REMOTE_URL", "ws://chrome:9222")
	t.Setenv("MOONTEST_HEADLESS", "false")
	t.Setenv("MOONTEST_RETRY_ATTEMPTS", "9")
	t.Setenv("MOONTEST_FIXTURES_PORT", "9100")
	t.Setenv("MOONTEST_LOG_LEVEL", "debug")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Model.Path != "/env/model" {
		t.Errorf("model path = %s", cfg.Model.Path)
	}
	if cfg.Capture.OutputDir != "/env/out" {
		t.Errorf("output dir = %s", cfg.Capture.OutputDir)
	}
	if cfg.Browser.RemoteURL != "ws://chrome:9222" {
		t.Errorf("remote url = %s", cfg.Browser.RemoteURL)
	}
	if cfg.Browser.Headless {
		t.Error("expected headless=false from env")
	}
	if cfg.Browser.RetryAttempts != 9 {
		t.Errorf("retry attempts = %d", cfg.Browser.RetryAttempts)
	}
	if cfg.Fixtures.Port != 9100 {
		t.Errorf("fixtures port = %d", cfg.Fixtures.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_InvalidNumber(t *testing.T) {
	t.Setenv("MOONTEST_RETRY_ATTEMPTS", "not-a-number")

	cfg, _ := LoadFromFiles()
	if cfg.Browser.RetryAttempts != 3 {
		t.Errorf("invalid env value should keep default 3, got %d", cfg.Browser.RetryAttempts)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, "/flag/model", "/flag/out", true)

	if cfg.Model.Path != "/flag/model" || cfg.Capture.OutputDir != "/flag/out" || cfg.Browser.Headless {
		t.Errorf("flag overrides not applied: %+v", cfg)
	}

	cfg = NewDefaultConfig()
	ApplyFlagOverrides(cfg, "", "", false)
	if cfg.Model.Path != NewDefaultConfig().Model.Path || !cfg.Browser.Headless {
		t.Error("empty flags should not override config")
	}
}

func TestValidate_MissingModel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.mf.gz")

	issues := cfg.Validate()
	if len(issues) != 1 || !strings.Contains(issues[0], "model not found") {
		t.Errorf("expected single model-not-found issue, got %v", issues)
	}
}

func TestValidate_OK(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.mf.gz")
	os.WriteFile(model, []byte("weights"), 0644)

	cfg := NewDefaultConfig()
	cfg.Model.Path = model
	cfg.Capture.OutputDir = filepath.Join(dir, "out")

	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidate_BadValues(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.mf.gz")
	os.WriteFile(model, []byte("weights"), 0644)

	cfg := NewDefaultConfig()
	cfg.Model.Path = model
	cfg.Capture.Count = 0
	cfg.Browser.RetryAttempts = 0
	cfg.Browser.RetryDelay = "soon"

	issues := strings.Join(cfg.Validate(), "\n")
	for _, want := range []string{"capture.count", "browser.retry_attempts", "browser.retry_delay"} {
		if !strings.Contains(issues, want) {
			t.Errorf("expected issue mentioning %s, got:\n%s", want, issues)
		}
	}
}

func TestValidate_DurationIssuesInStableOrder(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.mf.gz")
	os.WriteFile(model, []byte("weights"), 0644)

	cfg := NewDefaultConfig()
	cfg.Model.Path = model
	cfg.Browser.NavigationTimeout = "a"
	cfg.Browser.RetryDelay = "b"
	cfg.Capture.QuietWindow = "c"
	cfg.Model.Timeout = "d"
	cfg.Model.AnswerCacheTTL = "e"

	want := []string{
		`browser.navigation_timeout: invalid duration "a"`,
		`browser.retry_delay: invalid duration "b"`,
		`capture.quiet_window: invalid duration "c"`,
		`model.timeout: invalid duration "d"`,
		`model.answer_cache_ttl: invalid duration "e"`,
	}
	for run := 0; run < 20; run++ {
		got := cfg.Validate()
		if strings.Join(got, "\n") != strings.Join(want, "\n") {
			t.Fatalf("run %d: issues = %q, want %q", run, got, want)
		}
	}
}

func TestEnsureOutputDir_Creates(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Capture.OutputDir = filepath.Join(t.TempDir(), "a", "b", "screens")

	if err := cfg.EnsureOutputDir(); err != nil {
		t.Fatalf("EnsureOutputDir failed: %v", err)
	}
	if info, err := os.Stat(cfg.Capture.OutputDir); err != nil || !info.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
	if cfg.ResultsPath() != filepath.Join(cfg.Capture.OutputDir, "results.json") {
		t.Errorf("unexpected results path %s", cfg.ResultsPath())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	os.WriteFile(envPath, []byte("MOONTEST_TEST_DOTENV=loaded\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("MOONTEST_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("MOONTEST_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected variable from .env, got %q", got)
	}
}

func TestLoadFromFiles_ShippedConfig(t *testing.T) {
	cfg, err := LoadFromFiles("../../config/moontest.toml")
	if err != nil {
		t.Fatalf("shipped config does not load: %v", err)
	}

	defaults := NewDefaultConfig()
	if cfg.Capture.Count != defaults.Capture.Count {
		t.Errorf("shipped capture.count %d differs from default %d", cfg.Capture.Count, defaults.Capture.Count)
	}
	if cfg.Browser.RetryAttempts != defaults.Browser.RetryAttempts {
		t.Errorf("shipped retry_attempts %d differs from default %d", cfg.Browser.RetryAttempts, defaults.Browser.RetryAttempts)
	}
	if cfg.Browser.GetNavigationTimeout() != 30*time.Second {
		t.Errorf("unexpected navigation timeout %v", cfg.Browser.GetNavigationTimeout())
	}
}
