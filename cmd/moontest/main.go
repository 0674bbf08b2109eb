// Command moontest runs TOML suite files of visual UI tests.
//
//	moontest [flags] suite.toml [suite.toml ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bobmcallan/moontest/internal/app"
	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/config"
	"github.com/bobmcallan/moontest/internal/fixtures"
	"github.com/bobmcallan/moontest/internal/suite"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	modelPath   = flag.String("model", "", "Vision model path (overrides config)")
	outputDir   = flag.String("output", "", "Screenshot output directory (overrides config)")
	headed      = flag.Bool("headed", false, "Show the browser window")
	serve       = flag.Bool("serve", false, "Serve fixture pages even if no test uses {{base_url}}")
	envFile     = flag.String("env", ".env", "Environment file loaded before config")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()
	common.LoadVersionFromFile()

	if *showVersion {
		fmt.Printf("moontest version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	os.Exit(run(flag.Args()))
}

// run executes the suites and returns the process exit code: 0 when every
// test completed without error, 1 otherwise, 2 for usage errors.
func run(suiteFiles []string) int {
	if len(suiteFiles) == 0 {
		fmt.Fprintln(os.Stderr, "usage: moontest [flags] suite.toml [suite.toml ...]")
		flag.PrintDefaults()
		return 2
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load environment: %v\n", err)
		return 1
	}

	if len(configFiles) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configFiles = append(configFiles, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	config.ApplyFlagOverrides(cfg, *modelPath, *outputDir, *headed)

	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Configuration error:")
		fmt.Fprintln(os.Stderr, "")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Values can be set via TOML file, MOONTEST_* environment variables, or CLI flags.")
		fmt.Fprintln(os.Stderr, "")
		return 1
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().
		Str("version", common.GetVersion()).
		Str("config_files", fmt.Sprintf("%v", configFiles)).
		Int("suites", len(suiteFiles)).
		Msg("configuration loaded")

	tests, err := suite.Load(suiteFiles...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load suites")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve || suite.NeedsBaseURL(tests) {
		fx := fixtures.New(cfg.Fixtures.Root, cfg.Fixtures.Host, cfg.Fixtures.Port, logger)
		if err := fx.Start(); err != nil {
			logger.Error().Err(err).Msg("failed to start fixture server")
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := fx.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("fixture server shutdown failed")
			}
		}()
		tests = suite.WithBaseURL(tests, fx.URL())
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return 1
	}
	defer application.Close()

	results := application.RunAll(ctx, tests)
	failed := printSummary(os.Stdout, results)

	logger.Info().
		Int("tests", len(results)).
		Int("failed", failed).
		Str("results", application.Store.Path()).
		Msg("run complete")

	if failed > 0 || len(results) < len(tests) {
		return 1
	}
	return 0
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
func configSearchPaths() []string {
	candidates := []string{
		"moontest.toml",
		"config/moontest.toml",
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)
	return append([]string{
		filepath.Join(binDir, "moontest.toml"),
		filepath.Join(binDir, "config", "moontest.toml"),
	}, candidates...)
}
