// Package app builds the capture, vision and result pipeline from config.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/moontest/internal/browser"
	"github.com/bobmcallan/moontest/internal/cache"
	"github.com/bobmcallan/moontest/internal/capture"
	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/config"
	"github.com/bobmcallan/moontest/internal/models"
	"github.com/bobmcallan/moontest/internal/results"
	"github.com/bobmcallan/moontest/internal/runner"
	"github.com/bobmcallan/moontest/internal/vision"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Sessions *browser.Controller
	Capture  *capture.Engine
	Vision   *vision.Analyzer
	Answers  *cache.AnswerCache
	Store    *results.JSONStore
	Runner   *runner.Orchestrator
}

// Option replaces an external boundary, mainly for tests.
type Option func(*options)

type options struct {
	launcher browser.Launcher
	model    vision.Model
}

// WithLauncher uses l instead of Chrome.
func WithLauncher(l browser.Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithModel uses m instead of the HTTP model client.
func WithModel(m vision.Model) Option {
	return func(o *options) { o.model = m }
}

// New validates cfg and initializes the application. An invalid
// configuration, including a missing model file, fails here.
func New(cfg *config.Config, logger *common.Logger, opts ...Option) (*App, error) {
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if o.launcher == nil {
		o.launcher = &browser.ChromeLauncher{
			Headless:  cfg.Browser.Headless,
			RemoteURL: cfg.Browser.RemoteURL,
			ExecPath:  cfg.Browser.ExecPath,
			Logger:    logger,
		}
	}
	if o.model == nil {
		o.model = vision.NewStationClient(cfg.Model.Endpoint, modelName(cfg.Model.Path), cfg.Model.GetTimeout())
	}

	a.initPipeline(o)

	logger.Info().
		Str("model", cfg.Model.Path).
		Str("endpoint", cfg.Model.Endpoint).
		Str("output_dir", cfg.Capture.OutputDir).
		Msg("application initialization complete")

	return a, nil
}

func (a *App) initPipeline(o options) {
	cfg := a.Config

	session := browser.SessionOptions{
		Viewport: models.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		NavigationTimeout: cfg.Browser.GetNavigationTimeout(),
		QuietWindow:       cfg.Capture.GetQuietWindow(),
		FullPage:          cfg.Browser.FullPage,
	}
	if cfg.Browser.RecordVideo {
		session.RecordDir = cfg.VideoDir()
	}

	a.Sessions = browser.NewController(o.launcher, browser.ControllerConfig{
		RetryAttempts: cfg.Browser.RetryAttempts,
		RetryDelay:    cfg.Browser.GetRetryDelay(),
		Session:       session,
	}, a.Logger)

	a.Capture = capture.NewEngine(a.Sessions, capture.Config{
		OutputDir: cfg.Capture.OutputDir,
		Count:     cfg.Capture.Count,
	}, a.Logger)

	if ttl := cfg.Model.GetAnswerCacheTTL(); ttl > 0 {
		a.Answers = cache.New(ttl, cfg.Model.CacheEntries)
	}
	a.Vision = vision.NewAnalyzer(o.model, a.Answers, a.Logger)

	a.Store = results.NewJSONStore(cfg.ResultsPath(), a.Logger)
	a.Runner = runner.New(a.Capture, a.Vision, a.Store, a.Logger)

	a.Logger.Debug().Msg("pipeline initialized")
}

// RunAll runs tests one after another and returns their results in order.
// It stops early only when ctx is cancelled.
func (a *App) RunAll(ctx context.Context, tests []models.Test) []*models.TestResult {
	out := make([]*models.TestResult, 0, len(tests))
	for _, t := range tests {
		if ctx.Err() != nil {
			break
		}
		out = append(out, a.Runner.Run(ctx, t))
	}
	return out
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}

// modelName derives the weights name from the model artifact path,
// "models/moondream-0_5b-int8.mf.gz" -> "moondream-0_5b-int8".
func modelName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".mf"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
