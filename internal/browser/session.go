// Package browser manages browser sessions: one browser process, an isolated
// browser context and a single page, acquired with bounded retry.
package browser

import (
	"context"
	"time"

	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/models"
)

// Page is what a capture needs from an open session.
type Page interface {
	// Navigate loads url and returns once the network has been quiet for the
	// session's quiet window.
	Navigate(ctx context.Context, url string) error
	// Screenshot writes a PNG of the page to path.
	Screenshot(ctx context.Context, path string) error
}

// Session is an open browser, context and page.
type Session interface {
	Page
	Close() error
}

// SessionOptions configure a single launch.
type SessionOptions struct {
	Viewport          models.Viewport
	RecordDir         string
	NavigationTimeout time.Duration
	QuietWindow       time.Duration
	FullPage          bool
}

// Launcher starts sessions. The chromedp implementation is ChromeLauncher.
type Launcher interface {
	Launch(ctx context.Context, opts SessionOptions) (Session, error)
}

// ControllerConfig holds retry policy and session defaults.
type ControllerConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
	Session       SessionOptions
}

// Controller acquires and releases sessions.
type Controller struct {
	launcher Launcher
	cfg      ControllerConfig
	logger   *common.Logger
}

// NewController creates a controller. Fewer than one attempt is treated as one.
func NewController(launcher Launcher, cfg ControllerConfig, logger *common.Logger) *Controller {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Controller{
		launcher: launcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Acquire launches a session, retrying failed launches with a fixed delay.
// A non-nil viewport overrides the configured default.
func (c *Controller) Acquire(ctx context.Context, viewport *models.Viewport) (Session, error) {
	opts := c.cfg.Session
	if viewport != nil {
		opts.Viewport = *viewport
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		session, err := c.launcher.Launch(ctx, opts)
		if err == nil {
			c.logger.Debug().
				Int("attempt", attempt).
				Int("width", opts.Viewport.Width).
				Int("height", opts.Viewport.Height).
				Msg("browser session ready")
			return session, nil
		}
		lastErr = err

		if attempt == c.cfg.RetryAttempts {
			break
		}
		c.logger.Warn().
			Int("attempt", attempt).
			Int("max_attempts", c.cfg.RetryAttempts).
			Err(err).
			Msg("browser setup failed, retrying")

		if err := common.Sleep(ctx, c.cfg.RetryDelay); err != nil {
			return nil, &models.SessionSetupError{Attempts: attempt, Err: err}
		}
	}

	return nil, &models.SessionSetupError{Attempts: c.cfg.RetryAttempts, Err: lastErr}
}

// Release closes the session. Close errors are logged, not returned.
func (c *Controller) Release(s Session) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("browser session close failed")
	}
}

// With acquires a session, runs fn against its page and releases the session
// on every exit path.
func (c *Controller) With(ctx context.Context, viewport *models.Viewport, fn func(Page) error) error {
	session, err := c.Acquire(ctx, viewport)
	if err != nil {
		return err
	}
	defer c.Release(session)

	return fn(session)
}
