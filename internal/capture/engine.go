// Package capture navigates a fresh browser session to a test URL and writes
// the screenshots a query needs.
package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/moontest/internal/browser"
	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/models"
)

// DefaultCount is the burst size for dynamic queries.
const DefaultCount = 5

// timestampLayout keeps milliseconds. Engine.stamp keeps successive capture
// times at least a millisecond apart so names never repeat.
const timestampLayout = "20060102_150405.000"

// Sessions runs fn against a page that is released when fn returns.
// *browser.Controller implements it.
type Sessions interface {
	With(ctx context.Context, viewport *models.Viewport, fn func(browser.Page) error) error
}

// Config controls where screenshots go and how many a burst takes.
type Config struct {
	OutputDir string
	Count     int
}

// Engine implements interfaces.Capturer.
type Engine struct {
	sessions Sessions
	cfg      Config
	logger   *common.Logger
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewEngine creates a capture engine. A Count below one uses DefaultCount.
func NewEngine(sessions Sessions, cfg Config, logger *common.Logger) *Engine {
	if cfg.Count < 1 {
		cfg.Count = DefaultCount
	}
	return &Engine{
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Capture opens a session, loads test.URL and takes one screenshot, or
// Count screenshots spaced by the query interval for dynamic queries. The
// first shot is taken as soon as the network settles. Session setup errors
// are returned as is; navigation and screenshot errors as *models.CaptureError.
func (e *Engine) Capture(ctx context.Context, test models.Test, query models.Query) ([]models.Screenshot, error) {
	count := 1
	if query.IsDynamic() {
		count = e.cfg.Count
	}
	interval := query.Interval()

	var shots []models.Screenshot
	err := e.sessions.With(ctx, test.Viewport, func(p browser.Page) error {
		if err := p.Navigate(ctx, test.URL); err != nil {
			return &models.CaptureError{URL: test.URL, Op: "navigate", Err: err}
		}

		for i := 0; i < count; i++ {
			if i > 0 {
				if err := common.Sleep(ctx, interval); err != nil {
					return &models.CaptureError{URL: test.URL, Op: "wait", Err: err}
				}
			}

			at := e.stamp()
			path := filepath.Join(e.cfg.OutputDir, fileName(test.Name, at, time.Duration(i)*interval, query.IsDynamic()))
			if err := p.Screenshot(ctx, path); err != nil {
				return &models.CaptureError{URL: test.URL, Op: "screenshot", Err: err}
			}
			shots = append(shots, models.Screenshot{Path: path, Index: i, CapturedAt: at})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("test", test.Name).
		Str("url", test.URL).
		Int("screenshots", len(shots)).
		Msg("capture complete")

	return shots, nil
}

// stamp returns the current time, moved forward to the next millisecond when
// it would format the same as the previous capture.
func (e *Engine) stamp() time.Time {
	at := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.last.IsZero() {
		prev := e.last.Truncate(time.Millisecond)
		if !at.Truncate(time.Millisecond).After(prev) {
			at = prev.Add(time.Millisecond)
		}
	}
	e.last = at
	return at
}

// fileName builds {name}_{timestamp}[_{offset}].png, where offset is the
// shot's distance in milliseconds from the first shot of a burst.
func fileName(testName string, at time.Time, offset time.Duration, burst bool) string {
	name := sanitize(testName) + "_" + at.Format(timestampLayout)
	if burst {
		name += fmt.Sprintf("_%d", offset.Milliseconds())
	}
	return name + ".png"
}

func sanitize(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" {
		name = "test"
	}
	return name
}
