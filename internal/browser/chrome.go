package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/bobmcallan/moontest/internal/common"
)

// ChromeLauncher starts Chrome sessions through chromedp. With RemoteURL set
// it attaches to an already running browser's DevTools endpoint instead of
// spawning a local process.
type ChromeLauncher struct {
	Headless  bool
	RemoteURL string
	ExecPath  string
	Logger    *common.Logger
}

// Launch starts the browser, opens an isolated browser context with one page
// and applies the viewport.
func (l *ChromeLauncher) Launch(ctx context.Context, opts SessionOptions) (Session, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if l.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, l.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", l.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
		)
		if l.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(l.ExecPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	browserCtx, _ := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			l.Logger.Debug().Msg(fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	pageCtx, _ := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())

	s := &chromeSession{
		opts:        opts,
		logger:      l.Logger,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		pageCtx:     pageCtx,
		idle:        newIdleTracker(),
	}

	if opts.RecordDir != "" {
		rec, err := newRecorder(filepath.Join(opts.RecordDir, uuid.New().String()), l.Logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.recorder = rec
	}

	chromedp.ListenTarget(pageCtx, s.onEvent)

	err := chromedp.Run(pageCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(opts.Viewport.Width), int64(opts.Viewport.Height)),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if s.recorder != nil {
		if err := s.recorder.start(pageCtx); err != nil {
			l.Logger.Warn().Err(err).Msg("session recording unavailable")
			s.recorder = nil
		}
	}

	return s, nil
}

type chromeSession struct {
	opts   SessionOptions
	logger *common.Logger

	allocCancel context.CancelFunc
	browserCtx  context.Context
	pageCtx     context.Context

	idle     *idleTracker
	recorder *recorder
}

func (s *chromeSession) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		s.idle.started(string(e.RequestID))
	case *network.EventLoadingFinished:
		s.idle.finished(string(e.RequestID))
	case *network.EventLoadingFailed:
		s.idle.finished(string(e.RequestID))
	case *page.EventScreencastFrame:
		if s.recorder != nil {
			s.recorder.onFrame(s.pageCtx, e)
		}
	}
}

// runCtx derives a chromedp context from the page that is also cancelled
// when ctx is.
func (s *chromeSession) runCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.pageCtx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runCtx(ctx)
	defer cancel()

	if s.opts.NavigationTimeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, s.opts.NavigationTimeout)
		defer timeoutCancel()
	}

	s.idle.reset()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return err
	}
	if err := s.idle.wait(runCtx, s.opts.QuietWindow); err != nil {
		return fmt.Errorf("waiting for network idle: %w", err)
	}
	return nil
}

func (s *chromeSession) Screenshot(ctx context.Context, path string) error {
	runCtx, cancel := s.runCtx(ctx)
	defer cancel()

	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if s.opts.FullPage {
		// quality 100 keeps FullScreenshot in PNG
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Close stops recording, disposes the browser context and shuts the browser.
func (s *chromeSession) Close() error {
	if s.recorder != nil {
		s.recorder.stop(s.pageCtx)
	}

	var errs []error
	if err := chromedp.Cancel(s.pageCtx); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	s.allocCancel()

	return errors.Join(errs...)
}
