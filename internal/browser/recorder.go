package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/moontest/internal/common"
)

// recorder stores the page screencast as numbered JPEG frames.
type recorder struct {
	dir    string
	logger *common.Logger

	mu      sync.Mutex
	frames  int
	stopped bool
	wg      sync.WaitGroup
}

func newRecorder(dir string, logger *common.Logger) (*recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory %s: %w", dir, err)
	}
	return &recorder{dir: dir, logger: logger}, nil
}

func (r *recorder) start(pageCtx context.Context) error {
	return chromedp.Run(pageCtx,
		page.StartScreencast().
			WithFormat(page.ScreencastFormatJpeg).
			WithQuality(70),
	)
}

// onFrame handles a screencast frame. It runs off the event loop because
// acknowledging a frame issues a CDP command.
func (r *recorder) onFrame(pageCtx context.Context, ev *page.EventScreencastFrame) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.frames++
	n := r.frames
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		if data, err := base64.StdEncoding.DecodeString(ev.Data); err == nil {
			path := filepath.Join(r.dir, fmt.Sprintf("frame_%05d.jpg", n))
			if err := os.WriteFile(path, data, 0644); err != nil {
				r.logger.Debug().Err(err).Str("path", path).Msg("recording frame write failed")
			}
		}

		// Chrome stops sending frames until the previous one is acked.
		_ = chromedp.Run(pageCtx, page.ScreencastFrameAck(ev.SessionID))
	}()
}

func (r *recorder) stop(pageCtx context.Context) {
	_ = chromedp.Run(pageCtx, page.StopScreencast())

	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()

	r.mu.Lock()
	frames := r.frames
	r.mu.Unlock()
	r.logger.Debug().Str("dir", r.dir).Int("frames", frames).Msg("session recording stopped")
}
