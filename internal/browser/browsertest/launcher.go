// Package browsertest provides an in-memory browser.Launcher for tests.
package browsertest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/bobmcallan/moontest/internal/browser"
)

// Shot is one screenshot the fake page wrote.
type Shot struct {
	Path string
	At   time.Time
}

// Launcher hands out fake sessions. Screenshots are real PNG files whose
// width is the 1-based shot number across the launcher, so a test can tell
// frames apart after the fact.
type Launcher struct {
	// Failures is how many launches fail before one succeeds.
	Failures int
	// NavigateErr fails every navigation when set.
	NavigateErr error
	// FailShotAt fails the n-th screenshot across the launcher.
	FailShotAt int

	mu       sync.Mutex
	launches int
	opened   int
	closed   int
	opts     []browser.SessionOptions
	shots    []Shot
	urls     []string
}

func (l *Launcher) Launch(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launches++
	l.opts = append(l.opts, opts)
	if l.launches <= l.Failures {
		return nil, fmt.Errorf("browser launch failed (attempt %d)", l.launches)
	}
	l.opened++
	return &session{l: l}, nil
}

// Launches returns the number of Launch calls, failed ones included.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Open returns how many sessions are open.
func (l *Launcher) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened - l.closed
}

// Options returns the options passed to each Launch call.
func (l *Launcher) Options() []browser.SessionOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.SessionOptions(nil), l.opts...)
}

// Shots returns every screenshot written so far.
func (l *Launcher) Shots() []Shot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Shot(nil), l.shots...)
}

// URLs returns every navigated URL.
func (l *Launcher) URLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

type session struct {
	l      *Launcher
	closed bool
}

func (s *session) Navigate(ctx context.Context, url string) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.urls = append(s.l.urls, url)
	return s.l.NavigateErr
}

func (s *session) Screenshot(ctx context.Context, path string) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()

	n := len(s.l.shots) + 1
	if s.l.FailShotAt == n {
		return fmt.Errorf("screenshot %d failed", n)
	}
	if err := os.WriteFile(path, FramePNG(n), 0644); err != nil {
		return err
	}
	s.l.shots = append(s.l.shots, Shot{Path: path, At: time.Now()})
	return nil
}

func (s *session) Close() error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.l.closed++
	}
	return nil
}

// FramePNG encodes an n by 1 PNG.
func FramePNG(n int) []byte {
	img := image.NewGray(image.Rect(0, 0, n, 1))
	for x := 0; x < n; x++ {
		img.SetGray(x, 0, color.Gray{Y: 0xff})
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// FrameNumber returns the shot number encoded by FramePNG.
func FrameNumber(data []byte) (int, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	return cfg.Width, nil
}
