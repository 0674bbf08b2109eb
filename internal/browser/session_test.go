package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/models"
)

type fakeSession struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error   { return nil }
func (s *fakeSession) Screenshot(ctx context.Context, path string) error { return nil }
func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// flakyLauncher fails the first failures launches.
type flakyLauncher struct {
	failures int
	calls    int
	opts     []SessionOptions
	times    []time.Time
	session  *fakeSession
}

func (l *flakyLauncher) Launch(ctx context.Context, opts SessionOptions) (Session, error) {
	l.calls++
	l.opts = append(l.opts, opts)
	l.times = append(l.times, time.Now())
	if l.calls <= l.failures {
		return nil, fmt.Errorf("chrome failed to start: attempt %d", l.calls)
	}
	if l.session == nil {
		l.session = &fakeSession{}
	}
	return l.session, nil
}

func testControllerConfig(attempts int, delay time.Duration) ControllerConfig {
	return ControllerConfig{
		RetryAttempts: attempts,
		RetryDelay:    delay,
		Session: SessionOptions{
			Viewport: models.Viewport{Width: 1280, Height: 720},
		},
	}
}

func TestAcquire_SucceedsFirstAttempt(t *testing.T) {
	launcher := &flakyLauncher{}
	c := NewController(launcher, testControllerConfig(3, 10*time.Millisecond), common.NewSilentLogger())

	s, err := c.Acquire(context.Background(), nil)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if s == nil {
		t.Fatal("expected a session")
	}
	if launcher.calls != 1 {
		t.Errorf("expected 1 launch, got %d", launcher.calls)
	}
}

func TestAcquire_RetriesThenSucceeds(t *testing.T) {
	var logs bytes.Buffer
	launcher := &flakyLauncher{failures: 2}
	delay := 30 * time.Millisecond
	c := NewController(launcher, testControllerConfig(3, delay), common.NewLoggerWithOutput("info", &logs))

	s, err := c.Acquire(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if s == nil {
		t.Fatal("expected a session")
	}
	if launcher.calls != 3 {
		t.Errorf("expected 3 launches, got %d", launcher.calls)
	}
	for i := 1; i < len(launcher.times); i++ {
		if gap := launcher.times[i].Sub(launcher.times[i-1]); gap < delay {
			t.Errorf("attempt %d started %v after previous, want >= %v", i+1, gap, delay)
		}
	}
	if n := strings.Count(logs.String(), "browser setup failed, retrying"); n != 2 {
		t.Errorf("expected 2 retry warnings logged, got %d:\n%s", n, logs.String())
	}
}

func TestAcquire_ExhaustsRetries(t *testing.T) {
	launcher := &flakyLauncher{failures: 10}
	c := NewController(launcher, testControllerConfig(3, time.Millisecond), common.NewSilentLogger())

	_, err := c.Acquire(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var setup *models.SessionSetupError
	if !errors.As(err, &setup) {
		t.Fatalf("expected SessionSetupError, got %T: %v", err, err)
	}
	if setup.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", setup.Attempts)
	}
	if !strings.Contains(err.Error(), "attempt 3") {
		t.Errorf("expected last cause in message, got %q", err.Error())
	}
	if launcher.calls != 3 {
		t.Errorf("expected exactly 3 launches, got %d", launcher.calls)
	}
}

func TestAcquire_ContextCancelledDuringDelay(t *testing.T) {
	launcher := &flakyLauncher{failures: 10}
	c := NewController(launcher, testControllerConfig(5, time.Hour), common.NewSilentLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Acquire(ctx, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry delay did not honour context cancellation")
	}
}

func TestAcquire_ViewportOverride(t *testing.T) {
	launcher := &flakyLauncher{}
	c := NewController(launcher, testControllerConfig(1, 0), common.NewSilentLogger())

	if _, err := c.Acquire(context.Background(), &models.Viewport{Width: 375, Height: 812}); err != nil {
		t.Fatal(err)
	}
	if got := launcher.opts[0].Viewport; got.Width != 375 || got.Height != 812 {
		t.Errorf("expected override viewport 375x812, got %dx%d", got.Width, got.Height)
	}

	if _, err := c.Acquire(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := launcher.opts[1].Viewport; got.Width != 1280 || got.Height != 720 {
		t.Errorf("expected default viewport 1280x720, got %dx%d", got.Width, got.Height)
	}
}

func TestWith_ReleasesOnError(t *testing.T) {
	launcher := &flakyLauncher{}
	c := NewController(launcher, testControllerConfig(1, 0), common.NewSilentLogger())

	wantErr := errors.New("navigation exploded")
	err := c.With(context.Background(), nil, func(p Page) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected fn error to propagate, got %v", err)
	}
	if launcher.session.closed != 1 {
		t.Errorf("expected session closed once, got %d", launcher.session.closed)
	}
}

func TestWith_ReleasesOnPanic(t *testing.T) {
	launcher := &flakyLauncher{}
	c := NewController(launcher, testControllerConfig(1, 0), common.NewSilentLogger())

	func() {
		defer func() { recover() }()
		c.With(context.Background(), nil, func(p Page) error {
			panic("boom")
		})
	}()

	if launcher.session.closed != 1 {
		t.Errorf("expected session closed after panic, got %d", launcher.session.closed)
	}
}

func TestWith_SetupFailureSkipsFn(t *testing.T) {
	launcher := &flakyLauncher{failures: 5}
	c := NewController(launcher, testControllerConfig(2, 0), common.NewSilentLogger())

	called := false
	err := c.With(context.Background(), nil, func(p Page) error {
		called = true
		return nil
	})
	if called {
		t.Error("fn must not run without a session")
	}
	var setup *models.SessionSetupError
	if !errors.As(err, &setup) {
		t.Errorf("expected SessionSetupError, got %v", err)
	}
}
