package browser

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/moontest/internal/common"
)

const idlePollInterval = 50 * time.Millisecond

// idleTracker counts in-flight network requests so navigation can wait for
// the network to go quiet.
type idleTracker struct {
	mu           sync.Mutex
	inflight     map[string]struct{}
	lastActivity time.Time
	now          func() time.Time
}

func newIdleTracker() *idleTracker {
	return &idleTracker{
		inflight:     make(map[string]struct{}),
		lastActivity: time.Now(),
		now:          time.Now,
	}
}

// reset forgets requests from a previous navigation.
func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = make(map[string]struct{})
	t.lastActivity = t.now()
}

func (t *idleTracker) started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.lastActivity = t.now()
}

func (t *idleTracker) finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastActivity = t.now()
}

// state returns the in-flight count and how long the network has been idle.
func (t *idleTracker) state() (int, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight), t.now().Sub(t.lastActivity)
}

// wait returns once no request has been in flight for quiet, or when ctx is
// done.
func (t *idleTracker) wait(ctx context.Context, quiet time.Duration) error {
	for {
		inflight, idleFor := t.state()
		if inflight == 0 && idleFor >= quiet {
			return nil
		}

		next := idlePollInterval
		if inflight == 0 && quiet-idleFor < next {
			next = quiet - idleFor
		}
		if err := common.Sleep(ctx, next); err != nil {
			return err
		}
	}
}
