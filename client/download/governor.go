package download

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// governorWindow is the accounting period for throughput shaping and
// speed measurement.
const governorWindow = time.Second

// governor shapes download throughput over fixed one-second windows
// and derives the speed reported to progress callbacks.
//
// The pump adds each chunk's size to the current window and calls wait
// before accepting the next chunk. With no cap configured the window
// only measures speed. With a cap, once the window holds at least cap
// bytes the pump blocks until a tick drains the window below the cap
// again. Bytes above the cap are carried into the next window rather
// than discarded, so a burst is paid back instead of forgotten.
type governor struct {
	cap   int64
	windw atomic.Int64
	speed atomic.Int64

	mu      sync.Mutex
	resumeC chan struct{}

	done     chan struct{}
	stopOnce sync.Once
}

func newGovernor(capBytesPerSec int64) *governor {
	g := &governor{
		cap:     capBytesPerSec,
		resumeC: make(chan struct{}),
		done:    make(chan struct{}),
	}

	go g.run()

	return g
}

// add records n received bytes against the current window.
func (g *governor) add(n int64) {
	g.windw.Add(n)
}

// speedNow reports the byte rate measured over the last full window.
func (g *governor) speedNow() int64 {
	return g.speed.Load()
}

// wait blocks until the pump may accept the next chunk. It returns
// immediately when no cap is set or the current window is under the
// cap, and otherwise waits for a window reset or context cancellation.
func (g *governor) wait(ctx context.Context) error {
	if g.cap == 0 {
		return nil
	}

	for g.windw.Load() >= g.cap {
		g.mu.Lock()
		resume := g.resumeC
		g.mu.Unlock()

		select {
		case <-resume:
		case <-g.done:
			return nil
		case <-ctx.Done():
			if cause := context.Cause(ctx); cause != nil {
				return cause
			}
			return ctx.Err()
		}
	}

	return nil
}

// stop halts the ticker goroutine and releases any waiter. Safe to
// call from every settlement path.
func (g *governor) stop() {
	g.stopOnce.Do(func() {
		close(g.done)
	})
}

// run drives the window ticker. Each tick settles the window's
// accounting: unbounded mode swaps the counter out whole, capped mode
// allows at most cap bytes and carries the remainder forward. Waiters
// are then released to re-check the window.
func (g *governor) run() {
	ticker := time.NewTicker(governorWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if g.cap == 0 {
				g.speed.Store(g.windw.Swap(0))
				continue
			}

			allowed := g.windw.Load()
			if allowed > g.cap {
				allowed = g.cap
			}
			g.speed.Store(allowed)
			g.windw.Add(-allowed)

			g.mu.Lock()
			close(g.resumeC)
			g.resumeC = make(chan struct{})
			g.mu.Unlock()
		case <-g.done:
			return
		}
	}
}
