package download

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGovernor_UnboundedNeverBlocks(t *testing.T) {
	g := newGovernor(0)
	defer g.stop()

	g.add(1 << 30)

	done := make(chan error, 1)
	go func() {
		done <- g.wait(t.Context())
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait blocked with no cap configured")
	}
}

func TestGovernor_UnboundedSpeedResets(t *testing.T) {
	g := newGovernor(0)
	defer g.stop()

	g.add(5000)

	time.Sleep(governorWindow + 200*time.Millisecond)

	if got := g.speedNow(); got != 5000 {
		t.Errorf("expected speed 5000 after tick, got %d", got)
	}
	if got := g.windw.Load(); got != 0 {
		t.Errorf("expected window reset to 0, got %d", got)
	}
}

func TestGovernor_CapBlocksUntilWindowDrains(t *testing.T) {
	g := newGovernor(100)
	defer g.stop()

	// 250 bytes against a 100 B/s cap needs two ticks before the
	// window drops under the cap (250 -> 150 -> 50).
	g.add(250)

	start := time.Now()
	if err := g.wait(t.Context()); err != nil {
		t.Fatalf("wait returned error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 2*governorWindow-200*time.Millisecond {
		t.Errorf("resumed too early: %v", elapsed)
	}
	if got := g.windw.Load(); got != 50 {
		t.Errorf("expected 50 carried bytes, got %d", got)
	}
	if got := g.speedNow(); got != 100 {
		t.Errorf("expected reported speed capped at 100, got %d", got)
	}
}

func TestGovernor_UnderCapReturnsImmediately(t *testing.T) {
	g := newGovernor(1000)
	defer g.stop()

	g.add(999)

	done := make(chan error, 1)
	go func() {
		done <- g.wait(t.Context())
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait blocked below the cap")
	}
}

func TestGovernor_WaitCancelled(t *testing.T) {
	g := newGovernor(10)
	defer g.stop()

	g.add(1000)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := g.wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", err)
	}
}

func TestGovernor_StopReleasesWaiter(t *testing.T) {
	g := newGovernor(10)

	g.add(1000)

	done := make(chan error, 1)
	go func() {
		done <- g.wait(t.Context())
	}()

	g.stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil after stop, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait not released by stop")
	}
}

func TestGovernor_StopIdempotent(t *testing.T) {
	g := newGovernor(0)
	g.stop()
	g.stop()
}
