package viewport

import (
	"math"
	"testing"
)

func TestGestureDragLifecycle(t *testing.T) {
	g := NewGesture(200, 60)

	if g.State() != Idle {
		t.Fatalf("expected idle, got %s", g.State())
	}

	if st := g.Down(50, 10); st != Dragging {
		t.Fatalf("expected dragging, got %s", st)
	}
	dx, dy, st := g.Move(60, 12)
	if dx != 10 || dy != 2 || st != Dragging {
		t.Errorf("expected delta (10,2) dragging, got (%d,%d) %s", dx, dy, st)
	}
	// Deltas are relative to the previous event, not the press.
	dx, _, _ = g.Move(63, 12)
	if dx != 3 {
		t.Errorf("expected delta 3, got %d", dx)
	}

	g.Up()
	if g.State() != Idle {
		t.Errorf("expected idle after release, got %s", g.State())
	}
	if dx, dy, _ := g.Move(100, 100); dx != 0 || dy != 0 {
		t.Error("moves while idle must produce no delta")
	}
}

func TestGestureAxisZone(t *testing.T) {
	g := NewGesture(200, 60)

	// Press inside the last 60 columns hits the value axis.
	if st := g.Down(150, 5); st != ResizingY {
		t.Errorf("expected resizing-y at x=150, got %s", st)
	}
	g.Up()
	if st := g.Down(139, 5); st != Dragging {
		t.Errorf("expected dragging at x=139, got %s", st)
	}
}

func TestGestureReentrantDown(t *testing.T) {
	g := NewGesture(200, 60)

	g.Down(10, 10)
	g.Move(20, 10)

	// A second press mid-drag restarts cleanly from the new position.
	g.Down(100, 50)
	dx, dy, st := g.Move(101, 51)
	if dx != 1 || dy != 1 || st != Dragging {
		t.Errorf("expected clean restart delta (1,1), got (%d,%d) %s", dx, dy, st)
	}
}

func TestGesturePinch(t *testing.T) {
	g := NewGesture(200, 60)

	// First frame establishes the baseline.
	if f := g.Pinch(0, 0, 10, 0); f != 1 {
		t.Errorf("expected baseline factor 1, got %.4f", f)
	}
	if g.State() != Pinching {
		t.Fatalf("expected pinching, got %s", g.State())
	}

	// Fingers spreading to double the distance doubles the factor.
	if f := g.Pinch(0, 0, 20, 0); math.Abs(f-2) > 1e-9 {
		t.Errorf("expected factor 2, got %.4f", f)
	}
	if f := g.Pinch(0, 0, 10, 0); math.Abs(f-0.5) > 1e-9 {
		t.Errorf("expected factor 0.5, got %.4f", f)
	}

	// Pinch takes over from a drag in progress.
	g.Up()
	g.Down(10, 10)
	g.Pinch(0, 0, 10, 0)
	if g.State() != Pinching {
		t.Errorf("expected pinch to supersede drag, got %s", g.State())
	}
	if dx, dy, _ := g.Move(50, 50); dx != 0 || dy != 0 {
		t.Error("drag deltas must be suppressed while pinching")
	}

	g.Up()
	if g.State() != Idle {
		t.Errorf("expected idle, got %s", g.State())
	}
}
