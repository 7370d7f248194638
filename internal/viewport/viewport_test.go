package viewport

import (
	"math"
	"testing"
	"time"

	"github.com/hbrandt/coincast/internal/series"
)

func seededBuffer(n int, stepMs int64) *series.Buffer {
	b := series.NewBuffer(5000)
	for i := 0; i < n; i++ {
		b.Append(series.Sample{Time: int64(i) * stepMs, Price: 100 + float64(i)})
	}
	return b
}

func TestSetTimeframe(t *testing.T) {
	v := New(200)
	v.SetTimeframe(5*time.Minute, 1_000_000)

	from, to, ok := v.XDomain()
	if !ok {
		t.Fatal("expected x-domain")
	}
	if to != 1_000_000 || to-from != 5*60_000 {
		t.Errorf("unexpected domain [%d,%d]", from, to)
	}
	if !v.FollowingX() {
		t.Error("setting a timeframe must re-enable time auto-follow")
	}
}

func TestPanRoundTrip(t *testing.T) {
	v := New(200)
	v.SetTimeframe(time.Hour, 3_600_000)
	from0, to0, _ := v.XDomain()

	v.Pan(37)
	if v.FollowingX() {
		t.Error("pan must release time auto-follow")
	}
	v.Pan(-37)

	from1, to1, _ := v.XDomain()
	if math.Abs(float64(from1-from0)) > 1 || math.Abs(float64(to1-to0)) > 1 {
		t.Errorf("pan round trip drifted: [%d,%d] -> [%d,%d]", from0, to0, from1, to1)
	}
}

func TestPanDirection(t *testing.T) {
	v := New(100)
	v.SetTimeframe(time.Minute, 60_000)
	_, to0, _ := v.XDomain()

	// Dragging right moves the window into the past.
	v.Pan(10)
	_, to1, _ := v.XDomain()
	if to1 >= to0 {
		t.Errorf("expected window to move left, got %d -> %d", to0, to1)
	}
}

func TestFollowPreservesSpan(t *testing.T) {
	v := New(100)
	v.SetTimeframe(time.Minute, 60_000)

	v.Follow(90_000)
	from, to, _ := v.XDomain()
	if to != 90_000 {
		t.Errorf("expected right edge at 90000, got %d", to)
	}
	if to-from != 60_000 {
		t.Errorf("expected span preserved at 60000, got %d", to-from)
	}

	// After a manual pan, Follow must not move the window.
	v.Pan(5)
	from0, to0, _ := v.XDomain()
	v.Follow(120_000)
	from1, to1, _ := v.XDomain()
	if from0 != from1 || to0 != to1 {
		t.Error("follow must be a no-op after manual pan")
	}
}

func TestZoomTimeMinClamp(t *testing.T) {
	v := New(100)
	v.SetTimeframe(70*time.Second, 70_000)

	for i := 0; i < 50; i++ {
		v.Zoom(ZoomIn, false, 70_000)
	}
	from, to, _ := v.XDomain()
	if to-from != MinTimeSpanMs {
		t.Errorf("expected clamp at %d ms, got %d", MinTimeSpanMs, to-from)
	}
	if to != 70_000 {
		t.Errorf("auto-follow zoom must stay anchored to latest, got %d", to)
	}
}

func TestZoomAroundCenterWhenNotFollowing(t *testing.T) {
	v := New(100)
	v.SetTimeframe(10*time.Minute, 600_000)
	v.Pan(1) // release follow
	from0, to0, _ := v.XDomain()
	center0 := (from0 + to0) / 2

	v.Zoom(ZoomOut, false, 999_999)
	from1, to1, _ := v.XDomain()
	center1 := (from1 + to1) / 2
	if math.Abs(float64(center1-center0)) > 2 {
		t.Errorf("zoom moved the center: %d -> %d", center0, center1)
	}
	if to1-from1 <= to0-from0 {
		t.Error("zoom out must widen the span")
	}
}

func TestZoomYAxis(t *testing.T) {
	v := New(100)
	v.ApplyAutoY([]series.Sample{{Time: 1, Price: 100}, {Time: 2, Price: 200}})
	min0, max0, _ := v.YDomain()

	v.Zoom(ZoomOut, true, 0)
	if v.FollowingY() {
		t.Error("axis zoom must release price auto-follow")
	}
	min1, max1, _ := v.YDomain()
	if max1-min1 <= max0-min0 {
		t.Error("zoom out must widen the price range")
	}
	// Scaled about center.
	if math.Abs((min1+max1)/2-(min0+max0)/2) > 1e-9 {
		t.Error("axis zoom must preserve the center")
	}
}

func TestResizeY(t *testing.T) {
	v := New(100)
	v.ApplyAutoY([]series.Sample{{Time: 1, Price: 100}, {Time: 2, Price: 200}})
	min0, max0, _ := v.YDomain()

	// Dragging down (positive dy) expands the range.
	v.ResizeY(20)
	min1, max1, _ := v.YDomain()
	if max1-min1 <= max0-min0 {
		t.Error("dragging down must expand the price range")
	}
	if v.FollowingY() {
		t.Error("resize must release price auto-follow")
	}
}

func TestVisibleSliceBoundsAndOrder(t *testing.T) {
	buf := seededBuffer(1000, 1000) // 0..999000 ms
	v := New(100)
	v.SetTimeframe(100*time.Second, 999_000)

	from, to, _ := v.XDomain()
	pad := (to - from) / 2
	got := v.VisibleSlice(buf)
	if len(got) == 0 {
		t.Fatal("expected visible samples")
	}
	prev := int64(math.MinInt64)
	for _, s := range got {
		if s.Time < from-pad-1 || s.Time > to+pad+1 {
			t.Errorf("sample %d outside padded window [%d,%d]", s.Time, from-pad, to+pad)
		}
		if s.Time <= prev {
			t.Error("visible slice not in increasing time order")
		}
		prev = s.Time
	}
}

func TestVisibleSliceFallback(t *testing.T) {
	buf := seededBuffer(500, 1000)
	v := New(100)

	got := v.VisibleSlice(buf)
	if len(got) != 100 {
		t.Errorf("expected last-100 fallback, got %d", len(got))
	}
}

func TestAutoYDomain(t *testing.T) {
	v := New(100)

	v.ApplyAutoY(nil)
	if min, max, _ := v.YDomain(); min != 0 || max != 100 {
		t.Errorf("expected [0,100] on empty input, got [%.2f,%.2f]", min, max)
	}

	v.ApplyAutoY([]series.Sample{{Time: 1, Price: 50}})
	if min, max, _ := v.YDomain(); min != 45 || max != 55 {
		t.Errorf("expected degenerate domain [45,55], got [%.2f,%.2f]", min, max)
	}

	v.ApplyAutoY([]series.Sample{{Time: 1, Price: 100}, {Time: 2, Price: 200}})
	min, max, _ := v.YDomain()
	if min != 85 || max != 215 {
		t.Errorf("expected 15%% padding [85,215], got [%.2f,%.2f]", min, max)
	}

	// Manual override sticks until reset.
	v.ResizeY(10)
	minManual, maxManual, _ := v.YDomain()
	v.ApplyAutoY([]series.Sample{{Time: 3, Price: 1}})
	if min2, max2, _ := v.YDomain(); min2 != minManual || max2 != maxManual {
		t.Error("auto-y must not override a manual price window")
	}

	v.Reset()
	if !v.FollowingX() || !v.FollowingY() {
		t.Error("reset must re-enable both auto-follow flags")
	}
	if _, _, ok := v.YDomain(); ok {
		t.Error("reset must clear the manual price window")
	}
}
