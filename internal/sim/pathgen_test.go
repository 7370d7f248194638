package sim

import (
	"math"
	"testing"
	"time"
)

// noiseless returns 0.5 forever: uniform(-1,1) draws become 0 and the jerk
// draw never crosses a threshold.
type noiseless struct{}

func (noiseless) Float64() float64 { return 0.5 }

// seq replays a fixed list of draws.
type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func testDescriptor(start, target float64, duration time.Duration) Descriptor {
	return Descriptor{
		ID:          "test",
		Active:      true,
		AssetID:     "BTC",
		StartPrice:  start,
		TargetPrice: target,
		StartTime:   0,
		DurationMs:  duration.Milliseconds(),
		Volatility:  VolatilityLow,
	}
}

func TestSimulatedPathConvergesWithoutNoise(t *testing.T) {
	g := NewGenerator(noiseless{}, time.Second)
	d := testDescriptor(100, 200, time.Minute)

	price := d.StartPrice
	for now := int64(1000); now <= d.DurationMs; now += 1000 {
		price = g.NextSimulated(price, d, now)
	}

	if math.Abs(price-200) > 1e-9 {
		t.Errorf("expected price to converge to 200, got %.12f", price)
	}
}

func TestSimulatedDriftDirection(t *testing.T) {
	g := NewGenerator(noiseless{}, time.Second)

	down := testDescriptor(200, 100, time.Minute)
	if next := g.NextSimulated(200, down, 1000); next >= 200 {
		t.Errorf("expected downward drift, got %.6f", next)
	}

	up := testDescriptor(100, 200, time.Minute)
	if next := g.NextSimulated(100, up, 1000); next <= 100 {
		t.Errorf("expected upward drift, got %.6f", next)
	}
}

func TestSimulatedTicksLeftFloor(t *testing.T) {
	g := NewGenerator(noiseless{}, time.Second)
	d := testDescriptor(100, 200, time.Minute)

	// Past the end time ticksLeft clamps to 1, so the whole remaining gap
	// is applied in one step.
	next := g.NextSimulated(150, d, d.DurationMs+5000)
	if math.Abs(next-200) > 1e-9 {
		t.Errorf("expected full snap to target, got %.6f", next)
	}
}

func TestJerkMultipliers(t *testing.T) {
	// Draw order per tick is uniform then jerk.
	cases := []struct {
		name  string
		vol   Volatility
		draws []float64
		want  float64 // noise multiplier applied to the uniform term
	}{
		{"high vol big jerk", VolatilityHigh, []float64{1.0, 0.9}, 4},
		{"normal jerk any vol", VolatilityLow, []float64{1.0, 0.95}, 2},
		{"no jerk", VolatilityMedium, []float64{1.0, 0.5}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(&seq{vals: tc.draws}, time.Second)
			d := testDescriptor(100, 100, time.Minute)
			d.Volatility = tc.vol

			// Target == last price, so trend is 0 and the move is pure
			// noise: uniform(=1.0 draw -> +1) * last * multiplier * jerk.
			last := 100.0
			next := g.NextSimulated(last, d, 1000)
			wantMove := last * tc.vol.Multiplier() * tc.want
			if math.Abs((next-last)-wantMove) > 1e-12 {
				t.Errorf("expected move %.10f, got %.10f", wantMove, next-last)
			}
		})
	}
}

func TestRevertingConvergesAndSnaps(t *testing.T) {
	g := NewGenerator(noiseless{}, time.Second)

	real := 100.0
	price := 150.0
	prevGap := math.Abs(real - price)

	var converged bool
	for i := 0; i < 200; i++ {
		price, converged = g.NextReverting(price, real)
		if converged {
			break
		}
		gap := math.Abs(real - price)
		if gap >= prevGap {
			t.Fatalf("gap did not shrink: %.9f -> %.9f", prevGap, gap)
		}
		prevGap = gap
	}

	if !converged {
		t.Fatal("expected convergence within 200 ticks")
	}
	if price != real {
		t.Errorf("expected exact snap to %.2f, got %.12f", real, price)
	}
}

func TestClampFloor(t *testing.T) {
	g := NewGenerator(noiseless{}, time.Second)
	d := testDescriptor(1e-9, 1e-9, time.Minute)

	// Target below the floor: the clamp keeps the output displayable.
	if next := g.NextSimulated(1e-9, d, 1000); next < MinPrice {
		t.Errorf("expected clamp to %.1e, got %.3e", MinPrice, next)
	}
}

func TestBackfillShape(t *testing.T) {
	g := NewGenerator(noiseless{}, time.Second)
	d := testDescriptor(100, 200, time.Hour)

	now := d.StartTime + 10*60_000 // ten minutes in
	points := g.Backfill(d, now)

	if len(points) != 10 {
		t.Fatalf("expected 10 one-minute points, got %d", len(points))
	}
	prev := d.StartTime
	for _, p := range points {
		if p.Time-prev != 60_000 {
			t.Errorf("expected one-minute spacing, got %d", p.Time-prev)
		}
		if !p.Simulated {
			t.Error("backfilled points must be flagged simulated")
		}
		prev = p.Time
	}
	// Noise-free drift moves monotonically toward the target.
	if points[len(points)-1].Price <= points[0].Price {
		t.Errorf("expected upward drift, got %.4f -> %.4f", points[0].Price, points[len(points)-1].Price)
	}

	if got := g.Backfill(d, d.StartTime); got != nil {
		t.Errorf("expected no points for zero elapsed, got %d", len(got))
	}
}
