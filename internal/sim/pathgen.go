package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/hbrandt/coincast/internal/series"
)

// MinPrice is the strictly positive floor every generated price is clamped
// to, so a noisy path can never corrupt a log or linear scale with a
// non-positive value.
const MinPrice = 1e-8

// Reverting-mode constants: fraction of the gap closed per tick, noise
// fraction of the last price, and the relative gap below which the price
// snaps to the real price.
const (
	revertStep      = 0.1
	revertNoiseFrac = 0.0002
	convergeFrac    = 0.0001
)

// backfillStepMs is the fixed step used when resynthesizing the missing
// interval of an in-progress simulation after a reload. It is intentionally
// coarser than the live tick; see the known inconsistency note in DESIGN.md.
const backfillStepMs int64 = 60_000

// Rand is the randomness source the generator consumes. Float64 must return
// a value in [0,1). Injecting a deterministic implementation makes the
// generator fully reproducible in tests.
type Rand interface {
	Float64() float64
}

// Clamp bounds a price to the positive floor.
func Clamp(p float64) float64 {
	if p < MinPrice {
		return MinPrice
	}
	return p
}

// Generator computes next prices for the Simulating and Reverting modes.
// It is pure apart from the injected randomness: no I/O, no clock reads.
type Generator struct {
	rng        Rand
	tickPeriod time.Duration
}

// NewGenerator creates a Generator. A nil rng gets a time-seeded source;
// a non-positive tick period defaults to one second.
func NewGenerator(rng Rand, tickPeriod time.Duration) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if tickPeriod <= 0 {
		tickPeriod = time.Second
	}
	return &Generator{rng: rng, tickPeriod: tickPeriod}
}

// uniform returns a draw from uniform(-1,1).
func (g *Generator) uniform() float64 {
	return 2*g.rng.Float64() - 1
}

// jerk occasionally multiplies the noise term to model price shocks:
// x4 with p=0.15 under high volatility, else x2 with p=0.10 at any level.
func (g *Generator) jerk(v Volatility) float64 {
	j := g.rng.Float64()
	if v == VolatilityHigh && j > 0.85 {
		return 4
	}
	if j > 0.90 {
		return 2
	}
	return 1
}

// NextSimulated advances the synthetic path one tick. The drift term is
// sized so that, absent noise, the path reaches the target exactly at the
// descriptor's end time.
func (g *Generator) NextSimulated(last float64, d Descriptor, nowMs int64) float64 {
	elapsed := nowMs - d.StartTime
	remaining := d.DurationMs - elapsed
	ticksLeft := float64(remaining) / float64(g.tickPeriod.Milliseconds())
	if ticksLeft < 1 {
		ticksLeft = 1
	}
	trend := (d.TargetPrice - last) / ticksLeft
	noise := g.uniform() * last * d.Volatility.Multiplier()
	return Clamp(last + trend + noise*g.jerk(d.Volatility))
}

// NextReverting blends the displayed price back toward the real price.
// When the remaining gap is below the convergence threshold it snaps to the
// real price exactly and reports convergence.
func (g *Generator) NextReverting(last, real float64) (next float64, converged bool) {
	diff := real - last
	if math.Abs(diff) < real*convergeFrac {
		return Clamp(real), true
	}
	noise := g.uniform() * last * revertNoiseFrac
	return Clamp(last + diff*revertStep + noise), false
}

// Backfill resynthesizes the interval between the simulation start and now
// at a fixed one-minute step, seeded from the descriptor's start price, so
// a reload mid-simulation shows a continuous path instead of a gap. Callers
// should prefer the authoritative remote point log when one exists.
func (g *Generator) Backfill(d Descriptor, nowMs int64) []series.Sample {
	if nowMs <= d.StartTime {
		return nil
	}
	var out []series.Sample
	price := d.StartPrice
	for t := d.StartTime + backfillStepMs; t <= nowMs; t += backfillStepMs {
		remaining := d.DurationMs - (t - d.StartTime)
		stepsLeft := float64(remaining) / float64(backfillStepMs)
		if stepsLeft < 1 {
			stepsLeft = 1
		}
		trend := (d.TargetPrice - price) / stepsLeft
		noise := g.uniform() * price * d.Volatility.Multiplier()
		price = Clamp(price + trend + noise*g.jerk(d.Volatility))
		out = append(out, series.Sample{Time: t, Price: price, Simulated: true})
	}
	return out
}
