package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/series"
)

// SyntheticSource generates a random-walk price feed seeded from each
// asset's base price. It is the last-resort fallback: the engine must always
// have a displayable series even with every market endpoint unreachable.
type SyntheticSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSyntheticSource creates a SyntheticSource. A zero seed uses the clock.
func NewSyntheticSource(seed int64) *SyntheticSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticSource{
		rng:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]float64),
	}
}

// History generates limit one-minute samples ending at the current price.
func (s *SyntheticSource) History(_ context.Context, symbol string, limit int) ([]series.Sample, error) {
	if limit <= 0 {
		limit = 300
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	price := s.current(symbol)
	now := time.Now().UnixMilli()
	start := now - int64(limit)*60_000

	samples := make([]series.Sample, 0, limit)
	for i := 0; i < limit; i++ {
		price = s.step(price)
		samples = append(samples, series.Sample{Time: start + int64(i+1)*60_000, Price: price})
	}
	s.prices[symbol] = price
	return samples, nil
}

// Price advances the walk one step and returns it. Always succeeds.
func (s *SyntheticSource) Price(_ context.Context, symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := s.step(s.current(symbol))
	s.prices[symbol] = price
	return price, true
}

func (s *SyntheticSource) current(symbol string) float64 {
	if p, ok := s.prices[symbol]; ok {
		return p
	}
	return LookupAsset(symbol).BasePrice
}

// step applies a +-0.2% uniform move, re-seeding near the base price if the
// walk ever collapses to zero.
func (s *SyntheticSource) step(price float64) float64 {
	next := price + (s.rng.Float64()*2-1)*price*0.002
	if next <= 0 {
		next = price
	}
	return next
}

// Failover tries a primary source and falls back to a synthetic walk, so
// fetch failures degrade to plausible data instead of a frozen chart. Once a
// symbol's history came from the fallback, its live prices do too, keeping
// the synthetic walk continuous with its seed.
type Failover struct {
	primary  Source
	fallback *SyntheticSource
	log      *zap.Logger

	mu        sync.Mutex
	synthetic map[string]bool
}

// NewFailover wraps primary with a synthetic fallback.
func NewFailover(primary Source, log *zap.Logger) *Failover {
	if log == nil {
		log = zap.NewNop()
	}
	return &Failover{
		primary:   primary,
		fallback:  NewSyntheticSource(0),
		log:       log,
		synthetic: make(map[string]bool),
	}
}

func (f *Failover) History(ctx context.Context, symbol string, limit int) ([]series.Sample, error) {
	samples, err := f.primary.History(ctx, symbol, limit)
	if err == nil && len(samples) > 0 {
		f.setSynthetic(symbol, false)
		return samples, nil
	}
	if err != nil {
		f.log.Warn("history fetch failed, generating synthetic seed",
			zap.String("symbol", symbol), zap.Error(err))
	}
	f.setSynthetic(symbol, true)
	return f.fallback.History(ctx, symbol, limit)
}

// Price forwards to the primary source unless the symbol is in synthetic
// mode. A missed primary fetch leaves the previous real price in place for
// that tick, which is the engine's contract.
func (f *Failover) Price(ctx context.Context, symbol string) (float64, bool) {
	if f.isSynthetic(symbol) {
		return f.fallback.Price(ctx, symbol)
	}
	return f.primary.Price(ctx, symbol)
}

func (f *Failover) setSynthetic(symbol string, v bool) {
	f.mu.Lock()
	f.synthetic[symbol] = v
	f.mu.Unlock()
}

func (f *Failover) isSynthetic(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.synthetic[symbol]
}
