package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/feed"
	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/sim"
	"github.com/hbrandt/coincast/internal/store"
)

type Config struct {
	Symbol string

	TickPeriod   time.Duration // display cadence, one sample per tick
	RefreshEvery int           // refresh the real price every Nth tick
	BufferCap    int           // bounded series length
	HistoryLimit int           // samples fetched to seed the buffer

	// Rand overrides the generator's randomness. Nil uses a seeded source.
	Rand sim.Rand

	Source feed.Source     // market data, required
	Store  *store.Store    // local persistence, nil disables it
	Remote *remote.Client  // sync server, nil runs local-only
	Share  *sim.Descriptor // viewer attach from a share link

	Logger      *zap.Logger
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.Symbol == "" {
		c.Symbol = "BTCUSDT"
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = time.Second
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = 5
	}
	if c.BufferCap <= 0 {
		c.BufferCap = 3000
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 300
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 1024
	}
	return c
}
