package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/series"
	"github.com/hbrandt/coincast/internal/sim"
)

var (
	// ErrConfirmRequired means the asset switch would discard an active
	// simulation and the caller has not confirmed it yet.
	ErrConfirmRequired = errors.New("switching assets ends the active simulation")
	ErrNoPrice         = errors.New("no price available yet")
)

// Engine owns the price series for one asset and advances it once per tick.
// It runs the Live/Simulating/Reverting state machine, persists simulation
// state, and mirrors controller ticks to the sync server. All reads by the
// UI go through snapshot accessors; the UI never touches engine state
// directly.
type Engine struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	symbol  string
	buf     *series.Buffer
	machine *sim.Machine
	gen     *sim.Generator
	unsub   func()

	tickCount int

	// realBits stages the async-fetched real price (math.Float64bits).
	// Zero means no price has been fetched yet.
	realBits atomic.Uint64

	// epoch invalidates in-flight async fetches across asset switches.
	epoch atomic.Int64

	events  chan Event
	dropped atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds an engine. Call Start to hydrate and begin ticking.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:     cfg,
		log:     cfg.Logger,
		symbol:  cfg.Symbol,
		buf:     series.NewBuffer(cfg.BufferCap),
		machine: sim.NewMachine(),
		gen:     sim.NewGenerator(cfg.Rand, cfg.TickPeriod),
		events:  make(chan Event, cfg.EventBuffer),
		closed:  make(chan struct{}),
	}
}

// Start seeds the buffer, restores any persisted simulation, and launches
// the tick loop.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.hydrate(ctx); err != nil {
		return err
	}
	e.wg.Add(1)
	go e.run()
	return nil
}

// Close stops the tick loop and any remote subscription.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.closed) })
	e.wg.Wait()

	e.mu.Lock()
	unsub := e.unsub
	e.unsub = nil
	e.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Events is the engine's output stream. Delivery is best-effort: a slow
// consumer loses events rather than stalling the tick loop.
func (e *Engine) Events() <-chan Event { return e.events }

// DroppedEvents reports how many events were lost to a slow consumer.
func (e *Engine) DroppedEvents() int64 { return e.dropped.Load() }

func (e *Engine) run() {
	defer e.wg.Done()

	t := time.NewTicker(e.cfg.TickPeriod)
	defer t.Stop()
	for {
		select {
		case <-e.closed:
			return
		case now := <-t.C:
			e.step(now.UnixMilli())
		}
	}
}

// step advances the series one tick. Separated from the ticker so tests can
// drive time explicitly.
func (e *Engine) step(nowMs int64) {
	e.mu.Lock()

	e.tickCount++
	if e.tickCount%e.cfg.RefreshEvery == 1 || e.cfg.RefreshEvery == 1 {
		go e.refreshReal(e.epoch.Load(), e.symbol)
	}

	// One sample per tick period, even if steps arrive faster. Duplicate
	// wakeups after a suspend must not densify the series.
	if last, ok := e.buf.Last(); ok && nowMs-last.Time < e.cfg.TickPeriod.Milliseconds() {
		e.mu.Unlock()
		return
	}

	if ended, completed := e.machine.Tick(nowMs); completed {
		e.mu.Unlock()
		e.finishSimulation(ended, true)
		e.mu.Lock()
	}

	mode := e.machine.Mode()
	last, hasLast := e.buf.Last()
	real := e.stagedReal()

	var s series.Sample
	switch mode {
	case sim.ModeSimulating:
		if e.machine.Role() == sim.RoleViewer {
			// Viewers only display points inserted by the controller.
			e.mu.Unlock()
			return
		}
		d, _ := e.machine.Descriptor()
		base := d.StartPrice
		if hasLast {
			base = last.Price
		}
		s = series.Sample{Time: nowMs, Price: e.gen.NextSimulated(base, d, nowMs), Simulated: true}
		if e.cfg.Remote != nil && d.RemoteID != "" {
			p := remote.Point{Time: s.Time, Price: s.Price, Simulated: true}
			go e.cfg.Remote.AppendPoint(context.Background(), d.RemoteID, p)
		}

	case sim.ModeReverting:
		if !hasLast {
			e.machine.Reverted()
			e.mu.Unlock()
			return
		}
		target := real
		if target <= 0 {
			target = last.Price
		}
		next, converged := e.gen.NextReverting(last.Price, target)
		s = series.Sample{Time: nowMs, Price: next, Simulated: true}
		if converged {
			e.machine.Reverted()
			defer e.emit(ModeChangedEvent{From: sim.ModeReverting, To: sim.ModeLive})
		}

	default: // live
		price := real
		if price <= 0 {
			if !hasLast {
				e.mu.Unlock()
				return
			}
			// No fresh price this tick; hold the last known one.
			price = last.Price
		}
		s = series.Sample{Time: nowMs, Price: price}
	}

	e.buf.Append(s)
	e.mu.Unlock()

	e.emit(TickEvent{Sample: s, Mode: mode, Real: real})
}

// StartSimulation creates, registers, and activates a simulation from the
// current price. Registration failure degrades to local-only; it never blocks
// the simulation itself.
func (e *Engine) StartSimulation(ctx context.Context, target float64, duration time.Duration, vol sim.Volatility) (sim.Descriptor, error) {
	e.mu.Lock()
	if e.machine.Mode() == sim.ModeSimulating {
		e.mu.Unlock()
		return sim.Descriptor{}, sim.ErrSimulationActive
	}
	prior := e.machine.Mode()
	symbol := e.symbol
	start, ok := e.lastPriceLocked()
	e.mu.Unlock()
	if !ok {
		return sim.Descriptor{}, ErrNoPrice
	}

	d, err := sim.NewDescriptor(symbol, start, target, duration, vol)
	if err != nil {
		return sim.Descriptor{}, err
	}

	if e.cfg.Remote != nil {
		if id, rerr := e.cfg.Remote.Create(ctx, d); rerr != nil {
			e.log.Warn("sync registration failed, running local-only", zap.Error(rerr))
		} else {
			d.RemoteID = id
		}
	}

	e.mu.Lock()
	if err := e.machine.Start(d, sim.RoleController); err != nil {
		e.mu.Unlock()
		if e.cfg.Remote != nil && d.RemoteID != "" {
			go e.cfg.Remote.SetActive(context.Background(), d.RemoteID, false)
		}
		return sim.Descriptor{}, err
	}
	e.mu.Unlock()

	e.saveSlot(d)
	e.log.Info("simulation started", zap.String("id", d.ID),
		zap.String("asset", d.AssetID), zap.Float64("target", d.TargetPrice))
	e.emit(SimulationStartedEvent{Descriptor: d, Role: sim.RoleController})
	e.emit(ModeChangedEvent{From: prior, To: sim.ModeSimulating})
	return d, nil
}

// StopSimulation ends the active simulation early and begins the revert
// blend. It reports whether anything was running.
func (e *Engine) StopSimulation() bool {
	e.mu.Lock()
	d, ok := e.machine.Stop()
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.finishSimulation(d, false)
	return true
}

// SwitchAsset discards the current series and reseeds it for a new symbol.
// While a simulation is active the switch must be confirmed, because the
// simulated points are meaningless on another asset's series: the simulation
// is discarded without a revert blend.
func (e *Engine) SwitchAsset(ctx context.Context, symbol string, confirm bool) error {
	e.mu.Lock()
	if e.machine.Mode() == sim.ModeSimulating && !confirm {
		e.mu.Unlock()
		return ErrConfirmRequired
	}
	d, had := e.machine.ForceLive()
	e.symbol = symbol
	e.realBits.Store(0)
	epoch := e.epoch.Add(1)
	e.mu.Unlock()

	if had {
		e.archiveSlot(d)
		e.deactivateRemote(d)
		e.emit(SimulationEndedEvent{Descriptor: d, Completed: false})
	}

	samples, err := e.cfg.Source.History(ctx, symbol, e.cfg.HistoryLimit)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.epoch.Load() == epoch {
		e.buf.Replace(samples)
	}
	e.mu.Unlock()

	go e.refreshReal(epoch, symbol)
	e.log.Info("asset switched", zap.String("symbol", symbol))
	e.emit(SeriesReplacedEvent{Symbol: symbol})
	return nil
}

// Snapshot accessors for the UI.

func (e *Engine) Symbol() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.symbol
}

func (e *Engine) Mode() sim.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Mode()
}

func (e *Engine) ActiveSimulation() (sim.Descriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Descriptor()
}

func (e *Engine) Role() sim.Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Role()
}

// Samples returns a copy of the buffered series.
func (e *Engine) Samples() []series.Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Samples()
}

// Series exposes the buffer for read-only viewport queries. The caller must
// not retain it across an asset switch.
func (e *Engine) Series() *series.Buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf
}

// RealPrice returns the last fetched market price, ok=false before the
// first successful fetch.
func (e *Engine) RealPrice() (float64, bool) {
	p := e.stagedReal()
	return p, p > 0
}

func (e *Engine) stagedReal() float64 {
	return math.Float64frombits(e.realBits.Load())
}

func (e *Engine) lastPriceLocked() (float64, bool) {
	if last, ok := e.buf.Last(); ok {
		return last.Price, true
	}
	if p := e.stagedReal(); p > 0 {
		return p, true
	}
	return 0, false
}

// refreshReal fetches the market price off the tick loop and stages it,
// unless an asset switch made the fetch stale.
func (e *Engine) refreshReal(epoch int64, symbol string) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*e.cfg.TickPeriod)
	defer cancel()

	price, ok := e.cfg.Source.Price(ctx, symbol)
	if !ok || price <= 0 {
		return
	}
	if e.epoch.Load() != epoch {
		return
	}
	e.realBits.Store(math.Float64bits(price))
}

// finishSimulation runs the side effects of leaving Simulating mode:
// archive locally, deactivate remotely, notify consumers.
func (e *Engine) finishSimulation(d sim.Descriptor, completed bool) {
	e.archiveSlot(d)
	e.deactivateRemote(d)
	e.log.Info("simulation ended", zap.String("id", d.ID), zap.Bool("completed", completed))
	e.emit(SimulationEndedEvent{Descriptor: d, Completed: completed})
	e.emit(ModeChangedEvent{From: sim.ModeSimulating, To: sim.ModeReverting})
}

func (e *Engine) saveSlot(d sim.Descriptor) {
	if e.cfg.Store == nil {
		return
	}
	if err := e.cfg.Store.Save(d); err != nil {
		e.log.Warn("persist simulation failed", zap.Error(err))
	}
}

func (e *Engine) archiveSlot(d sim.Descriptor) {
	if e.cfg.Store == nil {
		return
	}
	if err := e.cfg.Store.Archive(d); err != nil {
		e.log.Warn("archive simulation failed", zap.Error(err))
	}
	if err := e.cfg.Store.Clear(); err != nil {
		e.log.Warn("clear simulation slot failed", zap.Error(err))
	}
}

func (e *Engine) deactivateRemote(d sim.Descriptor) {
	if e.cfg.Remote == nil || d.RemoteID == "" || e.machineRole() == sim.RoleViewer {
		return
	}
	go e.cfg.Remote.SetActive(context.Background(), d.RemoteID, false)
}

func (e *Engine) machineRole() sim.Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Role()
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}
