package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/series"
	"github.com/hbrandt/coincast/internal/sim"
)

// hydrate seeds the buffer from market history and restores simulation state:
// a share-link descriptor attaches as viewer, otherwise the persisted slot
// resumes as controller. Stale descriptors are archived and cleared, never
// resumed.
func (e *Engine) hydrate(ctx context.Context) error {
	if e.cfg.Share != nil {
		e.mu.Lock()
		e.symbol = e.cfg.Share.AssetID
		e.mu.Unlock()
	}

	samples, err := e.cfg.Source.History(ctx, e.snapSymbol(), e.cfg.HistoryLimit)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.buf.Replace(samples)
	e.mu.Unlock()
	go e.refreshReal(e.epoch.Load(), e.snapSymbol())

	now := time.Now().UnixMilli()
	if e.cfg.Share != nil {
		return e.attachViewer(ctx, *e.cfg.Share, now)
	}
	return e.resumeSlot(ctx, now)
}

// resumeSlot restores a controller simulation persisted by a previous run.
func (e *Engine) resumeSlot(ctx context.Context, nowMs int64) error {
	if e.cfg.Store == nil {
		return nil
	}
	d, ok, err := e.cfg.Store.Get()
	if err != nil {
		e.log.Warn("read persisted simulation failed", zap.Error(err))
		return nil
	}
	if !ok || !d.Active {
		return nil
	}
	if d.Expired(nowMs) {
		e.log.Info("discarding stale simulation", zap.String("id", d.ID))
		e.archiveSlot(d)
		if e.cfg.Remote != nil && d.RemoteID != "" {
			go e.cfg.Remote.SetActive(context.Background(), d.RemoteID, false)
		}
		return nil
	}

	if d.AssetID != e.snapSymbol() {
		// The simulation pins the asset; reseed history for it.
		samples, err := e.cfg.Source.History(ctx, d.AssetID, e.cfg.HistoryLimit)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.symbol = d.AssetID
		e.buf.Replace(samples)
		e.mu.Unlock()
	}

	e.mu.Lock()
	err = e.machine.Start(d, sim.RoleController)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.fillGap(ctx, d, nowMs)
	e.log.Info("simulation resumed", zap.String("id", d.ID))
	e.emit(SimulationStartedEvent{Descriptor: d, Role: sim.RoleController})
	e.emit(ModeChangedEvent{From: sim.ModeLive, To: sim.ModeSimulating})
	return nil
}

// attachViewer joins a simulation started elsewhere: seed its point log,
// then follow the controller's inserts over the sync stream. A stale link
// degrades to a plain live chart.
func (e *Engine) attachViewer(ctx context.Context, d sim.Descriptor, nowMs int64) error {
	// The sync server knows whether the controller already ended it.
	if e.cfg.Remote != nil && d.RemoteID != "" {
		if latest, err := e.cfg.Remote.Get(ctx, d.RemoteID); err == nil {
			if !latest.Active {
				e.log.Info("shared simulation already ended", zap.String("id", d.ID))
				return nil
			}
			d = latest
		}
	}
	if d.Expired(nowMs) {
		e.log.Info("share link simulation already over", zap.String("id", d.ID))
		return nil
	}

	e.mu.Lock()
	err := e.machine.Start(d, sim.RoleViewer)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.fillGap(ctx, d, nowMs)

	if e.cfg.Remote != nil && d.RemoteID != "" {
		unsub, err := e.cfg.Remote.Subscribe(ctx, d.RemoteID, e.onRemoteEvent)
		if err != nil {
			e.log.Warn("subscribe failed, viewing without live updates", zap.Error(err))
		} else {
			e.mu.Lock()
			e.unsub = unsub
			e.mu.Unlock()
		}
	}

	e.emit(SimulationStartedEvent{Descriptor: d, Role: sim.RoleViewer})
	e.emit(ModeChangedEvent{From: sim.ModeLive, To: sim.ModeSimulating})
	return nil
}

// fillGap covers the interval between the last buffered sample and now. The
// controller's uploaded point log is authoritative; resynthesis is the
// offline fallback.
func (e *Engine) fillGap(ctx context.Context, d sim.Descriptor, nowMs int64) {
	e.mu.Lock()
	from := d.StartTime
	if last, ok := e.buf.Last(); ok && last.Time > from {
		from = last.Time
	}
	e.mu.Unlock()

	var fill []series.Sample
	if e.cfg.Remote != nil && d.RemoteID != "" {
		pts, err := e.cfg.Remote.Points(ctx, d.RemoteID, from+1, nowMs)
		if err != nil {
			e.log.Warn("fetch point log failed, resynthesizing", zap.Error(err))
		} else {
			for _, p := range pts {
				fill = append(fill, series.Sample{Time: p.Time, Price: p.Price, Simulated: true})
			}
		}
	}
	if fill == nil {
		for _, s := range e.gen.Backfill(d, nowMs) {
			if s.Time > from {
				fill = append(fill, s)
			}
		}
	}

	e.mu.Lock()
	for _, s := range fill {
		e.buf.Append(s)
	}
	e.mu.Unlock()
}

// onRemoteEvent handles frames from the controller's sync stream.
func (e *Engine) onRemoteEvent(ev remote.Event) {
	switch ev.Type {
	case remote.EventInsert:
		if ev.Point != nil {
			e.handleInsert(*ev.Point)
		}
	case remote.EventDeactivate:
		e.mu.Lock()
		d, ok := e.machine.Stop()
		e.mu.Unlock()
		if ok {
			e.log.Info("controller ended the simulation", zap.String("id", d.ID))
			e.emit(SimulationEndedEvent{Descriptor: d, Completed: false})
			e.emit(ModeChangedEvent{From: sim.ModeSimulating, To: sim.ModeReverting})
		}
	}
}

// handleInsert appends a controller-produced point to the viewer's series.
func (e *Engine) handleInsert(p remote.Point) {
	s := series.Sample{Time: p.Time, Price: p.Price, Simulated: p.Simulated}

	e.mu.Lock()
	mode := e.machine.Mode()
	appended := e.buf.Append(s)
	real := e.stagedReal()
	e.mu.Unlock()

	if appended {
		e.emit(TickEvent{Sample: s, Mode: mode, Real: real})
	}
}

func (e *Engine) snapSymbol() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.symbol
}
