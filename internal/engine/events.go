package engine

import (
	"github.com/hbrandt/coincast/internal/series"
	"github.com/hbrandt/coincast/internal/sim"
)

type Event interface {
	isEvent()
}

// TickEvent is emitted for every sample appended to the series, whether it
// came from the market, the generator, or a remote insert.
type TickEvent struct {
	Sample series.Sample
	Mode   sim.Mode
	Real   float64 // last known real price, 0 when none yet
}

func (TickEvent) isEvent() {}

type ModeChangedEvent struct {
	From, To sim.Mode
}

func (ModeChangedEvent) isEvent() {}

type SimulationStartedEvent struct {
	Descriptor sim.Descriptor
	Role       sim.Role
}

func (SimulationStartedEvent) isEvent() {}

// SimulationEndedEvent fires when a simulation leaves Simulating mode for any
// reason. Completed is true only when the full duration elapsed.
type SimulationEndedEvent struct {
	Descriptor sim.Descriptor
	Completed  bool
}

func (SimulationEndedEvent) isEvent() {}

// SeriesReplacedEvent fires after an asset switch replaced the buffer
// wholesale; consumers should reset any derived view state.
type SeriesReplacedEvent struct {
	Symbol string
}

func (SeriesReplacedEvent) isEvent() {}
