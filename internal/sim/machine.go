package sim

import "errors"

var ErrSimulationActive = errors.New("a simulation is already active")

// Mode is the display mode of the price engine.
type Mode int

const (
	// ModeLive tracks the real market price.
	ModeLive Mode = iota
	// ModeSimulating advances a synthetic path toward the descriptor target.
	ModeSimulating
	// ModeReverting blends the displayed price back to the real price after
	// a simulation ends.
	ModeReverting
)

func (m Mode) String() string {
	switch m {
	case ModeSimulating:
		return "simulating"
	case ModeReverting:
		return "reverting"
	default:
		return "live"
	}
}

// Role says whether this process is authoritative for the active simulation.
type Role int

const (
	// RoleController generated the simulation and advances/persists it.
	RoleController Role = iota
	// RoleViewer only observes points appended elsewhere.
	RoleViewer
)

func (r Role) String() string {
	if r == RoleViewer {
		return "viewer"
	}
	return "controller"
}

// Machine owns the Live/Simulating/Reverting transitions and enforces the
// single-active-simulation invariant. All transitions go through its methods;
// callers never flip mode or descriptor directly.
type Machine struct {
	mode Mode
	desc Descriptor
	has  bool
	role Role
}

// NewMachine returns a machine in Live mode.
func NewMachine() *Machine {
	return &Machine{mode: ModeLive}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Role returns the role for the active simulation. Meaningless outside
// Simulating mode.
func (m *Machine) Role() Role {
	return m.role
}

// Descriptor returns the active descriptor, if any. Only Simulating mode
// carries a descriptor; Reverting has already discarded it.
func (m *Machine) Descriptor() (Descriptor, bool) {
	if !m.has {
		return Descriptor{}, false
	}
	return m.desc, true
}

// Start transitions Live -> Simulating (also accepted from Reverting: the
// new simulation takes over the blend). Returns ErrSimulationActive if a
// simulation is already running.
func (m *Machine) Start(d Descriptor, role Role) error {
	if m.mode == ModeSimulating {
		return ErrSimulationActive
	}
	m.mode = ModeSimulating
	m.desc = d
	m.has = true
	m.role = role
	return nil
}

// Tick applies the time-based transition: Simulating -> Reverting when the
// duration has elapsed. It returns the descriptor that just ended so the
// caller can persist and archive it.
func (m *Machine) Tick(nowMs int64) (ended Descriptor, completed bool) {
	if m.mode != ModeSimulating {
		return Descriptor{}, false
	}
	if nowMs-m.desc.StartTime < m.desc.DurationMs {
		return Descriptor{}, false
	}
	return m.stopToRevert(), true
}

// Stop is the explicit user stop: Simulating -> Reverting. Returns the
// discarded descriptor and whether anything was running.
func (m *Machine) Stop() (Descriptor, bool) {
	if m.mode != ModeSimulating {
		return Descriptor{}, false
	}
	return m.stopToRevert(), true
}

func (m *Machine) stopToRevert() Descriptor {
	d := m.desc
	m.mode = ModeReverting
	m.desc = Descriptor{}
	m.has = false
	return d
}

// Reverted transitions Reverting -> Live once the displayed price has
// converged on the real price.
func (m *Machine) Reverted() {
	if m.mode == ModeReverting {
		m.mode = ModeLive
	}
}

// ForceLive drops any simulation state without a revert blend. Used when the
// series it applied to is discarded wholesale, e.g. on asset switch.
func (m *Machine) ForceLive() (Descriptor, bool) {
	d, had := m.desc, m.mode == ModeSimulating
	m.mode = ModeLive
	m.desc = Descriptor{}
	m.has = false
	return d, had
}
