package sim

import (
	"errors"
	"testing"
	"time"
)

func TestMachineLifecycle(t *testing.T) {
	m := NewMachine()
	if m.Mode() != ModeLive {
		t.Fatalf("expected initial mode live, got %s", m.Mode())
	}

	d, err := NewDescriptor("BTC", 100, 200, time.Minute, VolatilityLow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Start(d, RoleController); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Mode() != ModeSimulating {
		t.Fatalf("expected simulating, got %s", m.Mode())
	}
	if m.Role() != RoleController {
		t.Errorf("expected controller role, got %s", m.Role())
	}

	// Second start while simulating must be rejected.
	if err := m.Start(d, RoleController); !errors.Is(err, ErrSimulationActive) {
		t.Errorf("expected ErrSimulationActive, got %v", err)
	}

	// Natural completion: duration elapsed.
	ended, completed := m.Tick(d.StartTime + d.DurationMs)
	if !completed {
		t.Fatal("expected completion")
	}
	if ended.ID != d.ID {
		t.Errorf("expected ended descriptor %s, got %s", d.ID, ended.ID)
	}
	if m.Mode() != ModeReverting {
		t.Fatalf("expected reverting, got %s", m.Mode())
	}
	if _, has := m.Descriptor(); has {
		t.Error("descriptor must be discarded on transition to reverting")
	}

	m.Reverted()
	if m.Mode() != ModeLive {
		t.Fatalf("expected live after revert, got %s", m.Mode())
	}
}

func TestMachineTickBeforeDeadline(t *testing.T) {
	m := NewMachine()
	d, _ := NewDescriptor("ETH", 10, 20, time.Minute, VolatilityMedium)
	if err := m.Start(d, RoleController); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, completed := m.Tick(d.StartTime + d.DurationMs - 1); completed {
		t.Error("must not complete before the duration elapses")
	}
	if m.Mode() != ModeSimulating {
		t.Errorf("expected simulating, got %s", m.Mode())
	}
}

func TestMachineStartDuringRevert(t *testing.T) {
	m := NewMachine()
	d1, _ := NewDescriptor("BTC", 100, 200, time.Minute, VolatilityLow)
	if err := m.Start(d1, RoleController); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Stop(); !ok {
		t.Fatal("expected stop to take effect")
	}
	if m.Mode() != ModeReverting {
		t.Fatalf("expected reverting, got %s", m.Mode())
	}

	// Reverting is not a dead end: a new simulation may start immediately.
	d2, _ := NewDescriptor("BTC", 100, 50, time.Minute, VolatilityHigh)
	if err := m.Start(d2, RoleViewer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Role() != RoleViewer {
		t.Errorf("expected viewer role, got %s", m.Role())
	}
}

func TestMachineForceLive(t *testing.T) {
	m := NewMachine()
	d, _ := NewDescriptor("BTC", 100, 200, time.Minute, VolatilityLow)
	_ = m.Start(d, RoleController)

	ended, had := m.ForceLive()
	if !had {
		t.Fatal("expected an active simulation")
	}
	if ended.ID != d.ID {
		t.Errorf("expected descriptor %s, got %s", d.ID, ended.ID)
	}
	if m.Mode() != ModeLive {
		t.Fatalf("expected live, got %s", m.Mode())
	}
}

func TestDescriptorValidation(t *testing.T) {
	if _, err := NewDescriptor("BTC", 100, 0, time.Minute, VolatilityLow); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := NewDescriptor("BTC", 100, -5, time.Minute, VolatilityLow); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := NewDescriptor("BTC", 100, 200, 0, VolatilityLow); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := NewDescriptor("BTC", 0, 200, time.Minute, VolatilityLow); !errors.Is(err, ErrInvalidStart) {
		t.Errorf("expected ErrInvalidStart, got %v", err)
	}
}

func TestDescriptorExpiry(t *testing.T) {
	d := testDescriptor(100, 200, time.Minute)

	if d.Expired(d.EndTime() + StaleGraceMs - 1) {
		t.Error("descriptor inside the grace period must not be expired")
	}
	if !d.Expired(d.EndTime() + StaleGraceMs) {
		t.Error("descriptor past the grace period must be expired")
	}
	// Two hours past the end is well past any grace.
	if !d.Expired(d.EndTime() + 2*60*60*1000) {
		t.Error("descriptor two hours past end must be expired")
	}
}
