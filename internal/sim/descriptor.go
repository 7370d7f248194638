package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTarget   = errors.New("target price must be positive")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidStart    = errors.New("start price must be positive")
)

// Volatility selects how much per-tick noise a simulation applies.
type Volatility int

const (
	VolatilityLow Volatility = iota
	VolatilityMedium
	VolatilityHigh
)

// Multiplier is the one-standard-deviation noise fraction of the current
// price per tick. The noise distribution is uniform, not gaussian.
func (v Volatility) Multiplier() float64 {
	switch v {
	case VolatilityMedium:
		return 0.0005
	case VolatilityHigh:
		return 0.002
	default:
		return 0.0001
	}
}

func (v Volatility) String() string {
	switch v {
	case VolatilityMedium:
		return "medium"
	case VolatilityHigh:
		return "high"
	default:
		return "low"
	}
}

// ParseVolatility parses a volatility name, defaulting to low.
func ParseVolatility(s string) Volatility {
	switch s {
	case "medium":
		return VolatilityMedium
	case "high":
		return VolatilityHigh
	default:
		return VolatilityLow
	}
}

// StaleGraceMs is how long past its end time a hydrated descriptor is still
// considered resumable.
const StaleGraceMs = 60_000

// Descriptor describes one simulation. It is a value: it is never mutated
// after creation, and replacing it means ending the old simulation and
// starting a new one.
type Descriptor struct {
	ID          string     `json:"id"`
	RemoteID    string     `json:"remoteId,omitempty"`
	Active      bool       `json:"active"`
	AssetID     string     `json:"assetId"`
	StartPrice  float64    `json:"startPrice"`
	TargetPrice float64    `json:"targetPrice"`
	StartTime   int64      `json:"startTime"`
	DurationMs  int64      `json:"durationMs"`
	Volatility  Volatility `json:"volatility"`
	CreatedAt   int64      `json:"createdAt"`
}

// NewDescriptor validates the inputs and builds an active descriptor
// starting now.
func NewDescriptor(assetID string, startPrice, targetPrice float64, duration time.Duration, vol Volatility) (Descriptor, error) {
	if startPrice <= 0 {
		return Descriptor{}, ErrInvalidStart
	}
	if targetPrice <= 0 {
		return Descriptor{}, ErrInvalidTarget
	}
	if duration <= 0 {
		return Descriptor{}, ErrInvalidDuration
	}
	now := time.Now().UnixMilli()
	return Descriptor{
		ID:          uuid.NewString(),
		Active:      true,
		AssetID:     assetID,
		StartPrice:  startPrice,
		TargetPrice: targetPrice,
		StartTime:   now,
		DurationMs:  duration.Milliseconds(),
		Volatility:  vol,
		CreatedAt:   now,
	}, nil
}

// EndTime is the moment the simulated path is expected to reach the target.
func (d Descriptor) EndTime() int64 {
	return d.StartTime + d.DurationMs
}

// Expired reports whether the descriptor's end time plus the grace period
// has already passed. Expired descriptors are archived, never resumed.
func (d Descriptor) Expired(nowMs int64) bool {
	return nowMs >= d.EndTime()+StaleGraceMs
}

func (d Descriptor) String() string {
	return fmt.Sprintf("sim %s %s %.8g->%.8g over %s (%s)",
		d.ID, d.AssetID, d.StartPrice, d.TargetPrice,
		time.Duration(d.DurationMs)*time.Millisecond, d.Volatility)
}
