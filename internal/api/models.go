package api

import (
	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/sim"
)

// SimulationRecord is the persisted form of a registered simulation.
type SimulationRecord struct {
	ID          string `gorm:"primaryKey"`
	ClientID    string `gorm:"index"`
	Active      bool
	AssetID     string
	StartPrice  float64
	TargetPrice float64
	StartTime   int64
	DurationMs  int64
	Volatility  string
	CreatedAt   int64
}

// SimulationPoint is one uploaded sample.
type SimulationPoint struct {
	ID           uint   `gorm:"primaryKey"`
	SimulationID string `gorm:"index:idx_sim_time,priority:1"`
	Time         int64  `gorm:"index:idx_sim_time,priority:2"`
	Price        float64
	Simulated    bool
}

func recordFromDescriptor(id string, d sim.Descriptor) SimulationRecord {
	return SimulationRecord{
		ID:          id,
		ClientID:    d.ID,
		Active:      d.Active,
		AssetID:     d.AssetID,
		StartPrice:  d.StartPrice,
		TargetPrice: d.TargetPrice,
		StartTime:   d.StartTime,
		DurationMs:  d.DurationMs,
		Volatility:  d.Volatility.String(),
		CreatedAt:   d.CreatedAt,
	}
}

func (r SimulationRecord) descriptor() sim.Descriptor {
	return sim.Descriptor{
		ID:          r.ClientID,
		RemoteID:    r.ID,
		Active:      r.Active,
		AssetID:     r.AssetID,
		StartPrice:  r.StartPrice,
		TargetPrice: r.TargetPrice,
		StartTime:   r.StartTime,
		DurationMs:  r.DurationMs,
		Volatility:  sim.ParseVolatility(r.Volatility),
		CreatedAt:   r.CreatedAt,
	}
}

func (p SimulationPoint) point() remote.Point {
	return remote.Point{Time: p.Time, Price: p.Price, Simulated: p.Simulated}
}
