package systems

import (
	"github.com/pthm-cable/pond/pond"
	"github.com/pthm-cable/pond/rng"
)

// InflowParams controls the periodic seeding of random organisms.
type InflowParams struct {
	Frequency     uint64 // ticks between inflows
	RateBase      uint64 // energy added per inflow
	RateVariation uint64 // up to this much extra energy, 0 for none
}

// Due reports whether an inflow happens at clock.
func (p InflowParams) Due(clock uint64) bool {
	return p.Frequency > 0 && clock%p.Frequency == 0
}

// Inflow turns a random cell into a fresh parentless organism with a random
// genome and adds energy to it. Returns the cell index.
func Inflow(grid *pond.Grid, r *rng.Engine, p InflowParams) int {
	idx := grid.RandomIndex(r)
	c := grid.Cell(idx)

	c.ID = grid.NextID()
	c.ParentID = 0
	c.Lineage = c.ID
	c.Generation = 0

	energy := p.RateBase
	if p.RateVariation > 0 {
		energy += r.Below(p.RateVariation)
	}
	c.Energy += energy

	for i := range c.Genome {
		c.Genome[i] = r.Uint64()
	}
	return idx
}
