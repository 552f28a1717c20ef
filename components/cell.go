// Package components defines the per-cell state of the pond.
package components

import "github.com/pthm-cable/pond/genome"

// ViableGeneration is the generation above which a cell counts as a viable replicator.
const ViableGeneration = 2

// Cell is one grid position. Cells are never removed, only reset or overwritten.
type Cell struct {
	ID         uint64 // unique, assigned at seeding, reset and reproduction
	ParentID   uint64 // 0 for seeded or reset cells
	Lineage    uint64 // id of the first ancestor
	Generation uint64
	Energy     uint64

	Genome genome.Genome
}

// Active reports whether the cell has energy left to execute.
func (c *Cell) Active() bool {
	return c.Energy > 0
}

// Viable reports whether the cell descends from at least three replications.
func (c *Cell) Viable() bool {
	return c.Generation > ViableGeneration
}

// Parentless reports whether the cell is raw substrate nobody has claimed.
func (c *Cell) Parentless() bool {
	return c.ParentID == 0
}

// Dumpable reports whether the cell is eligible for genome dumps.
func (c *Cell) Dumpable() bool {
	return c.Active() && c.Viable()
}
