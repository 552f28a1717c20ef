package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/pond"
)

// Collector turns the event counters and a scan of the grid into report rows.
type Collector struct {
	counters *Counters

	// reused between flushes
	energies    []float64
	generations []float64
	lineages    map[uint64]struct{}
}

// NewCollector creates a collector reading counters. A nil counters gets a private set.
func NewCollector(counters *Counters) *Collector {
	if counters == nil {
		counters = &Counters{}
	}
	return &Collector{
		counters: counters,
		lineages: make(map[uint64]struct{}),
	}
}

// Counters returns the counters the collector reads and resets.
func (c *Collector) Counters() *Counters {
	return c.counters
}

// Flush produces the report for clock and resets the counters for the next
// report period.
func (c *Collector) Flush(clock uint64, grid *pond.Grid) ReportStats {
	stats := ReportStats{
		Clock:          clock,
		ViableReplaced: c.counters.ViableReplaced,
		ViableKilled:   c.counters.ViableKilled,
		ViableShared:   c.counters.ViableShared,
	}

	if execs := c.counters.CellExecutions; execs > 0 {
		var freq [genome.NumOpcodes]float64
		for op, n := range c.counters.Instructions {
			freq[op] = float64(n) / float64(execs)
		}
		stats.SetFrequencies(freq)
		stats.Metabolism = float64(c.counters.TotalInstructions()) / float64(execs)
	}

	c.energies = c.energies[:0]
	c.generations = c.generations[:0]
	clear(c.lineages)

	cells := grid.Cells()
	for i := range cells {
		cell := &cells[i]
		if !cell.Active() {
			continue
		}
		stats.ActiveCells++
		stats.TotalEnergy += cell.Energy
		c.energies = append(c.energies, float64(cell.Energy))
		c.generations = append(c.generations, float64(cell.Generation))
		if cell.Generation > stats.MaxGeneration {
			stats.MaxGeneration = cell.Generation
		}
		if cell.Viable() {
			stats.ViableReplicators++
			c.lineages[cell.Lineage] = struct{}{}
		}
	}

	stats.EnergyMean, stats.EnergyStd, stats.EnergyP50, stats.EnergyP90 = ComputeEnergyStats(c.energies)
	if len(c.generations) > 0 {
		stats.GenerationMean = stat.Mean(c.generations, nil)
	}
	stats.ActiveLineages = len(c.lineages)

	c.counters.Reset()
	return stats
}
