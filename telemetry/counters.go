package telemetry

import "github.com/pthm-cable/pond/genome"

// Counters accumulates per-report event tallies. The interpreter increments
// them; the collector reads and resets them at each report.
type Counters struct {
	Instructions   [genome.NumOpcodes]uint64 // executed (not skipped) instructions by opcode
	CellExecutions uint64                    // interpreter invocations

	ViableReplaced uint64 // viable cells overwritten by offspring
	ViableKilled   uint64 // viable cells reset by KILL
	ViableShared   uint64 // SHAREs with a viable neighbour
}

// TotalInstructions returns the sum of the instruction histogram.
func (c *Counters) TotalInstructions() uint64 {
	var total uint64
	for _, n := range c.Instructions {
		total += n
	}
	return total
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	*c = Counters{}
}
