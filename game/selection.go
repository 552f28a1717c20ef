package game

import (
	"log/slog"

	"github.com/pthm-cable/pond/genome"
)

// DumpCellAt returns the dump line of the cell at (x, y), empty when the
// cell is not eligible for dumps, and logs it with the cell's state.
func (g *Game) DumpCellAt(x, y int) string {
	idx := g.grid.Index(x, y)
	c := g.grid.Cell(idx)
	var line string
	if c.Dumpable() {
		line = string(genome.AppendHex(nil, c.Genome))
	}
	slog.Info("cell",
		"x", x,
		"y", y,
		"id", c.ID,
		"parent_id", c.ParentID,
		"lineage", c.Lineage,
		"generation", c.Generation,
		"energy", c.Energy,
		"genome", line,
	)
	return line
}

// Select marks the cell at (x, y) for the cell panel and dumps it.
func (g *Game) Select(x, y int) {
	g.selected = g.grid.Index(x, y)
	g.DumpCellAt(x, y)
}

// ClearSelection hides the cell panel.
func (g *Game) ClearSelection() {
	g.selected = -1
}
