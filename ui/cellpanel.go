package ui

import (
	"fmt"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pond/components"
	"github.com/pthm-cable/pond/genome"
)

const (
	opsPerRow  = 6
	maxOpRows  = 4
	panelLines = 8
)

// CellPanel shows the state of the selected cell.
type CellPanel struct {
	renderer *Renderer
	width    int32
}

// NewCellPanel creates a panel width pixels wide.
func NewCellPanel(width int32) *CellPanel {
	return &CellPanel{renderer: NewRenderer(), width: width}
}

// ProgramRows formats the mnemonics of g up to the dump cutoff, perRow to
// a row and at most maxRows rows. A truncated listing ends in "...".
func ProgramRows(g genome.Genome, perRow, maxRows int) []string {
	ops := genome.Disassemble(g)
	var rows []string
	for len(ops) > 0 {
		if len(rows) == maxRows {
			rows[len(rows)-1] += " ..."
			break
		}
		n := min(perRow, len(ops))
		names := make([]string, n)
		for i, op := range ops[:n] {
			names[i] = op.String()
		}
		rows = append(rows, strings.Join(names, " "))
		ops = ops[n:]
	}
	return rows
}

// Draw renders the panel for the cell at (x, y) in the top right corner of
// a screenWidth wide window.
func (p *CellPanel) Draw(screenWidth int32, x, y int, c *components.Cell, swatch rl.Color) {
	r := p.renderer
	t := r.Theme
	px := screenWidth - p.width - t.Padding
	py := t.Padding
	height := t.LineHeight*(panelLines+maxOpRows) + t.Padding*2
	r.DrawPanel(px, py, p.width, height)

	lx := px + t.Padding
	ly := py + t.Padding
	ly = r.DrawSectionHeader(lx, ly, fmt.Sprintf("Cell (%d, %d)", x, y))
	ly = r.DrawSwatch(lx, ly, "colour", swatch)
	ly = r.DrawLabelValue(lx, ly, "id", fmt.Sprint(c.ID))
	ly = r.DrawLabelValue(lx, ly, "parent", fmt.Sprint(c.ParentID))
	ly = r.DrawLabelValue(lx, ly, "lineage", fmt.Sprint(c.Lineage))
	ly = r.DrawLabelValue(lx, ly, "generation", fmt.Sprint(c.Generation))
	ly = r.DrawLabelValue(lx, ly, "energy", fmt.Sprint(c.Energy))
	ly = r.DrawLabelValue(lx, ly, "kinship", fmt.Sprint(genome.Kinship(c.Genome)))

	rows := ProgramRows(c.Genome, opsPerRow, maxOpRows)
	if len(rows) == 0 {
		rows = []string{"(empty)"}
	}
	for _, row := range rows {
		rl.DrawText(row, lx, ly, t.FontSize, t.ValueColor)
		ly += t.LineHeight
	}
}
