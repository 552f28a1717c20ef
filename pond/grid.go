// Package pond owns the toroidal grid of cells.
package pond

import (
	"fmt"

	"github.com/pthm-cable/pond/components"
	"github.com/pthm-cable/pond/genome"
)

// Direction selects one of the four neighbours.
type Direction uint8

const (
	Left Direction = iota
	Right
	Up
	Down
)

// NumDirections is the number of neighbour directions.
const NumDirections = 4

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Source is the random stream the grid draws cell indices from.
type Source interface {
	Uint64() uint64
}

// Grid is a fixed width x height arena of cells with wrap-around adjacency.
// Cell indices are stable for the life of the grid; neighbours are computed
// on demand rather than stored.
type Grid struct {
	width  int
	height int
	depth  int

	cells []components.Cell
	words []uint64 // genome backing store shared by all cells

	lastID uint64
}

// NewGrid allocates a grid whose cells all have depth-slot genomes filled
// with STOP, zero energy and zero ids.
func NewGrid(width, height, depth int) *Grid {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("pond: invalid grid size %dx%d", width, height))
	}
	if depth < genome.SlotsPerWord || depth%genome.SlotsPerWord != 0 {
		panic(fmt.Sprintf("pond: depth %d is not a positive multiple of %d", depth, genome.SlotsPerWord))
	}

	n := width * height
	perCell := depth / genome.SlotsPerWord
	g := &Grid{
		width:  width,
		height: height,
		depth:  depth,
		cells:  make([]components.Cell, n),
		words:  make([]uint64, n*perCell),
	}
	for i := range g.cells {
		gen := genome.Genome(g.words[i*perCell : (i+1)*perCell : (i+1)*perCell])
		gen.Erase()
		g.cells[i].Genome = gen
	}
	return g
}

// Width returns the grid width.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height.
func (g *Grid) Height() int { return g.height }

// Depth returns the genome depth in slots.
func (g *Grid) Depth() int { return g.depth }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// Cells exposes the cell arena for iteration. Callers must not reslice genomes.
func (g *Grid) Cells() []components.Cell { return g.cells }

// Index returns the index of (x, y), wrapping both coordinates.
func (g *Grid) Index(x, y int) int {
	return wrap(y, g.height)*g.width + wrap(x, g.width)
}

// Coords returns the coordinates of idx.
func (g *Grid) Coords(idx int) (x, y int) {
	return idx % g.width, idx / g.width
}

// Cell returns the cell at idx.
func (g *Grid) Cell(idx int) *components.Cell {
	return &g.cells[idx]
}

// At returns the cell at (x, y), wrapping both coordinates.
func (g *Grid) At(x, y int) *components.Cell {
	return &g.cells[g.Index(x, y)]
}

// Neighbor returns the index of the cell next to idx in direction dir.
func (g *Grid) Neighbor(idx int, dir Direction) int {
	x, y := g.Coords(idx)
	switch dir {
	case Left:
		x--
	case Right:
		x++
	case Up:
		y--
	default:
		y++
	}
	return g.Index(x, y)
}

// NeighborCell returns the cell next to idx in direction dir.
func (g *Grid) NeighborCell(idx int, dir Direction) *components.Cell {
	return &g.cells[g.Neighbor(idx, dir)]
}

// RandomIndex draws a cell index uniformly (modulo) from src.
func (g *Grid) RandomIndex(src Source) int {
	return int(src.Uint64() % uint64(len(g.cells)))
}

// NextID returns a fresh cell id. Ids start at 1; 0 means "no cell".
func (g *Grid) NextID() uint64 {
	g.lastID++
	return g.lastID
}

// LastID returns the most recently issued id.
func (g *Grid) LastID() uint64 { return g.lastID }

// SetLastID restores the id counter, used when resuming from a snapshot.
func (g *Grid) SetLastID(id uint64) { g.lastID = id }

// Reset turns the cell at idx into fresh parentless substrate: new id and
// lineage, generation 0 and an erased genome. Energy is left untouched.
func (g *Grid) Reset(idx int) {
	c := &g.cells[idx]
	c.ID = g.NextID()
	c.ParentID = 0
	c.Lineage = c.ID
	c.Generation = 0
	c.Genome.Erase()
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
