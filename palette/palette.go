// Package palette maps cells to display colours. It has no graphics
// dependency so the schemes can be tested headless.
package palette

import (
	"fmt"
	"image/color"

	"github.com/pthm-cable/pond/components"
	"github.com/pthm-cable/pond/genome"
)

// Scheme selects how cells are coloured.
type Scheme uint8

const (
	// Kinship colours related genomes with nearby hues.
	Kinship Scheme = iota
	// Lineage colours cells by the id of their first ancestor.
	Lineage

	numSchemes
)

// Schemes lists every scheme in cycling order.
var Schemes = []Scheme{Kinship, Lineage}

func (s Scheme) String() string {
	switch s {
	case Kinship:
		return "KINSHIP"
	case Lineage:
		return "LINEAGE"
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s))
}

// Next returns the scheme after s, wrapping around.
func (s Scheme) Next() Scheme {
	return (s + 1) % numSchemes
}

// ParseScheme looks a scheme up by its name.
func ParseScheme(name string) (Scheme, bool) {
	for _, s := range Schemes {
		if s.String() == name {
			return s, true
		}
	}
	return Kinship, false
}

// Black is the colour of inactive cells and of cells too young to colour.
var Black = color.RGBA{A: 255}

// Index returns the 8-bit palette index of c under scheme s. Inactive cells
// and cells of generation 1 or less map to 0.
func Index(s Scheme, c *components.Cell) uint8 {
	if !c.Active() || c.Generation <= 1 {
		return 0
	}
	switch s {
	case Kinship:
		return genome.Kinship(c.Genome)
	case Lineage:
		return uint8(c.Lineage) | 1
	}
	return 0
}

// Color returns the display colour of c under scheme s.
func Color(s Scheme, c *components.Cell) color.RGBA {
	return RGB332(Index(s, c))
}

// RGB332 expands an 8-bit palette index laid out as rrrgggbb.
func RGB332(v uint8) color.RGBA {
	if v == 0 {
		return Black
	}
	r, g, b := int(v>>5), int(v>>2)&7, int(v)&3
	return color.RGBA{
		R: uint8(r * 255 / 7),
		G: uint8(g * 255 / 7),
		B: uint8(b * 255 / 3),
		A: 255,
	}
}
