// Package camera maps between screen pixels and pond cells, with pan and
// zoom over the wrap-around pond.
package camera

import "math"

// maxZoomCells is the smallest number of cells kept across the viewport.
const maxZoomCells = 16

// Camera is a view into the pond. Positions are in cells, zoom in screen
// pixels per cell.
type Camera struct {
	// View centre in cell coordinates
	X, Y float32

	Zoom float32

	// Viewport dimensions (screen pixels)
	ViewportW, ViewportH float32

	// Pond dimensions (cells)
	PondW, PondH float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	defaultZoom float32
}

// New creates a camera centred on a pondW x pondH pond at the given zoom.
// The minimum zoom keeps the view from showing a cell twice.
func New(viewportW, viewportH float32, pondW, pondH int, zoom float32) *Camera {
	c := &Camera{
		X:           float32(pondW) / 2,
		Y:           float32(pondH) / 2,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		PondW:       float32(pondW),
		PondH:       float32(pondH),
		defaultZoom: zoom,
	}
	c.updateLimits()
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	return c
}

func (c *Camera) updateLimits() {
	c.MinZoom = max(c.ViewportW/c.PondW, c.ViewportH/c.PondH)
	c.MaxZoom = max(min(c.ViewportW, c.ViewportH)/maxZoomCells, c.MinZoom)
}

// CellToScreen returns the screen position of the top-left corner of cell
// (x, y), taking the shortest way round the pond.
func (c *Camera) CellToScreen(x, y int) (sx, sy float32) {
	dx := toroidalDelta(float32(x), c.X, c.PondW)
	dy := toroidalDelta(float32(y), c.Y, c.PondH)
	return c.ViewportW/2 + dx*c.Zoom, c.ViewportH/2 + dy*c.Zoom
}

// ScreenToCell returns the cell under screen position (sx, sy). ok is false
// outside the viewport.
func (c *Camera) ScreenToCell(sx, sy float32) (x, y int, ok bool) {
	if sx < 0 || sy < 0 || sx >= c.ViewportW || sy >= c.ViewportH {
		return 0, 0, false
	}
	wx := mod(c.X+(sx-c.ViewportW/2)/c.Zoom, c.PondW)
	wy := mod(c.Y+(sy-c.ViewportH/2)/c.Zoom, c.PondH)
	x, y = int(wx), int(wy)
	// float rounding can land exactly on the far edge
	if x >= int(c.PondW) {
		x = 0
	}
	if y >= int(c.PondH) {
		y = 0
	}
	return x, y, true
}

// Source returns the pond region shown in the viewport: its top-left corner,
// wrapped into the pond, and its size in cells. The region may extend past
// the pond edge, in which case it continues from the opposite side.
func (c *Camera) Source() (x, y, w, h float32) {
	w = c.ViewportW / c.Zoom
	h = c.ViewportH / c.Zoom
	x = mod(c.X-w/2, c.PondW)
	y = mod(c.Y-h/2, c.PondH)
	return x, y, w, h
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.updateLimits()
	c.Zoom = clamp(c.Zoom, c.MinZoom, c.MaxZoom)
}

// Pan moves the view by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X = mod(c.X+dx/c.Zoom, c.PondW)
	c.Y = mod(c.Y+dy/c.Zoom, c.PondH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset centres the view and restores the initial zoom.
func (c *Camera) Reset() {
	c.X = c.PondW / 2
	c.Y = c.PondH / 2
	c.SetZoom(c.defaultZoom)
}

// toroidalDelta computes the shortest signed distance from 'from' to 'to'
// in a toroidal space of the given size.
func toroidalDelta(to, from, size float32) float32 {
	d := to - from
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
