// Package renderer draws the pond with raylib.
package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pond/camera"
	"github.com/pthm-cable/pond/palette"
	"github.com/pthm-cable/pond/pond"
)

// PondRenderer keeps one texel per cell and draws the part of the pond
// a camera sees.
type PondRenderer struct {
	tex    rl.Texture2D
	pixels []color.RGBA
	w, h   int

	initialized bool
}

// NewPondRenderer creates a renderer for a w x h pond.
func NewPondRenderer(w, h int) *PondRenderer {
	return &PondRenderer{
		w:      w,
		h:      h,
		pixels: make([]color.RGBA, w*h),
	}
}

// Init creates the texture. Must be called after the raylib window exists.
func (r *PondRenderer) Init() {
	if r.initialized {
		return
	}
	img := rl.GenImageColor(r.w, r.h, rl.Black)
	r.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(r.tex, rl.FilterPoint)
	rl.SetTextureWrap(r.tex, rl.WrapRepeat)
	rl.UnloadImage(img)
	r.initialized = true
}

// Refresh recolours every cell and uploads the result.
func (r *PondRenderer) Refresh(grid *pond.Grid, scheme palette.Scheme) {
	if !r.initialized {
		r.Init()
	}
	cells := grid.Cells()
	if len(cells) != len(r.pixels) {
		return
	}
	for i := range cells {
		r.pixels[i] = palette.Color(scheme, &cells[i])
	}
	rl.UpdateTexture(r.tex, r.pixels)
}

// Draw renders the region cam sees over its whole viewport. The texture
// repeats, so views across the pond edge wrap.
func (r *PondRenderer) Draw(cam *camera.Camera) {
	if !r.initialized {
		return
	}
	x, y, w, h := cam.Source()
	src := rl.Rectangle{X: x, Y: y, Width: w, Height: h}
	dst := rl.Rectangle{Width: cam.ViewportW, Height: cam.ViewportH}
	rl.DrawTexturePro(r.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload releases the texture.
func (r *PondRenderer) Unload() {
	if r.initialized {
		rl.UnloadTexture(r.tex)
		r.initialized = false
	}
}
