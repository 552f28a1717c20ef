package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds everything the status bar shows.
type HUDData struct {
	Clock          uint64
	ActiveCells    int
	Viable         int
	MaxGeneration  uint64
	TotalEnergy    uint64
	Scheme         string
	StepsPerUpdate int
	TicksPerSec    float64
	FPS            int32
	Paused         bool
}

// HUDActions reports which buttons were pressed this frame.
type HUDActions struct {
	TogglePause bool
	CycleScheme bool
	Faster      bool
	Slower      bool
}

// Any reports whether any button was pressed.
func (a HUDActions) Any() bool {
	return a.TogglePause || a.CycleScheme || a.Faster || a.Slower
}

// HUD renders the status bar below the pond.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// PopulationLine formats the population summary.
func PopulationLine(d HUDData) string {
	return fmt.Sprintf("Clock: %d | Active: %d | Viable: %d | Max gen: %d | Energy: %d",
		d.Clock, d.ActiveCells, d.Viable, d.MaxGeneration, d.TotalEnergy)
}

// StatusLine formats the run status.
func StatusLine(d HUDData) string {
	state := "Running"
	if d.Paused {
		state = "PAUSED"
	}
	return fmt.Sprintf("%s | Scheme: %s | Steps/update: %d | %.0f ticks/s | FPS: %d",
		state, d.Scheme, d.StepsPerUpdate, d.TicksPerSec, d.FPS)
}

// Draw renders the bar at y across width pixels and returns the buttons pressed.
func (h *HUD) Draw(y, width int32, d HUDData) HUDActions {
	t := h.renderer.Theme
	h.renderer.DrawPanel(0, y, width, HUDHeight)

	rl.DrawText(PopulationLine(d), t.Padding, y+t.Padding, t.FontSize, t.ValueColor)
	rl.DrawText(StatusLine(d), t.Padding, y+t.Padding+t.LineHeight, t.FontSize, t.StatusColor)

	var a HUDActions
	bx := float32(width) - 4*(t.ButtonWidth+float32(t.Padding))
	by := float32(y+HUDHeight) - t.ButtonHeight - float32(t.Padding)
	button := func(label string) bool {
		pressed := gui.Button(rl.Rectangle{X: bx, Y: by, Width: t.ButtonWidth, Height: t.ButtonHeight}, label)
		bx += t.ButtonWidth + float32(t.Padding)
		return pressed
	}
	pauseLabel := "Pause"
	if d.Paused {
		pauseLabel = "Resume"
	}
	a.TogglePause = button(pauseLabel)
	a.CycleScheme = button("Scheme")
	a.Slower = button("Slower")
	a.Faster = button("Faster")
	return a
}

// DrawControls renders the key legend.
func (h *HUD) DrawControls(y int32, controls string) {
	rl.DrawText(controls, h.renderer.Theme.Padding, y, h.renderer.Theme.FontSize, rl.Gray)
}
