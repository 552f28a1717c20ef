package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pond/ui"
)

// maxStepsPerUpdate bounds the speed-up keys.
const maxStepsPerUpdate = 1 << 20

// controlsText is the key legend drawn under the HUD.
const controlsText = "Space: pause | Left click: inspect | Right click: scheme | , .: speed | Arrows, wheel, +/-: pan and zoom | Home: reset view | Backspace: deselect"

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	if rl.IsKeyPressed(rl.KeySpace) {
		g.TogglePause()
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		g.slower()
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		g.faster()
	}

	if rl.IsKeyPressed(rl.KeyBackspace) {
		g.ClearSelection()
	}

	mouse := rl.GetMousePosition()
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		if x, y, ok := g.camera.ScreenToCell(mouse.X, mouse.Y); ok {
			g.Select(x, y)
		}
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		g.cycleScheme()
	}

	g.handleCameraInput(mouse)
}

// handleCameraInput processes pan and zoom controls.
func (g *Game) handleCameraInput(mouse rl.Vector2) {
	// Pan speed in screen pixels per frame
	const panSpeed = 8

	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	// Wheel zoom only over the pond
	if _, _, ok := g.camera.ScreenToCell(mouse.X, mouse.Y); ok {
		if wheel := rl.GetMouseWheelMove(); wheel != 0 {
			g.camera.ZoomBy(1 + wheel*0.1)
		}
	}

	// Keyboard zoom with +/- (= and - keys)
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

// applyActions handles the HUD buttons pressed this frame.
func (g *Game) applyActions(a ui.HUDActions) {
	if a.TogglePause {
		g.TogglePause()
	}
	if a.CycleScheme {
		g.cycleScheme()
	}
	if a.Faster {
		g.faster()
	}
	if a.Slower {
		g.slower()
	}
}

func (g *Game) cycleScheme() {
	g.scheme = g.scheme.Next()
	g.needsRefresh = true
	slog.Info("colour scheme", "scheme", g.scheme.String())
}

func (g *Game) faster() {
	if g.stepsPerUpdate < maxStepsPerUpdate {
		g.stepsPerUpdate *= 2
	}
}

func (g *Game) slower() {
	if g.stepsPerUpdate > 1 {
		g.stepsPerUpdate /= 2
	}
}
