package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pond/palette"
	"github.com/pthm-cable/pond/ui"
)

// Update handles input and advances the simulation by one batch.
func (g *Game) Update() {
	g.handleInput()
	g.UpdateHeadless()
	g.perfCollector.RecordFrame()
}

// Draw renders the pond, the selected cell panel and the HUD.
func (g *Game) Draw() {
	if g.needsRefresh || g.clock-g.lastRefresh >= g.cfg.Screen.RefreshFrequency {
		g.pondRenderer.Refresh(g.grid, g.scheme)
		g.lastRefresh = g.clock
		g.needsRefresh = false
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.pondRenderer.Draw(g.camera)

	screenW := int32(rl.GetScreenWidth())
	if g.selected >= 0 {
		x, y := g.grid.Coords(g.selected)
		c := g.grid.Cell(g.selected)
		g.cellPanel.Draw(screenW, x, y, c, palette.Color(g.scheme, c))
	}

	pondH := int32(g.cfg.Derived.ScreenHeight)
	g.applyActions(g.hud.Draw(pondH, screenW, g.hudData()))
	g.hud.DrawControls(pondH+ui.HUDHeight-16, controlsText)

	rl.EndDrawing()
}

// hudData gathers the values shown in the status bar.
func (g *Game) hudData() ui.HUDData {
	r := g.lastReport
	return ui.HUDData{
		Clock:          g.clock,
		ActiveCells:    r.ActiveCells,
		Viable:         r.ViableReplicators,
		MaxGeneration:  r.MaxGeneration,
		TotalEnergy:    r.TotalEnergy,
		Scheme:         g.scheme.String(),
		StepsPerUpdate: g.stepsPerUpdate,
		TicksPerSec:    g.perfCollector.Stats().TicksPerSecond,
		FPS:            rl.GetFPS(),
		Paused:         g.paused,
	}
}
