package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/pond/telemetry"
)

// resume loads the snapshot at path into the grid, the random engine and
// the report state, and continues the clock from it.
func (g *Game) resume(path string) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if err := snap.Apply(g.grid, g.rng); err != nil {
		return fmt.Errorf("resume %s: %w", path, err)
	}
	if snap.Header.Seed != g.cfg.Run.Seed {
		slog.Warn("snapshot seed differs from config", "snapshot_seed", snap.Header.Seed, "config_seed", g.cfg.Run.Seed)
	}
	*g.collector.Counters() = snap.Counters
	g.bookmarkDetector.Restore(snap.Events)
	g.clock = snap.Header.Clock
	slog.Info("resumed from snapshot", "path", path, "clock", g.clock, "cells", len(snap.Cells))
	return nil
}

// Unload releases the viewer textures and closes the output files and index.
func (g *Game) Unload() {
	if g.pondRenderer != nil {
		g.pondRenderer.Unload()
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output files", "error", err)
	}
	if err := g.index.Close(); err != nil {
		slog.Error("failed to close index", "error", err)
	}
	slog.Info("simulation finished", "clock", g.clock)
}
