package game

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/pond/systems"
	"github.com/pthm-cable/pond/telemetry"
)

// every reports whether a hook with the given frequency fires at clock.
// A zero frequency never fires.
func every(clock, freq uint64) bool {
	return freq > 0 && clock%freq == 0
}

// Step runs one tick: hooks due at the new clock, an optional inflow and
// one interpreter invocation on a random cell. It returns false once the
// clock has reached stop_at.
func (g *Game) Step() bool {
	if g.stopped {
		return false
	}
	if stop := g.cfg.Run.StopAt; stop > 0 && g.clock >= stop {
		g.stop()
		return false
	}

	g.clock++
	t := &g.cfg.Telemetry

	if every(g.clock, t.ReportFrequency) {
		g.perfCollector.StartPhase(telemetry.PhaseReport)
		g.flushReport()
		g.perfCollector.StartPhase(telemetry.PhaseExecute)
	}
	if every(g.clock, t.DumpFrequency) {
		g.perfCollector.StartPhase(telemetry.PhaseDump)
		g.saveDump()
		g.perfCollector.StartPhase(telemetry.PhaseExecute)
	}
	if every(g.clock, t.ProgressFrequency) {
		slog.Info("progress", "clock", g.clock)
	}

	if g.inflow.Due(g.clock) {
		g.perfCollector.StartPhase(telemetry.PhaseInflow)
		systems.Inflow(g.grid, g.rng, g.inflow)
		g.perfCollector.StartPhase(telemetry.PhaseExecute)
	}

	g.vm.Execute(g.grid.RandomIndex(g.rng))

	// Snapshots are taken once the tick is complete so a resumed run
	// continues with the next tick.
	if every(g.clock, t.SnapshotFrequency) || g.snapshotPending {
		g.snapshotPending = false
		g.perfCollector.StartPhase(telemetry.PhaseSnapshot)
		g.saveSnapshot()
		g.perfCollector.StartPhase(telemetry.PhaseExecute)
	}
	return true
}

// stop marks the run finished and writes the final dump, replacing any
// dump taken earlier in the same tick.
func (g *Game) stop() {
	g.stopped = true
	slog.Info("stop_at reached", "clock", g.clock)
	if g.cfg.Telemetry.DumpFrequency > 0 {
		g.saveDump()
	}
}

// UpdateHeadless runs one batch of StepsPerUpdate ticks. It does nothing
// while paused or after stop_at.
func (g *Game) UpdateHeadless() {
	if g.paused || g.stopped {
		return
	}
	g.perfCollector.StartTick()
	g.perfCollector.StartPhase(telemetry.PhaseExecute)
	n := 0
	for n < g.stepsPerUpdate && g.Step() {
		n++
	}
	g.perfCollector.CountTicks(n)
	g.perfCollector.EndTick()
}

// Run steps the simulation until stop_at is reached or ctx is cancelled.
// Cancellation is checked between batches, never inside a tick.
func (g *Game) Run(ctx context.Context) error {
	for !g.stopped {
		select {
		case <-ctx.Done():
			slog.Info("run cancelled", "clock", g.clock)
			return ctx.Err()
		default:
		}
		g.UpdateHeadless()
	}
	return nil
}
