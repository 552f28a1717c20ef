package game

import (
	"log/slog"

	"github.com/pthm-cable/pond/telemetry"
)

// flushReport builds the report row for the current clock and hands it to
// every configured sink, then checks for events.
func (g *Game) flushReport() {
	stats := g.collector.Flush(g.clock, g.grid)
	g.lastReport = stats
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteReport(stats); err != nil {
			slog.Error("failed to write report", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, g.clock); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
	g.index.RecordReport(stats)

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write event", "error", err)
			}
			// Snapshot the pond at the end of this tick.
			g.snapshotPending = true
		}
		g.index.RecordEvent(bm)
	}
}

// saveDump writes the genome dump for the current clock.
func (g *Game) saveDump() {
	if g.outputManager == nil {
		return
	}
	path, err := telemetry.SaveDump(g.outputManager.Dir(), g.clock, g.grid, g.cfg.Telemetry.CompressDumps)
	if err != nil {
		slog.Error("failed to save dump", "error", err)
		return
	}
	genomes := telemetry.CountDumpable(g.grid)
	slog.Info("dump saved", "path", path, "clock", g.clock, "genomes", genomes)
	g.index.RecordDump(g.clock, path, genomes)
}

// saveSnapshot writes a resumable snapshot of the pond.
func (g *Game) saveSnapshot() {
	if g.outputManager == nil {
		return
	}
	snap := telemetry.CaptureSnapshot(g.cfg.Run.Seed, g.clock, g.grid, g.rng)
	snap.Counters = *g.collector.Counters()
	snap.Events = g.bookmarkDetector.State()
	path, err := telemetry.SaveSnapshot(snap, g.outputManager.Dir())
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "clock", g.clock)
	g.index.RecordSnapshot(g.clock, path, len(snap.Cells))
}
