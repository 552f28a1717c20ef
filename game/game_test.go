package game

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/pond/config"
	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/pond"
	"github.com/pthm-cable/pond/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Pond.Width, cfg.Pond.Height, cfg.Pond.Depth = 16, 12, 64
	cfg.Run.Seed = 7
	cfg.Run.WarmupDraws = 16
	cfg.Inflow.Frequency = 10
	cfg.Inflow.RateBase = 400
	cfg.Inflow.RateVariation = 800
	cfg.VM.MutationRate = 1 << 24
	cfg.Telemetry.ReportFrequency = 100
	cfg.Telemetry.DumpFrequency = 0
	cfg.Telemetry.SnapshotFrequency = 0
	cfg.Telemetry.ProgressFrequency = 0
	cfg.Telemetry.CompressDumps = false
	return cfg
}

func newTestGame(t *testing.T, opts Options) *Game {
	t.Helper()
	opts.Headless = true
	g, err := NewGameWithOptions(opts)
	if err != nil {
		t.Fatalf("NewGameWithOptions: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

func stepN(g *Game, n int) {
	for i := 0; i < n; i++ {
		g.Step()
	}
}

func gridsEqual(t *testing.T, a, b *pond.Grid) {
	t.Helper()
	if a.LastID() != b.LastID() {
		t.Fatalf("last id %d vs %d", a.LastID(), b.LastID())
	}
	ac, bc := a.Cells(), b.Cells()
	for i := range ac {
		x, y := &ac[i], &bc[i]
		if x.ID != y.ID || x.ParentID != y.ParentID || x.Lineage != y.Lineage ||
			x.Generation != y.Generation || x.Energy != y.Energy || !slices.Equal(x.Genome, y.Genome) {
			t.Fatalf("cell %d differs: %+v vs %+v", i, *x, *y)
		}
	}
}

func TestDeterministicRuns(t *testing.T) {
	cfg := testConfig(t)
	a := newTestGame(t, Options{Config: cfg})
	b := newTestGame(t, Options{Config: cfg})

	stepN(a, 5000)
	stepN(b, 5000)

	if a.Clock() != 5000 || b.Clock() != 5000 {
		t.Fatalf("clocks %d, %d", a.Clock(), b.Clock())
	}
	gridsEqual(t, a.Grid(), b.Grid())
	if a.Grid().LastID() == 0 {
		t.Error("no cell was ever seeded")
	}
}

func TestSeedsDiverge(t *testing.T) {
	cfg := testConfig(t)
	other := *cfg
	other.Run.Seed = 8

	a := newTestGame(t, Options{Config: cfg})
	b := newTestGame(t, Options{Config: &other})
	stepN(a, 2000)
	stepN(b, 2000)

	same := true
	ac, bc := a.Grid().Cells(), b.Grid().Cells()
	for i := range ac {
		if ac[i].Energy != bc[i].Energy || !slices.Equal(ac[i].Genome, bc[i].Genome) {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical ponds")
	}
}

func TestReportsEveryFrequency(t *testing.T) {
	cfg := testConfig(t)
	var rows []telemetry.ReportStats
	g := newTestGame(t, Options{Config: cfg, StatsCallback: func(s telemetry.ReportStats) {
		rows = append(rows, s)
	}})

	stepN(g, 350)

	if len(rows) != 3 {
		t.Fatalf("got %d reports, want 3", len(rows))
	}
	for i, r := range rows {
		if want := uint64(100 * (i + 1)); r.Clock != want {
			t.Errorf("report %d clock = %d, want %d", i, r.Clock, want)
		}
	}
	if rows[0].TotalEnergy == 0 || rows[0].ActiveCells == 0 {
		t.Errorf("inflow added no energy by clock 100: %+v", rows[0])
	}
	if g.LastReport().Clock != 300 {
		t.Errorf("LastReport clock = %d", g.LastReport().Clock)
	}
}

func TestStopAt(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.StopAt = 250
	g := newTestGame(t, Options{Config: cfg, StepsPerUpdate: 64})

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !g.Stopped() || g.Clock() != 250 {
		t.Errorf("stopped=%v clock=%d, want stopped at 250", g.Stopped(), g.Clock())
	}
	if g.Step() {
		t.Error("Step ran past stop_at")
	}
	if g.Clock() != 250 {
		t.Errorf("clock moved to %d", g.Clock())
	}
}

func TestTraceLogsInstructions(t *testing.T) {
	var buf bytes.Buffer
	trace := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g := newTestGame(t, Options{Config: testConfig(t), Trace: trace})
	stepN(g, 500)

	if !strings.Contains(buf.String(), `"msg":"exec"`) {
		t.Fatal("no instructions traced")
	}
	line, _, _ := strings.Cut(buf.String(), "\n")
	for _, key := range []string{`"cell":`, `"op":`, `"energy":`} {
		if !strings.Contains(line, key) {
			t.Errorf("trace line %s missing %s", line, key)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	g := newTestGame(t, Options{Config: testConfig(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if g.Clock() != 0 {
		t.Errorf("clock = %d after cancelled run", g.Clock())
	}
}

func TestUpdateHeadlessBatches(t *testing.T) {
	g := newTestGame(t, Options{Config: testConfig(t), StepsPerUpdate: 10})

	g.UpdateHeadless()
	if g.Clock() != 10 {
		t.Errorf("clock = %d after one batch, want 10", g.Clock())
	}

	g.TogglePause()
	g.UpdateHeadless()
	if g.Clock() != 10 {
		t.Errorf("paused game advanced to %d", g.Clock())
	}
	g.TogglePause()

	g.SetStepsPerUpdate(0)
	g.UpdateHeadless()
	if g.Clock() != 11 {
		t.Errorf("clock = %d, want 11 with minimum batch", g.Clock())
	}
}

func TestSpeedControls(t *testing.T) {
	g := newTestGame(t, Options{Config: testConfig(t), StepsPerUpdate: 1})

	g.slower()
	if g.StepsPerUpdate() != 1 {
		t.Errorf("slower went below 1: %d", g.StepsPerUpdate())
	}
	g.faster()
	g.faster()
	if g.StepsPerUpdate() != 4 {
		t.Errorf("StepsPerUpdate = %d, want 4", g.StepsPerUpdate())
	}
	g.SetStepsPerUpdate(maxStepsPerUpdate)
	g.faster()
	if g.StepsPerUpdate() != maxStepsPerUpdate {
		t.Errorf("faster passed the limit: %d", g.StepsPerUpdate())
	}
}

func TestResumeFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Run.StopAt = 3000
	cfg.Telemetry.ReportFrequency = 1000
	cfg.Telemetry.SnapshotFrequency = 1000

	var fullReports, resumedReports []telemetry.ReportStats
	full := newTestGame(t, Options{
		Config:    cfg,
		OutputDir: dir,
		StatsCallback: func(r telemetry.ReportStats) {
			if r.Clock > 1000 {
				fullReports = append(fullReports, r)
			}
		},
	})
	if err := full.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	resumed := newTestGame(t, Options{
		Config: cfg,
		Resume: filepath.Join(dir, telemetry.SnapshotFileName(1000)),
		StatsCallback: func(r telemetry.ReportStats) {
			resumedReports = append(resumedReports, r)
		},
	})
	if resumed.Clock() != 1000 {
		t.Fatalf("resumed clock = %d, want 1000", resumed.Clock())
	}
	if err := resumed.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if resumed.Clock() != 3000 {
		t.Fatalf("resumed run stopped at %d", resumed.Clock())
	}
	gridsEqual(t, full.Grid(), resumed.Grid())

	// The tick that took the snapshot had already counted its execution,
	// so the reports only match when the counters travel with the pond.
	if len(resumedReports) != 2 || len(fullReports) != 2 {
		t.Fatalf("got %d resumed and %d full reports after 1000, want 2 each", len(resumedReports), len(fullReports))
	}
	for i := range fullReports {
		if resumedReports[i] != fullReports[i] {
			t.Errorf("report at %d differs after resume:\n got %+v\nwant %+v",
				fullReports[i].Clock, resumedReports[i], fullReports[i])
		}
	}
}

func TestResumeRestoresEventState(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Run.StopAt = 1000
	cfg.Telemetry.SnapshotFrequency = 1000

	full := newTestGame(t, Options{Config: cfg, OutputDir: dir})
	if err := full.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	resumed := newTestGame(t, Options{
		Config: cfg,
		Resume: filepath.Join(dir, telemetry.SnapshotFileName(1000)),
	})
	want := full.bookmarkDetector.State()
	got := resumed.bookmarkDetector.State()
	if got.LastViable != want.LastViable || got.RecordDecade != want.RecordDecade ||
		got.CrashReported != want.CrashReported || !slices.Equal(got.History, want.History) {
		t.Errorf("event state after resume = %+v, want %+v", got, want)
	}
	if *resumed.collector.Counters() != *full.collector.Counters() {
		t.Errorf("counters after resume = %+v, want %+v", *resumed.collector.Counters(), *full.collector.Counters())
	}
}

func TestResumeMissingSnapshot(t *testing.T) {
	_, err := NewGameWithOptions(Options{
		Config:   testConfig(t),
		Headless: true,
		Resume:   filepath.Join(t.TempDir(), "missing.bin.zst"),
	})
	if err == nil {
		t.Error("expected error for missing snapshot")
	}
}

func TestOutputFilesAndIndex(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "pond.db")
	cfg := testConfig(t)
	cfg.Run.StopAt = 200
	cfg.Telemetry.DumpFrequency = 100

	g, err := NewGameWithOptions(Options{Config: cfg, Headless: true, OutputDir: dir, IndexDB: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	g.Unload()

	for _, name := range []string{"config.yaml", "report.csv", "perf.csv", "events.csv", "100.dump.csv", "200.dump.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	dump, err := os.ReadFile(filepath.Join(dir, "200.dump.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, b := range dump {
		if b == '\n' {
			lines++
		}
	}
	if lines != cfg.Pond.Width*cfg.Pond.Height {
		t.Errorf("dump has %d lines, want one per cell", lines)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var reports, dumps int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&reports); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM dumps`).Scan(&dumps); err != nil {
		t.Fatal(err)
	}
	if reports != 2 || dumps != 2 {
		t.Errorf("index has %d reports and %d dumps, want 2 and 2", reports, dumps)
	}
}

func TestDumpCellAt(t *testing.T) {
	g := newTestGame(t, Options{Config: testConfig(t)})

	c := g.Grid().At(3, 2)
	c.Energy, c.Generation = 5, 3
	c.Genome.Set(0, genome.OpInc)
	if got := g.DumpCellAt(3, 2); got != "3ffff" {
		t.Errorf("DumpCellAt = %q, want %q", got, "3ffff")
	}

	c.Generation = 2
	if got := g.DumpCellAt(3, 2); got != "" {
		t.Errorf("ineligible cell dumped %q", got)
	}

	g.Select(3, 2)
	if g.selected != g.Grid().Index(3, 2) {
		t.Errorf("selected = %d", g.selected)
	}
	g.ClearSelection()
	if g.selected != -1 {
		t.Error("selection not cleared")
	}
}
