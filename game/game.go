// Package game drives the pond: it owns the grid, the random engine and the
// interpreter, advances the clock and fires the telemetry hooks.
package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/pond/camera"
	"github.com/pthm-cable/pond/config"
	"github.com/pthm-cable/pond/indexdb"
	"github.com/pthm-cable/pond/palette"
	"github.com/pthm-cable/pond/pond"
	"github.com/pthm-cable/pond/renderer"
	"github.com/pthm-cable/pond/rng"
	"github.com/pthm-cable/pond/systems"
	"github.com/pthm-cable/pond/telemetry"
	"github.com/pthm-cable/pond/ui"
)

// Options configures game initialization.
type Options struct {
	Config         *config.Config // nil uses config.Cfg()
	LogStats       bool           // log report rows and events via slog
	OutputDir      string         // directory for CSV files, dumps and snapshots; empty disables them
	IndexDB        string         // SQLite index path; empty disables the index
	Resume         string         // snapshot file to resume from
	Headless       bool
	StepsPerUpdate int // ticks per Update call, < 1 means 1

	// Trace receives one debug record per executed instruction. Very verbose.
	Trace *slog.Logger

	// StatsCallback is called with every report row.
	StatsCallback func(telemetry.ReportStats)
}

// Game holds the complete simulation state.
type Game struct {
	cfg    *config.Config
	grid   *pond.Grid
	rng    *rng.Engine
	vm     *systems.Interpreter
	inflow systems.InflowParams

	// Telemetry
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	index            *indexdb.SQLiteIndex
	statsCallback    func(telemetry.ReportStats)
	logStats         bool
	lastReport       telemetry.ReportStats
	snapshotPending  bool

	// State
	clock          uint64
	stopped        bool
	paused         bool
	stepsPerUpdate int

	// Viewer, nil in headless mode
	headless     bool
	camera       *camera.Camera
	pondRenderer *renderer.PondRenderer
	hud          *ui.HUD
	cellPanel    *ui.CellPanel
	scheme       palette.Scheme
	selected     int
	lastRefresh  uint64
	needsRefresh bool
}

// NewGameWithOptions creates a game, resuming from a snapshot when
// opts.Resume is set.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	grid := pond.NewGrid(cfg.Pond.Width, cfg.Pond.Height, cfg.Pond.Depth)
	r := rng.New(cfg.Run.Seed, cfg.RNG.BatchRounds)
	r.Discard(cfg.Run.WarmupDraws)

	collector := telemetry.NewCollector(nil)
	g := &Game{
		cfg:  cfg,
		grid: grid,
		rng:  r,
		vm: systems.NewInterpreter(grid, r, collector.Counters(), systems.VMParams{
			MutationRate:      cfg.VM.MutationRate,
			FailedKillPenalty: cfg.VM.FailedKillPenalty,
		}),
		inflow: systems.InflowParams{
			Frequency:     cfg.Inflow.Frequency,
			RateBase:      cfg.Inflow.RateBase,
			RateVariation: cfg.Inflow.RateVariation,
		},
		collector:        collector,
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.EventHistory),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		stepsPerUpdate:   max(opts.StepsPerUpdate, 1),
		headless:         opts.Headless,
		selected:         -1,
		needsRefresh:     true,
	}

	if opts.Trace != nil {
		g.vm.SetTrace(opts.Trace)
	}

	if opts.Resume != "" {
		if err := g.resume(opts.Resume); err != nil {
			return nil, err
		}
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			om.Close()
			return nil, fmt.Errorf("write config: %w", err)
		}
		g.outputManager = om
		slog.Info("output directory", "path", om.Dir())
	}

	if opts.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(opts.IndexDB)
		if err != nil {
			g.outputManager.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		_, err = idx.BeginRun(indexdb.RunInfo{
			Seed:      cfg.Run.Seed,
			Width:     cfg.Pond.Width,
			Height:    cfg.Pond.Height,
			Depth:     cfg.Pond.Depth,
			OutputDir: opts.OutputDir,
		})
		if err != nil {
			idx.Close()
			g.outputManager.Close()
			return nil, fmt.Errorf("begin run: %w", err)
		}
		g.index = idx
	}

	if !g.headless {
		g.camera = camera.New(float32(cfg.Derived.ScreenWidth), float32(cfg.Derived.ScreenHeight),
			cfg.Pond.Width, cfg.Pond.Height, float32(cfg.Screen.Scale))
		g.pondRenderer = renderer.NewPondRenderer(cfg.Pond.Width, cfg.Pond.Height)
		g.hud = ui.NewHUD()
		g.cellPanel = ui.NewCellPanel(230)
	}

	return g, nil
}

// Clock returns the number of ticks run so far.
func (g *Game) Clock() uint64 { return g.clock }

// Grid returns the pond.
func (g *Game) Grid() *pond.Grid { return g.grid }

// Stopped reports whether the run reached stop_at.
func (g *Game) Stopped() bool { return g.stopped }

// Paused reports whether updates are suspended.
func (g *Game) Paused() bool { return g.paused }

// TogglePause suspends or resumes updates.
func (g *Game) TogglePause() {
	g.paused = !g.paused
	slog.Info("pause", "paused", g.paused, "clock", g.clock)
}

// LastReport returns the most recent report row.
func (g *Game) LastReport() telemetry.ReportStats { return g.lastReport }

// StepsPerUpdate returns the number of ticks per update.
func (g *Game) StepsPerUpdate() int { return g.stepsPerUpdate }

// SetStepsPerUpdate changes the number of ticks per update, minimum 1.
func (g *Game) SetStepsPerUpdate(n int) { g.stepsPerUpdate = max(n, 1) }
