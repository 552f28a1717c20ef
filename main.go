package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pond/config"
	"github.com/pthm-cable/pond/game"
	"github.com/pthm-cable/pond/ui"
)

// minWindowWidth leaves room for the HUD on narrow ponds.
const minWindowWidth = 900

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output report rows and events via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, dumps, snapshots and config")
	indexDB := flag.String("index-db", "", "SQLite file indexing reports, events, dumps and snapshots")
	resume := flag.String("resume", "", "Snapshot file to resume from")
	seed := flag.Uint64("seed", 0, "RNG seed (overrides run.seed when set)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = use run.stop_at)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster runs)")
	traceVM := flag.Bool("trace-vm", false, "Log every executed instruction to stderr (debug level, very slow)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Run.Seed = *seed
		}
	})
	if *maxTicks > 0 {
		cfg.Run.StopAt = *maxTicks
	}

	opts := game.Options{
		Config:         cfg,
		LogStats:       *logStats,
		OutputDir:      *outputDir,
		IndexDB:        *indexDB,
		Resume:         *resume,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
	}
	if *traceVM {
		opts.Trace = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		g, err := game.NewGameWithOptions(opts)
		if err != nil {
			slog.Error("failed to start simulation", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless simulation",
			"seed", cfg.Run.Seed,
			"width", cfg.Pond.Width,
			"height", cfg.Pond.Height,
			"depth", cfg.Pond.Depth,
			"stop_at", cfg.Run.StopAt,
			"steps_per_update", *stepsPerUpdate,
		)

		if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("simulation failed", "error", err)
		}
		return
	}

	// Graphical mode
	width := max(cfg.Derived.ScreenWidth, minWindowWidth)
	rl.InitWindow(int32(width), int32(cfg.Derived.ScreenHeight+ui.HUDHeight), "Pond")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		g.Update()
		g.Draw()
	}
}
