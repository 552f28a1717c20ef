package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pond/config"
	"github.com/pthm-cable/pond/game"
	"github.com/pthm-cable/pond/telemetry"
)

// FitnessEvaluator runs headless ponds and scores them.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint64
	seeds      []uint64
	baseConfig *config.Config

	mu          sync.Mutex
	lastViable  float64 // mean viable replicators from the most recent Evaluate call
	lastQuality float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastViable returns the mean viable replicator count from the most recent evaluation.
func (fe *FitnessEvaluator) LastViable() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastViable
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Reports before this many are ignored while the first replicators appear.
const warmupReports = 2

type seedResult struct {
	viable  float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Seeds run in parallel; each game owns its grid and random engine.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			reports, err := fe.runSimulation(x, s)
			if err != nil {
				slog.Error("evaluation run failed", "seed", s, "error", err)
				return
			}
			results[idx] = seedResult{
				viable:  meanViable(reports),
				quality: quality(reports),
			}
		}(i, seed)
	}
	wg.Wait()

	var viable, q float64
	for _, r := range results {
		viable += r.viable
		q += r.quality
	}
	n := float64(len(results))
	viable /= n
	q /= n

	fe.mu.Lock()
	fe.lastViable = viable
	fe.lastQuality = q
	fe.mu.Unlock()

	return computeFitness(viable, q)
}

// runSimulation runs one headless pond to maxTicks and returns its reports.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) ([]telemetry.ReportStats, error) {
	cfg := fe.configFor(x, seed)

	var reports []telemetry.ReportStats
	g, err := game.NewGameWithOptions(game.Options{
		Config:         cfg,
		Headless:       true,
		StepsPerUpdate: 4096,
		StatsCallback: func(r telemetry.ReportStats) {
			reports = append(reports, r)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	if err := g.Run(context.Background()); err != nil {
		return nil, err
	}
	return reports, nil
}

// configFor returns a copy of the base config with x applied. Dumps,
// snapshots and progress lines are turned off.
func (fe *FitnessEvaluator) configFor(x []float64, seed uint64) *config.Config {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)
	cfg.Run.Seed = seed
	cfg.Run.StopAt = fe.maxTicks
	cfg.Telemetry.DumpFrequency = 0
	cfg.Telemetry.SnapshotFrequency = 0
	cfg.Telemetry.ProgressFrequency = 0
	if cfg.Telemetry.ReportFrequency == 0 || cfg.Telemetry.ReportFrequency > fe.maxTicks/8 {
		cfg.Telemetry.ReportFrequency = max(fe.maxTicks/8, 1)
	}
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(viable × (1.0 + 0.2 × quality))
// The viable population dominates; quality separates ponds of similar size.
func computeFitness(viable, quality float64) float64 {
	return -(viable * (1.0 + 0.2*quality))
}

// meanViable averages viable replicators over the reports after warm-up.
func meanViable(reports []telemetry.ReportStats) float64 {
	if len(reports) <= warmupReports {
		return 0
	}
	counts := viableCounts(reports[warmupReports:])
	return stat.Mean(counts, nil)
}

// Quality component weights.
const (
	qualityWeightStability = 0.6
	qualityWeightDepth     = 0.4

	// generations at which the depth score reaches 1-1/e
	qualityGenerationScale = 100.0
)

// quality scores a run in [0, 1]: a steady viable population and deep
// lineages score high.
func quality(reports []telemetry.ReportStats) float64 {
	if len(reports) <= warmupReports {
		return 0
	}
	valid := reports[warmupReports:]
	counts := viableCounts(valid)

	stability := 0.0
	if mean := stat.Mean(counts, nil); mean > 0 && len(counts) >= 2 {
		cv := stat.StdDev(counts, nil) / mean
		stability = math.Exp(-cv * cv)
	}

	gen := float64(valid[len(valid)-1].MaxGeneration)
	depth := 1 - math.Exp(-gen/qualityGenerationScale)

	return clamp01(qualityWeightStability*stability + qualityWeightDepth*depth)
}

func viableCounts(reports []telemetry.ReportStats) []float64 {
	counts := make([]float64, len(reports))
	for i, r := range reports {
		counts[i] = float64(r.ViableReplicators)
	}
	return counts
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}
