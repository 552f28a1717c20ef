package telemetry

import (
	"log/slog"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pond/genome"
)

// ReportStats is one row of report.csv.
type ReportStats struct {
	Clock uint64 `csv:"clock"`

	// Population at report time
	TotalEnergy       uint64 `csv:"total_energy"`
	ActiveCells       int    `csv:"active_cells"`
	ViableReplicators int    `csv:"viable_replicators"`
	MaxGeneration     uint64 `csv:"max_generation"`

	// Events since the previous report
	ViableReplaced uint64 `csv:"viable_replaced"`
	ViableKilled   uint64 `csv:"viable_killed"`
	ViableShared   uint64 `csv:"viable_shared"`

	// Average executions of each opcode per cell execution
	Inst0 float64 `csv:"inst_0"`
	Inst1 float64 `csv:"inst_1"`
	Inst2 float64 `csv:"inst_2"`
	Inst3 float64 `csv:"inst_3"`
	Inst4 float64 `csv:"inst_4"`
	Inst5 float64 `csv:"inst_5"`
	Inst6 float64 `csv:"inst_6"`
	Inst7 float64 `csv:"inst_7"`
	Inst8 float64 `csv:"inst_8"`
	Inst9 float64 `csv:"inst_9"`
	InstA float64 `csv:"inst_a"`
	InstB float64 `csv:"inst_b"`
	InstC float64 `csv:"inst_c"`
	InstD float64 `csv:"inst_d"`
	InstE float64 `csv:"inst_e"`
	InstF float64 `csv:"inst_f"`

	Metabolism float64 `csv:"metabolism"` // executed instructions per cell execution

	// Energy distribution over active cells
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	GenerationMean float64 `csv:"generation_mean"`
	ActiveLineages int     `csv:"active_lineages"` // distinct lineages among viable cells
}

// Frequencies returns the per-opcode columns as an array indexed by opcode.
func (s *ReportStats) Frequencies() [genome.NumOpcodes]float64 {
	return [genome.NumOpcodes]float64{
		s.Inst0, s.Inst1, s.Inst2, s.Inst3, s.Inst4, s.Inst5, s.Inst6, s.Inst7,
		s.Inst8, s.Inst9, s.InstA, s.InstB, s.InstC, s.InstD, s.InstE, s.InstF,
	}
}

// SetFrequencies fills the per-opcode columns.
func (s *ReportStats) SetFrequencies(f [genome.NumOpcodes]float64) {
	s.Inst0, s.Inst1, s.Inst2, s.Inst3 = f[0], f[1], f[2], f[3]
	s.Inst4, s.Inst5, s.Inst6, s.Inst7 = f[4], f[5], f[6], f[7]
	s.Inst8, s.Inst9, s.InstA, s.InstB = f[8], f[9], f[10], f[11]
	s.InstC, s.InstD, s.InstE, s.InstF = f[12], f[13], f[14], f[15]
}

// ComputeEnergyStats returns mean, sample standard deviation, median and
// 90th percentile of values. All zero for an empty slice.
func ComputeEnergyStats(values []float64) (mean, std, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	if n > 1 {
		std = stat.StdDev(sorted, nil)
	}
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, std, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s ReportStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("clock", s.Clock),
		slog.Uint64("total_energy", s.TotalEnergy),
		slog.Int("active_cells", s.ActiveCells),
		slog.Int("viable_replicators", s.ViableReplicators),
		slog.Uint64("max_generation", s.MaxGeneration),
		slog.Uint64("viable_replaced", s.ViableReplaced),
		slog.Uint64("viable_killed", s.ViableKilled),
		slog.Uint64("viable_shared", s.ViableShared),
		slog.Float64("metabolism", s.Metabolism),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_std", s.EnergyStd),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("generation_mean", s.GenerationMean),
		slog.Int("active_lineages", s.ActiveLineages),
	}
	for op, f := range s.Frequencies() {
		attrs = append(attrs, slog.Float64("inst_"+strconv.FormatInt(int64(op), 16), f))
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the headline numbers of the report.
func (s ReportStats) LogStats() {
	slog.Info("stats",
		"clock", s.Clock,
		"total_energy", s.TotalEnergy,
		"active_cells", s.ActiveCells,
		"viable_replicators", s.ViableReplicators,
		"max_generation", s.MaxGeneration,
		"viable_replaced", s.ViableReplaced,
		"viable_killed", s.ViableKilled,
		"viable_shared", s.ViableShared,
		"metabolism", s.Metabolism,
		"active_lineages", s.ActiveLineages,
	)
}
