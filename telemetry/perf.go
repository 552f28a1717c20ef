package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase names for the simulation step.
const (
	PhaseInflow   = "inflow"
	PhaseExecute  = "execute"
	PhaseReport   = "report"
	PhaseDump     = "dump"
	PhaseSnapshot = "snapshot"
)

var phases = []string{PhaseInflow, PhaseExecute, PhaseReport, PhaseDump, PhaseSnapshot}

// PerfSample holds timing data for one sampled batch of ticks.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window. A sample
// covers one batch of ticks, so timing overhead is paid per batch.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	tickCount     int
	phaseStart    time.Time
	lastPhase     string

	// Frame timing (for graphics mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of batches to average over (e.g., 60 for 1 second at 60fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new batch of ticks.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.tickCount = 0
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// CountTicks adds n ticks to the current batch.
func (p *PerfCollector) CountTicks(n int) {
	p.tickCount += n
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current batch and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	// End final phase
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	n := max(p.tickCount, 1)
	perTick := make(map[string]time.Duration, len(p.currentPhases))
	for phase, d := range p.currentPhases {
		perTick[phase] = d / time.Duration(n)
	}
	sample := PerfSample{
		TickDuration: now.Sub(p.tickStart) / time.Duration(n),
		Phases:       perTick,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for graphics mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total tick time
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64

	// Frame timing (graphics mode)
	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the samples in the window. Per-tick durations are
// averaged with gonum over the stored batches.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameDuration,
	}
	if p.frameDuration > 0 {
		out.FPS = float64(time.Second) / float64(p.frameDuration)
	}
	if p.sampleCount == 0 {
		return out
	}

	window := p.samples[:p.sampleCount]
	ticks := make([]float64, len(window))
	phaseTotals := make(map[string]float64)
	for i, s := range window {
		ticks[i] = float64(s.TickDuration)
		for phase, d := range s.Phases {
			phaseTotals[phase] += float64(d)
		}
	}

	avg := stat.Mean(ticks, nil)
	out.AvgTickDuration = time.Duration(avg)
	out.MinTickDuration = time.Duration(floats.Min(ticks))
	out.MaxTickDuration = time.Duration(floats.Max(ticks))
	if avg > 0 {
		out.TicksPerSecond = float64(time.Second) / avg
	}

	n := float64(len(window))
	for phase, total := range phaseTotals {
		mean := total / n
		out.PhaseAvg[phase] = time.Duration(mean)
		if avg > 0 {
			out.PhasePct[phase] = mean / avg * 100
		}
	}
	return out
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_ns", s.AvgTickDuration.Nanoseconds(),
		"min_tick_ns", s.MinTickDuration.Nanoseconds(),
		"max_tick_ns", s.MaxTickDuration.Nanoseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_ns", s.AvgTickDuration.Nanoseconds()),
		slog.Int64("min_tick_ns", s.MinTickDuration.Nanoseconds()),
		slog.Int64("max_tick_ns", s.MaxTickDuration.Nanoseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Clock       uint64  `csv:"clock"`
	AvgTickNS   int64   `csv:"avg_tick_ns"`
	MinTickNS   int64   `csv:"min_tick_ns"`
	MaxTickNS   int64   `csv:"max_tick_ns"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	FPS         float64 `csv:"fps"`
	InflowPct   float64 `csv:"inflow_pct"`
	ExecutePct  float64 `csv:"execute_pct"`
	ReportPct   float64 `csv:"report_pct"`
	DumpPct     float64 `csv:"dump_pct"`
	SnapshotPct float64 `csv:"snapshot_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(clock uint64) PerfStatsCSV {
	return PerfStatsCSV{
		Clock:       clock,
		AvgTickNS:   s.AvgTickDuration.Nanoseconds(),
		MinTickNS:   s.MinTickDuration.Nanoseconds(),
		MaxTickNS:   s.MaxTickDuration.Nanoseconds(),
		TicksPerSec: s.TicksPerSecond,
		FPS:         s.FPS,
		InflowPct:   s.PhasePct[PhaseInflow],
		ExecutePct:  s.PhasePct[PhaseExecute],
		ReportPct:   s.PhasePct[PhaseReport],
		DumpPct:     s.PhasePct[PhaseDump],
		SnapshotPct: s.PhasePct[PhaseSnapshot],
	}
}
