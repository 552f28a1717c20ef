// Package main searches pond parameters with CMA-ES for settings that
// sustain the most viable replicators.
package main

import (
	"math"

	"github.com/pthm-cable/pond/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Interpreter
			{Name: "mutation_rate", Path: "vm.mutation_rate", Min: 1000, Max: 400000, Default: 21475},
			{Name: "failed_kill_penalty", Path: "vm.failed_kill_penalty", Min: 1, Max: 16, Default: 2},
			// Inflow
			{Name: "inflow_frequency", Path: "inflow.frequency", Min: 10, Max: 1000, Default: 100},
			{Name: "inflow_rate_base", Path: "inflow.rate_base", Min: 500, Max: 20000, Default: 4000},
			{Name: "inflow_rate_variation", Path: "inflow.rate_variation", Min: 0, Max: 20000, Default: 8000},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes parameter values into cfg, rounded to the integer
// fields the pond uses. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)

	cfg.VM.MutationRate = uint32(math.Round(c[0]))
	cfg.VM.FailedKillPenalty = uint64(math.Round(c[1]))
	cfg.Inflow.Frequency = uint64(math.Round(c[2]))
	cfg.Inflow.RateBase = uint64(math.Round(c[3]))
	cfg.Inflow.RateVariation = uint64(math.Round(c[4]))
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		float64(cfg.VM.MutationRate),
		float64(cfg.VM.FailedKillPenalty),
		float64(cfg.Inflow.Frequency),
		float64(cfg.Inflow.RateBase),
		float64(cfg.Inflow.RateVariation),
	}
}
