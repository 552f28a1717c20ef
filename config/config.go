// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// slotsPerWord is the genome depth granularity.
const slotsPerWord = 16

// Config holds all simulation configuration parameters.
type Config struct {
	Pond      PondConfig      `yaml:"pond"`
	VM        VMConfig        `yaml:"vm"`
	Inflow    InflowConfig    `yaml:"inflow"`
	Run       RunConfig       `yaml:"run"`
	RNG       RNGConfig       `yaml:"rng"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Screen    ScreenConfig    `yaml:"screen"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PondConfig holds grid dimensions.
type PondConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"` // genome slots per cell, multiple of 16
}

// VMConfig holds interpreter parameters.
type VMConfig struct {
	MutationRate      uint32 `yaml:"mutation_rate"`       // per-instruction probability as a fraction of 2^32
	FailedKillPenalty uint64 `yaml:"failed_kill_penalty"` // divisor of the actor's energy on a failed KILL
}

// InflowConfig holds random organism seeding parameters.
type InflowConfig struct {
	Frequency     uint64 `yaml:"frequency"`      // ticks between inflows
	RateBase      uint64 `yaml:"rate_base"`      // energy per inflow
	RateVariation uint64 `yaml:"rate_variation"` // random extra energy, 0 disables
}

// RunConfig holds run control parameters.
type RunConfig struct {
	Seed        uint64 `yaml:"seed"`
	StopAt      uint64 `yaml:"stop_at"`      // clock to stop at, 0 runs forever
	WarmupDraws int    `yaml:"warmup_draws"` // random values discarded after seeding
}

// RNGConfig holds random engine parameters.
type RNGConfig struct {
	BatchRounds int `yaml:"batch_rounds"` // generator steps per lane per refill
}

// TelemetryConfig holds output cadence. Frequencies are in ticks, 0 disables.
type TelemetryConfig struct {
	ReportFrequency   uint64 `yaml:"report_frequency"`
	DumpFrequency     uint64 `yaml:"dump_frequency"`
	SnapshotFrequency uint64 `yaml:"snapshot_frequency"`
	ProgressFrequency uint64 `yaml:"progress_frequency"`
	CompressDumps     bool   `yaml:"compress_dumps"`
	EventHistory      int    `yaml:"event_history"` // reports kept for event detection
	PerfWindow        int    `yaml:"perf_window"`   // batches averaged in perf stats
}

// ScreenConfig holds graphical mode parameters.
type ScreenConfig struct {
	Scale            int    `yaml:"scale"` // screen pixels per cell
	TargetFPS        int    `yaml:"target_fps"`
	RefreshFrequency uint64 `yaml:"refresh_frequency"` // ticks between pond texture refreshes
}

// DerivedConfig holds values computed from other config values.
type DerivedConfig struct {
	GenomeWords         int     // genome words per cell
	MutationProbability float64 // MutationRate as a probability
	ScreenWidth         int     // window width in pixels
	ScreenHeight        int     // pond area height in pixels
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate checks the values the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Pond.Width <= 0 || c.Pond.Height <= 0 {
		errs = append(errs, fmt.Errorf("pond size %dx%d must be positive", c.Pond.Width, c.Pond.Height))
	}
	if c.Pond.Depth <= 0 || c.Pond.Depth%slotsPerWord != 0 {
		errs = append(errs, fmt.Errorf("pond depth %d must be a positive multiple of %d", c.Pond.Depth, slotsPerWord))
	}
	if c.VM.FailedKillPenalty == 0 {
		errs = append(errs, errors.New("vm failed_kill_penalty must be positive"))
	}
	if c.Inflow.Frequency == 0 {
		errs = append(errs, errors.New("inflow frequency must be positive"))
	}
	if c.RNG.BatchRounds < 0 {
		errs = append(errs, fmt.Errorf("rng batch_rounds %d must not be negative", c.RNG.BatchRounds))
	}
	if c.Run.WarmupDraws < 0 {
		errs = append(errs, fmt.Errorf("run warmup_draws %d must not be negative", c.Run.WarmupDraws))
	}
	if c.Screen.Scale <= 0 {
		errs = append(errs, fmt.Errorf("screen scale %d must be positive", c.Screen.Scale))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.GenomeWords = c.Pond.Depth / slotsPerWord
	c.Derived.MutationProbability = float64(c.VM.MutationRate) / (1 << 32)
	c.Derived.ScreenWidth = c.Pond.Width * c.Screen.Scale
	c.Derived.ScreenHeight = c.Pond.Height * c.Screen.Scale
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
