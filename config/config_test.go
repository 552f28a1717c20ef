package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Pond.Width != 640 || cfg.Pond.Height != 480 || cfg.Pond.Depth != 512 {
		t.Errorf("pond = %+v", cfg.Pond)
	}
	if cfg.VM.MutationRate != 21475 || cfg.VM.FailedKillPenalty != 2 {
		t.Errorf("vm = %+v", cfg.VM)
	}
	if cfg.Inflow.Frequency != 100 || cfg.Inflow.RateBase != 4000 || cfg.Inflow.RateVariation != 8000 {
		t.Errorf("inflow = %+v", cfg.Inflow)
	}
	if cfg.Run.Seed != 13 || cfg.RNG.BatchRounds != 2 {
		t.Errorf("run = %+v rng = %+v", cfg.Run, cfg.RNG)
	}
	if cfg.Derived.GenomeWords != 32 {
		t.Errorf("GenomeWords = %d, want 32", cfg.Derived.GenomeWords)
	}
	if p := cfg.Derived.MutationProbability; p < 4.9e-6 || p > 5.1e-6 {
		t.Errorf("MutationProbability = %g", p)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pond.yaml")
	user := "pond:\n  width: 32\n  height: 16\nrun:\n  seed: 99\n"
	if err := os.WriteFile(path, []byte(user), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pond.Width != 32 || cfg.Pond.Height != 16 {
		t.Errorf("pond = %+v", cfg.Pond)
	}
	if cfg.Pond.Depth != 512 {
		t.Errorf("depth not kept from defaults: %d", cfg.Pond.Depth)
	}
	if cfg.Run.Seed != 99 {
		t.Errorf("seed = %d, want 99", cfg.Run.Seed)
	}
	if cfg.Derived.ScreenWidth != 32*cfg.Screen.Scale {
		t.Errorf("ScreenWidth = %d", cfg.Derived.ScreenWidth)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"depth not multiple of 16", "pond:\n  depth: 100\n", "multiple of 16"},
		{"zero depth", "pond:\n  depth: 0\n", "multiple of 16"},
		{"zero width", "pond:\n  width: 0\n", "must be positive"},
		{"zero penalty", "vm:\n  failed_kill_penalty: 0\n", "failed_kill_penalty"},
		{"zero inflow frequency", "inflow:\n  frequency: 0\n", "inflow frequency"},
		{"negative warmup", "run:\n  warmup_draws: -1\n", "warmup_draws"},
		{"zero scale", "screen:\n  scale: 0\n", "screen scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Run.Seed = 12345
	cfg.Telemetry.CompressDumps = false

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load of written config failed: %v", err)
	}
	if loaded.Run.Seed != 12345 || loaded.Telemetry.CompressDumps {
		t.Errorf("round trip lost values: run=%+v telemetry=%+v", loaded.Run, loaded.Telemetry)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Cfg()
}

func TestMustInit(t *testing.T) {
	saved := global
	defer func() { global = saved }()

	MustInit("")
	if Cfg().Pond.Depth != 512 {
		t.Errorf("Cfg().Pond.Depth = %d", Cfg().Pond.Depth)
	}
}
