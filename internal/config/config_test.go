package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "msd" {
		t.Errorf("expected model msd, got %s", cfg.Model)
	}
	if cfg.Solver.Method != "dopri5" {
		t.Errorf("expected solver dopri5, got %s", cfg.Solver.Method)
	}
	if cfg.Dataset.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Train.LearningRate <= 0 {
		t.Error("lr should be positive")
	}
	if len(cfg.Net.Hidden) == 0 {
		t.Error("expected hidden layers")
	}
	if cfg.Eval.Rtol != 1e-5 || cfg.Eval.Atol != 1e-5 {
		t.Errorf("expected eval tolerances 1e-5, got %g/%g", cfg.Eval.Rtol, cfg.Eval.Atol)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	partial := "train:\n  lr: 0.001\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Train.LearningRate != 0.001 {
		t.Errorf("expected lr 0.001, got %g", cfg.Train.LearningRate)
	}
	if cfg.Dataset.Samples != DefaultSamples {
		t.Errorf("expected default samples %d, got %d", DefaultSamples, cfg.Dataset.Samples)
	}
	if cfg.Solver.Method != "dopri5" {
		t.Errorf("expected default solver, got %s", cfg.Solver.Method)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Model = "pendulum"
	cfg.Net.Hidden = []int{4, 8, 4}
	cfg.Train.EndToEnd = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Model != "pendulum" {
		t.Errorf("expected model pendulum, got %s", loaded.Model)
	}
	if len(loaded.Net.Hidden) != 3 || loaded.Net.Hidden[1] != 8 {
		t.Errorf("expected hidden [4 8 4], got %v", loaded.Net.Hidden)
	}
	if !loaded.Train.EndToEnd {
		t.Error("expected end_to_end to survive the round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("quick")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Dataset.Series != 8 {
		t.Errorf("expected 8 series, got %d", cfg.Dataset.Series)
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(names))
	}
	if names[0] != "paper" || names[1] != "quick" {
		t.Errorf("expected sorted [paper quick], got %v", names)
	}
}

func TestClone(t *testing.T) {
	orig := DefaultConfig()
	cp := orig.Clone()

	cp.Model = "pendulum"
	cp.Net.Hidden[0] = 99

	if orig.Model != "msd" {
		t.Errorf("clone mutation leaked into original model: %s", orig.Model)
	}
	if orig.Net.Hidden[0] == 99 {
		t.Error("clone shares the hidden-layer slice with the original")
	}
}

func TestPaperPresetMatchesExperiment(t *testing.T) {
	cfg := GetPreset("paper")
	if cfg == nil {
		t.Fatal("expected paper preset")
	}
	if cfg.Dataset.Series != 51 || cfg.Dataset.Samples != 1001 {
		t.Errorf("expected 51x1001 dataset, got %dx%d", cfg.Dataset.Series, cfg.Dataset.Samples)
	}
	if cfg.Dataset.Dt != 0.01 {
		t.Errorf("expected dt 0.01, got %g", cfg.Dataset.Dt)
	}
}
