package config

import "sort"

// Presets name ready-made experiment profiles. "paper" reproduces the
// published mass-spring-damper run; "quick" is a smoke-test profile.
var Presets = map[string]*Config{
	"paper": {
		Model:      "msd",
		Solver:     SolverConfig{Method: "dopri5", Rtol: DefaultRtol, Atol: DefaultAtol},
		Oscillator: OscillatorConfig{Mass: 1.0, Damping: 0.0, Stiffness: 1.0},
		Dataset: DatasetConfig{
			Dir: "data/msd", Series: 51, Samples: 1001, Dt: 0.01,
		},
		Net: NetConfig{Hidden: []int{16, 16}, Weights: "weights.json"},
		Train: TrainConfig{
			LearningRate: 0.01, Epochs: 100, BatchSize: 32, EvalEvery: 1,
		},
		Eval: EvalConfig{
			PlotDir: "plots", ResultsDir: "plots",
			Duration: 10.0, Samples: 1001, Rtol: 1e-5, Atol: 1e-5,
		},
	},
	"quick": {
		Model:      "msd",
		Solver:     SolverConfig{Method: "dopri5", Rtol: 1e-5, Atol: 1e-8},
		Oscillator: OscillatorConfig{Mass: 1.0, Damping: 0.0, Stiffness: 1.0},
		Dataset: DatasetConfig{
			Dir: "data/quick", Series: 8, Samples: 201, Dt: 0.01,
		},
		Net: NetConfig{Hidden: []int{8}, Weights: "weights-quick.json"},
		Train: TrainConfig{
			LearningRate: 0.01, Epochs: 2, BatchSize: 16, EvalEvery: 1,
		},
		Eval: EvalConfig{
			PlotDir: "plots-quick", ResultsDir: "plots-quick",
			Duration: 2.0, Samples: 201, Rtol: 1e-5, Atol: 1e-5,
		},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
