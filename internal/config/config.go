package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel        = "msd"
	DefaultSolver       = "dopri5"
	DefaultRtol         = 1e-6
	DefaultAtol         = 1e-12
	DefaultSeries       = 51
	DefaultSamples      = 1001
	DefaultDt           = 0.01
	DefaultLearningRate = 0.01
	DefaultEpochs       = 10
	DefaultBatchSize    = 32
	DefaultEvalDuration = 10.0
	DefaultEvalSamples  = 1001
	DefaultEvalTol      = 1e-5
)

type Config struct {
	Model      string           `yaml:"model"`
	Solver     SolverConfig     `yaml:"solver"`
	Oscillator OscillatorConfig `yaml:"oscillator"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Net        NetConfig        `yaml:"net"`
	Train      TrainConfig      `yaml:"train"`
	Eval       EvalConfig       `yaml:"eval"`
}

type SolverConfig struct {
	Method string  `yaml:"method"`
	Rtol   float64 `yaml:"rtol"`
	Atol   float64 `yaml:"atol"`
}

type OscillatorConfig struct {
	Mass      float64 `yaml:"mass"`
	Damping   float64 `yaml:"damping"`
	Stiffness float64 `yaml:"stiffness"`
}

type DatasetConfig struct {
	Dir     string  `yaml:"dir"`
	Series  int     `yaml:"series"`
	Samples int     `yaml:"samples"`
	Dt      float64 `yaml:"dt"`
	Seed    int64   `yaml:"seed"`
}

type NetConfig struct {
	Hidden  []int  `yaml:"hidden"`
	Weights string `yaml:"weights"`
	Seed    int64  `yaml:"seed"`
}

type TrainConfig struct {
	LearningRate float64 `yaml:"lr"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	EvalEvery    int     `yaml:"eval_every"`
	EndToEnd     bool    `yaml:"end_to_end"`
}

type EvalConfig struct {
	PlotDir    string  `yaml:"plot_dir"`
	ResultsDir string  `yaml:"results_dir"`
	Duration   float64 `yaml:"duration"`
	Samples    int     `yaml:"samples"`
	Rtol       float64 `yaml:"rtol"`
	Atol       float64 `yaml:"atol"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: DefaultModel,
		Solver: SolverConfig{
			Method: DefaultSolver,
			Rtol:   DefaultRtol,
			Atol:   DefaultAtol,
		},
		Oscillator: OscillatorConfig{
			Mass:      1.0,
			Damping:   0.0,
			Stiffness: 1.0,
		},
		Dataset: DatasetConfig{
			Dir:     "data/msd",
			Series:  DefaultSeries,
			Samples: DefaultSamples,
			Dt:      DefaultDt,
		},
		Net: NetConfig{
			Hidden:  []int{16, 16},
			Weights: "weights.json",
		},
		Train: TrainConfig{
			LearningRate: DefaultLearningRate,
			Epochs:       DefaultEpochs,
			BatchSize:    DefaultBatchSize,
			EvalEvery:    1,
		},
		Eval: EvalConfig{
			PlotDir:    "plots",
			ResultsDir: "plots",
			Duration:   DefaultEvalDuration,
			Samples:    DefaultEvalSamples,
			Rtol:       DefaultEvalTol,
			Atol:       DefaultEvalTol,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy detached from shared preset storage.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Net.Hidden = append([]int(nil), c.Net.Hidden...)
	return &cp
}
