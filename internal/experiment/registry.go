package experiment

import (
	"fmt"
	"sort"

	"github.com/TimFelixBeyer/NeuralODE/internal/config"
	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/neural"
	"github.com/TimFelixBeyer/NeuralODE/internal/oscillator"
)

// Registry resolves candidate field names. "msd" and "pendulum" are
// the analytic references; "mlp" loads trained weights from the
// configured path.
type Registry struct {
	fields map[string]func(cfg *config.Config) (dynamics.Field, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		fields: make(map[string]func(*config.Config) (dynamics.Field, error)),
	}

	r.fields["msd"] = func(cfg *config.Config) (dynamics.Field, error) {
		m := oscillator.NewMassSpringDamper()
		m.Mass = cfg.Oscillator.Mass
		m.Damping = cfg.Oscillator.Damping
		m.Stiffness = cfg.Oscillator.Stiffness
		return m, nil
	}
	r.fields["pendulum"] = func(cfg *config.Config) (dynamics.Field, error) {
		return oscillator.NewPendulum(), nil
	}
	r.fields["mlp"] = func(cfg *config.Config) (dynamics.Field, error) {
		return neural.Load(cfg.Net.Weights)
	}

	return r
}

func (r *Registry) GetField(name string, cfg *config.Config) (dynamics.Field, error) {
	fn, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("unknown field: %s", name)
	}
	return fn(cfg)
}

func (r *Registry) ListFields() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
