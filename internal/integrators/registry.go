package integrators

import (
	"fmt"
	"sort"
)

var steppers = map[string]func() Stepper{
	"euler":    func() Stepper { return NewEuler() },
	"midpoint": func() Stepper { return NewMidpoint() },
	"rk4":      func() Stepper { return NewRK4() },
	"dopri5":   func() Stepper { return NewDopri5() },
}

func New(name string) (Stepper, error) {
	fn, ok := steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func List() []string {
	names := make([]string, 0, len(steppers))
	for name := range steppers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
