package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/multicart/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"euler":         func() dynamo.Integrator { return NewEuler() },
	"semi_implicit": func() dynamo.Integrator { return NewSemiImplicitEuler() },
	"verlet":        func() dynamo.Integrator { return NewVerlet() },
	"rk4":           func() dynamo.Integrator { return NewRK4() },
	"rk45":          func() dynamo.Integrator { return NewRK45() },
}

// New returns a fresh integrator by name. Integrators hold scratch space,
// so every caller gets its own instance.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", dynamo.ErrUnknownIntegrator, name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
