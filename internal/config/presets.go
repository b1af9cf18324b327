package config

import "sort"

var Presets = map[string]func() *Config{
	"single": func() *Config {
		cfg := DefaultConfig()
		cfg.Env.Carts = 1
		cfg.Env.ScreenWidth = 80
		return cfg
	},
	"pair": func() *Config {
		cfg := DefaultConfig()
		cfg.Env.Carts = 2
		cfg.Env.ScreenWidth = 160
		return cfg
	},
	"triple": DefaultConfig,
	"wide": func() *Config {
		cfg := DefaultConfig()
		cfg.Env.Carts = 6
		cfg.Env.Spacing = 60
		cfg.Env.ScreenWidth = 360
		return cfg
	},
	"long": func() *Config {
		cfg := DefaultConfig()
		cfg.Physics.Integrator = "rk4"
		cfg.Physics.Tau = 0.01
		cfg.Run.MaxSteps = 500
		cfg.Run.Episodes = 20
		cfg.Run.Policy = "lqr"
		return cfg
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
