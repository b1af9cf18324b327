package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCarts          = 3
	DefaultSpacing        = 80.0
	DefaultXThreshold     = 2.4
	DefaultScreenWidth    = 240
	DefaultScreenHeight   = 96
	DefaultGravity        = 9.8
	DefaultCartMass       = 1.0
	DefaultPoleMass       = 0.1
	DefaultPoleHalfLength = 0.5
	DefaultForceMag       = 10.0
	DefaultTau            = 0.02
	DefaultResetNoise     = 0.05
	DefaultEpisodes       = 50
	DefaultMaxSteps       = 100
	DefaultFPS            = 50
)

// DefaultThetaThreshold is twelve degrees in radians.
var DefaultThetaThreshold = 12 * 2 * math.Pi / 360

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Env     EnvConfig     `yaml:"env" json:"env"`
	Physics PhysicsConfig `yaml:"physics" json:"physics"`
	Run     RunConfig     `yaml:"run" json:"run"`
}

type EnvConfig struct {
	Carts          int     `yaml:"carts" json:"carts"`
	Spacing        float64 `yaml:"spacing" json:"spacing"`
	XThreshold     float64 `yaml:"x_threshold" json:"x_threshold"`
	ThetaThreshold float64 `yaml:"theta_threshold" json:"theta_threshold"`
	ScreenWidth    int     `yaml:"screen_width" json:"screen_width"`
	ScreenHeight   int     `yaml:"screen_height" json:"screen_height"`
}

type PhysicsConfig struct {
	Gravity        float64 `yaml:"gravity" json:"gravity"`
	CartMass       float64 `yaml:"cart_mass" json:"cart_mass"`
	PoleMass       float64 `yaml:"pole_mass" json:"pole_mass"`
	PoleHalfLength float64 `yaml:"pole_half_length" json:"pole_half_length"`
	ForceMag       float64 `yaml:"force_mag" json:"force_mag"`
	Tau            float64 `yaml:"tau" json:"tau"`
	Integrator     string  `yaml:"integrator" json:"integrator"`
	ResetNoise     float64 `yaml:"reset_noise" json:"reset_noise"`
}

type RunConfig struct {
	Episodes         int    `yaml:"episodes" json:"episodes"`
	MaxSteps         int    `yaml:"max_steps" json:"max_steps"`
	Policy           string `yaml:"policy" json:"policy"`
	Seed             int64  `yaml:"seed" json:"seed"`
	Render           string `yaml:"render" json:"render"`
	FPS              int    `yaml:"fps" json:"fps"`
	RecordTrajectory bool   `yaml:"record_trajectory" json:"record_trajectory"`
}

func DefaultConfig() *Config {
	return &Config{
		Env: EnvConfig{
			Carts:          DefaultCarts,
			Spacing:        DefaultSpacing,
			XThreshold:     DefaultXThreshold,
			ThetaThreshold: DefaultThetaThreshold,
			ScreenWidth:    DefaultScreenWidth,
			ScreenHeight:   DefaultScreenHeight,
		},
		Physics: PhysicsConfig{
			Gravity:        DefaultGravity,
			CartMass:       DefaultCartMass,
			PoleMass:       DefaultPoleMass,
			PoleHalfLength: DefaultPoleHalfLength,
			ForceMag:       DefaultForceMag,
			Tau:            DefaultTau,
			Integrator:     "euler",
			ResetNoise:     DefaultResetNoise,
		},
		Run: RunConfig{
			Episodes: DefaultEpisodes,
			MaxSteps: DefaultMaxSteps,
			Policy:   "random",
			FPS:      DefaultFPS,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base; keys absent from the
// file keep base's values.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
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

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	switch {
	case c.Env.Carts < 1:
		return fmt.Errorf("%w: carts must be at least 1, got %d", ErrInvalid, c.Env.Carts)
	case c.Env.Spacing <= 0:
		return fmt.Errorf("%w: spacing must be positive, got %f", ErrInvalid, c.Env.Spacing)
	case c.Env.XThreshold <= 0:
		return fmt.Errorf("%w: x_threshold must be positive, got %f", ErrInvalid, c.Env.XThreshold)
	case c.Env.ThetaThreshold <= 0:
		return fmt.Errorf("%w: theta_threshold must be positive, got %f", ErrInvalid, c.Env.ThetaThreshold)
	case c.Env.ScreenWidth <= 0 || c.Env.ScreenHeight <= 0:
		return fmt.Errorf("%w: screen must be positive, got %dx%d", ErrInvalid, c.Env.ScreenWidth, c.Env.ScreenHeight)
	case c.Physics.Tau <= 0:
		return fmt.Errorf("%w: tau must be positive, got %f", ErrInvalid, c.Physics.Tau)
	case c.Physics.CartMass <= 0 || c.Physics.PoleMass <= 0 || c.Physics.PoleHalfLength <= 0:
		return fmt.Errorf("%w: masses and pole length must be positive", ErrInvalid)
	case c.Physics.ResetNoise < 0:
		return fmt.Errorf("%w: reset_noise must not be negative, got %f", ErrInvalid, c.Physics.ResetNoise)
	case c.Physics.ResetNoise >= c.Env.XThreshold || c.Physics.ResetNoise >= c.Env.ThetaThreshold:
		return fmt.Errorf("%w: reset_noise %f would allow a terminal reset state", ErrInvalid, c.Physics.ResetNoise)
	case c.Run.Episodes < 0 || c.Run.MaxSteps < 0:
		return fmt.Errorf("%w: episodes and max_steps must not be negative", ErrInvalid)
	case c.Run.FPS <= 0:
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalid, c.Run.FPS)
	}
	switch c.Run.Render {
	case "", "human", "rgb_array":
	default:
		return fmt.Errorf("%w: render mode %q not in {human, rgb_array}", ErrInvalid, c.Run.Render)
	}
	return nil
}
