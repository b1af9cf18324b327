package driver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/metrics"
	"github.com/san-kum/multicart/internal/policy"
	"github.com/san-kum/multicart/internal/render"
	"github.com/san-kum/multicart/internal/spaces"
)

var ErrInvalidConfig = errors.New("driver: invalid run config")

// Environment is the part of a MultiCart the runner drives.
type Environment interface {
	Reset() env.Observation
	Step(action spaces.Action) (env.Observation, float64, bool, env.Info, error)
	TerminalUnits() []int
	Render(mode env.Mode) (*image.RGBA, error)
	Close() error
}

type Config struct {
	Episodes int
	MaxSteps int
	// Render is empty when frames are not drawn.
	Render           env.Mode
	RecordTrajectory bool
}

func (c Config) validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidConfig, c.Episodes)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", ErrInvalidConfig, c.MaxSteps)
	}
	if c.Render != "" {
		if _, err := env.ParseMode(string(c.Render)); err != nil {
			return err
		}
	}
	return nil
}

type Point struct {
	Step   int
	Obs    env.Observation
	Action spaces.Action
	Reward float64
	Done   bool
}

type EpisodeResult struct {
	Index       int
	Steps       int
	Return      float64
	Done        bool
	FailedUnits []int
	Metrics     map[string]float64
	Trajectory  []Point
}

type Result struct {
	Seed     int64
	Episodes []EpisodeResult
	// Metrics holds the per-episode mean of every metric plus "steps".
	Metrics map[string]float64
}

// Returns lists the episode returns in order.
func (r *Result) Returns() []float64 {
	out := make([]float64, len(r.Episodes))
	for i, ep := range r.Episodes {
		out[i] = ep.Return
	}
	return out
}

type Observer interface {
	OnReset(episode int, obs env.Observation)
	OnStep(episode, step int, obs env.Observation, action spaces.Action, reward float64, done bool)
	OnEpisodeEnd(ep EpisodeResult)
}

type Runner struct {
	env       Environment
	policy    policy.Policy
	metrics   []metrics.Metric
	observers []Observer
	recorder  *render.Recorder
	log       *slog.Logger
}

type Option func(*Runner)

func WithMetrics(ms ...metrics.Metric) Option {
	return func(r *Runner) { r.metrics = append(r.metrics, ms...) }
}

func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithRecorder captures every rgb frame rendered during the run.
func WithRecorder(rec *render.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func New(e Environment, p policy.Policy, opts ...Option) *Runner {
	r := &Runner{env: e, policy: p}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run plays cfg.Episodes episodes, each ending at the first done or after
// cfg.MaxSteps steps. On cancellation the episodes finished so far are
// returned with the context error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Episodes: make([]EpisodeResult, 0, cfg.Episodes),
		Metrics:  make(map[string]float64),
	}

	for ep := 0; ep < cfg.Episodes; ep++ {
		epResult, err := r.runEpisode(ctx, ep, cfg)
		if err != nil {
			summarize(result)
			return result, err
		}
		result.Episodes = append(result.Episodes, *epResult)

		r.log.Info("episode finished",
			"episode", ep,
			"steps", epResult.Steps,
			"return", epResult.Return,
			"done", epResult.Done)
		for _, o := range r.observers {
			o.OnEpisodeEnd(*epResult)
		}
	}

	summarize(result)
	return result, nil
}

func (r *Runner) runEpisode(ctx context.Context, ep int, cfg Config) (*EpisodeResult, error) {
	for _, m := range r.metrics {
		m.Reset()
	}
	r.policy.Reset()

	obs := r.env.Reset()
	for _, o := range r.observers {
		o.OnReset(ep, obs)
	}

	res := &EpisodeResult{Index: ep, Metrics: make(map[string]float64)}

	for step := 0; step < cfg.MaxSteps; step++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := r.renderFrame(cfg.Render); err != nil {
			return nil, err
		}

		action := r.policy.Act(obs)
		next, reward, done, _, err := r.env.Step(action)
		if err != nil {
			return nil, fmt.Errorf("episode %d step %d: %w", ep, step, err)
		}
		for i, s := range next {
			if !s.IsValid() {
				return nil, fmt.Errorf("episode %d step %d cart %d: %w", ep, step, i, dynamo.ErrInvalidState)
			}
		}
		obs = next
		terminal := r.env.TerminalUnits()

		sample := metrics.Sample{
			Obs:      cloneObs(obs),
			Action:   action,
			Reward:   reward,
			Done:     done,
			Terminal: terminal,
		}
		for _, m := range r.metrics {
			m.Observe(sample)
		}
		for _, o := range r.observers {
			o.OnStep(ep, step, obs, action, reward, done)
		}
		if cfg.RecordTrajectory {
			res.Trajectory = append(res.Trajectory, Point{
				Step:   step,
				Obs:    sample.Obs,
				Action: action.Clone(),
				Reward: reward,
				Done:   done,
			})
		}

		res.Steps = step + 1
		res.Return += reward
		res.FailedUnits = terminal
		if done {
			res.Done = true
			break
		}
	}

	for _, m := range r.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}

func (r *Runner) renderFrame(mode env.Mode) error {
	if mode == "" {
		return nil
	}
	img, err := r.env.Render(mode)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if r.recorder != nil && img != nil {
		r.recorder.Capture(img)
	}
	return nil
}

func summarize(result *Result) {
	n := len(result.Episodes)
	if n == 0 {
		return
	}
	sums := make(map[string]float64)
	for _, ep := range result.Episodes {
		sums["steps"] += float64(ep.Steps)
		for name, v := range ep.Metrics {
			sums[name] += v
		}
	}
	for name, v := range sums {
		result.Metrics[name] = v / float64(n)
	}
}

func cloneObs(obs env.Observation) env.Observation {
	out := make(env.Observation, len(obs))
	for i, s := range obs {
		out[i] = s.Clone()
	}
	return out
}
