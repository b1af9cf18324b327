// Package metrics accumulates per-episode statistics from environment steps.
package metrics

import (
	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/spaces"
)

// Sample is what a metric sees after one environment step.
type Sample struct {
	Obs      []dynamo.State
	Action   spaces.Action
	Reward   float64
	Done     bool
	Terminal []int
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Default returns the metric set reported for every run.
func Default(cfg *config.Config) []Metric {
	return []Metric{
		NewReturn(),
		NewStability(cfg.Env.ThetaThreshold / 2),
		NewPushBalance(),
		NewSurvival(),
		NewEnergy(cfg.Physics.PoleMass, cfg.Physics.PoleHalfLength, cfg.Physics.Gravity),
	}
}

type Return struct {
	name string
	sum  float64
}

func NewReturn() *Return {
	return &Return{name: "return"}
}

func (r *Return) Name() string { return r.name }

func (r *Return) Observe(s Sample) { r.sum += s.Reward }

func (r *Return) Value() float64 { return r.sum }

func (r *Return) Reset() { r.sum = 0 }

// PushBalance is the mean fraction of carts pushed right per step.
type PushBalance struct {
	name    string
	sum     float64
	samples int
}

func NewPushBalance() *PushBalance {
	return &PushBalance{name: "push_balance"}
}

func (p *PushBalance) Name() string { return p.name }

func (p *PushBalance) Observe(s Sample) {
	if len(s.Action) == 0 {
		return
	}
	right := 0
	for _, a := range s.Action {
		right += a
	}
	p.sum += float64(right) / float64(len(s.Action))
	p.samples++
}

func (p *PushBalance) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.sum / float64(p.samples)
}

func (p *PushBalance) Reset() {
	p.sum = 0
	p.samples = 0
}

// Survival is the mean fraction of carts still within bounds per step.
type Survival struct {
	name    string
	sum     float64
	samples int
}

func NewSurvival() *Survival {
	return &Survival{name: "survival"}
}

func (s *Survival) Name() string { return s.name }

func (s *Survival) Observe(smp Sample) {
	if len(smp.Obs) == 0 {
		return
	}
	alive := len(smp.Obs) - len(smp.Terminal)
	s.sum += float64(alive) / float64(len(smp.Obs))
	s.samples++
}

func (s *Survival) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return s.sum / float64(s.samples)
}

func (s *Survival) Reset() {
	s.sum = 0
	s.samples = 0
}
