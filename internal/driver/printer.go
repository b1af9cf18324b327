package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/spaces"
)

// Printer writes the observation seen before every action and a line for
// each episode that ends in done. Episodes cut off at maxSteps print
// exactly maxSteps observations and no summary.
type Printer struct {
	w        io.Writer
	maxSteps int
}

func NewPrinter(w io.Writer, maxSteps int) *Printer {
	return &Printer{w: w, maxSteps: maxSteps}
}

func (p *Printer) OnReset(episode int, obs env.Observation) {
	fmt.Fprintln(p.w, formatObs(obs))
}

func (p *Printer) OnStep(episode, step int, obs env.Observation, action spaces.Action, reward float64, done bool) {
	if done || (p.maxSteps > 0 && step+1 >= p.maxSteps) {
		return
	}
	fmt.Fprintln(p.w, formatObs(obs))
}

func (p *Printer) OnEpisodeEnd(ep EpisodeResult) {
	if ep.Done {
		fmt.Fprintf(p.w, "Episode finished after %d timesteps\n", ep.Steps)
	}
}

func formatObs(obs env.Observation) string {
	parts := make([]string, len(obs))
	for i, s := range obs {
		vals := make([]string, len(s))
		for j, v := range s {
			vals[j] = fmt.Sprintf("% .4f", v)
		}
		parts[i] = "[" + strings.Join(vals, " ") + "]"
	}
	return strings.Join(parts, " ")
}
