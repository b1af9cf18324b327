// Package tui shows a MultiCart being driven by a policy in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/policy"
	"github.com/san-kum/multicart/internal/render"
)

const historyCapacity = 60

type TickMsg time.Time

type Model struct {
	env    *env.MultiCart
	policy policy.Policy
	fps    int

	obs      env.Observation
	episode  int
	step     int
	ret      float64
	returns  []float64
	maxSteps int
	running  bool
	frame    string
	err      error
}

// NewModel drives e with p at fps frames per second. Episodes end at the
// first done or after maxSteps steps; maxSteps <= 0 means no limit.
func NewModel(e *env.MultiCart, p policy.Policy, fps, maxSteps int) Model {
	if fps <= 0 {
		fps = 30
	}
	m := Model{
		env:      e,
		policy:   p,
		fps:      fps,
		maxSteps: maxSteps,
		running:  true,
		returns:  make([]float64, 0, historyCapacity),
	}
	m.reset()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "n":
			if !m.running {
				m.advance()
			}
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) reset() {
	m.policy.Reset()
	m.obs = m.env.Reset()
	m.step = 0
	m.ret = 0
	m.draw()
}

// advance takes one policy step and starts a new episode when the
// current one ends.
func (m *Model) advance() {
	action := m.policy.Act(m.obs)
	obs, reward, done, _, err := m.env.Step(action)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.obs = obs
	m.step++
	m.ret += reward

	if done || (m.maxSteps > 0 && m.step >= m.maxSteps) {
		m.returns = append(m.returns, m.ret)
		if len(m.returns) > historyCapacity {
			m.returns = m.returns[1:]
		}
		m.episode++
		m.reset()
		return
	}
	m.draw()
}

func (m *Model) draw() {
	img, err := m.env.Render(env.ModeRGBArray)
	if err != nil {
		m.err = err
		return
	}
	if img == nil {
		return
	}
	m.frame = render.FromImage(img).String()
}

func (m Model) Episode() int       { return m.episode }
func (m Model) Step() int          { return m.step }
func (m Model) Running() bool      { return m.running }
func (m Model) Returns() []float64 { return m.returns }

func (m Model) View() string {
	var s strings.Builder

	status := "RUNNING"
	if !m.running {
		status = pausedStyle.Render("PAUSED")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("MULTICART  %d carts  policy %s", m.env.NumUnits(), m.policy.Name())))
	s.WriteString("  " + status + "\n")
	s.WriteString(canvasStyle.Render(m.frame) + "\n")

	s.WriteString(labelStyle.Render("Episode") + valueStyle.Render(fmt.Sprintf("%d", m.episode)) + "\n")
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", m.step)) + "\n")
	s.WriteString(labelStyle.Render("Return") + valueStyle.Render(fmt.Sprintf("%.0f", m.ret)) + "\n")
	grace := "-"
	if n, ok := m.env.StepsBeyondDone(); ok {
		grace = fmt.Sprintf("%d", n)
	}
	s.WriteString(labelStyle.Render("Past done") + valueStyle.Render(grace) + "\n\n")

	failed := make(map[int]bool)
	for _, i := range m.env.TerminalUnits() {
		failed[i] = true
	}
	s.WriteString(fmt.Sprintf("%-6s %9s %9s %9s %9s\n", "cart", "x", "x_dot", "theta", "theta_dot"))
	for i, x := range m.obs {
		mark := okStyle.Render("ok")
		if failed[i] {
			mark = failStyle.Render("down")
		}
		if len(x) < 4 {
			continue
		}
		s.WriteString(fmt.Sprintf("%-6d %9.3f %9.3f %9.3f %9.3f  %s\n", i, x[0], x[1], x[2], x[3], mark))
	}

	if len(m.returns) > 1 {
		chart := asciigraph.Plot(m.returns, asciigraph.Height(4), asciigraph.Width(40), asciigraph.Caption("Episode return"))
		s.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + failStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\n" + hintStyle.Render("space pause  n step  r reset  q quit") + "\n")
	return s.String()
}
