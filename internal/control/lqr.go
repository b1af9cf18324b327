package control

import "github.com/san-kum/multicart/internal/dynamo"

type LQR struct {
	K      [][]float64
	Target dynamo.State
}

func NewLQR(k [][]float64, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(l.K))
	for i := range u {
		for j := range x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			if j < len(l.K[i]) {
				u[i] -= l.K[i][j] * (x[j] - target)
			}
		}
	}
	return u
}

// Gains for [x, x_dot, theta, theta_dot] with positive theta leaning
// toward +x, so a positive force rights the pole.
var cartpoleGains = [][]float64{{-1.0, -1.73, -35.36, -8.94}}

// NewCartPoleLQR returns a regulator holding the cart upright at its lane
// centre.
func NewCartPoleLQR() *LQR {
	k := make([][]float64, len(cartpoleGains))
	for i, row := range cartpoleGains {
		k[i] = append([]float64(nil), row...)
	}
	return NewLQR(k, dynamo.State{0, 0, 0, 0})
}
