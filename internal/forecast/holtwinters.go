package forecast

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	phiMin = 0.8
	phiMax = 0.98
)

// Params are the smoothing coefficients of a fitted model.
type Params struct {
	Alpha float64 // level
	Beta  float64 // trend
	Gamma float64 // seasonal
	Phi   float64 // damping, 1 when undamped
}

// smoother is one exponential smoothing model family. Seasonality, when
// present, is multiplicative.
type smoother struct {
	trend    TrendKind
	seasonal bool
	period   int
	damped   bool
}

func (s smoother) kind() string {
	if s.seasonal {
		return "holt-winters"
	}
	return "holt"
}

// dims is the number of free parameters the optimizer searches over.
func (s smoother) dims() int {
	n := 2
	if s.seasonal {
		n++
	}
	if s.damped {
		n++
	}
	return n
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

// decode maps an unconstrained optimizer point onto valid coefficients:
// 0<=alpha<=1, 0<=beta<=alpha, 0<=gamma<=1-alpha, phiMin<=phi<=phiMax.
func (s smoother) decode(x []float64) Params {
	p := Params{Phi: 1}
	p.Alpha = sigmoid(x[0])
	p.Beta = p.Alpha * sigmoid(x[1])
	i := 2
	if s.seasonal {
		p.Gamma = (1 - p.Alpha) * sigmoid(x[i])
		i++
	}
	if s.damped {
		p.Phi = phiMin + (phiMax-phiMin)*sigmoid(x[i])
	}
	return p
}

func (s smoother) encode(p Params) []float64 {
	x := make([]float64, 0, s.dims())
	x = append(x, logit(p.Alpha), logit(p.Beta/p.Alpha))
	if s.seasonal {
		x = append(x, logit(p.Gamma/(1-p.Alpha)))
	}
	if s.damped {
		x = append(x, logit((p.Phi-phiMin)/(phiMax-phiMin)))
	}
	return x
}

type state struct {
	level  float64
	trend  float64
	season []float64
}

// initial uses the simple heuristic: level from the first season (or first
// point), trend from the first two seasons (or two points), seasonal indices
// from the first season relative to the level.
func (s smoother) initial(y []float64) state {
	if !s.seasonal {
		st := state{level: y[0]}
		if s.trend == TrendMultiplicative {
			st.trend = y[1] / y[0]
		} else {
			st.trend = y[1] - y[0]
		}
		return st
	}

	m := s.period
	first := mean(y[:m])
	second := mean(y[m : 2*m])
	st := state{level: first, season: make([]float64, m)}
	if s.trend == TrendMultiplicative {
		st.trend = math.Pow(second/first, 1/float64(m))
	} else {
		st.trend = (second - first) / float64(m)
	}
	for i := 0; i < m; i++ {
		st.season[i] = y[i] / first
	}
	return st
}

func mean(v []float64) float64 { return floats.Sum(v) / float64(len(v)) }

// damp returns phi + phi^2 + ... + phi^h.
func damp(phi float64, h int) float64 {
	sum, pow := 0.0, 1.0
	for i := 0; i < h; i++ {
		pow *= phi
		sum += pow
	}
	return sum
}

// filter runs the recursions over y, returning the one-step-ahead sum of
// squared errors and a projection of horizon steps. ok is false when the
// model leaves its valid domain.
func (s smoother) filter(y []float64, p Params, horizon int) (sse float64, proj []float64, ok bool) {
	st := s.initial(y)
	season := append([]float64(nil), st.season...)
	l, b := st.level, st.trend

	for t, obs := range y {
		si := 1.0
		if s.seasonal {
			si = season[t%s.period]
		}

		var base float64 // level carried forward by the damped trend
		var bPhi float64
		if s.trend == TrendMultiplicative {
			if l <= 0 || b <= 0 {
				return 0, nil, false
			}
			bPhi = math.Pow(b, p.Phi)
			base = l * bPhi
		} else {
			bPhi = p.Phi * b
			base = l + bPhi
		}

		fitted := base * si
		e := obs - fitted
		sse += e * e

		deseason := obs
		if s.seasonal {
			if si == 0 {
				return 0, nil, false
			}
			deseason = obs / si
		}
		newL := p.Alpha*deseason + (1-p.Alpha)*base

		if s.trend == TrendMultiplicative {
			b = p.Beta*(newL/l) + (1-p.Beta)*bPhi
		} else {
			b = p.Beta*(newL-l) + (1-p.Beta)*bPhi
		}

		if s.seasonal {
			if base == 0 {
				return 0, nil, false
			}
			season[t%s.period] = p.Gamma*(obs/base) + (1-p.Gamma)*si
		}
		l = newL
	}

	n := len(y)
	proj = make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		var v float64
		if s.trend == TrendMultiplicative {
			if l <= 0 || b <= 0 {
				return 0, nil, false
			}
			v = l * math.Pow(b, damp(p.Phi, h))
		} else {
			v = l + damp(p.Phi, h)*b
		}
		if s.seasonal {
			v *= season[(n+h-1)%s.period]
		}
		proj[h-1] = v
	}

	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return 0, nil, false
	}
	return sse, proj, true
}

// fitted is the outcome of optimizing one series.
type fitted struct {
	params     Params
	sse        float64
	projection []float64
}

// startingPoints are the coefficient guesses the optimizer is seeded from.
var startingPoints = []Params{
	{Alpha: 0.3, Beta: 0.03, Gamma: 0.1, Phi: 0.95},
	{Alpha: 0.7, Beta: 0.07, Gamma: 0.05, Phi: 0.9},
}

// fit minimizes the one-step-ahead SSE with Nelder-Mead from each starting
// point and keeps the best. The context is polled between evaluations.
func (s smoother) fit(ctx context.Context, y []float64, horizon int) (fitted, error) {
	objective := func(x []float64) float64 {
		sse, _, ok := s.filter(y, s.decode(x), 0)
		if !ok {
			return math.Inf(1)
		}
		return sse
	}

	best := fitted{sse: math.Inf(1)}
	for _, sp := range startingPoints {
		if !s.seasonal {
			sp.Gamma = 0
		}
		if !s.damped {
			sp.Phi = 1
		}
		x0 := s.encode(sp)
		candidates := [][]float64{x0}

		problem := optimize.Problem{
			Func: objective,
			Status: func() (optimize.Status, error) {
				if err := ctx.Err(); err != nil {
					return optimize.Failure, err
				}
				return optimize.NotTerminated, nil
			},
		}
		settings := &optimize.Settings{
			MajorIterations: 2000,
			FuncEvaluations: 4000,
			Converger: &optimize.FunctionConverge{
				Relative:   1e-10,
				Iterations: 60,
			},
		}
		// Hitting an evaluation limit still leaves a usable best point.
		res, _ := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if err := ctx.Err(); err != nil {
			return fitted{}, err
		}
		if res != nil && len(res.X) == len(x0) {
			candidates = append(candidates, res.X)
		}

		for _, x := range candidates {
			p := s.decode(x)
			sse, proj, ok := s.filter(y, p, horizon)
			if ok && sse < best.sse {
				best = fitted{params: p, sse: sse, projection: proj}
			}
		}
	}

	if math.IsInf(best.sse, 1) {
		return fitted{}, errNoValidFit
	}
	return best, nil
}
