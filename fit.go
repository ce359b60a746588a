package tlefit

import (
	"errors"
	"math"

	"github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/mat"
)

// FixedPointConfig tunes the fixed-point element correction.
type FixedPointConfig struct {
	// Epsilon bounds the worst equinoctial residual at convergence: the
	// semi-major axis residual is taken relative (|Δa|/a), the remaining
	// components (ex, ey, hx, hy, λM) are dimensionless or radian-valued
	// and compared absolutely.
	Epsilon       float64
	MaxIterations int
	Scale         float64 // damping applied to each correction
}

// DefaultFixedPointConfig returns the configured defaults
// (ε=1e-10, 100 iterations, scale 1).
func DefaultFixedPointConfig() FixedPointConfig {
	c := tlefitConfig()
	return FixedPointConfig{
		Epsilon:       c.FixedPointEpsilon,
		MaxIterations: c.FixedPointMaxIter,
		Scale:         c.FixedPointScale,
	}
}

// FixedPointGenerator corrects a template element set until propagating it
// reproduces one target state. Each iteration compares the osculating
// equinoctial elements of the propagated and target states and feeds the
// damped difference back into the mean elements.
type FixedPointGenerator struct {
	cfg    FixedPointConfig
	logger log.Logger
}

// NewFixedPointGenerator builds a generator; a nil logger disables logging.
func NewFixedPointGenerator(cfg FixedPointConfig, logger log.Logger) *FixedPointGenerator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-10
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	return &FixedPointGenerator{cfg: cfg, logger: logger}
}

// tleEquinoctial maps the mean elements of a TLE to direct equinoctial form,
// with the semi-major axis from the Keplerian mean motion.
func tleEquinoctial(t *TLE) (a, ex, ey, hx, hy, λM float64) {
	n := t.MeanMotion()
	a = math.Cbrt(EarthMu / (n * n))
	tildeω := wrapTwoPi(t.ArgPerigee() + t.RAAN())
	e := t.Eccentricity()
	ex = e * math.Cos(tildeω)
	ey = e * math.Sin(tildeω)
	tanHalfI := math.Tan(t.Inclination() / 2)
	hx = tanHalfI * math.Cos(t.RAAN())
	hy = tanHalfI * math.Sin(t.RAAN())
	λM = wrapTwoPi(t.MeanAnomaly() + tildeω)
	return
}

// tleFromEquinoctial rebuilds a TLE around template with the given mean
// equinoctial elements.
func tleFromEquinoctial(template *TLE, a, ex, ey, hx, hy, λM float64) (*TLE, error) {
	e := math.Hypot(ex, ey)
	tildeω := math.Atan2(ey, ex)
	i := 2 * math.Atan(math.Hypot(hx, hy))
	Ω := math.Atan2(hy, hx)
	ω := wrapTwoPi(tildeω - Ω)
	M := wrapTwoPi(λM - tildeω)
	n := math.Sqrt(EarthMu / (a * a * a))
	return template.WithElements(n, e, i, wrapTwoPi(Ω), ω, M)
}

// angleDiff returns a-b wrapped into (-π, π].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, twoPi)
	if d > math.Pi {
		d -= twoPi
	} else if d < -math.Pi {
		d += twoPi
	}
	return d
}

// Generate iterates from template until propagating the corrected elements
// to target.Elapsed reproduces target.State. On budget exhaustion the last
// iterate is returned together with a ConvergenceError.
func (g *FixedPointGenerator) Generate(target TimedState, template *TLE) (*TLE, error) {
	osc := NewOrbitFromRV(target.State.Position, target.State.Velocity)
	ta, tex, tey, thx, thy, tλ := osc.Equinoctial()

	cur := template
	worst := math.Inf(1)
	for iter := 1; iter <= g.cfg.MaxIterations; iter++ {
		prop, err := NewPropagator(cur)
		if err != nil {
			return nil, err
		}
		st, err := prop.Propagate(target.Elapsed)
		if err != nil {
			return nil, err
		}
		got := NewOrbitFromRV(st.Position, st.Velocity)
		ga, gex, gey, ghx, ghy, gλ := got.Equinoctial()

		da := ta - ga
		dex := tex - gex
		dey := tey - gey
		dhx := thx - ghx
		dhy := thy - ghy
		dλ := angleDiff(tλ, gλ)

		// |Δa|/a keeps Epsilon dimensionless; the other components already are
		worst = math.Abs(da) / ta
		for _, d := range []float64{dex, dey, dhx, dhy, dλ} {
			if v := math.Abs(d); v > worst {
				worst = v
			}
		}
		if worst < g.cfg.Epsilon {
			g.logger.Log("method", "fixed-point", "iterations", iter, "residual", worst)
			fitsTotal.WithLabelValues("fixed_point").Inc()
			fitIterations.Observe(float64(iter))
			return cur, nil
		}

		ma, mex, mey, mhx, mhy, mλ := tleEquinoctial(cur)
		s := g.cfg.Scale
		cur, err = tleFromEquinoctial(cur,
			ma+s*da, mex+s*dex, mey+s*dey, mhx+s*dhx, mhy+s*dhy, wrapTwoPi(mλ+s*dλ))
		if err != nil {
			return nil, err
		}
	}
	fitIterations.Observe(float64(g.cfg.MaxIterations))
	return cur, &ConvergenceError{
		Algorithm:  "fixed-point",
		Iterations: g.cfg.MaxIterations,
		Residual:   worst,
	}
}

// LMOptions tunes the Levenberg-Marquardt fit.
type LMOptions struct {
	MaxIterations int
	LambdaInit    float64
	PositionOnly  bool // fit position residuals only
	EstimateBstar bool // include B* as a solve-for parameter
}

// DefaultLMOptions returns the configured defaults.
func DefaultLMOptions() LMOptions {
	c := tlefitConfig()
	return LMOptions{
		MaxIterations: c.LMMaxIter,
		LambdaInit:    c.LMLambdaInit,
		PositionOnly:  c.PositionOnly,
	}
}

// FitResult is a fitted element set with its weighted residual statistics.
type FitResult struct {
	TLE        *TLE
	RMS        float64 // root mean square of the residual components
	Iterations int
}

// LMFitter adjusts a TLE to a set of observed states by damped least squares
// over (n, e, i, Ω, ω, M) and optionally B*, using the analytical partials.
type LMFitter struct {
	opts   LMOptions
	logger log.Logger
}

// NewLMFitter builds a fitter; a nil logger disables logging.
func NewLMFitter(opts LMOptions, logger log.Logger) *LMFitter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 50
	}
	if opts.LambdaInit <= 0 {
		opts.LambdaInit = 1e-3
	}
	return &LMFitter{opts: opts, logger: logger}
}

// residJac evaluates the stacked residual vector and model Jacobian of a
// candidate element set against the observations.
func (f *LMFitter) residJac(t *TLE, params *ParameterSet, obs []TimedState, rowsPer, ncols int) (*mat.VecDense, *mat.Dense, error) {
	m := rowsPer * len(obs)
	r := mat.NewVecDense(m, nil)
	J := mat.NewDense(m, ncols, nil)
	for j, ob := range obs {
		st, jac, err := PropagatePartials(t, params, ob.Elapsed)
		if err != nil {
			return nil, nil, err
		}
		base := j * rowsPer
		for k := 0; k < 3; k++ {
			r.SetVec(base+k, ob.State.Position[k]-st.Position[k])
			if rowsPer == 6 {
				r.SetVec(base+3+k, ob.State.Velocity[k]-st.Velocity[k])
			}
		}
		stm := jac.StateTransitionMatrix()
		dp := jac.ParametersJacobian()
		for row := 0; row < rowsPer; row++ {
			for c := 0; c < 6; c++ {
				J.Set(base+row, c, stm.At(row, c))
			}
			if ncols == 7 {
				J.Set(base+row, 6, dp.At(row, 0))
			}
		}
	}
	return r, J, nil
}

// applyStep offsets the solve-for parameters of t by δ.
func applyStep(t *TLE, δ *mat.VecDense, ncols int) (*TLE, error) {
	out, err := t.WithElements(
		t.MeanMotion()+δ.AtVec(0),
		t.Eccentricity()+δ.AtVec(1),
		t.Inclination()+δ.AtVec(2),
		wrapTwoPi(t.RAAN()+δ.AtVec(3)),
		wrapTwoPi(t.ArgPerigee()+δ.AtVec(4)),
		wrapTwoPi(t.MeanAnomaly()+δ.AtVec(5)))
	if err != nil {
		return nil, err
	}
	if ncols == 7 {
		return out.WithBstar(t.Bstar() + δ.AtVec(6))
	}
	return out, nil
}

// Fit runs the damped least-squares adjustment from template over obs. The
// returned RMS mixes meters and m/s components unless PositionOnly is set.
// On budget exhaustion the best iterate is returned with a ConvergenceError.
func (f *LMFitter) Fit(template *TLE, obs []TimedState) (*FitResult, error) {
	if len(obs) == 0 {
		return nil, errors.New("no observations to fit")
	}
	rowsPer := 6
	if f.opts.PositionOnly {
		rowsPer = 3
	}
	params := NewParameterSet(template)
	ncols := 6
	if f.opts.EstimateBstar {
		if err := params.Select(ParamBstar); err != nil {
			return nil, err
		}
		ncols = 7
	}

	cur := template
	r, J, err := f.residJac(cur, params, obs, rowsPer, ncols)
	if err != nil {
		return nil, err
	}
	m := rowsPer * len(obs)
	cost := mat.Dot(r, r)
	lambda := f.opts.LambdaInit

	converged := false
	iters := 0
	for iter := 1; iter <= f.opts.MaxIterations && !converged; iter++ {
		iters = iter
		var jtj mat.Dense
		jtj.Mul(J.T(), J)
		var jtr mat.VecDense
		jtr.MulVec(J.T(), r)

		accepted := false
		for try := 0; try < 10 && !accepted; try++ {
			var damped mat.Dense
			damped.CloneFrom(&jtj)
			for d := 0; d < ncols; d++ {
				damped.Set(d, d, jtj.At(d, d)*(1+lambda))
			}
			var δ mat.VecDense
			if err := δ.SolveVec(&damped, &jtr); err != nil {
				lambda *= 10
				continue
			}
			cand, err := applyStep(cur, &δ, ncols)
			if err != nil {
				lambda *= 10
				continue
			}
			rc, Jc, err := f.residJac(cand, params, obs, rowsPer, ncols)
			if err != nil {
				lambda *= 10
				continue
			}
			newCost := mat.Dot(rc, rc)
			if newCost < cost {
				if cost-newCost < 1e-12*(cost+1e-300) {
					converged = true
				}
				cur, r, J, cost = cand, rc, Jc, newCost
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
			} else {
				lambda *= 10
			}
		}
		f.logger.Log("method", "lm", "iter", iter, "rms", math.Sqrt(cost/float64(m)), "lambda", lambda, "accepted", accepted)
		if !accepted {
			// no damping value improves the cost: local minimum
			converged = true
		}
	}

	res := &FitResult{TLE: cur, RMS: math.Sqrt(cost / float64(m)), Iterations: iters}
	fitIterations.Observe(float64(iters))
	if !converged {
		return res, &ConvergenceError{Algorithm: "levenberg-marquardt", Iterations: iters, Residual: res.RMS}
	}
	fitsTotal.WithLabelValues("lm").Inc()
	return res, nil
}
