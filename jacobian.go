package tlefit

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Jacobians carries the partial derivatives of one propagated TEME state with
// respect to the epoch mean elements and, when selected, the drag parameter.
// Rows are (x, y, z, vx, vy, vz) in meters and m/s; element columns are
// (n, e, i, Ω, ω, M) with the mean motion in rad/s.
type Jacobians struct {
	stm *mat.Dense // 6x6
	dp  *mat.Dense // 6x1, nil when no parameter is selected
}

// StateTransitionMatrix returns the 6x6 element Jacobian, nil before any
// partials computation.
func (j *Jacobians) StateTransitionMatrix() *mat.Dense { return j.stm }

// ParametersJacobian returns the 6x1 drag-parameter column, nil when B* was
// not selected. A nil return is not an error.
func (j *Jacobians) ParametersJacobian() *mat.Dense { return j.dp }

// CopyStateTransition copies the element Jacobian into dst, which must be
// 6x6.
func (j *Jacobians) CopyStateTransition(dst *mat.Dense) error {
	if j.stm == nil {
		return fmt.Errorf("state transition matrix not computed")
	}
	r, c := dst.Dims()
	if r != 6 || c != 6 {
		return &DimensionError{Op: "copy state transition", Rows: r, Cols: c, WantRows: 6, WantCols: 6}
	}
	dst.Copy(j.stm)
	return nil
}

// dualElements lifts a TLE into the derivative-carrying scalar type, seeding
// one gradient slot per independent element. The mean motion is seeded in
// rad/s and converted after, so its column differentiates the API unit.
func dualElements(t *TLE, withBstar bool) meanElements[Dual] {
	el := meanElements[Dual]{
		n:       NewDual(t.MeanMotion(), 0).MulS(60),
		e:       NewDual(t.Eccentricity(), 1),
		i:       NewDual(t.Inclination(), 2),
		node:    NewDual(t.RAAN(), 3),
		argp:    NewDual(t.ArgPerigee(), 4),
		m:       NewDual(t.MeanAnomaly(), 5),
		bstar:   Dual{V: t.Bstar()},
		epochJD: t.EpochJulian(),
	}
	if withBstar {
		el.bstar = NewDual(t.Bstar(), 6)
	}
	return el
}

// PropagatePartials propagates tle to dt seconds after epoch and returns the
// state together with its analytical partials, obtained by running the full
// theory over derivative-carrying scalars. The state values are bit-identical
// to Propagator.Propagate on the same element set.
func PropagatePartials(tle *TLE, params *ParameterSet, dt float64) (StateVector, *Jacobians, error) {
	withB := params != nil && params.IsSelected(ParamBstar)
	th, err := newBrouwer(dualElements(tle, withB))
	if err != nil {
		return StateVector{}, nil, fmt.Errorf("sat %d: %w", tle.SatelliteNumber(), err)
	}
	st, err := th.propagate(dt / 60)
	if err != nil {
		return StateVector{}, nil, err
	}

	var out StateVector
	stm := mat.NewDense(6, 6, nil)
	var dp *mat.Dense
	if withB {
		dp = mat.NewDense(6, 1, nil)
	}
	for k := 0; k < 3; k++ {
		out.Position[k] = st.pos[k].V
		out.Velocity[k] = st.vel[k].V
		for c := 0; c < 6; c++ {
			stm.Set(k, c, st.pos[k].G[c])
			stm.Set(k+3, c, st.vel[k].G[c])
		}
		if withB {
			dp.Set(k, 0, st.pos[k].G[6])
			dp.Set(k+3, 0, st.vel[k].G[6])
		}
	}
	return out, &Jacobians{stm: stm, dp: dp}, nil
}

// fdSteps are the default central-difference step sizes per column:
// n (rad/s), e, i, Ω, ω, M (rad) and B* (1/ER).
var fdSteps = [GradDim]float64{1e-10, 1e-8, 1e-7, 1e-7, 1e-7, 1e-7, 1e-7}

// FiniteDifferenceJacobian approximates the same partials as
// PropagatePartials with an eighth-order central stencil,
//
//	(-3(f₊₄-f₋₄) + 32(f₊₃-f₋₃) - 168(f₊₂-f₋₂) + 672(f₊₁-f₋₁)) / (840h),
//
// re-initializing the theory at each of the eight evaluation points. The B*
// column steps by the selected driver's Scale. steps overrides all per-column
// step sizes when non-nil; it must then cover every differentiated column.
// The analytical path is the production one; this is its oracle.
func FiniteDifferenceJacobian(tle *TLE, params *ParameterSet, dt float64, steps []float64) (*Jacobians, error) {
	withB := params != nil && params.IsSelected(ParamBstar)
	ncols := 6
	if withB {
		ncols = 7
	}
	h := fdSteps[:]
	if steps != nil {
		if len(steps) < ncols {
			return nil, &DimensionError{Op: "finite difference steps", Rows: len(steps), Cols: 1, WantRows: ncols, WantCols: 1}
		}
		h = steps
	} else if withB {
		sized := make([]float64, GradDim)
		copy(sized, fdSteps[:])
		if s := params.Scale(ParamBstar); s > 0 {
			sized[6] = s
		}
		h = sized
	}

	base := liftElements[Real](tle)
	eval := func(el meanElements[Real]) (st [6]float64, err error) {
		th, err := newBrouwer(el)
		if err != nil {
			return st, err
		}
		c, err := th.propagate(dt / 60)
		if err != nil {
			return st, err
		}
		for k := 0; k < 3; k++ {
			st[k] = float64(c.pos[k])
			st[k+3] = float64(c.vel[k])
		}
		return st, nil
	}

	stencil := [4]float64{672, -168, 32, -3}
	stm := mat.NewDense(6, 6, nil)
	var dp *mat.Dense
	if withB {
		dp = mat.NewDense(6, 1, nil)
	}
	for col := 0; col < ncols; col++ {
		var acc [6]float64
		for k := 1; k <= 4; k++ {
			fp, err := eval(nudge(base, col, float64(k)*h[col]))
			if err != nil {
				return nil, fmt.Errorf("column %d +%dh: %w", col, k, err)
			}
			fm, err := eval(nudge(base, col, -float64(k)*h[col]))
			if err != nil {
				return nil, fmt.Errorf("column %d -%dh: %w", col, k, err)
			}
			w := stencil[k-1]
			for r := 0; r < 6; r++ {
				acc[r] += w * (fp[r] - fm[r])
			}
		}
		for r := 0; r < 6; r++ {
			v := acc[r] / (840 * h[col])
			if col < 6 {
				stm.Set(r, col, v)
			} else {
				dp.Set(r, 0, v)
			}
		}
	}
	return &Jacobians{stm: stm, dp: dp}, nil
}

// nudge offsets one independent variable of an element set. Column 0 is the
// mean motion in rad/s, matching the Jacobian column unit.
func nudge(el meanElements[Real], col int, h float64) meanElements[Real] {
	switch col {
	case 0:
		el.n = Real((float64(el.n)/60 + h) * 60)
	case 1:
		el.e += Real(h)
	case 2:
		el.i += Real(h)
	case 3:
		el.node += Real(h)
	case 4:
		el.argp += Real(h)
	case 5:
		el.m += Real(h)
	case 6:
		el.bstar += Real(h)
	}
	return el
}
