package tlefit

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// columns agree when the difference is small against the column magnitude
func assertColumnsAgree(t *testing.T, name string, ad, fd *mat.Dense, col int) {
	t.Helper()
	var da, df, dd float64
	r, _ := ad.Dims()
	for row := 0; row < r; row++ {
		a := ad.At(row, col)
		f := fd.At(row, col)
		da += a * a
		df += f * f
		dd += (a - f) * (a - f)
	}
	scale := math.Sqrt(math.Max(da, df))
	if math.Sqrt(dd) > 1e-4*scale+1e-9 {
		t.Errorf("%s column %d: analytical and finite-difference disagree: |Δ|=%v against scale %v",
			name, col, math.Sqrt(dd), scale)
	}
}

func TestPartialsMatchFiniteDifferenceSGP4(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	params := NewParameterSet(tle)
	if err := params.Select(ParamBstar); err != nil {
		t.Fatal(err)
	}
	const dt = 3600.0
	_, ad, err := PropagatePartials(tle, params, dt)
	if err != nil {
		t.Fatal(err)
	}
	fd, err := FiniteDifferenceJacobian(tle, params, dt, nil)
	if err != nil {
		t.Fatal(err)
	}
	for col := 0; col < 6; col++ {
		assertColumnsAgree(t, "stm", ad.StateTransitionMatrix(), fd.StateTransitionMatrix(), col)
	}
	assertColumnsAgree(t, "bstar", ad.ParametersJacobian(), fd.ParametersJacobian(), 0)
}

func TestPartialsMatchFiniteDifferenceSDP4(t *testing.T) {
	tle := parseOrDie(t, gps1, gps2)
	params := NewParameterSet(tle)
	const dt = 5400.0
	_, ad, err := PropagatePartials(tle, params, dt)
	if err != nil {
		t.Fatal(err)
	}
	fd, err := FiniteDifferenceJacobian(tle, params, dt, nil)
	if err != nil {
		t.Fatal(err)
	}
	for col := 0; col < 6; col++ {
		assertColumnsAgree(t, "stm", ad.StateTransitionMatrix(), fd.StateTransitionMatrix(), col)
	}
}

func TestPartialsMatchFiniteDifferenceHalfDayResonance(t *testing.T) {
	tle := parseOrDie(t, molniya1, molniya2)
	params := NewParameterSet(tle)
	const dt = 5400.0
	_, ad, err := PropagatePartials(tle, params, dt)
	if err != nil {
		t.Fatal(err)
	}
	fd, err := FiniteDifferenceJacobian(tle, params, dt, nil)
	if err != nil {
		t.Fatal(err)
	}
	for col := 0; col < 6; col++ {
		assertColumnsAgree(t, "stm", ad.StateTransitionMatrix(), fd.StateTransitionMatrix(), col)
	}
}

func TestFiniteDifferenceUsesDriverScale(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	params := NewParameterSet(tle)
	if err := params.Select(ParamBstar); err != nil {
		t.Fatal(err)
	}
	implicit, err := FiniteDifferenceJacobian(tle, params, 3600, nil)
	if err != nil {
		t.Fatal(err)
	}
	steps := make([]float64, GradDim)
	copy(steps, fdSteps[:])
	steps[6] = params.Scale(ParamBstar)
	explicit, err := FiniteDifferenceJacobian(tle, params, 3600, steps)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(implicit.ParametersJacobian(), explicit.ParametersJacobian()) {
		t.Error("default drag column step does not come from the driver scale")
	}
}

func TestPartialsStateMatchesPropagation(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	prop, err := NewPropagator(tle)
	if err != nil {
		t.Fatal(err)
	}
	want, err := prop.Propagate(1234)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := PropagatePartials(tle, nil, 1234)
	if err != nil {
		t.Fatal(err)
	}
	// the derivative-carrying value lane runs the identical float64 sequence
	if got != want {
		t.Errorf("value lane diverged from plain propagation:\n%+v\n%+v", got, want)
	}
}

func TestParametersJacobianNilWhenUnselected(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	params := NewParameterSet(tle)
	_, jac, err := PropagatePartials(tle, params, 600)
	if err != nil {
		t.Fatal(err)
	}
	if jac.ParametersJacobian() != nil {
		t.Error("unselected drag parameter produced a Jacobian column")
	}
	if jac.StateTransitionMatrix() == nil {
		t.Error("state transition matrix missing")
	}
}

func TestCopyStateTransitionChecksDimensions(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	_, jac, err := PropagatePartials(tle, nil, 600)
	if err != nil {
		t.Fatal(err)
	}
	var derr *DimensionError
	if err := jac.CopyStateTransition(mat.NewDense(3, 3, nil)); !errors.As(err, &derr) {
		t.Fatalf("expected dimension error, got %v", err)
	}
	dst := mat.NewDense(6, 6, nil)
	if err := jac.CopyStateTransition(dst); err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(dst, jac.StateTransitionMatrix()) {
		t.Error("copied matrix differs")
	}
}

func TestFiniteDifferenceStepValidation(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	var derr *DimensionError
	if _, err := FiniteDifferenceJacobian(tle, nil, 600, []float64{1e-8}); !errors.As(err, &derr) {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

func TestParameterSetSelection(t *testing.T) {
	tle := parseOrDie(t, vanguard1, vanguard2)
	params := NewParameterSet(tle)
	if params.NumSelected() != 0 {
		t.Fatal("drivers start selected")
	}
	if params.IsSelected(ParamBstar) {
		t.Fatal("bstar starts selected")
	}
	if err := params.Select("DRAG2"); err == nil {
		t.Error("unknown driver name accepted")
	}
	if err := params.Select(ParamBstar); err != nil {
		t.Fatal(err)
	}
	if params.NumSelected() != 1 || !params.IsSelected(ParamBstar) {
		t.Error("selection not recorded")
	}
	d := params.Drivers()[0]
	if d.Name != ParamBstar || d.Reference != tle.Bstar() {
		t.Errorf("driver %+v", d)
	}
	if err := params.Deselect(ParamBstar); err != nil || params.NumSelected() != 0 {
		t.Error("deselect failed")
	}
}
