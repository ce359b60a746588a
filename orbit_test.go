package tlefit

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestRVElementsRoundTrip(t *testing.T) {
	cases := []Orbit{
		NewOrbitFromOE(7000e3, 0.01, 51.6*deg2rad, 40*deg2rad, 80*deg2rad, 120*deg2rad),
		NewOrbitFromOE(26560e3, 0.03, 55*deg2rad, 176*deg2rad, 13*deg2rad, 300*deg2rad),
		NewOrbitFromOE(42164e3, 0.0005, 3*deg2rad, 10*deg2rad, 200*deg2rad, 50*deg2rad),
	}
	for k, o := range cases {
		R, V := o.RV()
		back := NewOrbitFromRV(R, V)
		a, e, i, Ω, ω, ν, _, _ := o.Elements()
		a2, e2, i2, Ω2, ω2, ν2, _, _ := back.Elements()
		if !scalar.EqualWithinAbsOrRel(a, a2, 1e-3, 1e-9) {
			t.Errorf("case %d: a %v != %v", k, a, a2)
		}
		if !scalar.EqualWithinAbs(e, e2, 1e-9) {
			t.Errorf("case %d: e %v != %v", k, e, e2)
		}
		if !scalar.EqualWithinAbs(i, i2, 1e-9) {
			t.Errorf("case %d: i %v != %v", k, i, i2)
		}
		for name, pair := range map[string][2]float64{"Ω": {Ω, Ω2}, "ω": {ω, ω2}, "ν": {ν, ν2}} {
			if !scalar.EqualWithinAbs(angleDiff(pair[0], pair[1]), 0, 1e-8) {
				t.Errorf("case %d: %s %v != %v", k, name, pair[0], pair[1])
			}
		}
	}
}

func TestRVMagnitudes(t *testing.T) {
	// circular orbit: |r| = a, |v| = sqrt(μ/a) at every anomaly
	a := 42164e3
	o := NewOrbitFromOE(a, 0, 0, 0, 0, 77*deg2rad)
	R, V := o.RV()
	if !scalar.EqualWithinAbsOrRel(norm(R), a, 1, 1e-9) {
		t.Errorf("radius %v, want %v", norm(R), a)
	}
	vCirc := math.Sqrt(EarthMu / a)
	if !scalar.EqualWithinAbsOrRel(norm(V), vCirc, 1e-6, 1e-9) {
		t.Errorf("speed %v, want %v", norm(V), vCirc)
	}
	for k := 0; k < 3; k++ {
		if math.IsNaN(R[k]) || math.IsNaN(V[k]) {
			t.Fatalf("NaN component in equatorial circular state")
		}
	}
}

func TestEquinoctialRoundTrip(t *testing.T) {
	cases := []Orbit{
		NewOrbitFromOE(7000e3, 0.01, 51.6*deg2rad, 40*deg2rad, 80*deg2rad, 120*deg2rad),
		NewOrbitFromOE(26560e3, 0.0005, 55*deg2rad, 176*deg2rad, 13*deg2rad, 300*deg2rad),
		NewOrbitFromOE(42166e3, 0.0001, 0.01*deg2rad, 100*deg2rad, 10*deg2rad, 200*deg2rad),
	}
	for k, o := range cases {
		a, ex, ey, hx, hy, λM := o.Equinoctial()
		back := NewOrbitFromEquinoctial(a, ex, ey, hx, hy, λM)
		a2, ex2, ey2, hx2, hy2, λM2 := back.Equinoctial()
		if !scalar.EqualWithinAbsOrRel(a, a2, 1e-3, 1e-12) {
			t.Errorf("case %d: a %v != %v", k, a, a2)
		}
		for name, pair := range map[string][2]float64{
			"ex": {ex, ex2}, "ey": {ey, ey2}, "hx": {hx, hx2}, "hy": {hy, hy2},
		} {
			if !scalar.EqualWithinAbs(pair[0], pair[1], 1e-10) {
				t.Errorf("case %d: %s %v != %v", k, name, pair[0], pair[1])
			}
		}
		if !scalar.EqualWithinAbs(angleDiff(λM, λM2), 0, 1e-9) {
			t.Errorf("case %d: λM %v != %v", k, λM, λM2)
		}
	}
}

func TestMeanToTrueInvertsMeanAnomaly(t *testing.T) {
	for _, e := range []float64{0, 0.1, 0.7, 0.95} {
		for _, M := range []float64{0.1, 1.5, 3.0, 5.5} {
			ν := meanToTrue(M, e)
			o := NewOrbitFromOE(1e7, e, 0.5, 0.2, 0.3, ν)
			if got := o.MeanAnomaly(); !scalar.EqualWithinAbs(angleDiff(got, M), 0, 1e-10) {
				t.Errorf("e=%v M=%v: recovered M=%v", e, M, got)
			}
		}
	}
}

func TestMeanMotionPeriodConsistency(t *testing.T) {
	o := NewOrbitFromOE(26560e3, 0.01, 0.9, 1, 2, 3)
	n := o.MeanMotion()
	if !scalar.EqualWithinAbsOrRel(o.Period().Seconds(), 2*math.Pi/n, 1e-6, 1e-9) {
		t.Errorf("period %v inconsistent with mean motion %v", o.Period(), n)
	}
}
