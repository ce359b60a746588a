package tlefit

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// expression exercising every operation of the algebra
func mixedExpr[T Scalar[T]](x T) T {
	s, c := x.SinCos()
	t1 := x.Mul(x).AddS(1).Sqrt()
	t2 := s.Atan2(c.AddS(2))
	t3 := x.Abs().Pow(1.5).MulS(0.25)
	return t1.Add(t2).Sub(t3).Div(x.Cos().AddS(3)).Neg().Add(x.Sin().MulS(2)).Mod(twoPi)
}

func TestDualDerivativeMatchesFiniteDifference(t *testing.T) {
	for _, x0 := range []float64{0.3, 1.7, 2.9, -0.8} {
		d := mixedExpr(NewDual(x0, 0))
		h := 1e-6
		fp := float64(mixedExpr(Real(x0 + h)))
		fm := float64(mixedExpr(Real(x0 - h)))
		want := (fp - fm) / (2 * h)
		if !scalar.EqualWithinAbsOrRel(d.G[0], want, 1e-6, 1e-6) {
			t.Errorf("x0=%v: dual derivative %v, finite difference %v", x0, d.G[0], want)
		}
		for slot := 1; slot < GradDim; slot++ {
			if d.G[slot] != 0 {
				t.Errorf("x0=%v: unseeded slot %d carries %v", x0, slot, d.G[slot])
			}
		}
	}
}

func TestDualValueLaneBitIdenticalToReal(t *testing.T) {
	for _, x0 := range []float64{0.3, 1.7, 2.9, -0.8, 5.5} {
		r := float64(mixedExpr(Real(x0)))
		d := mixedExpr(NewDual(x0, 2)).V
		if r != d {
			t.Errorf("x0=%v: Real %v and Dual value lane %v differ by %v", x0, r, d, r-d)
		}
	}
}

func TestDualProductRule(t *testing.T) {
	a := NewDual(2.0, 0)
	b := NewDual(3.0, 1)
	p := a.Mul(b)
	if p.V != 6 || p.G[0] != 3 || p.G[1] != 2 {
		t.Errorf("product rule: got V=%v G0=%v G1=%v", p.V, p.G[0], p.G[1])
	}
	q := a.Div(b)
	if !scalar.EqualWithinAbs(q.G[0], 1.0/3, 1e-15) || !scalar.EqualWithinAbs(q.G[1], -2.0/9, 1e-15) {
		t.Errorf("quotient rule: got G0=%v G1=%v", q.G[0], q.G[1])
	}
}

func TestLiftCarriesNoDerivative(t *testing.T) {
	a := NewDual(1.5, 0)
	c := a.Lift(42)
	if c.V != 42 {
		t.Fatalf("lifted value %v", c.V)
	}
	for i, g := range c.G {
		if g != 0 {
			t.Fatalf("lifted constant carries derivative in slot %d", i)
		}
	}
}

func TestSinCosConsistency(t *testing.T) {
	x := NewDual(1.234, 3)
	s1, c1 := x.SinCos()
	s2, c2 := x.Sin(), x.Cos()
	if s1.V != s2.V || c1.V != c2.V {
		t.Errorf("SinCos and Sin/Cos value lanes differ: %v/%v vs %v/%v", s1.V, c1.V, s2.V, c2.V)
	}
	if s1.G[3] != c2.V || c1.G[3] != -s2.V {
		t.Errorf("SinCos derivatives: got %v and %v", s1.G[3], c1.G[3])
	}
}

func TestAbsBranchesOnSign(t *testing.T) {
	neg := NewDual(-2.5, 0).Abs()
	if neg.V != 2.5 || neg.G[0] != -1 {
		t.Errorf("abs of negative: V=%v G=%v", neg.V, neg.G[0])
	}
	pos := NewDual(2.5, 0).Abs()
	if pos.V != 2.5 || pos.G[0] != 1 {
		t.Errorf("abs of positive: V=%v G=%v", pos.V, pos.G[0])
	}
}

func TestAtan2Quadrants(t *testing.T) {
	for _, pair := range [][2]float64{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}} {
		y := NewDual(pair[0], 0)
		x := NewDual(pair[1], 1)
		got := y.Atan2(x)
		want := math.Atan2(pair[0], pair[1])
		if got.V != want {
			t.Errorf("atan2(%v,%v) value %v, want %v", pair[0], pair[1], got.V, want)
		}
		r2 := pair[0]*pair[0] + pair[1]*pair[1]
		if !scalar.EqualWithinAbs(got.G[0], pair[1]/r2, 1e-15) ||
			!scalar.EqualWithinAbs(got.G[1], -pair[0]/r2, 1e-15) {
			t.Errorf("atan2(%v,%v) gradient (%v,%v)", pair[0], pair[1], got.G[0], got.G[1])
		}
	}
}
