package tlefit

import "math"

// GradDim is the number of independent variables a Dual tracks: the six TLE
// mean elements (n, e, i, Ω, ω, M) followed by the drag term B*.
const GradDim = 7

// Scalar is the arithmetic the propagation theory is written against. Real
// instantiates it with a plain float64; Dual additionally carries partial
// derivatives through every operation. The entire SGP4/SDP4 kernel exists
// exactly once, generic over this constraint, so a derivative-carrying run
// reproduces the plain run's value lane bit for bit.
//
// Branch decisions inside the kernel must go through Float, never through
// structural comparison of derivative-carrying values.
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Abs() T
	AddS(float64) T
	MulS(float64) T
	Sqrt() T
	Pow(float64) T
	Sin() T
	Cos() T
	SinCos() (sin, cos T)
	Atan2(x T) T
	Mod(m float64) T
	Lift(float64) T
	Float() float64
}

// Real is the plain-number instantiation of Scalar.
type Real float64

func (a Real) Add(b Real) Real      { return a + b }
func (a Real) Sub(b Real) Real      { return a - b }
func (a Real) Mul(b Real) Real      { return a * b }
func (a Real) Div(b Real) Real      { return a / b }
func (a Real) Neg() Real            { return -a }
func (a Real) Abs() Real            { return Real(math.Abs(float64(a))) }
func (a Real) AddS(c float64) Real  { return a + Real(c) }
func (a Real) MulS(c float64) Real  { return a * Real(c) }
func (a Real) Sqrt() Real           { return Real(math.Sqrt(float64(a))) }
func (a Real) Pow(p float64) Real   { return Real(math.Pow(float64(a), p)) }
func (a Real) Sin() Real            { return Real(math.Sin(float64(a))) }
func (a Real) Cos() Real            { return Real(math.Cos(float64(a))) }
func (a Real) Atan2(x Real) Real    { return Real(math.Atan2(float64(a), float64(x))) }
func (a Real) Mod(m float64) Real   { return Real(math.Mod(float64(a), m)) }
func (a Real) Lift(v float64) Real  { return Real(v) }
func (a Real) Float() float64       { return float64(a) }

func (a Real) SinCos() (Real, Real) {
	s, c := math.Sincos(float64(a))
	return Real(s), Real(c)
}

// Dual is a forward-mode first-order number: a value plus the gradient of
// that value with respect to GradDim independent variables.
type Dual struct {
	V float64
	G [GradDim]float64
}

// NewDual returns v with a unit derivative in slot i, or with a zero gradient
// when i is negative.
func NewDual(v float64, i int) Dual {
	d := Dual{V: v}
	if i >= 0 {
		d.G[i] = 1
	}
	return d
}

func (a Dual) Add(b Dual) Dual {
	r := Dual{V: a.V + b.V}
	for i := range r.G {
		r.G[i] = a.G[i] + b.G[i]
	}
	return r
}

func (a Dual) Sub(b Dual) Dual {
	r := Dual{V: a.V - b.V}
	for i := range r.G {
		r.G[i] = a.G[i] - b.G[i]
	}
	return r
}

func (a Dual) Mul(b Dual) Dual {
	r := Dual{V: a.V * b.V}
	for i := range r.G {
		r.G[i] = a.G[i]*b.V + a.V*b.G[i]
	}
	return r
}

func (a Dual) Div(b Dual) Dual {
	r := Dual{V: a.V / b.V}
	inv := 1 / (b.V * b.V)
	for i := range r.G {
		r.G[i] = (a.G[i]*b.V - a.V*b.G[i]) * inv
	}
	return r
}

func (a Dual) Neg() Dual {
	r := Dual{V: -a.V}
	for i := range r.G {
		r.G[i] = -a.G[i]
	}
	return r
}

func (a Dual) Abs() Dual {
	if math.Signbit(a.V) {
		return a.Neg()
	}
	r := Dual{V: math.Abs(a.V)}
	r.G = a.G
	return r
}

func (a Dual) AddS(c float64) Dual {
	r := a
	r.V = a.V + c
	return r
}

func (a Dual) MulS(c float64) Dual {
	r := Dual{V: a.V * c}
	for i := range r.G {
		r.G[i] = a.G[i] * c
	}
	return r
}

func (a Dual) Sqrt() Dual {
	v := math.Sqrt(a.V)
	r := Dual{V: v}
	d := 0.5 / v
	for i := range r.G {
		r.G[i] = a.G[i] * d
	}
	return r
}

func (a Dual) Pow(p float64) Dual {
	v := math.Pow(a.V, p)
	d := p * math.Pow(a.V, p-1)
	r := Dual{V: v}
	for i := range r.G {
		r.G[i] = a.G[i] * d
	}
	return r
}

// Sin and Cos compute the value lane with math.Sin / math.Cos, exactly as
// Real does, so the two representations stay bit-compatible.
func (a Dual) Sin() Dual {
	r := Dual{V: math.Sin(a.V)}
	c := math.Cos(a.V)
	for i := range r.G {
		r.G[i] = a.G[i] * c
	}
	return r
}

func (a Dual) Cos() Dual {
	r := Dual{V: math.Cos(a.V)}
	s := math.Sin(a.V)
	for i := range r.G {
		r.G[i] = -a.G[i] * s
	}
	return r
}

func (a Dual) SinCos() (Dual, Dual) {
	s, c := math.Sincos(a.V)
	rs := Dual{V: s}
	rc := Dual{V: c}
	for i := range rs.G {
		rs.G[i] = a.G[i] * c
		rc.G[i] = -a.G[i] * s
	}
	return rs, rc
}

// Atan2 treats the receiver as y.
func (a Dual) Atan2(x Dual) Dual {
	r := Dual{V: math.Atan2(a.V, x.V)}
	inv := 1 / (x.V*x.V + a.V*a.V)
	for i := range r.G {
		r.G[i] = (x.V*a.G[i] - a.V*x.G[i]) * inv
	}
	return r
}

// Mod reduces the value modulo m. The derivative of x mod m with respect to x
// is one wherever it is defined, so the gradient passes through unchanged.
func (a Dual) Mod(m float64) Dual {
	r := a
	r.V = math.Mod(a.V, m)
	return r
}

func (a Dual) Lift(v float64) Dual { return Dual{V: v} }
func (a Dual) Float() float64      { return a.V }
