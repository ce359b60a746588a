package tlefit

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 5e-5
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
)

// Orbit defines an osculating Earth orbit via its orbital elements, in meters
// and radians.
type Orbit struct {
	a, e, i, Ω, ω, ν float64
}

// NewOrbitFromOE returns an orbit from the provided elements (radians).
func NewOrbitFromOE(a, e, i, Ω, ω, ν float64) Orbit {
	return Orbit{a, e, i, wrapTwoPi(Ω), wrapTwoPi(ω), wrapTwoPi(ν)}
}

// NewOrbitFromRV returns orbital elements from the R and V vectors, from
// Vallado's RV2COE (page 113). Vectors in meters and m/s.
func NewOrbitFromRV(R, V [3]float64) Orbit {
	hVec := cross(R, V)
	n := cross([3]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - EarthMu/r
	a := -EarthMu / (2 * ξ)
	var eVec [3]float64
	for k := 0; k < 3; k++ {
		eVec[k] = ((v*v-EarthMu/r)*R[k] - dot(R, V)*V[k]) / EarthMu
	}
	e := norm(eVec)
	i := math.Acos(hVec[2] / norm(hVec))
	ω := math.Acos(dot(n, eVec) / (norm(n) * e))
	if math.IsNaN(ω) {
		ω = 0
	}
	if eVec[2] < 0 {
		ω = 2*math.Pi - ω
	}
	Ω := math.Acos(n[0] / norm(n))
	if math.IsNaN(Ω) {
		Ω = 0
	}
	if n[1] < 0 {
		Ω = 2*math.Pi - Ω
	}
	cosν := dot(eVec, R) / (e * r)
	if abscosν := math.Abs(cosν); abscosν > 1 && scalar.EqualWithinAbs(abscosν, 1, 1e-12) {
		cosν = sign(cosν)
	}
	ν := math.Acos(cosν)
	if dot(R, V) < 0 {
		ν = 2*math.Pi - ν
	}
	i = math.Mod(i, 2*math.Pi)
	Ω = math.Mod(Ω, 2*math.Pi)
	ω = math.Mod(ω, 2*math.Pi)
	ν = math.Mod(ν, 2*math.Pi)
	return Orbit{a, e, i, Ω, ω, ν}
}

// Elements returns the canonical elements plus the composite angles.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν, tildeω, u float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν, o.Tildeω(), o.ArgLatitudeU()
}

// Tildeω returns the longitude of periapsis.
func (o Orbit) Tildeω() float64 {
	return math.Mod(o.ω+o.Ω, 2*math.Pi)
}

// ArgLatitudeU returns the argument of latitude.
func (o Orbit) ArgLatitudeU() float64 {
	return math.Mod(o.ν+o.ω, 2*math.Pi)
}

// SemiParameter returns the semi-latus rectum.
func (o Orbit) SemiParameter() float64 {
	return o.a * (1 - o.e*o.e)
}

// MeanMotion returns the Keplerian mean motion in rad/s.
func (o Orbit) MeanMotion() float64 {
	return math.Sqrt(EarthMu / (o.a * o.a * o.a))
}

// Period returns the orbital period.
func (o Orbit) Period() time.Duration {
	return time.Duration(2*math.Pi/o.MeanMotion()*1e9) * time.Nanosecond
}

// SinCosE returns the eccentric anomaly sine and cosine.
func (o Orbit) SinCosE() (sinE, cosE float64) {
	sinν, cosν := math.Sincos(o.ν)
	denom := 1 + o.e*cosν
	sinE = math.Sqrt(1-o.e*o.e) * sinν / denom
	cosE = (o.e + cosν) / denom
	return
}

// MeanAnomaly returns the mean anomaly via Kepler's equation.
func (o Orbit) MeanAnomaly() float64 {
	sinE, cosE := o.SinCosE()
	E := math.Atan2(sinE, cosE)
	return wrapTwoPi(E - o.e*sinE)
}

// RV returns the R and V vectors in meters and m/s, with the usual
// substitutions for circular and equatorial orbits.
func (o Orbit) RV() ([3]float64, [3]float64) {
	p := o.SemiParameter()
	ν := o.ν
	ω := o.ω
	Ω := o.Ω
	if o.e < eccentricityε {
		ω = 0
		if o.i < angleε {
			Ω = 0
			ν = math.Mod(o.ω+o.Ω+o.ν, 2*math.Pi)
		} else {
			ν = o.ArgLatitudeU()
		}
	} else if o.i < angleε {
		Ω = 0
		ω = o.Tildeω()
	}
	sinν, cosν := math.Sincos(ν)
	R := [3]float64{p * cosν / (1 + o.e*cosν), p * sinν / (1 + o.e*cosν), 0}
	vfac := math.Sqrt(EarthMu / p)
	V := [3]float64{-vfac * sinν, vfac * (o.e + cosν), 0}
	return pqw2eci(o.i, ω, Ω, R), pqw2eci(o.i, ω, Ω, V)
}

// Equinoctial returns the direct equinoctial elements
// (a, ex, ey, hx, hy, λM), the nonsingular set used by the fitting engine.
func (o Orbit) Equinoctial() (a, ex, ey, hx, hy, λM float64) {
	tildeω := o.Tildeω()
	a = o.a
	ex = o.e * math.Cos(tildeω)
	ey = o.e * math.Sin(tildeω)
	tanHalfI := math.Tan(o.i / 2)
	hx = tanHalfI * math.Cos(o.Ω)
	hy = tanHalfI * math.Sin(o.Ω)
	λM = wrapTwoPi(o.MeanAnomaly() + tildeω)
	return
}

// NewOrbitFromEquinoctial inverts Equinoctial.
func NewOrbitFromEquinoctial(a, ex, ey, hx, hy, λM float64) Orbit {
	e := math.Hypot(ex, ey)
	tildeω := math.Atan2(ey, ex)
	if e < eccentricityε {
		tildeω = 0
	}
	i := 2 * math.Atan(math.Hypot(hx, hy))
	Ω := math.Atan2(hy, hx)
	if i < angleε {
		Ω = 0
	}
	ω := wrapTwoPi(tildeω - Ω)
	M := wrapTwoPi(λM - tildeω)
	ν := meanToTrue(M, e)
	return Orbit{a, e, i, wrapTwoPi(Ω), ω, ν}
}

// meanToTrue solves Kepler's equation by Newton iteration and converts the
// eccentric anomaly to the true anomaly.
func meanToTrue(M, e float64) float64 {
	E := M
	if e > 0.8 {
		E = math.Pi
	}
	for iter := 0; iter < 50; iter++ {
		delta := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= delta
		if math.Abs(delta) < 1e-14 {
			break
		}
	}
	sinE, cosE := math.Sincos(E)
	sinν := math.Sqrt(1-e*e) * sinE / (1 - e*cosE)
	cosν := (cosE - e) / (1 - e*cosE)
	return wrapTwoPi(math.Atan2(sinν, cosν))
}

func (o Orbit) String() string {
	return fmt.Sprintf("a=%.1f m e=%.6f i=%.4f° Ω=%.4f° ω=%.4f° ν=%.4f°",
		o.a, o.e, o.i*rad2deg, o.Ω*rad2deg, o.ω*rad2deg, o.ν*rad2deg)
}
