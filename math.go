package tlefit

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// norm returns the norm of a 3x1 vector.
func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// dot performs the inner product.
func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// cross performs the cross product.
func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// pqw2eci rotates a perifocal vector into the inertial frame via R3(-Ω)R1(-i)R3(-ω).
func pqw2eci(i, ω, Ω float64, v [3]float64) [3]float64 {
	sini, cosi := math.Sincos(i)
	sinω, cosω := math.Sincos(ω)
	sinΩ, cosΩ := math.Sincos(Ω)
	var out [3]float64
	out[0] = (cosΩ*cosω-sinΩ*sinω*cosi)*v[0] + (-cosΩ*sinω-sinΩ*cosω*cosi)*v[1] + sinΩ*sini*v[2]
	out[1] = (sinΩ*cosω+cosΩ*sinω*cosi)*v[0] + (-sinΩ*sinω+cosΩ*cosω*cosi)*v[1] - cosΩ*sini*v[2]
	out[2] = sinω*sini*v[0] + cosω*sini*v[1] + cosi*v[2]
	return out
}
