package tlefit

import "fmt"

// LimitReason identifies which internal limit of the perturbation theory was
// exceeded.
type LimitReason string

const (
	ReasonEccentricityRange   LimitReason = "eccentricity outside model range"
	ReasonMeanMotionRange     LimitReason = "mean motion non-positive"
	ReasonPerturbedEccRange   LimitReason = "lunar-solar perturbed eccentricity outside [0,1]"
	ReasonSemiLatusRectum     LimitReason = "semi-latus rectum negative"
	ReasonPerigeeBelowSurface LimitReason = "perigee radius below one Earth radius"
)

// ModelLimitsError is returned when the analytical theory is driven outside
// its domain of validity, typically by extreme drag or eccentricity. It is
// fatal to the propagation call; the kernel never clamps its way past it.
type ModelLimitsError struct {
	Tsince float64 // minutes since epoch when the limit was hit
	Reason LimitReason
	Value  float64
}

func (e *ModelLimitsError) Error() string {
	return fmt.Sprintf("sgp4: model limits exceeded at tsince %.2f min: %s (value %.6e)", e.Tsince, e.Reason, e.Value)
}

// DecayedError reports that the drag model has brought the orbital radius
// under one Earth radius. Propagation cannot proceed past that epoch, but the
// propagator itself remains usable for earlier epochs.
type DecayedError struct {
	Tsince float64
	Radius float64 // Earth radii
}

func (e *DecayedError) Error() string {
	return fmt.Sprintf("sgp4: satellite decayed at tsince %.2f min (radius %.4f Earth radii)", e.Tsince, e.Radius)
}

// DimensionError reports a matrix size that does not agree with the number of
// selected parameters.
type DimensionError struct {
	Op         string
	Rows, Cols int
	WantRows   int
	WantCols   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("tlefit: %s: got %dx%d matrix, want %dx%d", e.Op, e.Rows, e.Cols, e.WantRows, e.WantCols)
}

// ConvergenceError reports that an iterative fit exhausted its iteration
// budget. It is non-fatal: callers may retry with a smaller damping scale.
type ConvergenceError struct {
	Algorithm  string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("tlefit: %s did not converge after %d iterations (residual %.3e)", e.Algorithm, e.Iterations, e.Residual)
}
