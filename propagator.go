package tlefit

import (
	"errors"
	"fmt"
	"time"
)

// ResonanceKind reports which geopotential resonance band, if any, the
// deep-space theory applies to an orbit.
type ResonanceKind int

const (
	ResonanceNone ResonanceKind = iota
	ResonanceSynchronous
	ResonanceHalfDay
)

func (r ResonanceKind) String() string {
	switch r {
	case ResonanceSynchronous:
		return "synchronous"
	case ResonanceHalfDay:
		return "half-day"
	}
	return "none"
}

// StateVector is an osculating cartesian state in the TEME frame of the
// element epoch. Position in meters, velocity in meters per second.
type StateVector struct {
	Position [3]float64
	Velocity [3]float64
}

// TimedState pairs a state vector with the elapsed seconds since the TLE
// epoch it was observed or computed at.
type TimedState struct {
	Elapsed float64
	State   StateVector
}

// Propagator evaluates the SGP4/SDP4 theory for one element set. All working
// state is derived in NewPropagator and never mutated, so a single Propagator
// may serve concurrent Propagate calls.
type Propagator struct {
	tle *TLE
	th  *brouwer[Real]
}

// NewPropagator initializes the propagation theory for tle. Initialization
// errors are fatal for the element set: no epoch can be propagated.
func NewPropagator(tle *TLE) (*Propagator, error) {
	th, err := newBrouwer(liftElements[Real](tle))
	if err != nil {
		return nil, fmt.Errorf("sat %d: %w", tle.SatelliteNumber(), err)
	}
	return &Propagator{tle: tle, th: th}, nil
}

// liftElements converts a TLE to kernel units: radians, radians per minute.
func liftElements[T Scalar[T]](t *TLE) meanElements[T] {
	var zero T
	return meanElements[T]{
		n:       zero.Lift(t.MeanMotion() * 60),
		e:       zero.Lift(t.Eccentricity()),
		i:       zero.Lift(t.Inclination()),
		node:    zero.Lift(t.RAAN()),
		argp:    zero.Lift(t.ArgPerigee()),
		m:       zero.Lift(t.MeanAnomaly()),
		bstar:   zero.Lift(t.Bstar()),
		epochJD: t.EpochJulian(),
	}
}

// Propagate returns the TEME state dt seconds after the element epoch.
// Negative dt propagates backwards.
func (p *Propagator) Propagate(dt float64) (StateVector, error) {
	st, err := p.th.propagate(dt / 60)
	if err != nil {
		propagationErrors.WithLabelValues(errorLabel(err)).Inc()
		return StateVector{}, err
	}
	propagationsTotal.Inc()
	var out StateVector
	for k := 0; k < 3; k++ {
		out.Position[k] = float64(st.pos[k])
		out.Velocity[k] = float64(st.vel[k])
	}
	return out, nil
}

// PropagateAt propagates to an absolute UTC instant.
func (p *Propagator) PropagateAt(at time.Time) (StateVector, error) {
	return p.Propagate(at.Sub(p.tle.Epoch()).Seconds())
}

// TLE returns the element set the propagator was built from.
func (p *Propagator) TLE() *TLE { return p.tle }

// DeepSpace reports whether the deep-space theory applies (period ≥ 225 min).
func (p *Propagator) DeepSpace() bool { return p.th.deep }

// Resonance reports the resonance band the deep-space theory classified the
// orbit into. Near-Earth orbits are always ResonanceNone.
func (p *Propagator) Resonance() ResonanceKind {
	if p.th.ds == nil {
		return ResonanceNone
	}
	switch p.th.ds.irez {
	case 1:
		return ResonanceSynchronous
	case 2:
		return ResonanceHalfDay
	}
	return ResonanceNone
}

// MeanMotionRecovered returns the Brouwer mean motion in rad/s, after
// removing the Kozai J2 contribution carried by the TLE value.
func (p *Propagator) MeanMotionRecovered() float64 {
	return float64(p.th.nodp) / 60
}

// SemiMajorAxis returns the recovered Brouwer semi-major axis in meters.
func (p *Propagator) SemiMajorAxis() float64 {
	return float64(p.th.aodp) * earthRadiusKm * 1000
}

func errorLabel(err error) string {
	var dec *DecayedError
	if errors.As(err, &dec) {
		return "decayed"
	}
	return "model_limits"
}
