// Package tlefit propagates NORAD two-line element sets with the SGP4 and
// SDP4 analytical theories and solves the inverse problem: recovering the
// mean elements that reproduce observed cartesian states.
//
// The perturbation theory is written once over a generic scalar algebra, so
// the identical code path runs on plain float64 values for propagation and on
// derivative-carrying dual numbers for analytical Jacobians. States are
// exchanged in the TEME frame of the element epoch, in meters and meters per
// second.
package tlefit
