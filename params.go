package tlefit

import "fmt"

// ParamBstar is the name of the ballistic drag coefficient driver.
const ParamBstar = "BSTAR"

// ParameterDriver describes one estimable force-model parameter: its
// reference value from the element set, a conditioning scale for solvers, and
// whether partials for it should be produced.
type ParameterDriver struct {
	Name      string
	Reference float64
	Scale     float64
	Selected  bool
}

// ParameterSet is the explicit value object listing the force-model
// parameters a Jacobian or fit run may estimate. The only driver currently
// defined is B*.
type ParameterSet struct {
	drivers []ParameterDriver
}

// NewParameterSet builds the driver list for an element set, all deselected.
func NewParameterSet(tle *TLE) *ParameterSet {
	return &ParameterSet{drivers: []ParameterDriver{{
		Name:      ParamBstar,
		Reference: tle.Bstar(),
		Scale:     0x1p-20,
	}}}
}

// Drivers returns a copy of the driver list.
func (s *ParameterSet) Drivers() []ParameterDriver {
	out := make([]ParameterDriver, len(s.drivers))
	copy(out, s.drivers)
	return out
}

// Select marks a driver for estimation.
func (s *ParameterSet) Select(name string) error {
	for i := range s.drivers {
		if s.drivers[i].Name == name {
			s.drivers[i].Selected = true
			return nil
		}
	}
	return fmt.Errorf("no parameter driver named %q", name)
}

// Deselect clears a driver's estimation flag.
func (s *ParameterSet) Deselect(name string) error {
	for i := range s.drivers {
		if s.drivers[i].Name == name {
			s.drivers[i].Selected = false
			return nil
		}
	}
	return fmt.Errorf("no parameter driver named %q", name)
}

// IsSelected reports whether the named driver is marked for estimation.
// Unknown names report false.
func (s *ParameterSet) IsSelected(name string) bool {
	for i := range s.drivers {
		if s.drivers[i].Name == name {
			return s.drivers[i].Selected
		}
	}
	return false
}

// Scale returns the named driver's conditioning scale; unknown names
// return 0.
func (s *ParameterSet) Scale(name string) float64 {
	for i := range s.drivers {
		if s.drivers[i].Name == name {
			return s.drivers[i].Scale
		}
	}
	return 0
}

// NumSelected counts the drivers marked for estimation.
func (s *ParameterSet) NumSelected() int {
	n := 0
	for i := range s.drivers {
		if s.drivers[i].Selected {
			n++
		}
	}
	return n
}
