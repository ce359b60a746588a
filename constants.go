package tlefit

import "math"

// WGS-72 gravity model, the reference model for SGP4/SDP4 (cf. Vallado,
// "Revisiting Spacetrack Report #3", AIAA 2006-6753).
const (
	earthRadiusKm = 6378.135  // equatorial radius (km)
	earthMu       = 398600.8  // km³/s²
	j2            = 0.001082616
	j3            = -0.00000253881
	j4            = -0.00000165597

	ck2    = 0.5 * j2
	ck4    = -0.375 * j4
	j3oj2  = j3 / j2
	a3ovk2 = -j3 / ck2 // -2·J3/J2, libsgp4's kA3OVK2

	twoPi         = 2 * math.Pi
	deg2rad       = math.Pi / 180
	rad2deg       = 180 / math.Pi
	minutesPerDay = 1440.0
	x2o3          = 2.0 / 3.0
)

// Exported SI counterparts, used by the element conversions and the fitters.
const (
	// EarthRadius is the WGS-72 equatorial radius in meters.
	EarthRadius = earthRadiusKm * 1000
	// EarthMu is the WGS-72 gravitational parameter in m³/s².
	EarthMu = earthMu * 1e9
)

// Derived canonical-unit constants (Earth radii, minutes).
var (
	xke    = 60.0 / math.Sqrt(earthRadiusKm*earthRadiusKm*earthRadiusKm/earthMu)
	qoms2t = math.Pow((120.0-78.0)/earthRadiusKm, 4)
	sCoef  = 1.0 + 78.0/earthRadiusKm
)

// Deep-space perturbation constants (STR#3 / Vallado SGP4 reference code).
const (
	zes = 0.01675 // solar eccentricity factor
	zel = 0.05490 // lunar eccentricity factor
	zns = 1.19459e-5
	znl = 1.5835218e-4

	c1ss = 2.9864797e-6
	c1l  = 4.7968065e-7

	zsinis = 0.39785416
	zcosis = 0.91744867
	zcosgs = 0.1945905
	zsings = -0.98088458

	// geopotential resonance coefficients
	q22    = 1.7891679e-6
	q31    = 2.1460748e-6
	q33    = 2.2123015e-7
	root22 = 1.7891679e-6
	root32 = 3.7393792e-7
	root44 = 7.3636953e-9
	root52 = 1.1428639e-7
	root54 = 2.1765803e-9

	// resonance integrator phase constants
	fasx2 = 0.13130908
	fasx4 = 2.8843198
	fasx6 = 0.37448087
	g22   = 5.7686396
	g32   = 0.95240898
	g44   = 1.8014998
	g52   = 1.0508330
	g54   = 4.4108898

	// Earth rotation rate in rad/min and the integrator step (min).
	rptim = 4.37526908801129966e-3
	stepp = 720.0
	step2 = 259200.0 // stepp²/2
)

// gstime returns the Greenwich sidereal time (rad) for a UT1 Julian date.
func gstime(jdut1 float64) float64 {
	tut1 := (jdut1 - 2451545.0) / 36525.0
	temp := -6.2e-6*tut1*tut1*tut1 + 0.093104*tut1*tut1 +
		(876600.0*3600.0+8640184.812866)*tut1 + 67310.54841
	temp = math.Mod(temp*deg2rad/240.0, twoPi)
	if temp < 0 {
		temp += twoPi
	}
	return temp
}
