package tlefit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// TLE is an immutable two-line mean-element set. All angles are stored in
// radians and the mean motion in rad/s; the fixed-width degree/rev-per-day
// wire values are produced on serialization. Mutating operations return a
// new record.
type TLE struct {
	satNum         int
	classification byte
	intlDesig      string // columns 10-17 of line 1, trimmed
	epochYear      int    // four-digit year
	epochDay       float64
	nDot           float64 // rad/s²
	nDDot          float64 // rad/s³
	bstar          float64 // 1/Earth radii
	ephType        byte
	elsetNum       int

	incl, raan, ecc, argp, m float64 // rad (ecc dimensionless)
	n                        float64 // rad/s
	revNum                   int

	epoch   time.Time
	epochJD float64
}

// FormatError reports a malformed TLE line or field. Format problems are
// rejected at construction and never silently corrected.
type FormatError struct {
	Line   int // 1 or 2
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("tle: line %d: invalid %s: %s", e.Line, e.Field, e.Reason)
}

// ChecksumError reports a mod-10 checksum mismatch on one line.
type ChecksumError struct {
	Line     int
	Expected int // digit present in the line
	Actual   int // digit computed over the line
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("tle: line %d: checksum mismatch: line carries %d, computed %d", e.Line, e.Expected, e.Actual)
}

// checksum computes the mod-10 sum of the first 68 characters: digits count
// as themselves, '-' counts as one, everything else is ignored.
func checksum(line string) int {
	sum := 0
	for i := 0; i < 68; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// alpha-5 satellite numbering: the first character of the 5-character field
// may be a letter (I and O excluded), extending the catalog past 99999.
var alpha5Letters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

func parseSatNum(field string, line int) (int, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, &FormatError{Line: line, Field: "satellite number", Reason: "empty"}
	}
	c := field[0]
	if c >= 'A' && c <= 'Z' {
		idx := strings.IndexByte(alpha5Letters, c)
		if idx < 0 {
			return 0, &FormatError{Line: line, Field: "satellite number", Reason: fmt.Sprintf("letter %q not allowed in alpha-5", c)}
		}
		rest, err := strconv.Atoi(field[1:])
		if err != nil || len(field) != 5 {
			return 0, &FormatError{Line: line, Field: "satellite number", Reason: fmt.Sprintf("bad alpha-5 digits %q", field)}
		}
		return (idx+10)*10000 + rest, nil
	}
	num, err := strconv.Atoi(field)
	if err != nil {
		return 0, &FormatError{Line: line, Field: "satellite number", Reason: err.Error()}
	}
	return num, nil
}

func formatSatNum(num int) string {
	if num < 100000 {
		return fmt.Sprintf("%05d", num)
	}
	head := num / 10000
	return fmt.Sprintf("%c%04d", alpha5Letters[head-10], num%10000)
}

// parseExpField decodes the "±NNNNN±N" assumed-decimal exponential notation
// used for B* and the second mean-motion derivative: ±0.NNNNN×10^±N.
func parseExpField(field string, line int, name string) (float64, error) {
	mant, err := strconv.ParseFloat(strings.TrimSpace(field[:6]), 64)
	if err != nil {
		return 0, &FormatError{Line: line, Field: name, Reason: fmt.Sprintf("mantissa %q", field[:6])}
	}
	exp, err := strconv.ParseInt(strings.TrimSpace(field[6:8]), 10, 64)
	if err != nil {
		return 0, &FormatError{Line: line, Field: name, Reason: fmt.Sprintf("exponent %q", field[6:8])}
	}
	return mant * 1e-5 * math.Pow(10, float64(exp)), nil
}

func formatExpField(v float64) string {
	if v == 0 {
		return " 00000+0"
	}
	sign := ' '
	if v < 0 {
		sign = '-'
		v = -v
	}
	exp := int(math.Floor(math.Log10(v))) + 1
	digits := int(math.Round(v / math.Pow(10, float64(exp)) * 1e5))
	if digits >= 100000 {
		digits /= 10
		exp++
	}
	if exp >= 0 {
		return fmt.Sprintf("%c%05d+%d", sign, digits, exp)
	}
	return fmt.Sprintf("%c%05d-%d", sign, digits, -exp)
}

// parsePointField decodes the "±.NNNNNNNN" assumed-leading-zero notation of
// the first mean-motion derivative field.
func parsePointField(field string, line int, name string) (float64, error) {
	s := strings.TrimSpace(field)
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	} else if strings.HasPrefix(s, "-.") {
		s = "-0" + s[1:]
	} else if strings.HasPrefix(s, "+.") {
		s = "0" + s[1:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &FormatError{Line: line, Field: name, Reason: fmt.Sprintf("%q", field)}
	}
	return v, nil
}

func formatPointField(v float64) string {
	sign := ' '
	if v < 0 {
		sign = '-'
		v = -v
	}
	s := fmt.Sprintf("%.8f", v) // "0.NNNNNNNN"
	return string(sign) + s[1:]
}

func parseDegField(field string, line int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, &FormatError{Line: line, Field: name, Reason: fmt.Sprintf("%q", field)}
	}
	return v * deg2rad, nil
}

// ParseTLE builds a TLE record from its two 69-character lines, validating
// lengths, field syntax, line-number tags, satellite number agreement and the
// mod-10 checksums.
func ParseTLE(line1, line2 string) (*TLE, error) {
	line1 = strings.TrimRight(line1, "\r\n")
	line2 = strings.TrimRight(line2, "\r\n")
	if len(line1) != 69 {
		return nil, &FormatError{Line: 1, Field: "length", Reason: fmt.Sprintf("%d characters, want 69", len(line1))}
	}
	if len(line2) != 69 {
		return nil, &FormatError{Line: 2, Field: "length", Reason: fmt.Sprintf("%d characters, want 69", len(line2))}
	}
	if line1[0] != '1' {
		return nil, &FormatError{Line: 1, Field: "line number", Reason: "must begin with '1'"}
	}
	if line2[0] != '2' {
		return nil, &FormatError{Line: 2, Field: "line number", Reason: "must begin with '2'"}
	}
	for i, line := range []string{line1, line2} {
		carried, err := strconv.Atoi(line[68:69])
		if err != nil {
			return nil, &FormatError{Line: i + 1, Field: "checksum", Reason: "not a digit"}
		}
		if got := checksum(line); got != carried {
			return nil, &ChecksumError{Line: i + 1, Expected: carried, Actual: got}
		}
	}

	t := &TLE{}
	var err error
	if t.satNum, err = parseSatNum(line1[2:7], 1); err != nil {
		return nil, err
	}
	num2, err := parseSatNum(line2[2:7], 2)
	if err != nil {
		return nil, err
	}
	if num2 != t.satNum {
		return nil, &FormatError{Line: 2, Field: "satellite number", Reason: fmt.Sprintf("%d does not match line 1's %d", num2, t.satNum)}
	}
	t.classification = line1[7]
	t.intlDesig = strings.TrimSpace(line1[9:17])

	yy, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return nil, &FormatError{Line: 1, Field: "epoch year", Reason: err.Error()}
	}
	if yy < 57 {
		t.epochYear = 2000 + yy
	} else {
		t.epochYear = 1900 + yy
	}
	t.epochDay, err = strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return nil, &FormatError{Line: 1, Field: "epoch day", Reason: err.Error()}
	}

	nDotHalf, err := parsePointField(line1[33:43], 1, "mean motion first derivative")
	if err != nil {
		return nil, err
	}
	nDDotSixth, err := parseExpField(line1[44:52], 1, "mean motion second derivative")
	if err != nil {
		return nil, err
	}
	if t.bstar, err = parseExpField(line1[53:61], 1, "B* drag term"); err != nil {
		return nil, err
	}
	t.ephType = line1[62]
	if t.elsetNum, err = strconv.Atoi(strings.TrimSpace(line1[64:68])); err != nil {
		return nil, &FormatError{Line: 1, Field: "element set number", Reason: err.Error()}
	}

	if t.incl, err = parseDegField(line2[8:16], 2, "inclination"); err != nil {
		return nil, err
	}
	if t.raan, err = parseDegField(line2[17:25], 2, "right ascension"); err != nil {
		return nil, err
	}
	ecc, err := strconv.ParseFloat("0."+strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return nil, &FormatError{Line: 2, Field: "eccentricity", Reason: fmt.Sprintf("%q", line2[26:33])}
	}
	t.ecc = ecc
	if t.argp, err = parseDegField(line2[34:42], 2, "argument of perigee"); err != nil {
		return nil, err
	}
	if t.m, err = parseDegField(line2[43:51], 2, "mean anomaly"); err != nil {
		return nil, err
	}
	nRevPerDay, err := strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	if err != nil {
		return nil, &FormatError{Line: 2, Field: "mean motion", Reason: err.Error()}
	}
	if t.revNum, err = strconv.Atoi(strings.TrimSpace(line2[63:68])); err != nil {
		return nil, &FormatError{Line: 2, Field: "revolution number", Reason: err.Error()}
	}

	// wire units to SI: rev/day → rad/s, with the conventional /2 and /6
	// factors on the derivatives
	t.n = nRevPerDay * twoPi / 86400
	t.nDot = nDotHalf * 2 * twoPi / (86400 * 86400)
	t.nDDot = nDDotSixth * 6 * twoPi / (86400 * 86400 * 86400)

	if err := t.validate(); err != nil {
		return nil, err
	}
	t.finishEpoch()
	return t, nil
}

func (t *TLE) validate() error {
	if t.ecc < 0 || t.ecc >= 1 {
		return &FormatError{Line: 2, Field: "eccentricity", Reason: fmt.Sprintf("%g outside [0,1)", t.ecc)}
	}
	if t.incl < 0 || t.incl > math.Pi {
		return &FormatError{Line: 2, Field: "inclination", Reason: fmt.Sprintf("%g rad outside [0,π]", t.incl)}
	}
	if t.n <= 0 {
		return &FormatError{Line: 2, Field: "mean motion", Reason: "must be positive"}
	}
	if v := math.Abs(t.nDot * 86400 * 86400 / (2 * twoPi)); v >= 1 {
		return &FormatError{Line: 1, Field: "mean motion first derivative", Reason: "not encodable in ±.NNNNNNNN"}
	}
	if v := math.Abs(t.bstar); v != 0 && (v >= 1e5 || v < 1e-14) {
		return &FormatError{Line: 1, Field: "B* drag term", Reason: "not encodable in ±NNNNN±N"}
	}
	if t.satNum < 0 || t.satNum > 339999 {
		return &FormatError{Line: 1, Field: "satellite number", Reason: "outside alpha-5 range"}
	}
	return nil
}

func (t *TLE) finishEpoch() {
	base := time.Date(t.epochYear, 1, 1, 0, 0, 0, 0, time.UTC)
	days := int(t.epochDay)
	frac := t.epochDay - float64(days)
	ns := int64(math.Round(frac * 86400 * 1e9))
	t.epoch = base.AddDate(0, 0, days-1).Add(time.Duration(ns))
	t.epochJD = julian.TimeToJD(t.epoch)
}

// Lines serializes the record back to its two fixed-width lines, checksums
// included. A record built by ParseTLE round-trips to an equivalent element
// set; a record built by Lines/ParseTLE is a byte-exact fixed point.
func (t *TLE) Lines() (string, string) {
	nRevPerDay := t.n * 86400 / twoPi
	nDotHalf := t.nDot * 86400 * 86400 / (2 * twoPi)
	nDDotSixth := t.nDDot * 86400 * 86400 * 86400 / (6 * twoPi)

	l1 := fmt.Sprintf("1 %s%c %-8s %02d%012.8f %s %s %s %c %4d",
		formatSatNum(t.satNum), t.classification, t.intlDesig,
		t.epochYear%100, t.epochDay,
		formatPointField(nDotHalf), formatExpField(nDDotSixth), formatExpField(t.bstar),
		t.ephType, t.elsetNum)
	l1 += strconv.Itoa(checksum(l1 + "0"))

	l2 := fmt.Sprintf("2 %s %8.4f %8.4f %07d %8.4f %8.4f %11.8f%5d",
		formatSatNum(t.satNum),
		t.incl*rad2deg, t.raan*rad2deg, int(math.Round(t.ecc*1e7)),
		t.argp*rad2deg, t.m*rad2deg, nRevPerDay, t.revNum)
	l2 += strconv.Itoa(checksum(l2 + "0"))
	return l1, l2
}

// Accessors. Angles are radians, rates rad/s; the *Deg variants export the
// wire convention.

func (t *TLE) SatelliteNumber() int    { return t.satNum }
func (t *TLE) Classification() byte    { return t.classification }
func (t *TLE) IntlDesignator() string  { return t.intlDesig }
func (t *TLE) EphemerisType() byte     { return t.ephType }
func (t *TLE) ElementNumber() int      { return t.elsetNum }
func (t *TLE) RevolutionNumber() int   { return t.revNum }
func (t *TLE) Epoch() time.Time        { return t.epoch }
func (t *TLE) EpochJulian() float64    { return t.epochJD }
func (t *TLE) MeanMotion() float64     { return t.n }
func (t *TLE) MeanMotionDot() float64  { return t.nDot }
func (t *TLE) MeanMotionDDot() float64 { return t.nDDot }
func (t *TLE) Eccentricity() float64   { return t.ecc }
func (t *TLE) Inclination() float64    { return t.incl }
func (t *TLE) RAAN() float64           { return t.raan }
func (t *TLE) ArgPerigee() float64     { return t.argp }
func (t *TLE) MeanAnomaly() float64    { return t.m }
func (t *TLE) Bstar() float64          { return t.bstar }
func (t *TLE) InclinationDeg() float64 { return t.incl * rad2deg }
func (t *TLE) RAANDeg() float64        { return t.raan * rad2deg }
func (t *TLE) ArgPerigeeDeg() float64  { return t.argp * rad2deg }
func (t *TLE) MeanAnomalyDeg() float64 { return t.m * rad2deg }

// LaunchYear returns the four-digit launch year from the international
// designator, or zero when the designator is absent.
func (t *TLE) LaunchYear() int {
	if len(t.intlDesig) < 2 {
		return 0
	}
	yy, err := strconv.Atoi(t.intlDesig[:2])
	if err != nil {
		return 0
	}
	if yy < 57 {
		return 2000 + yy
	}
	return 1900 + yy
}

// LaunchNumber returns the launch number of the year, or zero when absent.
func (t *TLE) LaunchNumber() int {
	if len(t.intlDesig) < 5 {
		return 0
	}
	num, err := strconv.Atoi(t.intlDesig[2:5])
	if err != nil {
		return 0
	}
	return num
}

// LaunchPiece returns the launch piece letters, or the empty string.
func (t *TLE) LaunchPiece() string {
	if len(t.intlDesig) <= 5 {
		return ""
	}
	return t.intlDesig[5:]
}

// Period returns the unperturbed orbital period derived from the mean motion.
func (t *TLE) Period() time.Duration {
	seconds := twoPi / t.n
	return time.Duration(seconds * float64(time.Second))
}

// WithElements returns a copy of the record carrying new mean elements.
// Mean motion n is rad/s, angles are radians. The drag term, identifiers and
// epoch are preserved.
func (t *TLE) WithElements(n, ecc, incl, raan, argp, m float64) (*TLE, error) {
	c := *t
	c.n = n
	c.ecc = ecc
	c.incl = incl
	c.raan = wrapTwoPi(raan)
	c.argp = wrapTwoPi(argp)
	c.m = wrapTwoPi(m)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WithBstar returns a copy of the record carrying a new drag term.
func (t *TLE) WithBstar(bstar float64) (*TLE, error) {
	c := *t
	c.bstar = bstar
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WithEpoch returns a copy of the record re-dated to the given epoch. The
// elements themselves are not propagated; callers fitting a TLE at a new
// epoch supply matching elements via WithElements.
func (t *TLE) WithEpoch(epoch time.Time) *TLE {
	c := *t
	epoch = epoch.UTC()
	c.epochYear = epoch.Year()
	startOfYear := time.Date(c.epochYear, 1, 1, 0, 0, 0, 0, time.UTC)
	c.epochDay = 1 + epoch.Sub(startOfYear).Seconds()/86400
	c.finishEpoch()
	return &c
}

func wrapTwoPi(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

// String implements the stringer interface.
func (t *TLE) String() string {
	l1, l2 := t.Lines()
	return l1 + "\n" + l2
}
