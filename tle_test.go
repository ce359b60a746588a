package tlefit

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vanguard1 = "1 00005U 58002B   00179.78495062  .00000023  00000-0  28098-4 0  4753"
	vanguard2 = "2 00005  34.2682 348.7242 1859667 331.7664  19.3264 10.82419157413667"
	gps1      = "1 37753U 11036A   12090.13205652 -.00000006  00000-0  00000+0 0  2272"
	gps2      = "2 37753  55.0032 176.5796 0004733  13.2285 346.8266  2.00565440  5153"
	geo1      = "1 26451U 00034A   24001.00000000  .00000000  00000-0  00000+0 0   992"
	geo2      = "2 26451   0.0000   0.0000 0000100   0.0000   0.0000  1.00273790    11"
	alpha1    = "1 A7853U 21001A   24032.50000000  .00000012  00000-0  10270-3 0   125"
	alpha2    = "2 A7853  97.4500 167.6810 0012345  78.1200 282.0000 15.11111111    19"
	molniya1  = "1 40111U 14050A   24015.50000000  .00000100  00000-0  10000-3 0   990"
	molniya2  = "2 40111  63.4000  80.0000 7200000 270.0000  10.0000  2.00610000 12348"
	incgeo1   = "1 40222U 15001A   24020.50000000  .00000000  00000-0  00000+0 0   990"
	incgeo2   = "2 40222  10.0000  45.0000 0005000  30.0000 330.0000  1.00271000   120"
)

func mustParse(t *testing.T, l1, l2 string) *TLE {
	t.Helper()
	tle, err := ParseTLE(l1, l2)
	require.NoError(t, err)
	return tle
}

func TestParseFields(t *testing.T) {
	tle := mustParse(t, vanguard1, vanguard2)
	assert.Equal(t, 5, tle.SatelliteNumber())
	assert.Equal(t, byte('U'), tle.Classification())
	assert.Equal(t, "58002B", tle.IntlDesignator())
	assert.Equal(t, 1958, tle.LaunchYear())
	assert.Equal(t, 2, tle.LaunchNumber())
	assert.Equal(t, "B", tle.LaunchPiece())
	assert.Equal(t, 475, tle.ElementNumber())
	assert.Equal(t, 41366, tle.RevolutionNumber())

	assert.InDelta(t, 34.2682, tle.InclinationDeg(), 1e-12)
	assert.InDelta(t, 348.7242, tle.RAANDeg(), 1e-12)
	assert.InDelta(t, 0.1859667, tle.Eccentricity(), 1e-12)
	assert.InDelta(t, 331.7664, tle.ArgPerigeeDeg(), 1e-12)
	assert.InDelta(t, 19.3264, tle.MeanAnomalyDeg(), 1e-12)
	assert.InDelta(t, 10.82419157, tle.MeanMotion()*86400/twoPi, 1e-9)
	assert.InDelta(t, 2.8098e-5, tle.Bstar(), 1e-12)
	assert.Equal(t, 2000, tle.Epoch().Year())
	assert.InDelta(t, 86400/10.82419157, tle.Period().Seconds(), 0.01)
}

func TestParseEpoch(t *testing.T) {
	tle := mustParse(t, geo1, geo2)
	// day 1.0 of 2024 is Jan 1 00:00 UTC
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), tle.Epoch())
	assert.InDelta(t, 2460310.5, tle.EpochJulian(), 1e-9)
}

func TestSemanticRoundTrip(t *testing.T) {
	for _, lines := range [][2]string{
		{vanguard1, vanguard2},
		{gps1, gps2},
		{geo1, geo2},
		{alpha1, alpha2},
	} {
		orig := mustParse(t, lines[0], lines[1])
		l1, l2 := orig.Lines()
		re, err := ParseTLE(l1, l2)
		require.NoError(t, err, "serialized lines must parse:\n%s\n%s", l1, l2)

		assert.Equal(t, orig.SatelliteNumber(), re.SatelliteNumber())
		assert.Equal(t, orig.IntlDesignator(), re.IntlDesignator())
		assert.InDelta(t, orig.MeanMotion(), re.MeanMotion(), 1e-15)
		assert.InDelta(t, orig.Eccentricity(), re.Eccentricity(), 1e-10)
		assert.InDelta(t, orig.Inclination(), re.Inclination(), 1e-9)
		assert.InDelta(t, orig.RAAN(), re.RAAN(), 1e-9)
		assert.InDelta(t, orig.ArgPerigee(), re.ArgPerigee(), 1e-9)
		assert.InDelta(t, orig.MeanAnomaly(), re.MeanAnomaly(), 1e-9)
		assert.InDelta(t, orig.Bstar(), re.Bstar(), math.Abs(orig.Bstar())*1e-9)
		assert.True(t, orig.Epoch().Equal(re.Epoch()))
	}
}

func TestSerializationFixedPoint(t *testing.T) {
	orig := mustParse(t, vanguard1, vanguard2)
	l1a, l2a := orig.Lines()
	re := mustParse(t, l1a, l2a)
	l1b, l2b := re.Lines()
	assert.Equal(t, l1a, l1b)
	assert.Equal(t, l2a, l2b)
}

func TestChecksumMutationDetected(t *testing.T) {
	// flip one digit in the body of each line
	for _, tc := range []struct {
		name   string
		l1, l2 string
		line   int
	}{
		{"line1", vanguard1[:25] + "9" + vanguard1[26:], vanguard2, 1},
		{"line2", vanguard1, vanguard2[:30] + "1" + vanguard2[31:], 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTLE(tc.l1, tc.l2)
			var cerr *ChecksumError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.line, cerr.Line)
			assert.NotEqual(t, cerr.Expected, cerr.Actual)
			assert.Contains(t, err.Error(), "checksum")
		})
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	var ferr *FormatError

	_, err := ParseTLE(vanguard1[:68], vanguard2)
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 1, ferr.Line)

	_, err = ParseTLE(strings.Replace(vanguard1, "1 ", "3 ", 1), vanguard2)
	assert.Error(t, err)

	// satellite numbers must agree between the lines
	_, err = ParseTLE(vanguard1, gps2)
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 2, ferr.Line)
	assert.Equal(t, "satellite number", ferr.Field)
}

func TestAlpha5Numbering(t *testing.T) {
	tle := mustParse(t, alpha1, alpha2)
	assert.Equal(t, 107853, tle.SatelliteNumber())
	l1, _ := tle.Lines()
	assert.Equal(t, "A7853", l1[2:7])

	// the alpha-5 alphabet skips I and O
	assert.NotContains(t, alpha5Letters, "I")
	assert.NotContains(t, alpha5Letters, "O")
	assert.Len(t, alpha5Letters, 24)
}

func TestWithElementsPreservesIdentity(t *testing.T) {
	orig := mustParse(t, gps1, gps2)
	mod, err := orig.WithElements(orig.MeanMotion()*1.001, 0.01, orig.Inclination(),
		orig.RAAN(), orig.ArgPerigee(), orig.MeanAnomaly())
	require.NoError(t, err)
	assert.Equal(t, orig.SatelliteNumber(), mod.SatelliteNumber())
	assert.Equal(t, orig.Bstar(), mod.Bstar())
	assert.InDelta(t, 0.01, mod.Eccentricity(), 0)
	// the original is untouched
	assert.InDelta(t, 0.0004733, orig.Eccentricity(), 1e-12)

	_, err = orig.WithElements(orig.MeanMotion(), 1.5, orig.Inclination(),
		orig.RAAN(), orig.ArgPerigee(), orig.MeanAnomaly())
	assert.Error(t, err)
}

func TestWithBstarValidates(t *testing.T) {
	orig := mustParse(t, vanguard1, vanguard2)
	mod, err := orig.WithBstar(1e-4)
	require.NoError(t, err)
	assert.Equal(t, 1e-4, mod.Bstar())
	_, err = orig.WithBstar(1e6)
	assert.Error(t, err)
}

func TestWithEpochRedates(t *testing.T) {
	orig := mustParse(t, geo1, geo2)
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	mod := orig.WithEpoch(at)
	assert.True(t, mod.Epoch().Equal(at))
	assert.Equal(t, orig.MeanMotion(), mod.MeanMotion())
}

func TestExpFieldCodec(t *testing.T) {
	for _, v := range []float64{2.8098e-5, -1.1606e-4, 0.5, 9.9999e-5} {
		f := formatExpField(v)
		assert.Len(t, f, 8)
		back, err := parseExpField(f, 1, "field")
		require.NoError(t, err)
		assert.InDelta(t, v, back, math.Abs(v)*1e-4)
	}
	assert.Equal(t, " 00000+0", formatExpField(0))
}

func TestErrorsUnwrap(t *testing.T) {
	_, err := ParseTLE("garbage", vanguard2)
	var ferr *FormatError
	assert.True(t, errors.As(err, &ferr))
}
