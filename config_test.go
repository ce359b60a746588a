package tlefit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	c := defaultConfig()
	assert.Equal(t, 1e-10, c.FixedPointEpsilon)
	assert.Equal(t, 100, c.FixedPointMaxIter)
	assert.Equal(t, 1.0, c.FixedPointScale)
	assert.Equal(t, 50, c.LMMaxIter)
	assert.Equal(t, 1e-3, c.LMLambdaInit)
	assert.False(t, c.PositionOnly)
}

func TestDefaultFixedPointConfigMatchesDefaults(t *testing.T) {
	fp := DefaultFixedPointConfig()
	assert.Equal(t, 1e-10, fp.Epsilon)
	assert.Equal(t, 100, fp.MaxIterations)
	assert.Equal(t, 1.0, fp.Scale)

	lm := DefaultLMOptions()
	assert.Equal(t, 50, lm.MaxIterations)
	assert.Equal(t, 1e-3, lm.LambdaInit)
}

func TestGeneratorFloorsInvalidConfig(t *testing.T) {
	g := NewFixedPointGenerator(FixedPointConfig{}, nil)
	assert.Equal(t, 1e-10, g.cfg.Epsilon)
	assert.Equal(t, 100, g.cfg.MaxIterations)
	assert.Equal(t, 1.0, g.cfg.Scale)

	f := NewLMFitter(LMOptions{}, nil)
	assert.Equal(t, 50, f.opts.MaxIterations)
	assert.Equal(t, 1e-3, f.opts.LambdaInit)
}
