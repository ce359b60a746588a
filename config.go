package tlefit

import (
	"os"
	"sync"

	"github.com/spf13/viper"
)

var (
	cfgOnce sync.Once
	config  = _tlefitconfig{}
)

// _tlefitconfig is a "hidden" struct, just use `tlefitConfig`
type _tlefitconfig struct {
	FixedPointEpsilon float64
	FixedPointMaxIter int
	FixedPointScale   float64
	LMMaxIter         int
	LMLambdaInit      float64
	PositionOnly      bool
}

func defaultConfig() _tlefitconfig {
	return _tlefitconfig{
		FixedPointEpsilon: 1e-10,
		FixedPointMaxIter: 100,
		FixedPointScale:   1.0,
		LMMaxIter:         50,
		LMLambdaInit:      1e-3,
	}
}

// tlefitConfig returns the fitting configuration. A conf.toml in the
// directory named by TLEFIT_CONFIG overrides the defaults; without the
// environment variable or the file, the defaults stand.
func tlefitConfig() _tlefitconfig {
	cfgOnce.Do(func() {
		config = defaultConfig()
		confPath := os.Getenv("TLEFIT_CONFIG")
		if confPath == "" {
			return
		}
		v := viper.New()
		v.SetConfigName("conf")
		v.AddConfigPath(confPath)
		if err := v.ReadInConfig(); err != nil {
			return
		}
		if v.IsSet("fixedpoint.epsilon") {
			config.FixedPointEpsilon = v.GetFloat64("fixedpoint.epsilon")
		}
		if v.IsSet("fixedpoint.max_iterations") {
			config.FixedPointMaxIter = v.GetInt("fixedpoint.max_iterations")
		}
		if v.IsSet("fixedpoint.scale") {
			config.FixedPointScale = v.GetFloat64("fixedpoint.scale")
		}
		if v.IsSet("lm.max_iterations") {
			config.LMMaxIter = v.GetInt("lm.max_iterations")
		}
		if v.IsSet("lm.lambda_init") {
			config.LMLambdaInit = v.GetFloat64("lm.lambda_init")
		}
		if v.IsSet("lm.position_only") {
			config.PositionOnly = v.GetBool("lm.position_only")
		}
	})
	return config
}
