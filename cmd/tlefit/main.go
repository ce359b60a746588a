package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/spf13/cobra"

	"github.com/meliorbit/tlefit"
)

var (
	logger   log.Logger
	tleFile  string
	elapsed  float64
	withBsta bool
	posOnly  bool
)

var rootCmd = &cobra.Command{
	Use:   "tlefit",
	Short: "SGP4/SDP4 propagation, partial derivatives and element fitting",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	},
	SilenceUsage: true,
}

var propagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Propagate a TLE and print the TEME state",
	RunE: func(cmd *cobra.Command, args []string) error {
		tle, err := loadTLE(tleFile)
		if err != nil {
			return err
		}
		prop, err := tlefit.NewPropagator(tle)
		if err != nil {
			return err
		}
		st, err := prop.Propagate(elapsed)
		if err != nil {
			return err
		}
		fmt.Printf("sat %d  deep=%v resonance=%s\n", tle.SatelliteNumber(), prop.DeepSpace(), prop.Resonance())
		fmt.Printf("r = [%.3f %.3f %.3f] m\n", st.Position[0], st.Position[1], st.Position[2])
		fmt.Printf("v = [%.6f %.6f %.6f] m/s\n", st.Velocity[0], st.Velocity[1], st.Velocity[2])
		return nil
	},
}

var partialsCmd = &cobra.Command{
	Use:   "partials",
	Short: "Print the state transition matrix at an elapsed time",
	RunE: func(cmd *cobra.Command, args []string) error {
		tle, err := loadTLE(tleFile)
		if err != nil {
			return err
		}
		params := tlefit.NewParameterSet(tle)
		if withBsta {
			if err := params.Select(tlefit.ParamBstar); err != nil {
				return err
			}
		}
		_, jac, err := tlefit.PropagatePartials(tle, params, elapsed)
		if err != nil {
			return err
		}
		stm := jac.StateTransitionMatrix()
		fmt.Println("d(state)/d(n,e,i,raan,argp,M):")
		for r := 0; r < 6; r++ {
			for c := 0; c < 6; c++ {
				fmt.Printf(" % .9e", stm.At(r, c))
			}
			fmt.Println()
		}
		if dp := jac.ParametersJacobian(); dp != nil {
			fmt.Println("d(state)/d(bstar):")
			for r := 0; r < 6; r++ {
				fmt.Printf(" % .9e\n", dp.At(r, 0))
			}
		}
		return nil
	},
}

var fitCmd = &cobra.Command{
	Use:   "fit ephemeris.csv",
	Short: "Fit the TLE to a CSV ephemeris (t_s,x,y,z,vx,vy,vz in m, m/s)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tle, err := loadTLE(tleFile)
		if err != nil {
			return err
		}
		obs, err := loadEphemeris(args[0])
		if err != nil {
			return err
		}
		opts := tlefit.DefaultLMOptions()
		opts.EstimateBstar = withBsta
		opts.PositionOnly = posOnly
		fitter := tlefit.NewLMFitter(opts, logger)
		res, err := fitter.Fit(tle, obs)
		if err != nil {
			return err
		}
		l1, l2 := res.TLE.Lines()
		fmt.Printf("rms=%.6g iterations=%d\n%s\n%s\n", res.RMS, res.Iterations, l1, l2)
		return nil
	},
}

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Propagate a TLE, then recover its elements from the single state",
	RunE: func(cmd *cobra.Command, args []string) error {
		tle, err := loadTLE(tleFile)
		if err != nil {
			return err
		}
		prop, err := tlefit.NewPropagator(tle)
		if err != nil {
			return err
		}
		st, err := prop.Propagate(elapsed)
		if err != nil {
			return err
		}
		gen := tlefit.NewFixedPointGenerator(tlefit.DefaultFixedPointConfig(), logger)
		fitted, err := gen.Generate(tlefit.TimedState{Elapsed: elapsed, State: st}, tle)
		if err != nil {
			return err
		}
		l1, l2 := fitted.Lines()
		fmt.Printf("%s\n%s\n", l1, l2)
		return nil
	},
}

// loadTLE reads the first two element lines of a file, skipping blank lines
// and an optional satellite name line.
func loadTLE(path string) (*tlefit.TLE, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if len(line) == 0 {
			continue
		}
		if strings.HasPrefix(line, "1 ") || strings.HasPrefix(line, "2 ") {
			lines = append(lines, line)
		}
		if len(lines) == 2 {
			return tlefit.ParseTLE(lines[0], lines[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: no element lines found", path)
}

func loadEphemeris(path string) ([]tlefit.TimedState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rd := csv.NewReader(f)
	rd.FieldsPerRecord = 7
	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	obs := make([]tlefit.TimedState, 0, len(records))
	for i, rec := range records {
		var vals [7]float64
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
			}
			vals[j] = v
		}
		obs = append(obs, tlefit.TimedState{
			Elapsed: vals[0],
			State: tlefit.StateVector{
				Position: [3]float64{vals[1], vals[2], vals[3]},
				Velocity: [3]float64{vals[4], vals[5], vals[6]},
			},
		})
	}
	return obs, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&tleFile, "tle", "t", "", "file holding the two element lines")
	rootCmd.MarkPersistentFlagRequired("tle")
	rootCmd.PersistentFlags().Float64VarP(&elapsed, "elapsed", "e", 0, "seconds since the element epoch")
	partialsCmd.Flags().BoolVar(&withBsta, "bstar", false, "include the drag partial column")
	fitCmd.Flags().BoolVar(&withBsta, "bstar", false, "estimate B* alongside the elements")
	fitCmd.Flags().BoolVar(&posOnly, "position-only", false, "fit position residuals only")
	rootCmd.AddCommand(propagateCmd, partialsCmd, fitCmd, roundtripCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
