package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/unklstewy/skyconv/pkg/precession"
)

var jprecessCmd = &cobra.Command{
	Use:     "jprecess",
	Short:   "Precess B1950 (FK4) positions to J2000 (FK5)",
	Example: `  skyconv jprecess --ra 0 --dec 0
  skyconv jprecess --ra 10,20 --dec 30,40 --epoch 1975`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrecess(cmd, "jprecess", precession.JPrecess)
	},
}

var bprecessCmd = &cobra.Command{
	Use:     "bprecess",
	Short:   "Precess J2000 (FK5) positions to B1950 (FK4)",
	Example: `  skyconv bprecess --ra 0.640691 --dec 0.278409`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrecess(cmd, "bprecess", precession.BPrecess)
	},
}

func init() {
	for _, c := range []*cobra.Command{jprecessCmd, bprecessCmd} {
		c.Flags().Float64Slice("ra", nil, "right ascension in degrees (comma separated for several)")
		c.Flags().Float64Slice("dec", nil, "declination in degrees (comma separated for several)")
		c.Flags().String("epoch", "", "equinox of the input (default B1950 for jprecess, J2000 for bprecess)")
		c.MarkFlagRequired("ra")
		c.MarkFlagRequired("dec")
	}
}

type precessor func(ra, dec precession.Coords, epoch precession.Epoch) (precession.Result, error)

func runPrecess(cmd *cobra.Command, name string, run precessor) error {
	raValues, _ := cmd.Flags().GetFloat64Slice("ra")
	decValues, _ := cmd.Flags().GetFloat64Slice("dec")
	epochText, _ := cmd.Flags().GetString("epoch")

	var epoch precession.Epoch
	if epochText != "" {
		epoch = precession.Token(epochText)
	}

	result, err := run(coordsOf(raValues), coordsOf(decValues), epoch)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		if result.IsVector() {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"ra": result.RA(), "dec": result.Dec()})
		}
		return writeJSON(cmd.OutOrStdout(), result.Position())
	}

	fields := make([]field, 0, 2*len(result.Positions))
	for i, p := range result.Positions {
		prefix := ""
		if result.IsVector() {
			prefix = fmt.Sprintf("[%d] ", i)
		}
		fields = append(fields,
			field{prefix + "RA, Dec (deg)", strconv.FormatFloat(p.RA, 'f', 6, 64) + ", " + strconv.FormatFloat(p.Dec, 'f', 6, 64)},
			field{prefix + "RA, Dec", p.String()},
		)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderBlock(name, fields))
	return nil
}

// coordsOf returns a scalar for a single value and a sequence otherwise.
func coordsOf(values []float64) precession.Coords {
	if len(values) == 1 {
		return precession.Scalar(values[0])
	}
	return precession.Sequence(values)
}
