package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/config"
	"github.com/unklstewy/skyconv/pkg/coordinates"
)

var azelCmd = &cobra.Command{
	Use:   "azel2radec",
	Short: "Convert azimuth/elevation to right ascension/declination",
	Long: `Convert an observed azimuth and elevation into right ascension and
declination (J2000.0 unless --of-date).

Angles are degrees ("135:23", "75.0") unless --radians is given. The
observer comes from --lat/--lon, --site, or the configuration.`,
	Example: `  skyconv azel2radec --az 135:23 --el 75 --lat 42.38028 --lon -72.52361 --date 2009-04-15T08:15:04Z`,
	Args:    cobra.NoArgs,
	RunE:    runAzEl,
}

func init() {
	f := azelCmd.Flags()
	f.String("az", "", "azimuth, from north through east")
	f.String("el", "", "observed elevation")
	f.String("lat", "", "observer latitude in degrees")
	f.String("lon", "", "observer longitude in degrees, east positive")
	f.String("site", "", "observer site from the site registry")
	f.String("date", "", "observation time, RFC 3339 (default now)")
	f.Bool("radians", false, "read --az and --el as radians")
	f.Bool("of-date", false, "return the apparent place of date instead of J2000.0")
	f.Bool("no-refraction", false, "treat --el as a geometric altitude")
	f.Float64("pressure", coordinates.DefaultPressure, "atmospheric pressure in millibars")
	f.Float64("temperature", coordinates.DefaultTemperature, "air temperature in Celsius")
	azelCmd.MarkFlagRequired("az")
	azelCmd.MarkFlagRequired("el")
	azelCmd.MarkFlagsMutuallyExclusive("site", "lat")
	azelCmd.MarkFlagsMutuallyExclusive("site", "lon")
}

func runAzEl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()

	radians, _ := f.GetBool("radians")
	azText, _ := f.GetString("az")
	elText, _ := f.GetString("el")
	az, err := angleFlag(azText, radians)
	if err != nil {
		return fmt.Errorf("invalid --az: %w", err)
	}
	el, err := angleFlag(elText, radians)
	if err != nil {
		return fmt.Errorf("invalid --el: %w", err)
	}

	opts := cfg.Conversion.Options()
	if dateText, _ := f.GetString("date"); dateText != "" {
		date, err := time.Parse(time.RFC3339Nano, dateText)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		opts = append(opts, coordinates.WithDate(date))
	}
	if f.Changed("pressure") || f.Changed("temperature") {
		p, _ := f.GetFloat64("pressure")
		t, _ := f.GetFloat64("temperature")
		opts = append(opts, coordinates.WithAtmosphere(p, t))
	}
	if noRefr, _ := f.GetBool("no-refraction"); noRefr {
		opts = append(opts, coordinates.WithoutRefraction())
	}
	if ofDate, _ := f.GetBool("of-date"); ofDate {
		opts = append(opts, coordinates.WithEquinoxOfDate())
	}

	eq, site, err := convertAzEl(cmd, cfg, az, el, opts)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"ra":      angle.FormatHours(eq.RA),
			"dec":     angle.Format(eq.Dec),
			"raDeg":   eq.RA.Deg(),
			"decDeg":  eq.Dec.Deg(),
			"equinox": eq.Equinox,
			"time":    eq.Time,
			"site":    site,
		})
	}

	frame := "of date"
	if eq.Equinox != 0 {
		frame = "J" + strconv.FormatFloat(eq.Equinox, 'f', 1, 64)
	}
	fields := []field{
		{"RA", angle.FormatHours(eq.RA)},
		{"Dec", angle.Format(eq.Dec)},
		{"RA (deg)", strconv.FormatFloat(eq.RA.Deg(), 'f', 6, 64)},
		{"Dec (deg)", strconv.FormatFloat(eq.Dec.Deg(), 'f', 6, 64)},
		{"Equinox", frame},
		{"Time (UTC)", eq.Time.Format(time.RFC3339)},
	}
	if site != "" {
		fields = append(fields, field{"Site", site})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderBlock("azel2radec", fields))
	return nil
}

// convertAzEl resolves the observer and runs the conversion.
func convertAzEl(cmd *cobra.Command, cfg *config.Config, az, el angle.Input, opts []coordinates.Option) (coordinates.Equatorial, string, error) {
	f := cmd.Flags()
	latText, _ := f.GetString("lat")
	lonText, _ := f.GetString("lon")
	siteName, _ := f.GetString("site")

	if latText != "" || lonText != "" {
		eq, err := coordinates.AzElToRADec(az, el, optionalAngle(latText), optionalAngle(lonText), opts...)
		return eq, "", err
	}

	observer := cfg.Observer.Observer()
	if siteName != "" {
		site, err := lookupSite(cmd, cfg, siteName)
		if err != nil {
			return coordinates.Equatorial{}, "", err
		}
		observer = site.Observer()
	}

	azimuth, err := angle.Normalize("az", az)
	if err != nil {
		return coordinates.Equatorial{}, "", err
	}
	elevation, err := angle.Normalize("el", el)
	if err != nil {
		return coordinates.Equatorial{}, "", err
	}
	return observer.RADecOf(azimuth, elevation, opts...), siteName, nil
}

// angleFlag reads an angle flag as sexagesimal degrees or radians.
func angleFlag(text string, radians bool) (angle.Input, error) {
	if !radians {
		return angle.Sexagesimal(text), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return angle.Radians(v), nil
}

func optionalAngle(text string) angle.Input {
	if text == "" {
		return nil
	}
	return angle.Sexagesimal(text)
}
