package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"

	"github.com/unklstewy/skyconv/pkg/alpaca"
	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/coordinates"
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Convert the az/el reported by an Alpaca mount",
	Long: `Read altitude and azimuth from an ASCOM Alpaca telescope mount, convert
them to right ascension and declination of date, and compare the result
with the mount's own RA/Dec.`,
	Example: `  skyconv mount --url http://localhost:11111 --site Amherst`,
	Args:    cobra.NoArgs,
	RunE:    runMount,
}

func init() {
	f := mountCmd.Flags()
	f.String("url", "", "Alpaca server URL (default from config)")
	f.Int("device", 0, "Alpaca telescope device number (default from config)")
	f.String("site", "", "observer site from the site registry")
	f.Duration("timeout", 10*time.Second, "overall timeout")
}

// mountReport compares a converted pointing with the mount's own RA/Dec.
type mountReport struct {
	Pointing  alpaca.Pointing `json:"pointing"`
	RAHours   float64         `json:"raHours"`
	DecDeg    float64         `json:"decDeg"`
	DeltaRA   float64         `json:"deltaRaArcsec"`
	DeltaDec  float64         `json:"deltaDecArcsec"`
	Separated float64         `json:"separationArcsec"`
	Site      string          `json:"site,omitempty"`

	// ExpectedAz and ExpectedAlt are where the mount's own RA/Dec lies,
	// geometric and without refraction, in degrees.
	ExpectedAz  float64 `json:"expectedAz"`
	ExpectedAlt float64 `json:"expectedAlt"`
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.Mount.BaseURL, _ = f.GetString("url")
	}
	if f.Changed("device") {
		cfg.Mount.DeviceNumber, _ = f.GetInt("device")
	}

	observer := cfg.Observer.Observer()
	siteName, _ := f.GetString("site")
	if siteName != "" {
		site, err := lookupSite(cmd, cfg, siteName)
		if err != nil {
			return err
		}
		observer = site.Observer()
	}

	timeout, _ := f.GetDuration("timeout")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := alpaca.NewClient(cfg.Mount).Pointing(ctx)
	if err != nil {
		return fmt.Errorf("failed to read mount: %w", err)
	}

	opts := append(cfg.Conversion.Options(), coordinates.WithDate(p.ReadAt), coordinates.WithEquinoxOfDate())
	eq := observer.RADecOf(unit.AngleFromDeg(p.Azimuth), unit.AngleFromDeg(p.Altitude), opts...)
	report := compareMount(p, eq)
	report.Site = siteName

	hz := coordinates.EquatorialToHorizontal(coordinates.EquatorialCoordinates{
		RightAscension: p.RightAscension,
		Declination:    p.Declination,
	}, observer, p.ReadAt)
	report.ExpectedAz, report.ExpectedAlt = hz.Azimuth, hz.Altitude

	if jsonOutput(cmd) {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	mountRA := unit.RAFromHour(p.RightAscension)
	mountDec := unit.AngleFromDeg(p.Declination)
	fields := []field{
		{"Az / El", strconv.FormatFloat(p.Azimuth, 'f', 5, 64) + "°, " + strconv.FormatFloat(p.Altitude, 'f', 5, 64) + "°"},
		{"Converted", angle.FormatHours(eq.RA) + "  " + angle.Format(eq.Dec)},
		{"Mount", angle.FormatHours(mountRA) + "  " + angle.Format(mountDec)},
		{"ΔRA, ΔDec", fmt.Sprintf("%.1f\", %.1f\"", report.DeltaRA, report.DeltaDec)},
		{"Separation", fmt.Sprintf("%.1f\"", report.Separated)},
		{"Az / El of RA/Dec", strconv.FormatFloat(hz.Azimuth, 'f', 5, 64) + "°, " + strconv.FormatFloat(hz.Altitude, 'f', 5, 64) + "° (geometric)"},
		{"Read at", p.ReadAt.Format(time.RFC3339)},
	}
	if siteName != "" {
		fields = append(fields, field{"Site", siteName})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderBlock("mount", fields))
	return nil
}

// compareMount measures the converted position against the mount's RA/Dec.
// ΔRA is scaled by cos(dec) so both deltas are on-sky arcseconds.
func compareMount(p alpaca.Pointing, eq coordinates.Equatorial) mountReport {
	raHours := eq.RA.Hour()
	decDeg := eq.Dec.Deg()

	dRA := math.Remainder(raHours-p.RightAscension, 24) * 15 * 3600
	dRA *= math.Cos(decDeg * math.Pi / 180)
	dDec := (decDeg - p.Declination) * 3600

	return mountReport{
		Pointing:  p,
		RAHours:   raHours,
		DecDeg:    decDeg,
		DeltaRA:   dRA,
		DeltaDec:  dDec,
		Separated: separation(unit.Angle(eq.RA), eq.Dec, unit.Angle(unit.RAFromHour(p.RightAscension)), unit.AngleFromDeg(p.Declination)),
	}
}

// separation is the angular distance between two positions, in arcseconds.
func separation(ra1, dec1, ra2, dec2 unit.Angle) float64 {
	sd1, cd1 := dec1.Sincos()
	sd2, cd2 := dec2.Sincos()
	c := sd1*sd2 + cd1*cd2*math.Cos((ra1 - ra2).Rad())
	return unit.Angle(math.Acos(math.Max(-1, math.Min(1, c)))).Deg() * 3600
}
