package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/unklstewy/skyconv/internal/db"
	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/config"
)

// siteTimeout bounds each registry command.
const siteTimeout = 15 * time.Second

var errRegistryDisabled = errors.New("site registry is disabled (set database.enabled in the config)")

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage named observer sites",
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List observer sites",
	Args:  cobra.NoArgs,
	RunE:  runSitesList,
}

var sitesAddCmd = &cobra.Command{
	Use:     "add <name>",
	Short:   "Add an observer site",
	Example: `  skyconv sites add Amherst --lat 42.38028 --lon -72.52361 --default`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSitesAdd,
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an observer site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSites(cmd, func(ctx context.Context, repo *db.SiteRepository) error {
			if err := repo.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Removed "+args[0]))
			return nil
		})
	},
}

var sitesDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Make a site the default observer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSites(cmd, func(ctx context.Context, repo *db.SiteRepository) error {
			if err := repo.SetDefault(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(args[0]+" is now the default site"))
			return nil
		})
	},
}

func init() {
	f := sitesAddCmd.Flags()
	f.String("lat", "", "latitude in degrees")
	f.String("lon", "", "longitude in degrees, east positive")
	f.Float64("elevation", 0, "elevation in meters")
	f.Float64("pressure", 0, "atmospheric pressure in millibars (default from config)")
	f.Float64("temperature", 0, "air temperature in Celsius (default from config)")
	f.Bool("default", false, "make this the default site")
	sitesAddCmd.MarkFlagRequired("lat")
	sitesAddCmd.MarkFlagRequired("lon")

	sitesCmd.AddCommand(sitesListCmd, sitesAddCmd, sitesRemoveCmd, sitesDefaultCmd)
}

func runSitesList(cmd *cobra.Command, args []string) error {
	return withSites(cmd, func(ctx context.Context, repo *db.SiteRepository) error {
		sites, err := repo.List(ctx)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return writeJSON(cmd.OutOrStdout(), sites)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Observer sites (%d):", len(sites))))
		if len(sites) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("  No sites registered"))
		}
		for _, s := range sites {
			marker := "  "
			if s.IsDefault {
				marker = "* "
			}
			fmt.Fprintf(out, "%s%s  %s\n", marker, valueStyle.Render(fmt.Sprintf("%-20s", s.Name)), formatSite(s))
		}
		return nil
	})
}

func runSitesAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	site, err := siteFromFlags(cmd, cfg, args[0])
	if err != nil {
		return err
	}

	return withSites(cmd, func(ctx context.Context, repo *db.SiteRepository) error {
		if err := repo.Create(ctx, site); err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderBlock("Added "+site.Name, []field{
			{"Location", formatSite(*site)},
			{"Default", strconv.FormatBool(site.IsDefault)},
		}))
		return nil
	})
}

// siteFromFlags builds a site from the add flags. Atmosphere not given on
// the command line comes from the configured observer.
func siteFromFlags(cmd *cobra.Command, cfg *config.Config, name string) (*db.Site, error) {
	f := cmd.Flags()
	latText, _ := f.GetString("lat")
	lonText, _ := f.GetString("lon")

	lat, err := angle.Parse(latText)
	if err != nil {
		return nil, fmt.Errorf("invalid --lat: %w", err)
	}
	lon, err := angle.Parse(lonText)
	if err != nil {
		return nil, fmt.Errorf("invalid --lon: %w", err)
	}

	site := &db.Site{
		Name:         name,
		Latitude:     lat.Deg(),
		Longitude:    lon.Deg(),
		PressureMbar: cfg.Observer.Pressure,
		TemperatureC: cfg.Observer.Temperature,
	}
	site.ElevationMeters, _ = f.GetFloat64("elevation")
	site.IsDefault, _ = f.GetBool("default")
	if f.Changed("pressure") {
		site.PressureMbar, _ = f.GetFloat64("pressure")
	}
	if f.Changed("temperature") {
		site.TemperatureC, _ = f.GetFloat64("temperature")
	}
	return site, site.Validate()
}

func formatSite(s db.Site) string {
	return fmt.Sprintf("%.5f°, %.5f°  %.0f m  %.0f mbar  %.1f °C",
		s.Latitude, s.Longitude, s.ElevationMeters, s.PressureMbar, s.TemperatureC)
}

// lookupSite fetches one site for commands that take --site.
func lookupSite(cmd *cobra.Command, cfg *config.Config, name string) (*db.Site, error) {
	var site *db.Site
	err := withSitesConfig(cmd.Context(), cfg, func(ctx context.Context, repo *db.SiteRepository) error {
		var err error
		site, err = repo.GetByName(ctx, name)
		return err
	})
	return site, err
}

func withSites(cmd *cobra.Command, fn func(context.Context, *db.SiteRepository) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return withSitesConfig(cmd.Context(), cfg, fn)
}

// withSitesConfig connects to the registry, makes sure the schema exists,
// and runs fn with a repository.
func withSitesConfig(ctx context.Context, cfg *config.Config, fn func(context.Context, *db.SiteRepository) error) error {
	if !cfg.Database.Enabled {
		return errRegistryDisabled
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, siteTimeout)
	defer cancel()

	database, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		return err
	}
	return fn(ctx, db.NewSiteRepository(database))
}
