// skyconv converts horizontal coordinates to equatorial ones and precesses
// positions between the FK4 B1950 and FK5 J2000 frames.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/unklstewy/skyconv/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "skyconv",
	Short: "Astronomical coordinate conversions",
	Long: `skyconv converts an observed azimuth/elevation into right ascension and
declination, and precesses positions between B1950 (FK4) and J2000 (FK5).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(azelCmd)
	rootCmd.AddCommand(jprecessCmd)
	rootCmd.AddCommand(bprecessCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(mountCmd)

	rootCmd.PersistentFlags().String("config", "configs/config.json", "path to configuration file (JSON or TOML)")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig loads the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("json")
	return v
}
