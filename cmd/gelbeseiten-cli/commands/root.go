package commands

import (
	"context"
	"fmt"
	"os"

	"gelbeseiten-scraper/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	debug      *bool
)

var rootCmd = &cobra.Command{
	Use:           "gelbeseiten-cli",
	Short:         "gelbeseiten-cli scrapes business listings from gelbeseiten.de and validates the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if *debug {
			telemetry.InitSlog(true)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "Config file to use, by default gelbeseiten.json5 is searched for from the cwd upwards.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
}

// ExecuteContext runs the cli, the returned error has already been printed.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}
