package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/rfbridge/am"
	"github.com/teranos/rfbridge/cmd/rfbridge/commands"
	"github.com/teranos/rfbridge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rfbridge",
	Short: "rfbridge - stream samples through hardware FFT blocks",
	Long: `rfbridge - bridge a hardware FFT and keep-one-in-N block chain to software sample streams.

Samples pushed on the ingress port are sent into the FFT block; the reduced
spectrum is received from the keep-one-in-N block and pushed downstream with
a stream descriptor describing the frequency axis.

Available commands:
  run      - Claim the blocks and stream until interrupted
  am       - Manage rfbridge configuration ("I am")
  version  - Show build information

Examples:
  rfbridge run --tone-hz 125000     # Loop a test tone through the simulated device
  rfbridge am show --format json    # Show current configuration
  rfbridge am set bridge.fft_size 512`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep stdout clean for machine-readable output
		if cmd.Name() == "show" || cmd.Name() == "get" {
			return nil
		}

		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if cfg, err := am.Load(); err == nil {
			logger.SetTheme(cfg.GetLogTheme())
			jsonLogs = jsonLogs || cfg.Log.JSON
		}
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
