package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/rfbridge/display"
	"github.com/teranos/rfbridge/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show rfbridge version information",
	Long:  `Display version, build time, commit hash, and platform information for the rfbridge binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(cmd.OutOrStdout(), info)
		}

		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s\n", info.Platform)
		fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
