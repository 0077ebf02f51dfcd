package cmd

import (
	"fmt"

	"github.com/chunkytofustudios/analytics-gate/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "analytics-gate %s (built %s, %s)\n",
			build.FullVersion(), build.BuildTime, build.Environment)
	},
}
