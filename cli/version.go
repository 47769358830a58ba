package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of demandcast.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("demandcast CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
	},
}
