package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the application",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(),
			"version=%s commit=%s built=%s go=%s arch=%s\n",
			build.BinVersion,
			build.CommitSHA,
			build.BuildTime,
			build.RuntimeVer,
			build.BuildArch,
		)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
