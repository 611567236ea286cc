package cmd

import (
	"fmt"

	"github.com/ratersapp/siws/internal/utilities"
	"github.com/spf13/cobra"
)

var versionCmd = cobra.Command{
	Run:   showVersion,
	Use:   "version",
	Short: "Print the build version",
}

func showVersion(cmd *cobra.Command, args []string) {
	version := utilities.Version
	if version == "" {
		version = "unknown version"
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
}
