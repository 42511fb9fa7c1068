package main

import (
	"github.com/spf13/cobra"

	"scout/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(&VersionResponse{Build: version.Current()})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
