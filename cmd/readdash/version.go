package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/readdash"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the readdash version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "readdash %s\n", readdash.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
