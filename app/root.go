// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "atlvs",
	Short: "ATLVS is the multi-tenant authorization and data core for GHXSTSHIP",
	Long: `ATLVS is the multi-tenant authorization and data core for GHXSTSHIP
productions. It serves tenant-scoped view data with live change propagation
and enforces compiled row-level access policies on every read and write.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
