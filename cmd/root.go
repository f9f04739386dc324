// Package cmd implements the dispenser CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dispenser",
	Short: "Treat dispenser control service",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI with the build version injected from main.
func Execute(v string) error {
	version = v
	return rootCmd.Execute()
}
