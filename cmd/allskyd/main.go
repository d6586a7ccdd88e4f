// Package main provides the allskyd CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openskies/allskyd/internal/version"
)

var cfgFile string //nolint:gochecknoglobals // CLI flag variable

func main() {
	rootCmd := &cobra.Command{
		Use:   "allskyd",
		Short: "Unattended all-sky camera exposure scheduler",
		Long: `allskyd keeps an all-sky camera exposing around the clock, walking
exposure duration along the solar altitude so frames stay usable from
full daylight through deep night.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.allskyd.yaml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(captureCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "allskyd %s\n", version.Version)
		},
	}
}
