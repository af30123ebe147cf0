package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	scenarioName string
	iterations   int
	numNetworks  int
	seed         int64
	manyPrefixes bool
	randomRoot   bool
	numThreads   int
)

var rootCmd = &cobra.Command{
	Use:   "netsynth",
	Short: "Analysis front-end for the migration synthesizer",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\x1b[31mError:\x1b[0m %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&scenarioName, "scenario", "simple", "Scenario to run (simple, chain, carousel, firewall, firewall-plain, twin, twin-damped)")
	rootCmd.PersistentFlags().IntVar(&iterations, "iterations", 100, "Random orders sampled per network")
	rootCmd.PersistentFlags().IntVar(&numNetworks, "num-networks", 1, "Independent scenario instances to run")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 1, "Base RNG seed")
	rootCmd.PersistentFlags().BoolVar(&manyPrefixes, "many-prefixes", false, "Accepted for interface compatibility; the built-in scenarios ignore it")
	rootCmd.PersistentFlags().BoolVar(&randomRoot, "random-root", false, "Accepted for interface compatibility; the built-in scenarios ignore it")
	rootCmd.PersistentFlags().IntVar(&numThreads, "num-threads", 0, "Worker count recorded in the run config; no subcommand runs workers in parallel")
}
