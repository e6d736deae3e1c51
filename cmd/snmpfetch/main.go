// Package main is the entry point for the snmpfetch CLI.
//
// snmpfetch can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	snmpfetch fetch -c config.yaml    # Collect once and print the rows
//	snmpfetch serve -c config.yaml    # Poll on an interval and serve snapshots
//	snmpfetch validate -c config.yaml # Validate configuration
//	snmpfetch version                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "snmpfetch",
	Short: "Bulk SNMP collection across many agents",
	Long: `snmpfetch collects SNMP subtrees from many agents concurrently.

It walks each configured root with GET, GETNEXT or GETBULK requests,
keeping a bounded number of sessions open at once, and returns one
fixed-width row per collected value.

Quick start:
  1. Create a config file (snmpfetch.yaml)
  2. Run: snmpfetch fetch -c snmpfetch.yaml

Example config:
  pdu_type: bulkget
  community: public
  var_binds:
    - oid: .1.3.6.1.2.1.2.2.1.2
      oid_size: 128
      value_size: 64
  hosts:
    - id: 1
      hostname: 10.0.0.1`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this snmpfetch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "snmpfetch %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log session lifecycle at debug level")
}

// newLogger creates a JSON logger on stderr for CLI use.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
