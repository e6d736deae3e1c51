package main

import (
	"fmt"

	"github.com/jpalmerr/snmpfetch/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without contacting any agent.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an snmpfetch configuration file without contacting any agent.

This command parses the YAML, expands environment variables, validates
all fields and expands host grids. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  snmpfetch validate -c config.yaml
  snmpfetch validate --config /etc/snmpfetch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// grid expansion catches template keys missing from the dimensions
	hosts, err := config.BuildHosts(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	direct := len(cfg.Hosts)
	fromGrids := len(hosts) - direct

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  PDU type:      %s\n", cfg.PDU())
	fmt.Fprintf(out, "  Var binds:     %d\n", len(cfg.VarBinds))
	fmt.Fprintf(out, "  Max sessions:  %d\n", cfg.MaxActiveSessions)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Serve.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.Serve.PollInterval.Duration())
	fmt.Fprintf(out, "  Hosts:         %d direct + %d from grids = %d total\n",
		direct, fromGrids, len(hosts))

	return nil
}
