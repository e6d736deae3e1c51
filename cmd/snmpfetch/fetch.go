package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/snmpfetch"
	"github.com/jpalmerr/snmpfetch/config"
)

// fetchCmd runs a single collection and prints the rows.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect once and print the rows",
	Long: `Collect every configured var bind from every configured host once.

Rows are printed as a table when stdout is a terminal and as JSON lines
otherwise. Collection errors are printed alongside the rows; they do not
change the exit code unless --strict is set.

Example:
  snmpfetch fetch -c config.yaml
  snmpfetch fetch -c config.yaml --pdu-type bulkget --format json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	fetchCmd.Flags().String("pdu-type", "", "override the configured pdu_type (get, next, bulkget)")
	fetchCmd.Flags().StringP("format", "f", "auto", "output format: auto, table or json")
	fetchCmd.Flags().Bool("strict", false, "exit non-zero when any host failed")
	_ = fetchCmd.MarkFlagRequired("config")
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pduType := cfg.PDU()
	if s, _ := cmd.Flags().GetString("pdu-type"); s != "" {
		if pduType, err = snmpfetch.ParsePDUType(s); err != nil {
			return err
		}
	}

	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	render, err := pickRenderer(format, out)
	if err != nil {
		return err
	}

	hosts, err := config.BuildHosts(cfg)
	if err != nil {
		return fmt.Errorf("failed to build hosts: %w", err)
	}
	varBinds, err := config.BuildVarBinds(cfg)
	if err != nil {
		return fmt.Errorf("failed to build var binds: %w", err)
	}

	// an interrupt disconnects the open sessions and ends the run
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := append(config.FetchOptions(cfg),
		snmpfetch.WithLogger(logger),
		snmpfetch.WithContext(ctx),
	)
	res, err := snmpfetch.Fetch(pduType, hosts, varBinds, opts...)
	if err != nil {
		return err
	}

	if err := render(out, hosts, res); err != nil {
		return err
	}

	failures := res.Failures()
	logger.Info("fetch completed",
		"hosts", len(hosts),
		"failures", len(failures),
		"warnings", len(res.Warnings()),
	)

	if strict, _ := cmd.Flags().GetBool("strict"); strict && len(failures) > 0 {
		return fmt.Errorf("%d collection errors", len(failures))
	}
	return nil
}

// renderer writes a result to w.
type renderer func(w io.Writer, hosts []snmpfetch.Host, res *snmpfetch.Result) error

// pickRenderer resolves the output format. "auto" prints a colored table to
// a terminal and JSON lines everywhere else.
func pickRenderer(format string, w io.Writer) (renderer, error) {
	switch format {
	case "json":
		return writeJSONLines, nil
	case "table":
		return tableRenderer(isTerminal(w)), nil
	case "auto", "":
		if isTerminal(w) {
			return tableRenderer(true), nil
		}
		return writeJSONLines, nil
	default:
		return nil, fmt.Errorf("unknown format %q (expected auto, table or json)", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
