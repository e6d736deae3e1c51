package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/snmpfetch"
	"github.com/jpalmerr/snmpfetch/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the monitor.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll on an interval and serve snapshots",
	Long: `Start snmpfetch in monitor mode.

The server will:
  - Load configuration from the specified YAML file
  - Collect every configured var bind from every host each poll interval
  - Serve per-host snapshots at /api/hosts, live updates at /api/sse
    and Prometheus metrics at /metrics

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  snmpfetch serve -c config.yaml
  snmpfetch serve --config /etc/snmpfetch/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"hosts", len(cfg.Hosts),
		"grids", len(cfg.Grids),
		"var_binds", len(cfg.VarBinds),
		"pdu_type", cfg.PDU().String(),
	)
	logger.Info("starting server",
		"port", cfg.Serve.Port,
		"poll_interval", cfg.Serve.PollInterval.Duration().String(),
	)

	hosts, err := config.BuildHosts(cfg)
	if err != nil {
		return fmt.Errorf("failed to build hosts: %w", err)
	}
	varBinds, err := config.BuildVarBinds(cfg)
	if err != nil {
		return fmt.Errorf("failed to build var binds: %w", err)
	}

	m, err := snmpfetch.NewMonitor(cfg.PDU(), hosts, varBinds,
		snmpfetch.WithPort(cfg.Serve.Port),
		snmpfetch.WithPollingInterval(cfg.Serve.PollInterval.Duration()),
		snmpfetch.WithMonitorLogger(logger),
		snmpfetch.WithFetchOptions(config.FetchOptions(cfg)...),
	)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
