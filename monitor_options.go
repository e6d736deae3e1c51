package snmpfetch

import (
	"errors"
	"log/slog"
	"time"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	fetchOpts       []Option
	roundCallbacks  []func(Round)
}

// MonitorOption is a function that configures a [Monitor] during construction.
//
// Built-in options: [WithPollingInterval], [WithPort], [WithMonitorLogger],
// [WithFetchOptions], [WithRoundCallback].
type MonitorOption func(*monitorConfig) error

// WithPollingInterval sets how often all hosts are collected from.
//
// Each round collects every host once; a round that outlasts the interval
// delays the next one. Defaults to 60 seconds if not specified.
//
// Example:
//
//	m, err := snmpfetch.NewMonitor(snmpfetch.BulkGet, hosts, varBinds,
//	    snmpfetch.WithPollingInterval(30 * time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) MonitorOption {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the API server.
//
// The API is available at http://localhost:<port>/api/hosts and metrics at
// /metrics. Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) MonitorOption {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMonitorLogger sets a custom [slog.Logger] for the monitor, its rounds
// and its HTTP server. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithFetchOptions sets the options used for every round, as if passed to
// [Fetch]. Options are validated by [NewMonitor].
//
// Example:
//
//	m, err := snmpfetch.NewMonitor(snmpfetch.Get, hosts, varBinds,
//	    snmpfetch.WithFetchOptions(
//	        snmpfetch.WithMaxActiveSessions(50),
//	        snmpfetch.WithConfig(snmpfetch.Config{Retries: 1, Timeout: time.Second}),
//	    ),
//	)
func WithFetchOptions(opts ...Option) MonitorOption {
	return func(cfg *monitorConfig) error {
		cfg.fetchOpts = append(cfg.fetchOpts, opts...)
		return nil
	}
}

// WithRoundCallback registers a function to be called after every round.
//
// The callback receives a [Round] with the round's [Result]. Multiple
// callbacks may be registered; they execute in registration order, after
// the round's snapshots have been stored.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations should
// dispatch work to a separate goroutine. Blocking callbacks will delay
// the processing of later rounds.
//
// Callbacks are invoked synchronously from a single goroutine. Panics within
// callbacks are recovered and logged; they do not stop the monitor.
//
// Example:
//
//	m, err := snmpfetch.NewMonitor(snmpfetch.Get, hosts, varBinds,
//	    snmpfetch.WithRoundCallback(func(r snmpfetch.Round) {
//	        for _, e := range r.Result.Failures() {
//	            log.Printf("ALERT: %v", e)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithRoundCallback(cb func(Round)) MonitorOption {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.roundCallbacks = append(cfg.roundCallbacks, cb)
		return nil
	}
}
