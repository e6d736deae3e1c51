package snmpfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/poller"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// fetchConfig holds mutable state while a collection is being set up.
type fetchConfig struct {
	config            *Config
	maxActiveSessions int
	transport         transport.Transport
	port              uint16
	ctx               context.Context
	logger            *slog.Logger
	clock             func() time.Time
	observer          poller.Observer
}

func newFetchConfig(opts []Option) (*fetchConfig, error) {
	cfg := &fetchConfig{
		maxActiveSessions: DefaultMaxActiveSessions,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Option configures a single call to [Fetch].
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [Fetch] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithConfig], [WithMaxActiveSessions], [WithTransport],
// [WithAgentPort], [WithContext], [WithLogger], [WithClock].
type Option func(*fetchConfig) error

// WithConfig sets the collection settings for hosts that have none of their
// own. Defaults to [DefaultConfig].
//
// Example:
//
//	res, err := snmpfetch.Fetch(snmpfetch.BulkGet, hosts, varBinds,
//	    snmpfetch.WithConfig(snmpfetch.Config{
//	        Retries:         1,
//	        Timeout:         time.Second,
//	        VarBindsPerPDU:  20,
//	        BulkRepetitions: 25,
//	    }),
//	)
//
// Returns an error if any field is negative.
func WithConfig(c Config) Option {
	return func(cfg *fetchConfig) error {
		if err := c.validate(); err != nil {
			return err
		}
		cfg.config = &c
		return nil
	}
}

// WithMaxActiveSessions bounds how many hosts are collected from at the
// same time. Defaults to 10.
//
// Returns an error if the value is zero or negative.
func WithMaxActiveSessions(n int) Option {
	return func(cfg *fetchConfig) error {
		if n <= 0 {
			return errors.New("max active sessions must be positive")
		}
		cfg.maxActiveSessions = n
		return nil
	}
}

// WithTransport replaces the default UDP transport. It exists so the
// packages of this module can collect from in-memory agents.
//
// Returns an error if t is nil.
func WithTransport(t transport.Transport) Option {
	return func(cfg *fetchConfig) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = t
		return nil
	}
}

// WithAgentPort sets the UDP port used for hostnames that do not carry one.
// Defaults to 161. Ignored when [WithTransport] is used.
//
// Returns an error if the port is zero.
func WithAgentPort(port int) Option {
	return func(cfg *fetchConfig) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("agent port must be between 1 and 65535, got %d", port)
		}
		cfg.port = uint16(port)
		return nil
	}
}

// WithContext bounds the collection by ctx. Cancelling ctx aborts every
// outstanding request; the affected hosts are reported with
// TRANSPORT_DISCONNECT_ERROR and the run returns what it has collected.
// Ignored when [WithTransport] is used.
//
// Returns an error if ctx is nil.
func WithContext(ctx context.Context) Option {
	return func(cfg *fetchConfig) error {
		if ctx == nil {
			return errors.New("context cannot be nil")
		}
		cfg.ctx = ctx
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the collection.
//
// Session lifecycle and error log entries are written at debug level.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *fetchConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithClock sets the function used to stamp result rows. Defaults to
// time.Now.
//
// Returns an error if now is nil.
func WithClock(now func() time.Time) Option {
	return func(cfg *fetchConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = now
		return nil
	}
}

// withObserver attaches engine hooks; used by [Monitor] for metrics.
func withObserver(o poller.Observer) Option {
	return func(cfg *fetchConfig) error {
		cfg.observer = o
		return nil
	}
}
