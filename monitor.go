package snmpfetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/metrics"
	"github.com/jpalmerr/snmpfetch/internal/poller"
	"github.com/jpalmerr/snmpfetch/internal/server"
	"github.com/jpalmerr/snmpfetch/internal/store"
)

const (
	defaultPollingInterval = 60 * time.Second
	defaultPort            = 8080
)

// Round is the outcome of one collection round of a [Monitor].
type Round struct {
	// ID identifies the round; it matches the round_id of the snapshots
	// the round produced.
	ID        string
	StartedAt time.Time
	Duration  time.Duration

	// Result is nil when Err is set.
	Result *Result

	// Err is set when the round panicked.
	Err error
}

// Monitor repeats a collection on an interval and serves the latest values
// of every host over HTTP.
//
// Monitor is created using [NewMonitor] with functional options and started
// with [Monitor.Start]. While running it serves:
//
//   - GET /api/hosts: the latest snapshot of every host, as JSON
//   - GET /api/hosts/{id}: the latest snapshot of one host
//   - GET /api/sse: snapshots as Server-Sent Events, as rounds complete
//   - GET /metrics: Prometheus metrics for sessions, errors, rows and rounds
//
// The typical lifecycle is:
//
//	m, err := snmpfetch.NewMonitor(snmpfetch.BulkGet, hosts, varBinds)
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
type Monitor struct {
	pduType         PDUType
	hosts           []Host
	varBinds        []VarBind
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	fetchOpts       []Option
	roundCallbacks  []func(Round)
}

// NewMonitor creates a new [Monitor] collecting varBinds from hosts.
//
// The same preconditions as [Fetch] apply. In addition, host ids must be
// unique since snapshots are keyed by id. Defaults:
//   - Polling interval: 60 seconds
//   - Port: 8080
//
// Returns an error if a precondition fails or any option is invalid.
func NewMonitor(pduType PDUType, hosts []Host, varBinds []VarBind, opts ...MonitorOption) (*Monitor, error) {
	cfg := &monitorConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// fetch options are applied per round; surface their errors now
	if _, err := newFetchConfig(cfg.fetchOpts); err != nil {
		return nil, err
	}

	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	if len(varBinds) == 0 {
		return nil, ErrNoVarBinds
	}
	if err := checkRoots(varBinds); err != nil {
		return nil, err
	}

	seen := make(map[uint64]bool, len(hosts))
	for _, h := range hosts {
		if seen[h.id] {
			return nil, fmt.Errorf("duplicate host id: %d", h.id)
		}
		seen[h.id] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		pduType:         pduType,
		hosts:           append([]Host(nil), hosts...),
		varBinds:        append([]VarBind(nil), varBinds...),
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		logger:          logger,
		fetchOpts:       cfg.fetchOpts,
		roundCallbacks:  cfg.roundCallbacks,
	}, nil
}

// Start begins collecting and serving.
//
// Start is a blocking call that runs until the provided context is cancelled.
// The first round starts immediately; later rounds start every polling
// interval. Cancelling the context aborts the round in progress.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("monitor starting",
		"host_count", len(m.hosts),
		"var_bind_count", len(m.varBinds),
		"pdu_type", m.pduType.String(),
	)
	m.logger.Info("polling configured", "interval", m.pollingInterval.String())

	if ctx.Err() != nil {
		return nil
	}

	roots := make([]string, len(m.varBinds))
	for i, vb := range m.varBinds {
		roots[i] = vb.OID.String()
	}
	collector := metrics.New(roots)
	snapshots := store.NewMemoryStore()

	runner := poller.NewIntervalRunner(m.pollingInterval, m.collect(collector), m.logger)
	runner.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for pr := range runner.Results() {
			collector.ObserveRound(pr.Duration)
			round := Round{
				ID:        pr.ID,
				StartedAt: pr.StartedAt,
				Duration:  pr.Duration,
				Err:       pr.Err,
			}
			if pr.Err != nil {
				m.logger.Error("round failed", "round_id", pr.ID, "error", pr.Err.Error())
			} else {
				round.Result = newResult(m.varBinds, pr.Columns, pr.Errors)
				// store first so callbacks see persisted data
				for _, s := range m.snapshots(round) {
					snapshots.Update(s)
				}
				m.logger.Info("round completed",
					"round_id", round.ID,
					"duration_ms", round.Duration.Milliseconds(),
					"failures", len(round.Result.Failures()),
					"warnings", len(round.Result.Warnings()),
				)
			}

			for _, cb := range m.roundCallbacks {
				invokeCallbackSafe(cb, round, m.logger)
			}
		}
	}()

	cleanup := func() {
		runner.Stop() // closes results channel
		wg.Wait()
	}

	httpServer := server.NewServer(snapshots, m.port, collector.Handler(), m.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	m.logger.Info("monitor stopped")
	return nil
}

// collect returns the round function of the monitor.
func (m *Monitor) collect(observer poller.Observer) poller.RoundFunc {
	return func(ctx context.Context) ([][]byte, []poller.Error) {
		opts := append([]Option{WithLogger(m.logger)}, m.fetchOpts...)
		opts = append(opts, WithContext(ctx), withObserver(observer))
		cfg, err := newFetchConfig(opts)
		if err != nil {
			// options were validated by NewMonitor
			panic(err)
		}
		return cfg.run(m.pduType, m.hosts, m.varBinds)
	}
}

// Hosts returns a copy of the monitored hosts.
func (m *Monitor) Hosts() []Host {
	cp := make([]Host, len(m.hosts))
	copy(cp, m.hosts)
	return cp
}

// Port returns the configured HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// PollingInterval returns the configured interval between rounds.
func (m *Monitor) PollingInterval() time.Duration {
	return m.pollingInterval
}

// invokeCallbackSafe calls a round callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Round), round Round, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("round callback panicked",
				"panic", r,
				"round_id", round.ID,
			)
		}
	}()
	cb(round)
}

