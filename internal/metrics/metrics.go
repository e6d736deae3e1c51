// Package metrics exports collection activity as Prometheus metrics.
//
// A [Collector] implements the engine's observer hooks and owns its own
// registry, so several collectors can live in one process without clashing
// on the default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/snmpfetch/internal/poller"
)

const namespace = "snmpfetch"

// Collector records sessions, errors, rows and round durations.
type Collector struct {
	registry *prometheus.Registry

	sessionsOpened prometheus.Counter
	activeSessions prometheus.Gauge
	errors         *prometheus.CounterVec
	rows           *prometheus.CounterVec
	roundDuration  prometheus.Histogram
	rounds         prometheus.Counter

	// labels maps a column index to its var_bind label value
	labels []string
}

// New creates a [Collector]. varBinds are the root identifiers of the
// collection, in column order, used to label row counts.
func New(varBinds []string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		labels:   append([]string(nil), varBinds...),

		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions opened to hosts.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently open.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Entries added to the error log, by type.",
		}, []string{"type"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Result rows appended, by root identifier.",
		}, []string{"var_bind"}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall time of a collection round.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Collection rounds completed.",
		}),
	}

	c.registry.MustRegister(
		c.sessionsOpened,
		c.activeSessions,
		c.errors,
		c.rows,
		c.roundDuration,
		c.rounds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRound records a finished round.
func (c *Collector) ObserveRound(d time.Duration) {
	c.rounds.Inc()
	c.roundDuration.Observe(d.Seconds())
}

// SessionOpened implements [poller.Observer].
func (c *Collector) SessionOpened(_ uint64, active int) {
	c.sessionsOpened.Inc()
	c.activeSessions.Set(float64(active))
}

// SessionClosed implements [poller.Observer].
func (c *Collector) SessionClosed(_ uint64, active int) {
	c.activeSessions.Set(float64(active))
}

// ErrorRecorded implements [poller.Observer].
func (c *Collector) ErrorRecorded(e poller.Error) {
	c.errors.WithLabelValues(e.Type.String()).Inc()
}

// RowAppended implements [poller.Observer].
func (c *Collector) RowAppended(column int) {
	c.rows.WithLabelValues(c.label(column)).Inc()
}

func (c *Collector) label(column int) string {
	if column >= 0 && column < len(c.labels) {
		return c.labels[column]
	}
	return strconv.Itoa(column)
}

var _ poller.Observer = (*Collector)(nil)
