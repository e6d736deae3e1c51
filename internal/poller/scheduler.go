package poller

import (
	"log/slog"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// Options configures a [Scheduler]. Zero values select the defaults.
type Options struct {
	// Config is the caller default, used for hosts without their own.
	// Nil selects [DefaultConfig].
	Config *Config

	// MaxActiveSessions bounds the number of open sessions.
	// Zero or negative selects [DefaultMaxActiveSessions].
	MaxActiveSessions int

	Logger   *slog.Logger
	Observer Observer

	// Now stamps result rows. Nil selects time.Now.
	Now func() time.Time
}

// Scheduler runs collections against many hosts over one [transport.Transport].
//
// Each call to [Scheduler.Run] is a single-goroutine loop that keeps at most
// MaxActiveSessions sessions open, sends one request per idle session per
// round and waits on the transport's events channel for outcomes. A Scheduler
// holds no per-run state and may run collections concurrently.
type Scheduler struct {
	transport transport.Transport
	opts      Options
}

// NewScheduler creates a [Scheduler] that opens conns through t.
func NewScheduler(t transport.Transport, opts Options) *Scheduler {
	if opts.MaxActiveSessions <= 0 {
		opts.MaxActiveSessions = DefaultMaxActiveSessions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{transport: t, opts: opts}
}

// Run collects varBinds from every host and blocks until all hosts are done.
//
// It returns one result column per root, in root order, each a sequence of
// rows in the internal/row format, and the error log of the run. Collection
// failures never abort the run; they are recorded in the log and end only
// the affected host's work.
//
// Roots must not overlap. Callers are expected to check this beforehand.
func (s *Scheduler) Run(kind transport.PDUType, hosts []Host, varBinds []VarBind) ([][]byte, []Error) {
	r := &run{
		kind:      kind,
		varBinds:  varBinds,
		results:   make([][]byte, len(varBinds)),
		events:    make(chan transport.Event, 16*(s.opts.MaxActiveSessions+1)),
		sessions:  make(map[uint64]*session),
		transport: s.transport,
		cfg:       s.opts.Config,
		logger:    s.opts.Logger,
		observer:  s.opts.Observer,
		now:       s.opts.Now,
	}

	pending := append([]Host(nil), hosts...)
	next := 0

	start := time.Now()
	r.logger.Debug("collection started",
		"pdu_type", kind.String(),
		"hosts", len(hosts),
		"var_binds", len(varBinds),
		"max_active_sessions", s.opts.MaxActiveSessions,
	)

	for next < len(pending) || len(r.active) > 0 {
		r.sweep()

		for len(r.active) < s.opts.MaxActiveSessions && next < len(pending) {
			r.admit(&pending[next])
			next++
		}

		r.dispatch()
		r.read()
	}

	r.logger.Debug("collection finished",
		"duration", time.Since(start),
		"errors", len(r.errors),
	)
	return r.results, r.errors
}

// run is the state of one call to Run.
type run struct {
	kind     transport.PDUType
	varBinds []VarBind
	results  [][]byte
	errors   []Error

	events   chan transport.Event
	sessions map[uint64]*session // by tag
	active   []*session
	open     int
	nextTag  uint64

	transport transport.Transport
	cfg       *Config
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
}

// record appends e to the error log, stamped with a snapshot of host.
func (r *run) record(host *Host, e Error) {
	e.Host = host.snapshot()
	r.errors = append(r.errors, e)
	r.observer.ErrorRecorded(e)
	r.logger.Debug("collection error",
		"host_id", host.ID,
		"hostname", host.Hostname,
		"type", e.Type.String(),
		"message", e.Message,
	)
}

// sweep advances the partition queue of every idle session and reaps
// sessions with no work left.
func (r *run) sweep() {
	kept := r.active[:0]
	for _, s := range r.active {
		if s.status != statusIdle {
			kept = append(kept, s)
			continue
		}

		if len(s.partitions) > 0 {
			front := s.partitions[0]
			if exhausted(front) {
				s.partitions = s.partitions[1:]
			} else {
				copy(s.partitions, s.partitions[1:])
				s.partitions[len(s.partitions)-1] = front
			}
		}

		if len(s.partitions) == 0 {
			r.close(s)
			continue
		}
		kept = append(kept, s)
	}
	clear(r.active[len(kept):])
	r.active = kept
}

// admit opens a session for host. A host that cannot be opened is recorded
// and skipped.
func (r *run) admit(host *Host) {
	cfg := resolveConfig(host.Config, r.cfg)

	if len(host.Communities) == 0 {
		r.record(host, Error{Type: SessionError, Message: "host has no community"})
		return
	}
	community := host.Communities[0]

	r.nextTag++
	tag := r.nextTag

	conn, err := r.transport.Open(transport.Target{
		Tag:       tag,
		Address:   host.Hostname,
		Community: community.String,
		Version:   community.Version,
		Retries:   cfg.Retries,
		Timeout:   cfg.Timeout,
	}, r.events)
	if err != nil {
		r.record(host, Error{Type: SessionError, Message: err.Error(), Cause: err})
		return
	}

	s := &session{
		tag:        tag,
		host:       host,
		conn:       conn,
		status:     statusIdle,
		cfg:        cfg,
		partitions: partition(r.varBinds, cfg.VarBindsPerPDU),
		run:        r,
	}
	r.sessions[tag] = s
	r.active = append(r.active, s)

	r.open++
	r.observer.SessionOpened(host.ID, r.open)
	r.logger.Debug("session opened",
		"host_id", host.ID,
		"hostname", host.Hostname,
		"partitions", len(s.partitions),
	)
}

func (r *run) close(s *session) {
	if err := s.conn.Close(); err != nil {
		r.logger.Debug("session close failed", "host_id", s.host.ID, "error", err)
	}
	delete(r.sessions, s.tag)
	r.open--
	r.observer.SessionClosed(s.host.ID, r.open)
	r.logger.Debug("session closed", "host_id", s.host.ID, "hostname", s.host.Hostname)
}

// dispatch sends one request for the front partition of every idle session.
func (r *run) dispatch() {
	for _, s := range r.active {
		if s.status != statusIdle || len(s.partitions) == 0 {
			continue
		}

		req, err := transport.NewRequest(r.kind)
		if err != nil {
			s.fail(Error{Type: CreateRequestPDUError, Message: err.Error(), Cause: err})
			continue
		}
		if r.kind == transport.GetBulkRequest {
			req.NonRepeaters = 0
			req.MaxRepetitions = s.cfg.BulkRepetitions
		}
		for _, o := range s.front() {
			if o != nil {
				req.Add(o)
			}
		}
		if len(req.OIDs) == 0 {
			continue
		}

		s.status = statusWaiting
		if err := s.conn.Send(req); err != nil {
			s.status = statusIdle
			s.fail(Error{Type: SendError, Message: err.Error(), Cause: err})
		}
	}
}

// read waits for the next event or the earliest deadline among sessions with
// an outstanding request, then applies every event already queued and
// expires every session whose deadline has passed.
func (r *run) read() {
	var (
		waiting  int
		deadline time.Time
	)
	for _, s := range r.active {
		if s.status == statusIdle {
			continue
		}
		waiting++
		if d := s.conn.Deadline(); !d.IsZero() && (deadline.IsZero() || d.Before(deadline)) {
			deadline = d
		}
	}
	if waiting == 0 {
		return
	}

	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case ev := <-r.events:
		r.deliver(ev)
	case <-expired:
	}
	r.drain()
	r.expire()
}

func (r *run) drain() {
	for {
		select {
		case ev := <-r.events:
			r.deliver(ev)
		default:
			return
		}
	}
}

func (r *run) deliver(ev transport.Event) {
	s, ok := r.sessions[ev.Tag]
	if !ok || s.status == statusIdle {
		r.logger.Debug("dropping stale event", "tag", ev.Tag, "op", ev.Op.String())
		return
	}
	s.apply(ev)
}

func (r *run) expire() {
	now := time.Now()
	for _, s := range r.active {
		if s.status == statusIdle {
			continue
		}
		d := s.conn.Deadline()
		if d.IsZero() || now.Before(d) {
			continue
		}
		if ev, ok := s.conn.Expire(); ok {
			r.logger.Debug("request expired", "host_id", s.host.ID, "op", ev.Op.String())
			s.apply(ev)
		}
	}
}
