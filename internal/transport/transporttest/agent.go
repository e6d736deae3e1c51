// Package transporttest provides an in-memory [transport.Transport] for tests.
//
// A [Transport] routes conns by address to [Agent] values. Each agent serves a
// sorted table of variables with GET, GETNEXT and GETBULK semantics and can be
// scripted to fail in the ways a real network does: refusing to open, staying
// silent until retries are exhausted, disconnecting, failing to send, or
// answering with an error status, the wrong PDU or no PDU at all.
//
// Responses are delivered synchronously from Send, so runs are deterministic.
package transporttest

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// Agent is a scripted in-memory agent.
//
// The zero value answers every request from an empty table.
type Agent struct {
	vars []transport.Variable

	// OpenErr makes Open fail for this agent.
	OpenErr error
	// SendErr makes every Send fail synchronously.
	SendErr error
	// Silent agents never answer; each expiry produces a resend until the
	// target's retries are exhausted, then a timeout.
	Silent bool
	// Disconnect answers every request with OpDisconnect.
	Disconnect bool
	// ProbeFail answers every request with OpSendFailed.
	ProbeFail bool
	// NilResponse answers with OpReceived but no response.
	NilResponse bool
	// ResponseType overrides the PDU type of responses when non-zero.
	ResponseType transport.PDUType
	// ErrorStatus and ErrorIndex are set on every response when non-zero.
	ErrorStatus int64
	ErrorIndex  int64
	// Resends is the number of OpResend events posted before each answer.
	Resends int
	// Respond, when set, replaces the table lookup entirely.
	Respond func(req *transport.Request) *transport.Response

	mu       sync.Mutex
	requests []transport.Request
}

// NewAgent creates an agent serving vars. The variables are sorted by OID.
func NewAgent(vars ...transport.Variable) *Agent {
	a := &Agent{vars: append([]transport.Variable(nil), vars...)}
	sort.Slice(a.vars, func(i, j int) bool {
		return oid.Compare(a.vars[i].OID, a.vars[j].OID) < 0
	})
	return a
}

// Var builds an octet-string variable, a convenience for tables.
func Var(name string, value string) transport.Variable {
	return transport.Variable{OID: oid.MustParse(name), Type: transport.TypeOctetString, Value: []byte(value)}
}

// Requests returns a copy of every request the agent has received.
func (a *Agent) Requests() []transport.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]transport.Request(nil), a.requests...)
}

func (a *Agent) record(req *transport.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *req
	cp.OIDs = make([]oid.OID, len(req.OIDs))
	for i, o := range req.OIDs {
		cp.OIDs[i] = o.Clone()
	}
	a.requests = append(a.requests, cp)
}

// answer computes the response for req from the table.
func (a *Agent) answer(req *transport.Request) *transport.Response {
	if a.Respond != nil {
		return a.Respond(req)
	}

	resp := &transport.Response{
		Type:        transport.GetResponse,
		ErrorStatus: a.ErrorStatus,
		ErrorIndex:  a.ErrorIndex,
	}
	if a.ResponseType != 0 {
		resp.Type = a.ResponseType
	}

	switch req.Type {
	case transport.GetRequest:
		for _, o := range req.OIDs {
			resp.Variables = append(resp.Variables, a.get(o))
		}
	case transport.GetNextRequest:
		for _, o := range req.OIDs {
			resp.Variables = append(resp.Variables, a.next(o))
		}
	case transport.GetBulkRequest:
		resp.Variables = a.bulk(req)
	}
	return resp
}

func (a *Agent) get(o oid.OID) transport.Variable {
	i := a.search(o)
	if i < len(a.vars) && oid.Compare(a.vars[i].OID, o) == 0 {
		return a.vars[i]
	}
	return transport.Variable{OID: o.Clone(), Type: transport.TypeNoSuchObject}
}

func (a *Agent) next(o oid.OID) transport.Variable {
	i := a.search(o)
	if i < len(a.vars) && oid.Compare(a.vars[i].OID, o) == 0 {
		i++
	}
	if i < len(a.vars) {
		return a.vars[i]
	}
	return transport.Variable{OID: o.Clone(), Type: transport.TypeEndOfMibView}
}

// bulk interleaves repetitions across the requested columns. A column that
// runs off the end of the table reports one end-of-view marker and stops.
func (a *Agent) bulk(req *transport.Request) []transport.Variable {
	reps := req.MaxRepetitions
	if reps <= 0 {
		reps = 1
	}
	cursors := make([]oid.OID, len(req.OIDs))
	copy(cursors, req.OIDs)
	done := make([]bool, len(req.OIDs))

	var out []transport.Variable
	for r := 0; r < reps; r++ {
		for i := range cursors {
			if done[i] {
				continue
			}
			v := a.next(cursors[i])
			out = append(out, v)
			if v.Type == transport.TypeEndOfMibView {
				done[i] = true
				continue
			}
			cursors[i] = v.OID
		}
	}
	return out
}

// search returns the index of the first variable not less than o.
func (a *Agent) search(o oid.OID) int {
	return sort.Search(len(a.vars), func(i int) bool {
		return oid.Compare(a.vars[i].OID, o) >= 0
	})
}

// Transport routes conns to agents by address.
type Transport struct {
	mu     sync.Mutex
	agents map[string]*Agent
	open   int
	peak   int
	opened []transport.Target
}

// New creates an empty [Transport].
func New() *Transport {
	return &Transport{agents: make(map[string]*Agent)}
}

// Add registers agent under address and returns it.
func (t *Transport) Add(address string, agent *Agent) *Agent {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.agents[address] = agent
	return agent
}

// Open implements [transport.Transport]. Unknown addresses fail to open.
func (t *Transport) Open(target transport.Target, events chan<- transport.Event) (transport.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	agent, ok := t.agents[target.Address]
	if !ok {
		return nil, errors.New("unknown host " + target.Address)
	}
	if agent.OpenErr != nil {
		return nil, agent.OpenErr
	}

	t.open++
	t.peak = max(t.peak, t.open)
	t.opened = append(t.opened, target)
	return &conn{t: t, agent: agent, target: target, events: events}, nil
}

// OpenConns returns the number of conns currently open.
func (t *Transport) OpenConns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// PeakConns returns the largest number of conns that were open at once.
func (t *Transport) PeakConns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// Targets returns every target that was successfully opened, in order.
func (t *Transport) Targets() []transport.Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]transport.Target(nil), t.opened...)
}

type conn struct {
	t      *Transport
	agent  *Agent
	target transport.Target
	events chan<- transport.Event

	pending bool
	due     time.Time
	expired int
	closed  bool
}

func (c *conn) Send(req *transport.Request) error {
	if c.closed {
		return errors.New("conn closed")
	}
	c.agent.record(req)
	if c.agent.SendErr != nil {
		return c.agent.SendErr
	}

	c.pending = true
	c.due = time.Now()
	c.expired = 0
	if c.agent.Silent {
		return nil
	}

	for i := 0; i < c.agent.Resends; i++ {
		c.post(transport.OpResend, nil)
	}

	switch {
	case c.agent.Disconnect:
		c.finish(transport.OpDisconnect, nil)
	case c.agent.ProbeFail:
		c.finish(transport.OpSendFailed, nil)
	case c.agent.NilResponse:
		c.finish(transport.OpReceived, nil)
	default:
		c.finish(transport.OpReceived, c.agent.answer(req))
	}
	return nil
}

// Deadline is the time of the last send, so silent agents expire without
// tests having to sleep.
func (c *conn) Deadline() time.Time {
	if !c.pending {
		return time.Time{}
	}
	return c.due
}

func (c *conn) Expire() (transport.Event, bool) {
	if !c.pending {
		return transport.Event{}, false
	}
	retries := c.target.Retries
	if retries < 0 {
		retries = 0
	}
	if c.expired < retries {
		c.expired++
		return transport.Event{Tag: c.target.Tag, Op: transport.OpResend}, true
	}
	c.pending = false
	return transport.Event{Tag: c.target.Tag, Op: transport.OpTimedOut}, true
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.t.mu.Lock()
	c.t.open--
	c.t.mu.Unlock()
	return nil
}

func (c *conn) finish(op transport.Op, resp *transport.Response) {
	c.pending = false
	c.post(op, resp)
}

func (c *conn) post(op transport.Op, resp *transport.Response) {
	c.events <- transport.Event{Tag: c.target.Tag, Op: op, Response: resp}
}
