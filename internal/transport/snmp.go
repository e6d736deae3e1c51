package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/jpalmerr/snmpfetch/internal/oid"
)

// defaults applied when a target asks for the transport's own settings
const (
	defaultPort    = 161
	defaultRetries = 3
	defaultTimeout = 3 * time.Second

	// expiryGrace is added to a request's retry window before Deadline
	// reports it as due, leaving gosnmp room to report its own timeout.
	expiryGrace = 500 * time.Millisecond
)

// SNMP is a [Transport] backed by gosnmp over UDP.
//
// gosnmp calls are blocking, so each [Conn.Send] runs the request in its own
// goroutine and posts the outcome to the events channel. Retries happen
// inside gosnmp and are surfaced as OpResend events through its OnRetry hook.
//
// Cancelling the context passed to [NewSNMP] aborts every in-flight request;
// affected conns report OpDisconnect.
type SNMP struct {
	ctx    context.Context
	port   uint16
	logger *slog.Logger
}

// SNMPOption configures an [SNMP] transport.
type SNMPOption func(*SNMP)

// WithPort sets the UDP port used when a target address has none.
func WithPort(port uint16) SNMPOption {
	return func(t *SNMP) {
		t.port = port
	}
}

// WithLogger sets the logger for transport events.
func WithLogger(logger *slog.Logger) SNMPOption {
	return func(t *SNMP) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewSNMP creates an [SNMP] transport. If ctx is nil, context.Background()
// is used.
func NewSNMP(ctx context.Context, opts ...SNMPOption) *SNMP {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &SNMP{
		ctx:    ctx,
		port:   defaultPort,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open implements [Transport].
func (t *SNMP) Open(target Target, events chan<- Event) (Conn, error) {
	host, port, err := splitAddress(target.Address, t.port)
	if err != nil {
		return nil, err
	}

	version := gosnmp.Version2c
	if target.Version == Version1 {
		version = gosnmp.Version1
	}

	retries := target.Retries
	if retries < 0 {
		retries = defaultRetries
	}
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithCancel(t.ctx)
	c := &snmpConn{
		tag:    target.Tag,
		events: events,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		window: timeout*time.Duration(retries+1) + expiryGrace,
		logger: t.logger,
	}
	c.client = &gosnmp.GoSNMP{
		Target:    host,
		Port:      port,
		Transport: "udp",
		Community: target.Community,
		Version:   version,
		Timeout:   timeout,
		Retries:   retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
		OnRetry:   c.onRetry,
	}

	if err := c.client.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect %s: %w", target.Address, err)
	}
	// unblock an outstanding read when the caller's context ends
	context.AfterFunc(ctx, func() {
		_ = c.client.Conn.Close()
	})
	return c, nil
}

// snmpConn tracks the single outstanding request on a gosnmp client.
type snmpConn struct {
	tag    uint64
	events chan<- Event
	client *gosnmp.GoSNMP
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed by Close
	window time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	seq      uint64 // bumped on every send and expiry; stale goroutines drop their result
	pending  bool
	deadline time.Time
	closed   bool
}

// Send implements [Conn].
func (c *snmpConn) Send(req *Request) error {
	oids := make([]string, len(req.OIDs))
	for i, o := range req.OIDs {
		oids[i] = o.String()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return net.ErrClosed
	}
	if c.pending {
		c.mu.Unlock()
		return errors.New("request already outstanding")
	}
	c.seq++
	seq := c.seq
	c.pending = true
	c.deadline = time.Now().Add(c.window)
	c.mu.Unlock()

	go c.do(seq, req.Type, oids, req.NonRepeaters, req.MaxRepetitions)
	return nil
}

// do runs one blocking gosnmp request and reports its outcome.
func (c *snmpConn) do(seq uint64, t PDUType, oids []string, nonRepeaters, maxRepetitions int) {
	var (
		packet *gosnmp.SnmpPacket
		err    error
	)
	switch t {
	case GetRequest:
		packet, err = c.client.Get(oids)
	case GetNextRequest:
		packet, err = c.client.GetNext(oids)
	case GetBulkRequest:
		packet, err = c.client.GetBulk(oids, uint8(nonRepeaters), uint32(maxRepetitions))
	default:
		err = fmt.Errorf("unsupported request type %s", t)
	}

	if err != nil {
		op := c.classify(err)
		c.logger.Debug("snmp request failed", "tag", c.tag, "op", op.String(), "error", err)
		c.finish(seq, Event{Tag: c.tag, Op: op})
		return
	}
	c.finish(seq, Event{Tag: c.tag, Op: OpReceived, Response: convertPacket(packet)})
}

// onRetry is gosnmp's retransmission hook.
func (c *snmpConn) onRetry(*gosnmp.GoSNMP) {
	c.mu.Lock()
	live := c.pending && !c.closed
	c.mu.Unlock()
	if live {
		c.post(Event{Tag: c.tag, Op: OpResend})
	}
}

// finish posts a terminal event unless the request was expired or the conn closed.
func (c *snmpConn) finish(seq uint64, ev Event) {
	c.mu.Lock()
	if seq != c.seq || !c.pending || c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.deadline = time.Time{}
	c.mu.Unlock()
	c.post(ev)
}

// post delivers ev unless the conn is closed first. A cancelled context
// still delivers, so the run sees the disconnect.
func (c *snmpConn) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *snmpConn) classify(err error) Op {
	if c.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return OpDisconnect
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return OpTimedOut
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return OpTimedOut
	}
	return OpSendFailed
}

// Deadline implements [Conn].
func (c *snmpConn) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// Expire implements [Conn]. gosnmp retransmits on its own, so an expiry past
// the whole retry window is always terminal.
func (c *snmpConn) Expire() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending || c.closed {
		return Event{}, false
	}
	c.seq++
	c.pending = false
	c.deadline = time.Time{}
	return Event{Tag: c.tag, Op: OpTimedOut}, true
}

// Close implements [Conn]. Safe to call multiple times.
func (c *snmpConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = false
	c.mu.Unlock()

	close(c.done)
	var err error
	if c.client.Conn != nil {
		err = c.client.Conn.Close()
	}
	c.cancel()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// convertPacket maps a gosnmp packet onto a [Response].
func convertPacket(p *gosnmp.SnmpPacket) *Response {
	if p == nil {
		return nil
	}
	resp := &Response{
		Type:        PDUType(p.PDUType),
		ErrorStatus: int64(p.Error),
		ErrorIndex:  int64(p.ErrorIndex),
		Variables:   make([]Variable, 0, len(p.Variables)),
	}
	for _, v := range p.Variables {
		name, err := oid.Parse(v.Name)
		if err != nil {
			continue
		}
		resp.Variables = append(resp.Variables, Variable{
			OID:   name,
			Type:  uint8(v.Type),
			Value: encodeValue(v),
		})
	}
	return resp
}

// encodeValue renders a gosnmp value as raw bytes.
func encodeValue(v gosnmp.SnmpPDU) []byte {
	switch val := v.Value.(type) {
	case nil:
		return nil
	case []byte:
		return append([]byte(nil), val...)
	case string:
		switch v.Type {
		case gosnmp.ObjectIdentifier:
			if o, err := oid.Parse(val); err == nil {
				return o.Bytes()
			}
		case gosnmp.IPAddress:
			if ip := net.ParseIP(val).To4(); ip != nil {
				return []byte(ip)
			}
		}
		return []byte(val)
	case int:
		return le64(uint64(int64(val)))
	case int32:
		return le64(uint64(int64(val)))
	case int64:
		return le64(uint64(val))
	case uint:
		return le64(uint64(val))
	case uint32:
		return le64(uint64(val))
	case uint64:
		return le64(val)
	case float32:
		return le64(math.Float64bits(float64(val)))
	case float64:
		return le64(math.Float64bits(val))
	case bool:
		if val {
			return le64(1)
		}
		return le64(0)
	default:
		return []byte(fmt.Sprint(val))
	}
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// splitAddress splits "host[:port]" falling back to defPort.
func splitAddress(address string, defPort uint16) (string, uint16, error) {
	if address == "" {
		return "", 0, errors.New("empty address")
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// no port present
		return strings.Trim(address, "[]"), defPort, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in address %q", address)
	}
	return host, uint16(port), nil
}
