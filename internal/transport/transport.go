// Package transport defines the boundary between the polling engine and the
// protocol library that talks to remote agents.
//
// The engine opens one [Conn] per host through a [Transport], sends at most
// one [Request] at a time on it, and learns about outcomes through [Event]
// values delivered on a channel the engine owns. Every event carries the
// [Target.Tag] supplied at open time so the engine can route it to the
// session that owns the conn.
//
// The main components are:
//
//   - [Transport] and [Conn]: open, send, deadline, expire, close
//   - [Request] and [Response]: protocol data units in decoded form
//   - [Event] and [Op]: the outcomes a conn reports
//   - [SNMP]: the default transport, backed by gosnmp
//
// The transporttest subpackage provides an in-memory agent for tests.
package transport

import (
	"fmt"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/oid"
)

// PDUType identifies a protocol data unit. Values match the on-wire tags.
type PDUType uint8

const (
	GetRequest     PDUType = 0xa0
	GetNextRequest PDUType = 0xa1
	GetResponse    PDUType = 0xa2
	SetRequest     PDUType = 0xa3
	GetBulkRequest PDUType = 0xa5
)

// String returns the PDU name as used in protocol documentation.
func (p PDUType) String() string {
	switch p {
	case GetRequest:
		return "GET"
	case GetNextRequest:
		return "GETNEXT"
	case GetResponse:
		return "RESPONSE"
	case SetRequest:
		return "SET"
	case GetBulkRequest:
		return "GETBULK"
	default:
		return fmt.Sprintf("PDU(0x%02x)", uint8(p))
	}
}

// Version is the protocol version used for a conn.
type Version int

const (
	Version1  Version = 0
	Version2c Version = 1
)

// Value type codes. Values match the on-wire ASN.1 tags.
const (
	TypeInteger        uint8 = 0x02
	TypeOctetString    uint8 = 0x04
	TypeNull           uint8 = 0x05
	TypeObjectID       uint8 = 0x06
	TypeIPAddress      uint8 = 0x40
	TypeCounter32      uint8 = 0x41
	TypeGauge32        uint8 = 0x42
	TypeTimeTicks      uint8 = 0x43
	TypeOpaque         uint8 = 0x44
	TypeCounter64      uint8 = 0x46
	TypeNoSuchObject   uint8 = 0x80
	TypeNoSuchInstance uint8 = 0x81
	TypeEndOfMibView   uint8 = 0x82
)

// Op is the kind of outcome reported by a [Conn].
type Op int

const (
	// OpReceived carries the response to the outstanding request.
	// Response may be nil if the transport could not build one.
	OpReceived Op = iota
	// OpTimedOut reports that all retries were exhausted.
	OpTimedOut
	// OpSendFailed reports that the request could not be transmitted.
	OpSendFailed
	// OpDisconnect reports that the underlying transport went away.
	OpDisconnect
	// OpResend reports that the request was retransmitted. Not terminal.
	OpResend
)

// String returns a short name for the op.
func (o Op) String() string {
	switch o {
	case OpReceived:
		return "received"
	case OpTimedOut:
		return "timed_out"
	case OpSendFailed:
		return "send_failed"
	case OpDisconnect:
		return "disconnect"
	case OpResend:
		return "resend"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Event is an outcome reported by a conn for its outstanding request.
type Event struct {
	Tag      uint64
	Op       Op
	Response *Response
}

// Variable is one variable binding of a response.
//
// Value holds the raw value bytes: integers and counters as 8 little-endian
// bytes, identifiers as 8 little-endian bytes per element, IP addresses as 4
// bytes and strings verbatim.
type Variable struct {
	OID   oid.OID
	Type  uint8
	Value []byte
}

// Response is a decoded response PDU.
type Response struct {
	Type        PDUType
	ErrorStatus int64
	ErrorIndex  int64
	Variables   []Variable
}

// Request is a request PDU under construction.
type Request struct {
	Type           PDUType
	NonRepeaters   int
	MaxRepetitions int
	OIDs           []oid.OID
}

// NewRequest creates an empty request of the given type.
// Only GET, GETNEXT and GETBULK requests can be built.
func NewRequest(t PDUType) (*Request, error) {
	switch t {
	case GetRequest, GetNextRequest, GetBulkRequest:
		return &Request{Type: t}, nil
	default:
		return nil, fmt.Errorf("cannot build request of type %s", t)
	}
}

// Add appends a variable binding slot for o to the request.
func (r *Request) Add(o oid.OID) {
	r.OIDs = append(r.OIDs, o)
}

// Target describes the agent a conn talks to.
type Target struct {
	// Tag is echoed on every event the conn reports.
	Tag uint64

	// Address is "host" or "host:port".
	Address string

	Community string
	Version   Version

	// Retries and Timeout bound each request. Negative values select the
	// transport's own defaults.
	Retries int
	Timeout time.Duration
}

// Transport opens conns to agents.
type Transport interface {
	// Open connects to target. Events for the conn are delivered on events,
	// which the caller must keep draining until the conn is closed.
	Open(target Target, events chan<- Event) (Conn, error)
}

// Conn is an open conversation with one agent.
type Conn interface {
	// Send transmits req. The outcome is reported later on the events channel:
	// zero or more OpResend events followed by exactly one terminal event.
	Send(req *Request) error

	// Deadline returns the time after which the caller should call Expire if
	// no terminal event has arrived. Zero if no request is outstanding.
	Deadline() time.Time

	// Expire tells the conn its window elapsed without an answer. It returns
	// the event this produces: OpResend if the conn retransmitted, or
	// OpTimedOut when retries are exhausted. ok is false when there is
	// nothing to report.
	Expire() (ev Event, ok bool)

	// Close releases the conn. No events are delivered after Close returns.
	Close() error
}

// ErrorStatusText returns the protocol name of an error-status value.
func ErrorStatusText(status int64) string {
	if status >= 0 && status < int64(len(errorStatusNames)) {
		return errorStatusNames[status]
	}
	return fmt.Sprintf("unknown error status %d", status)
}

var errorStatusNames = []string{
	"noError",
	"tooBig",
	"noSuchName",
	"badValue",
	"readOnly",
	"genErr",
	"noAccess",
	"wrongType",
	"wrongLength",
	"wrongEncoding",
	"wrongValue",
	"noCreation",
	"inconsistentValue",
	"resourceUnavailable",
	"commitFailed",
	"undoFailed",
	"authorizationError",
	"notWritable",
	"inconsistentName",
}
