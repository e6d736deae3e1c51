package snmpfetch

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/poller"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// OID is an object identifier, one unsigned integer per element.
//
// OIDs render as ".1.3.6.1" and implement encoding.TextMarshaler, so they
// can be used directly in JSON and YAML documents.
type OID = oid.OID

// ParseOID parses a dotted identifier such as ".1.3.6.1.2.1.1". The leading
// dot is optional.
func ParseOID(s string) (OID, error) {
	return oid.Parse(s)
}

// PDUType selects the request used for every partition of a collection.
type PDUType int

const (
	// Get fetches exactly the requested identifiers.
	Get PDUType = iota
	// Next walks each root one identifier per round.
	Next
	// BulkGet walks each root several identifiers per round.
	BulkGet
)

// String returns the request name.
func (p PDUType) String() string {
	switch p {
	case Get:
		return "get"
	case Next:
		return "next"
	case BulkGet:
		return "bulkget"
	default:
		return fmt.Sprintf("PDUType(%d)", int(p))
	}
}

// ParsePDUType parses "get", "next" or "bulkget" (case-insensitive).
func ParsePDUType(s string) (PDUType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "get":
		return Get, nil
	case "next", "getnext":
		return Next, nil
	case "bulkget", "bulk", "getbulk":
		return BulkGet, nil
	default:
		return 0, fmt.Errorf("unknown pdu type %q", s)
	}
}

// wire maps p to the on-wire request type. Unknown values map to a type the
// transport refuses to build, which the run reports per host.
func (p PDUType) wire() transport.PDUType {
	switch p {
	case Get:
		return transport.GetRequest
	case Next:
		return transport.GetNextRequest
	case BulkGet:
		return transport.GetBulkRequest
	default:
		return transport.GetResponse
	}
}

// Version is the protocol version of a [Community].
type Version int

const (
	V1 Version = iota
	V2C
)

// String returns "v1" or "v2c".
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2C:
		return "v2c"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// ParseVersion parses "1", "v1", "2c" or "v2c" (case-insensitive).
func ParseVersion(s string) (Version, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v") {
	case "1":
		return V1, nil
	case "2", "2c":
		return V2C, nil
	default:
		return 0, fmt.Errorf("unknown version %q", s)
	}
}

func (v Version) wire() transport.Version {
	if v == V1 {
		return transport.Version1
	}
	return transport.Version2c
}

// Community is a protocol version and community string used to reach a host.
type Community struct {
	Version Version
	String  string
}

// ObjectIdentityParameter is an identifier range attached to a [Host].
//
// Parameters are carried with the host and appear in error snapshots, but
// collection does not consume them.
type ObjectIdentityParameter struct {
	Start OID
	End   OID
}

// Built-in defaults.
const (
	DefaultRetries           = poller.DefaultRetries
	DefaultTimeout           = poller.DefaultTimeout
	DefaultVarBindsPerPDU    = poller.DefaultVarBindsPerPDU
	DefaultBulkRepetitions   = poller.DefaultBulkRepetitions
	DefaultMaxActiveSessions = poller.DefaultMaxActiveSessions
)

// Config holds collection settings for a host.
//
// A host's own Config wins over the one passed to [WithConfig], which wins
// over [DefaultConfig]. The chosen Config is used whole; zero sizes select
// the defaults.
type Config struct {
	// Retries is the number of retransmissions before a request times out.
	Retries int
	// Timeout bounds each transmission.
	Timeout time.Duration
	// VarBindsPerPDU is the number of roots requested together.
	VarBindsPerPDU int
	// BulkRepetitions is the max-repetitions value of BulkGet requests.
	BulkRepetitions int
}

// DefaultConfig returns 3 retries, a 3 second timeout, 10 var binds per PDU
// and 10 bulk repetitions.
func DefaultConfig() Config {
	return Config(poller.DefaultConfig())
}

func (c Config) validate() error {
	switch {
	case c.Retries < 0:
		return fmt.Errorf("retries cannot be negative, got %d", c.Retries)
	case c.Timeout < 0:
		return fmt.Errorf("timeout cannot be negative, got %s", c.Timeout)
	case c.VarBindsPerPDU < 0:
		return fmt.Errorf("var binds per PDU cannot be negative, got %d", c.VarBindsPerPDU)
	case c.BulkRepetitions < 0:
		return fmt.Errorf("bulk repetitions cannot be negative, got %d", c.BulkRepetitions)
	}
	return nil
}

// VarBind is a root identifier to collect, with the declared capacities of
// each row in its result column.
//
// Identifiers and values longer than their capacity are truncated in the
// row; the row header still records the received length.
type VarBind struct {
	OID       OID
	OIDSize   uint64 // bytes per row for the identifier (8 per element)
	ValueSize uint64 // bytes per row for the value
}

// NewVarBind parses root and returns a [VarBind] with the given capacities.
func NewVarBind(root string, oidSize, valueSize uint64) (VarBind, error) {
	o, err := oid.Parse(root)
	if err != nil {
		return VarBind{}, fmt.Errorf("var bind %q: %w", root, err)
	}
	return VarBind{OID: o, OIDSize: oidSize, ValueSize: valueSize}, nil
}

// ErrorType classifies an [Error].
type ErrorType int

// Error types, in the order they can first occur in a session's life.
const (
	SessionError             = ErrorType(poller.SessionError)
	CreateRequestPDUError    = ErrorType(poller.CreateRequestPDUError)
	SendError                = ErrorType(poller.SendError)
	BadResponsePDUError      = ErrorType(poller.BadResponsePDUError)
	TimeoutError             = ErrorType(poller.TimeoutError)
	AsyncProbeError          = ErrorType(poller.AsyncProbeError)
	TransportDisconnectError = ErrorType(poller.TransportDisconnectError)
	CreateResponsePDUError   = ErrorType(poller.CreateResponsePDUError)
	ValueWarning             = ErrorType(poller.ValueWarning)
)

// String returns the upper snake case name, e.g. "TIMEOUT_ERROR".
func (t ErrorType) String() string {
	return poller.ErrorType(t).String()
}

// Error is one entry of a collection's error log.
//
// Collection failures are data: they never abort a run and are returned in
// [Result.Errors]. Host is a snapshot of the affected host holding only its
// first community and first parameter. ErrStat and ErrIndex are set for
// protocol error statuses, ErrOID when the failure concerns one identifier,
// and Cause when the transport reported a Go error.
type Error struct {
	Type     ErrorType
	Host     Host
	ErrStat  *int64
	ErrIndex *int64
	ErrOID   OID
	Message  string
	Cause    error
}

func (e Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: host %d (%s)", e.Type, e.Host.id, e.Host.hostname)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.ErrOID != nil {
		fmt.Fprintf(&b, " [%s]", e.ErrOID)
	}
	return b.String()
}

func (e Error) Unwrap() error {
	return e.Cause
}

// IsWarning reports whether e is a value warning rather than a failure.
func (e Error) IsWarning() bool {
	return e.Type == ValueWarning
}
