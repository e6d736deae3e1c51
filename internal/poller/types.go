package poller

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// Built-in defaults used when neither the host nor the caller supplies a
// [Config].
const (
	DefaultRetries           = 3
	DefaultTimeout           = 3 * time.Second
	DefaultVarBindsPerPDU    = 10
	DefaultBulkRepetitions   = 10
	DefaultMaxActiveSessions = 10
)

// Config holds per-host collection settings.
type Config struct {
	// Retries is the number of retransmissions before a request times out.
	// Negative selects the transport's own default.
	Retries int

	// Timeout bounds each transmission. Zero or negative selects the
	// transport's own default.
	Timeout time.Duration

	// VarBindsPerPDU is the partition size: the number of roots requested
	// together in one PDU.
	VarBindsPerPDU int

	// BulkRepetitions is the max-repetitions value of GETBULK requests.
	BulkRepetitions int
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Retries:         DefaultRetries,
		Timeout:         DefaultTimeout,
		VarBindsPerPDU:  DefaultVarBindsPerPDU,
		BulkRepetitions: DefaultBulkRepetitions,
	}
}

// resolveConfig picks the host config, else the caller default, else the
// built-in default. The chosen config is used whole; only unusable sizes are
// replaced.
func resolveConfig(host, def *Config) Config {
	var c Config
	switch {
	case host != nil:
		c = *host
	case def != nil:
		c = *def
	default:
		c = DefaultConfig()
	}
	if c.VarBindsPerPDU <= 0 {
		c.VarBindsPerPDU = DefaultVarBindsPerPDU
	}
	if c.BulkRepetitions <= 0 {
		c.BulkRepetitions = DefaultBulkRepetitions
	}
	return c
}

// Community is a protocol version and community string pair.
type Community struct {
	Version transport.Version
	String  string
}

// Parameter is an identifier range attached to a host. Parameters are carried
// with the host but not consumed by collection.
type Parameter struct {
	Start oid.OID
	End   oid.OID
}

// Host is one agent to collect from.
//
// Only the first community is used; the rest are reserved for credential
// rotation.
type Host struct {
	ID          uint64
	Hostname    string
	Communities []Community
	Parameters  []Parameter
	Config      *Config
}

// snapshot copies the host for an error record, keeping only the first
// community and the first parameter.
func (h *Host) snapshot() Host {
	s := Host{ID: h.ID, Hostname: h.Hostname, Config: h.Config}
	if len(h.Communities) > 0 {
		s.Communities = []Community{h.Communities[0]}
	}
	if len(h.Parameters) > 0 {
		s.Parameters = []Parameter{h.Parameters[0]}
	}
	return s
}

// VarBind is a root identifier with the declared capacities of its result
// column.
type VarBind struct {
	OID       oid.OID
	OIDSize   uint64 // bytes reserved for the identifier of each row
	ValueSize uint64 // bytes reserved for the value of each row
}

// ErrorType classifies a collection [Error].
type ErrorType int

const (
	SessionError ErrorType = iota
	CreateRequestPDUError
	SendError
	BadResponsePDUError
	TimeoutError
	AsyncProbeError
	TransportDisconnectError
	CreateResponsePDUError
	ValueWarning
)

var errorTypeNames = [...]string{
	SessionError:             "SESSION_ERROR",
	CreateRequestPDUError:    "CREATE_REQUEST_PDU_ERROR",
	SendError:                "SEND_ERROR",
	BadResponsePDUError:      "BAD_RESPONSE_PDU_ERROR",
	TimeoutError:             "TIMEOUT_ERROR",
	AsyncProbeError:          "ASYNC_PROBE_ERROR",
	TransportDisconnectError: "TRANSPORT_DISCONNECT_ERROR",
	CreateResponsePDUError:   "CREATE_RESPONSE_PDU_ERROR",
	ValueWarning:             "VALUE_WARNING",
}

func (t ErrorType) String() string {
	if t >= 0 && int(t) < len(errorTypeNames) {
		return errorTypeNames[t]
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// Error is one entry of the run's error log.
//
// Everything except Type and Host is optional: ErrStat and ErrIndex are set
// for protocol error statuses, ErrOID for failures tied to one identifier, and
// Cause when a Go error from the transport is available.
type Error struct {
	Type     ErrorType
	Host     Host
	ErrStat  *int64
	ErrIndex *int64
	ErrOID   oid.OID
	Message  string
	Cause    error
}

func (e Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: host %d (%s)", e.Type, e.Host.ID, e.Host.Hostname)
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

// warningNames maps the exception value types to their warning messages.
var warningNames = map[uint8]string{
	transport.TypeNoSuchObject:   "NO_SUCH_OBJECT",
	transport.TypeNoSuchInstance: "NO_SUCH_INSTANCE",
	transport.TypeEndOfMibView:   "END_OF_MIB_VIEW",
}
