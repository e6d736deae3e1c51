package snmpfetch

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/row"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// Value type codes found in [Row.Type].
const (
	TypeInteger     = transport.TypeInteger
	TypeOctetString = transport.TypeOctetString
	TypeNull        = transport.TypeNull
	TypeObjectID    = transport.TypeObjectID
	TypeIPAddress   = transport.TypeIPAddress
	TypeCounter32   = transport.TypeCounter32
	TypeGauge32     = transport.TypeGauge32
	TypeTimeTicks   = transport.TypeTimeTicks
	TypeOpaque      = transport.TypeOpaque
	TypeCounter64   = transport.TypeCounter64
)

// Result is the outcome of [Fetch].
type Result struct {
	// VarBinds are the var binds the result was collected for.
	VarBinds []VarBind

	// Columns holds one raw column per var bind, in var bind order. Each
	// column is a sequence of fixed-size rows: a 48-byte header of six
	// little-endian uint64 fields (host id, community index, identifier
	// length in elements, value length in bytes, type, unix timestamp)
	// followed by the identifier and value areas, each padded to a multiple
	// of 8 bytes of the var bind's declared size.
	Columns [][]byte

	// Errors is the run's error log, in the order entries were recorded.
	Errors []Error
}

// Rows decodes column i.
//
// Returns an error if i is out of range or the column is not a whole number
// of rows.
func (r *Result) Rows(i int) ([]Row, error) {
	if i < 0 || i >= len(r.Columns) || i >= len(r.VarBinds) {
		return nil, fmt.Errorf("column %d out of range", i)
	}
	vb := r.VarBinds[i]

	raw, err := row.Decode(r.Columns[i], vb.OIDSize, vb.ValueSize)
	if err != nil {
		return nil, fmt.Errorf("column %d: %w", i, err)
	}

	rows := make([]Row, len(raw))
	for j, x := range raw {
		oidBytes := min(x.OIDLen*8, vb.OIDSize)
		valueBytes := min(x.ValueLen, vb.ValueSize)
		rows[j] = Row{
			HostID:         x.HostID,
			CommunityIndex: x.CommunityIndex,
			OID:            oid.FromBytes(x.OID[:oidBytes]),
			Type:           uint8(x.Type),
			Value:          x.Value[:valueBytes],
			Timestamp:      time.Unix(x.Timestamp, 0),
			OIDLen:         x.OIDLen,
			ValueLen:       x.ValueLen,
		}
	}
	return rows, nil
}

// Warnings returns the value warnings of the error log.
func (r *Result) Warnings() []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

// Failures returns the entries of the error log that are not value warnings.
func (r *Result) Failures() []Error {
	var out []Error
	for _, e := range r.Errors {
		if !e.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

// Row is one decoded result row.
//
// OID and Value hold what fit in the var bind's declared capacity; OIDLen
// and ValueLen hold what the agent sent.
type Row struct {
	HostID         uint64
	CommunityIndex uint64
	OID            OID
	Type           uint8
	Value          []byte
	Timestamp      time.Time
	OIDLen         uint64 // in elements
	ValueLen       uint64 // in bytes
}

// Truncated reports whether the identifier or the value was cut to fit.
func (r Row) Truncated() bool {
	return uint64(len(r.OID)) < r.OIDLen || uint64(len(r.Value)) < r.ValueLen
}

// Uint64 returns the value as an unsigned integer. Counters, gauges, time
// ticks and integers are stored as 8 little-endian bytes.
func (r Row) Uint64() uint64 {
	var b [8]byte
	copy(b[:], r.Value)
	return binary.LittleEndian.Uint64(b[:])
}

// Int64 returns the value as a signed integer.
func (r Row) Int64() int64 {
	return int64(r.Uint64())
}

// String returns the value bytes as a string.
func (r Row) String() string {
	return string(r.Value)
}

// ObjectID returns the value as an identifier, for TypeObjectID rows.
func (r Row) ObjectID() OID {
	return oid.FromBytes(r.Value)
}

// Format renders the value according to its type.
func (r Row) Format() string {
	switch r.Type {
	case TypeInteger:
		return strconv.FormatInt(r.Int64(), 10)
	case TypeCounter32, TypeGauge32, TypeTimeTicks, TypeCounter64:
		return strconv.FormatUint(r.Uint64(), 10)
	case TypeObjectID:
		return r.ObjectID().String()
	case TypeIPAddress:
		if len(r.Value) == net.IPv4len {
			return net.IP(r.Value).String()
		}
	case TypeNull:
		return ""
	case TypeOctetString:
		if utf8.Valid(r.Value) {
			return string(r.Value)
		}
	}
	return hex.EncodeToString(r.Value)
}
