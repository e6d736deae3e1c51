// Package row implements the fixed-layout binary row format used for result
// columns.
//
// Each row is a 48-byte header of six little-endian uint64 fields followed by
// an identifier area and a value area, each sized to the column's declared
// capacity rounded up to a multiple of 8 bytes:
//
//	host id | community index | oid length | value length | type | timestamp
//	oid area  [Align(oidSize)]
//	value area [Align(valueSize)]
//
// The oid length field counts elements, the value length field counts bytes,
// and both record the received size even when the copied data was truncated
// to the declared capacity.
package row

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the number of bytes in a row header.
const HeaderSize = 6 * 8

// Header holds the fixed-width fields of a row.
type Header struct {
	HostID         uint64
	CommunityIndex uint64
	OIDLen         uint64 // in elements
	ValueLen       uint64 // in bytes
	Type           uint64
	Timestamp      int64 // unix seconds
}

// Row is a decoded row. OID and Value are the full areas of the row,
// including any zero padding.
type Row struct {
	Header
	OID   []byte
	Value []byte
}

// Align rounds n up to the next multiple of 8.
func Align(n uint64) uint64 {
	return (n + 7) &^ 7
}

// Size returns the size in bytes of one row for the given declared capacities.
func Size(oidSize, valueSize uint64) int {
	return HeaderSize + int(Align(oidSize)) + int(Align(valueSize))
}

// Append encodes one row onto dst and returns the extended slice.
//
// At most oidSize bytes of oidBytes and valueSize bytes of value are copied;
// anything beyond the declared capacity is dropped.
func Append(dst []byte, h Header, oidBytes, value []byte, oidSize, valueSize uint64) []byte {
	pos := len(dst)
	dst = append(dst, make([]byte, Size(oidSize, valueSize))...)
	b := dst[pos:]

	binary.LittleEndian.PutUint64(b[0:], h.HostID)
	binary.LittleEndian.PutUint64(b[8:], h.CommunityIndex)
	binary.LittleEndian.PutUint64(b[16:], h.OIDLen)
	binary.LittleEndian.PutUint64(b[24:], h.ValueLen)
	binary.LittleEndian.PutUint64(b[32:], h.Type)
	binary.LittleEndian.PutUint64(b[40:], uint64(h.Timestamp))

	oidArea := b[HeaderSize : HeaderSize+int(Align(oidSize))]
	copy(oidArea, truncate(oidBytes, oidSize))

	valueArea := b[HeaderSize+len(oidArea):]
	copy(valueArea, truncate(value, valueSize))

	return dst
}

// Decode splits buf into rows for a column with the given declared capacities.
// Returns an error if buf is not a whole number of rows.
func Decode(buf []byte, oidSize, valueSize uint64) ([]Row, error) {
	size := Size(oidSize, valueSize)
	if len(buf)%size != 0 {
		return nil, fmt.Errorf("buffer length %d is not a multiple of row size %d", len(buf), size)
	}

	oidArea := int(Align(oidSize))
	rows := make([]Row, 0, len(buf)/size)
	for pos := 0; pos < len(buf); pos += size {
		b := buf[pos : pos+size]
		rows = append(rows, Row{
			Header: Header{
				HostID:         binary.LittleEndian.Uint64(b[0:]),
				CommunityIndex: binary.LittleEndian.Uint64(b[8:]),
				OIDLen:         binary.LittleEndian.Uint64(b[16:]),
				ValueLen:       binary.LittleEndian.Uint64(b[24:]),
				Type:           binary.LittleEndian.Uint64(b[32:]),
				Timestamp:      int64(binary.LittleEndian.Uint64(b[40:])),
			},
			OID:   b[HeaderSize : HeaderSize+oidArea],
			Value: b[HeaderSize+oidArea:],
		})
	}
	return rows, nil
}

func truncate(b []byte, limit uint64) []byte {
	if uint64(len(b)) > limit {
		return b[:limit]
	}
	return b
}
