// Package oid provides the hierarchical object identifier type used to name
// managed values and the ordering and subtree primitives the poller relies on.
//
// An [OID] is an ordered sequence of non-negative integers. Identifiers are
// ordered lexicographically element by element, with a proper prefix sorting
// before any of its descendants. Identifier A is in the subtree of B when B is
// a prefix of (or equal to) A.
package oid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// elementSize is the number of bytes one element occupies in a result row.
const elementSize = 8

// OID is a hierarchical object identifier.
type OID []uint64

// Parse parses a dotted identifier such as ".1.3.6.1.2.1" or "1.3.6.1.2.1".
//
// The leading dot is optional. Empty components, signs and non-numeric
// components are rejected, as is an empty identifier.
func Parse(s string) (OID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, errors.New("empty object identifier")
	}

	parts := strings.Split(s, ".")
	o := make(OID, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("object identifier %q: empty component at position %d", s, i)
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("object identifier %q: invalid component %q", s, p)
		}
		o[i] = v
	}
	return o, nil
}

// MustParse is like [Parse] but panics on error. Intended for constants and tests.
func MustParse(s string) OID {
	o, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return o
}

// String renders the identifier in dotted form with a leading dot.
func (o OID) String() string {
	var b strings.Builder
	for _, v := range o {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(v, 10))
	}
	return b.String()
}

// Clone returns a copy that shares no memory with o.
func (o OID) Clone() OID {
	if o == nil {
		return nil
	}
	return append(OID(nil), o...)
}

// Equal reports whether o and other contain the same elements.
func (o OID) Equal(other OID) bool {
	return Compare(o, other) == 0
}

// Compare orders a and b lexicographically, shortest prefix first.
// It returns -1 if a < b, 0 if equal and +1 if a > b.
func Compare(a, b OID) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// HasPrefix reports whether o lies in the subtree rooted at root, that is,
// whether root is a prefix of or equal to o.
func HasPrefix(o, root OID) bool {
	if len(root) > len(o) {
		return false
	}
	for i, v := range root {
		if o[i] != v {
			return false
		}
	}
	return true
}

// Overlaps reports whether either identifier is in the subtree of the other.
func Overlaps(a, b OID) bool {
	return HasPrefix(a, b) || HasPrefix(b, a)
}

// Bytes renders each element as 8 little-endian bytes.
func (o OID) Bytes() []byte {
	buf := make([]byte, len(o)*elementSize)
	for i, v := range o {
		binary.LittleEndian.PutUint64(buf[i*elementSize:], v)
	}
	return buf
}

// FromBytes is the inverse of [OID.Bytes]. Trailing bytes that do not form a
// whole element are ignored.
func FromBytes(b []byte) OID {
	o := make(OID, len(b)/elementSize)
	for i := range o {
		o[i] = binary.LittleEndian.Uint64(b[i*elementSize:])
	}
	return o
}

// MarshalText implements encoding.TextMarshaler.
func (o OID) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
