package snmpfetch

import (
	"fmt"

	"github.com/jpalmerr/snmpfetch/internal/store"
)

var typeNames = map[uint8]string{
	TypeInteger:     "Integer",
	TypeOctetString: "OctetString",
	TypeNull:        "Null",
	TypeObjectID:    "ObjectIdentifier",
	TypeIPAddress:   "IPAddress",
	TypeCounter32:   "Counter32",
	TypeGauge32:     "Gauge32",
	TypeTimeTicks:   "TimeTicks",
	TypeOpaque:      "Opaque",
	TypeCounter64:   "Counter64",
}

// TypeName returns the protocol name of a value type code, e.g. "Counter32".
func TypeName(t uint8) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(0x%02x)", t)
}

// snapshots turns a finished round into one snapshot per monitored host.
//
// A host is down when a failure was logged and no values arrived, partial
// when a failure was logged alongside values, and ok otherwise.
func (m *Monitor) snapshots(round Round) []store.HostSnapshot {
	byID := make(map[uint64]*store.HostSnapshot, len(m.hosts))
	failed := make(map[uint64]bool)
	out := make([]store.HostSnapshot, len(m.hosts))

	for i, h := range m.hosts {
		out[i] = store.HostSnapshot{
			ID:        h.id,
			Hostname:  h.hostname,
			Labels:    copyMap(h.labels),
			RoundID:   round.ID,
			CheckedAt: round.StartedAt,
			Values:    []store.Value{},
			Errors:    []string{},
		}
		byID[h.id] = &out[i]
	}

	res := round.Result
	for col := range res.Columns {
		rows, err := res.Rows(col)
		if err != nil {
			m.logger.Error("failed to decode column", "column", col, "error", err)
			continue
		}
		root := res.VarBinds[col].OID.String()
		for _, r := range rows {
			s, ok := byID[r.HostID]
			if !ok {
				continue
			}
			s.Values = append(s.Values, store.Value{
				VarBind:   root,
				OID:       r.OID.String(),
				Type:      TypeName(r.Type),
				Value:     r.Format(),
				Truncated: r.Truncated(),
			})
		}
	}

	for _, e := range res.Errors {
		s, ok := byID[e.Host.id]
		if !ok {
			continue
		}
		msg := e.Type.String() + ": " + e.Message
		if e.ErrOID != nil {
			msg += " [" + e.ErrOID.String() + "]"
		}
		s.Errors = append(s.Errors, msg)
		if !e.IsWarning() {
			failed[e.Host.id] = true
		}
	}

	for i := range out {
		switch {
		case !failed[out[i].ID]:
			out[i].Status = store.StatusOK
		case len(out[i].Values) > 0:
			out[i].Status = store.StatusPartial
		default:
			out[i].Status = store.StatusDown
		}
	}
	return out
}
