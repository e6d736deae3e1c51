package poller

import (
	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/row"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// appendResult validates one returned variable against the front partition
// and, if accepted, advances the root's slot and appends a row to its column.
func (s *session) appendResult(v transport.Variable) {
	if name, ok := warningNames[v.Type]; ok {
		s.run.record(s.host, Error{Type: ValueWarning, ErrOID: v.OID.Clone(), Message: name})
		return
	}

	idx := -1
	for i, vb := range s.run.varBinds {
		if oid.HasPrefix(v.OID, vb.OID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	root := s.run.varBinds[idx]

	front := s.front()
	pos := idx % s.cfg.VarBindsPerPDU
	if pos >= len(front) {
		return
	}
	next := front[pos]
	if next == nil {
		return
	}
	if !oid.HasPrefix(next, root.OID) {
		return
	}

	switch c := oid.Compare(v.OID, next); {
	case c < 0:
		return
	case c == 0 && s.run.kind != transport.GetRequest:
		return
	}

	front[pos] = v.OID.Clone()

	h := row.Header{
		HostID:         s.host.ID,
		CommunityIndex: s.communityIndex,
		OIDLen:         uint64(len(v.OID)),
		ValueLen:       uint64(len(v.Value)),
		Type:           uint64(v.Type),
		Timestamp:      s.run.now().Unix(),
	}
	s.run.results[idx] = row.Append(s.run.results[idx], h, v.OID.Bytes(), v.Value, root.OIDSize, root.ValueSize)
	s.run.observer.RowAppended(idx)
}
