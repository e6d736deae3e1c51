package poller

import "github.com/jpalmerr/snmpfetch/internal/oid"

// partition splits the roots into consecutive groups of at most size slots.
// Each slot starts at its root's identifier; the root at index i lives at
// position i%size of partition i/size.
func partition(varBinds []VarBind, size int) [][]oid.OID {
	if size <= 0 {
		size = DefaultVarBindsPerPDU
	}

	parts := make([][]oid.OID, 0, (len(varBinds)+size-1)/size)
	for i, vb := range varBinds {
		if i%size == 0 {
			parts = append(parts, make([]oid.OID, 0, min(size, len(varBinds)-i)))
		}
		last := len(parts) - 1
		parts[last] = append(parts[last], vb.OID.Clone())
	}
	return parts
}

// exhausted reports whether every slot of the partition is empty.
func exhausted(part []oid.OID) bool {
	for _, o := range part {
		if o != nil {
			return false
		}
	}
	return true
}
