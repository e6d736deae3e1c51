package snmpfetch

import (
	"errors"
	"fmt"
)

// Precondition errors returned by [Fetch] before any host is contacted.
var (
	ErrNoHosts    = errors.New("no hosts to collect from")
	ErrNoVarBinds = errors.New("no var binds to collect")
)

// AmbiguousRootsError reports two roots where one is a prefix of the other.
// Such roots would claim the same identifiers, so no collection is started.
type AmbiguousRootsError struct {
	First  OID
	Second OID
}

func (e *AmbiguousRootsError) Error() string {
	return fmt.Sprintf("Ambiguous root OIDs: (%s, %s)", e.First, e.Second)
}
