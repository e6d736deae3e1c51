// Package poller is the collection engine of snmpfetch.
//
// A collection run asks many hosts for the same ordered list of root
// identifiers. Roots are grouped into partitions of VarBindsPerPDU slots, one
// request per partition, and each host gets a session that walks its
// partition queue round by round. At most MaxActiveSessions sessions are open
// at once; the rest of the hosts wait to be admitted.
//
// The main components are:
//
//   - [Scheduler]: the run loop (sweep, admit, dispatch, read)
//   - [Host], [VarBind], [Config]: the inputs of a run
//   - [Error] and [ErrorType]: entries of the run's error log
//   - [Observer]: hooks for metrics and tests
//   - [IntervalRunner]: repeats a run on a fixed interval
//
// Results come back as one byte column per root in the internal/row format.
// Users of the snmpfetch library should not need to interact with this
// package directly.
package poller
