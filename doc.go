// Package snmpfetch collects SNMP values from many hosts at once.
//
// A collection asks every host for the same ordered list of root
// identifiers. [Get] fetches each root once; [Next] and [BulkGet] walk each
// root's subtree until the agent answers with an identifier outside it.
// Up to a configured number of hosts are collected from concurrently, and
// roots are grouped so that each request carries at most VarBindsPerPDU of
// them.
//
// # Quick Start
//
//	host, _ := snmpfetch.NewHost(1, "10.0.0.1",
//	    snmpfetch.WithCommunity(snmpfetch.V2C, "public"),
//	)
//	sysDescr, _ := snmpfetch.NewVarBind(".1.3.6.1.2.1.1.1", 128, 256)
//
//	res, err := snmpfetch.Fetch(snmpfetch.Next, []snmpfetch.Host{host}, []snmpfetch.VarBind{sysDescr})
//	if err != nil {
//	    return err // bad inputs only
//	}
//	rows, _ := res.Rows(0)
//	for _, r := range rows {
//	    fmt.Println(r.HostID, r.OID, r.Format())
//	}
//	for _, e := range res.Errors {
//	    fmt.Println(e) // timeouts, error statuses, end of view warnings, ...
//	}
//
// # Results
//
// [Result.Columns] holds one column per var bind. A column is a packed
// sequence of fixed-size binary rows so that large collections can be handed
// to other tools without per-value allocations; [Result.Rows] decodes a
// column into [Row] values. Each var bind declares how many bytes a row
// reserves for the identifier and the value; longer data is truncated and
// [Row.Truncated] reports it.
//
// Collection failures are never returned as Go errors. Each failure ends
// only the affected host's work and is recorded as an [Error] in
// [Result.Errors]. Value warnings (no such object, no such instance, end of
// MIB view) are recorded the same way with type [ValueWarning].
//
// # Hosts
//
// Hosts are built with [NewHost] and functional options, or in bulk with
// [NewHostGrid], which expands a hostname template over the cartesian
// product of dimension values:
//
//	hosts, err := snmpfetch.NewHostGrid(
//	    snmpfetch.WithHostnameTemplate("sw{{.rack}}.dc1.example.net"),
//	    snmpfetch.WithDimensions(map[string][]string{"rack": {"01", "02", "03"}}),
//	    snmpfetch.WithGridCommunity(snmpfetch.V2C, "public"),
//	)
//
// # Monitoring
//
// [Monitor] repeats a collection on an interval and serves the latest values
// per host as JSON, Server-Sent Events and Prometheus metrics.
//
// # Architecture
//
//   - internal/oid: identifier parsing and ordering
//   - internal/row: the binary row format of result columns
//   - internal/transport: the protocol boundary, backed by gosnmp
//   - internal/poller: the collection engine and the interval runner
//   - internal/metrics: Prometheus collector for the engine's hooks
//   - internal/store: in-memory snapshots with pub/sub
//   - internal/server: HTTP API with Server-Sent Events
//
// The internal packages are not part of the public API and may change
// without notice. The config package loads the same settings from YAML,
// and cmd/snmpfetch wraps both in a command-line tool.
package snmpfetch
