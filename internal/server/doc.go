// Package server provides the HTTP API of the snmpfetch monitor.
//
// This package handles all HTTP concerns of serve mode:
//
//   - REST API: JSON endpoints at "/api/hosts" and "/api/hosts/{id}"
//   - Server-Sent Events: Real-time snapshot updates at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the snmpfetch library should not need to interact with this
// package directly. The server is started by [snmpfetch.Monitor.Start].
package server
