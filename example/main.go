package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/snmpfetch"
)

func main() {
	community := os.Getenv("SNMP_COMMUNITY")
	if community == "" {
		community = "public"
	}

	// grid API: 2 sites × 2 racks = 4 switches from one declaration
	hosts, err := snmpfetch.NewHostGrid(
		snmpfetch.WithHostnameTemplate("sw{{.rack}}.{{.site}}.example.net"),
		snmpfetch.WithDimensions(map[string][]string{
			"site": {"ams1", "fra1"},
			"rack": {"01", "02"},
		}),
		snmpfetch.WithGridCommunity(snmpfetch.V2C, community),
	)
	if err != nil {
		slog.Error("failed to create host grid", "error", err)
		os.Exit(1)
	}

	// the local agent gets its own timeout (overrides the 3s default)
	local, _ := snmpfetch.NewHost(100, "127.0.0.1",
		snmpfetch.WithCommunity(snmpfetch.V2C, community),
		snmpfetch.WithHostConfig(snmpfetch.Config{Retries: 1, Timeout: time.Second}),
		snmpfetch.WithLabels("role", "local"),
	)
	hosts = append(hosts, local)

	// interface names and inbound octets
	ifDescr, _ := snmpfetch.NewVarBind(".1.3.6.1.2.1.2.2.1.2", 128, 64)
	ifInOctets, _ := snmpfetch.NewVarBind(".1.3.6.1.2.1.2.2.1.10", 128, 8)
	varBinds := []snmpfetch.VarBind{ifDescr, ifInOctets}

	res, err := snmpfetch.Fetch(snmpfetch.BulkGet, hosts, varBinds,
		snmpfetch.WithMaxActiveSessions(2),
	)
	if err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}

	for i, vb := range res.VarBinds {
		rows, err := res.Rows(i)
		if err != nil {
			slog.Error("failed to decode column", "var_bind", vb.OID.String(), "error", err)
			continue
		}
		fmt.Printf("%s: %d rows\n", vb.OID, len(rows))
		for _, r := range rows {
			fmt.Printf("  host %-3d %-28s %s\n", r.HostID, r.OID, r.Format())
		}
	}
	for _, e := range res.Failures() {
		fmt.Println("  error:", e)
	}

	// keep polling the same hosts and serve snapshots
	m, err := snmpfetch.NewMonitor(snmpfetch.BulkGet, hosts, varBinds,
		snmpfetch.WithPollingInterval(30*time.Second),
		snmpfetch.WithPort(8080),
		snmpfetch.WithRoundCallback(func(r snmpfetch.Round) {
			if r.Err != nil {
				return
			}
			fmt.Printf("round %s: %d failures in %s\n", r.ID, len(r.Result.Failures()), r.Duration)
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Monitoring", len(hosts), "hosts")
	fmt.Println("  Snapshots: http://localhost:8080/api/hosts")
	fmt.Println("  Live:      http://localhost:8080/api/sse")
	fmt.Println("  Metrics:   http://localhost:8080/metrics")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("monitor error", "error", err)
		os.Exit(1)
	}
}
