package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/jpalmerr/snmpfetch"
)

// rowRecord is one collected value in JSON lines output.
type rowRecord struct {
	HostID    uint64 `json:"host_id"`
	Hostname  string `json:"hostname"`
	VarBind   string `json:"var_bind"`
	OID       string `json:"oid"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Truncated bool   `json:"truncated,omitempty"`
}

// errorRecord is one error log entry in JSON lines output.
type errorRecord struct {
	HostID   uint64 `json:"host_id"`
	Hostname string `json:"hostname"`
	Error    string `json:"error"`
	Message  string `json:"message"`
	OID      string `json:"oid,omitempty"`
	Warning  bool   `json:"warning,omitempty"`
}

// hostnames indexes hostnames by host id.
func hostnames(hosts []snmpfetch.Host) map[uint64]string {
	m := make(map[uint64]string, len(hosts))
	for _, h := range hosts {
		m[h.ID()] = h.Hostname()
	}
	return m
}

// writeJSONLines prints one JSON object per row, then one per error.
func writeJSONLines(w io.Writer, hosts []snmpfetch.Host, res *snmpfetch.Result) error {
	names := hostnames(hosts)
	enc := json.NewEncoder(w)

	for col, vb := range res.VarBinds {
		rows, err := res.Rows(col)
		if err != nil {
			return err
		}
		for _, r := range rows {
			rec := rowRecord{
				HostID:    r.HostID,
				Hostname:  names[r.HostID],
				VarBind:   vb.OID.String(),
				OID:       r.OID.String(),
				Type:      snmpfetch.TypeName(r.Type),
				Value:     r.Format(),
				Truncated: r.Truncated(),
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}

	for _, e := range res.Errors {
		rec := errorRecord{
			HostID:   e.Host.ID(),
			Hostname: e.Host.Hostname(),
			Error:    e.Type.String(),
			Message:  e.Message,
			Warning:  e.IsWarning(),
		}
		if e.ErrOID != nil {
			rec.OID = e.ErrOID.String()
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// tableRenderer prints rows grouped by var bind, then the error log.
// Failure rows are red and value warning rows yellow when colored is set.
func tableRenderer(colored bool) renderer {
	return func(w io.Writer, hosts []snmpfetch.Host, res *snmpfetch.Result) error {
		header := color.New(color.Bold)
		fail := color.New(color.FgRed)
		warn := color.New(color.FgYellow)
		trunc := color.New(color.FgCyan)
		for _, c := range []*color.Color{header, fail, warn, trunc} {
			if colored {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}

		names := hostnames(hosts)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

		for col, vb := range res.VarBinds {
			rows, err := res.Rows(col)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, header.Sprintf("%s (%d rows)", vb.OID, len(rows)))
			fmt.Fprintln(tw, "HOST\tOID\tTYPE\tVALUE")
			for _, r := range rows {
				value := r.Format()
				if r.Truncated() {
					value += trunc.Sprint(" (truncated)")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", names[r.HostID], r.OID, snmpfetch.TypeName(r.Type), value)
			}
			fmt.Fprintln(tw)
		}

		if len(res.Errors) == 0 {
			return tw.Flush()
		}
		fmt.Fprintln(tw, header.Sprintf("errors (%d)", len(res.Errors)))
		if err := tw.Flush(); err != nil {
			return err
		}

		// tabwriter counts escape sequences as cell width, so error rows
		// are aligned first and painted whole afterwards.
		var buf bytes.Buffer
		et := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(et, "HOST\tERROR\tMESSAGE")
		for _, e := range res.Errors {
			msg := e.Message
			if e.ErrOID != nil {
				msg += " [" + e.ErrOID.String() + "]"
			}
			fmt.Fprintf(et, "%s\t%s\t%s\n", e.Host.Hostname(), e.Type, msg)
		}
		if err := et.Flush(); err != nil {
			return err
		}

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		if _, err := fmt.Fprintln(w, lines[0]); err != nil {
			return err
		}
		for i, e := range res.Errors {
			paint := fail
			if e.IsWarning() {
				paint = warn
			}
			if _, err := fmt.Fprintln(w, paint.Sprint(lines[i+1])); err != nil {
				return err
			}
		}
		return nil
	}
}
