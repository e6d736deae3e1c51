package snmpfetch

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/poller"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// Fetch collects every var bind from every host and blocks until all hosts
// are done.
//
// pduType selects how roots are collected: [Get] asks for each root once,
// [Next] and [BulkGet] walk each root's subtree until the agent leaves it.
// Up to [DefaultMaxActiveSessions] hosts are collected from at once; hosts
// are admitted in order as others finish.
//
// The returned [Result] holds one column per var bind, in var bind order,
// and the error log of the run. Per-host failures never abort the run and
// are reported in [Result.Errors]; the returned error is only set when the
// inputs are unusable: no hosts ([ErrNoHosts]), no var binds
// ([ErrNoVarBinds]), overlapping roots ([AmbiguousRootsError]) or an
// invalid option.
//
// Example:
//
//	host, _ := snmpfetch.NewHost(1, "10.0.0.1", snmpfetch.WithCommunity(snmpfetch.V2C, "public"))
//	ifDescr, _ := snmpfetch.NewVarBind(".1.3.6.1.2.1.2.2.1.2", 128, 64)
//
//	res, err := snmpfetch.Fetch(snmpfetch.BulkGet, []snmpfetch.Host{host}, []snmpfetch.VarBind{ifDescr})
//	if err != nil {
//	    return err
//	}
//	rows, _ := res.Rows(0)
//	for _, r := range rows {
//	    fmt.Println(r.OID, r.String())
//	}
func Fetch(pduType PDUType, hosts []Host, varBinds []VarBind, opts ...Option) (*Result, error) {
	cfg, err := newFetchConfig(opts)
	if err != nil {
		return nil, err
	}

	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	if len(varBinds) == 0 {
		return nil, ErrNoVarBinds
	}
	if err := checkRoots(varBinds); err != nil {
		return nil, err
	}

	columns, errs := cfg.run(pduType, hosts, varBinds)
	return newResult(varBinds, columns, errs), nil
}

// run performs one collection with the settings in cfg.
func (cfg *fetchConfig) run(pduType PDUType, hosts []Host, varBinds []VarBind) ([][]byte, []poller.Error) {
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	t := cfg.transport
	if t == nil {
		snmpOpts := []transport.SNMPOption{transport.WithLogger(logger)}
		if cfg.port != 0 {
			snmpOpts = append(snmpOpts, transport.WithPort(cfg.port))
		}
		t = transport.NewSNMP(cfg.ctx, snmpOpts...)
	}

	var def *poller.Config
	if cfg.config != nil {
		c := poller.Config(*cfg.config)
		def = &c
	}

	scheduler := poller.NewScheduler(t, poller.Options{
		Config:            def,
		MaxActiveSessions: cfg.maxActiveSessions,
		Logger:            logger,
		Observer:          cfg.observer,
		Now:               cfg.clock,
	})

	pollerHosts := make([]poller.Host, len(hosts))
	for i, h := range hosts {
		pollerHosts[i] = h.toPoller()
	}
	pollerVarBinds := make([]poller.VarBind, len(varBinds))
	for i, vb := range varBinds {
		pollerVarBinds[i] = poller.VarBind{OID: vb.OID, OIDSize: vb.OIDSize, ValueSize: vb.ValueSize}
	}

	return scheduler.Run(pduType.wire(), pollerHosts, pollerVarBinds)
}

func newResult(varBinds []VarBind, columns [][]byte, errs []poller.Error) *Result {
	res := &Result{
		VarBinds: append([]VarBind(nil), varBinds...),
		Columns:  columns,
		Errors:   make([]Error, len(errs)),
	}
	for i, e := range errs {
		res.Errors[i] = errorFromPoller(e)
	}
	return res
}

// checkRoots rejects empty roots and any pair where one root is a prefix of,
// or equal to, the other.
func checkRoots(varBinds []VarBind) error {
	for i, vb := range varBinds {
		if len(vb.OID) == 0 {
			return fmt.Errorf("var bind %d has an empty root", i)
		}
	}
	for i := 0; i < len(varBinds)-1; i++ {
		for j := i + 1; j < len(varBinds); j++ {
			if oid.Overlaps(varBinds[i].OID, varBinds[j].OID) {
				return &AmbiguousRootsError{First: varBinds[i].OID, Second: varBinds[j].OID}
			}
		}
	}
	return nil
}

func errorFromPoller(e poller.Error) Error {
	return Error{
		Type:     ErrorType(e.Type),
		Host:     hostFromPoller(e.Host),
		ErrStat:  e.ErrStat,
		ErrIndex: e.ErrIndex,
		ErrOID:   e.ErrOID,
		Message:  e.Message,
		Cause:    e.Cause,
	}
}
