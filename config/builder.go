package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/snmpfetch"
)

// BuildHosts converts parsed configuration into SDK Host values.
//
// It processes both direct hosts and grids, returning a combined slice.
// Grid dimensions are expanded via cartesian product. Ids must be unique
// across the result.
func BuildHosts(cfg *Config) ([]snmpfetch.Host, error) {
	var hosts []snmpfetch.Host
	var maxID uint64
	seen := make(map[uint64]string)

	add := func(h snmpfetch.Host) error {
		if prev, dup := seen[h.ID()]; dup {
			return fmt.Errorf("host %s: id %d already used by %s", h.Hostname(), h.ID(), prev)
		}
		seen[h.ID()] = h.Hostname()
		if h.ID() > maxID {
			maxID = h.ID()
		}
		hosts = append(hosts, h)
		return nil
	}

	for i, hc := range cfg.Hosts {
		h, err := buildHost(cfg, hc)
		if err != nil {
			return nil, fmt.Errorf("hosts[%d]: %w", i, err)
		}
		if err := add(h); err != nil {
			return nil, err
		}
	}

	for i, gc := range cfg.Grids {
		firstID := gc.FirstID
		if firstID == 0 {
			firstID = maxID + 1
		}
		gridHosts, err := buildGridHosts(cfg, gc, firstID)
		if err != nil {
			return nil, fmt.Errorf("grids[%d]: %w", i, err)
		}
		for _, h := range gridHosts {
			if err := add(h); err != nil {
				return nil, err
			}
		}
	}

	return hosts, nil
}

// buildHost converts a single HostConfig to an SDK Host.
func buildHost(cfg *Config, hc HostConfig) (snmpfetch.Host, error) {
	var opts []snmpfetch.HostOption

	communities, err := buildCommunities(cfg, hc.Communities)
	if err != nil {
		return snmpfetch.Host{}, err
	}
	opts = append(opts, snmpfetch.WithCommunities(communities...))

	if len(hc.Labels) > 0 {
		opts = append(opts, snmpfetch.WithLabels(mapToKeyValuePairs(hc.Labels)...))
	}

	if !hc.Config.IsZero() {
		opts = append(opts, snmpfetch.WithHostConfig(resolveRequestConfig(cfg.Defaults, hc.Config)))
	}

	for _, p := range hc.Parameters {
		opts = append(opts, snmpfetch.WithParameter(p.Start, p.End))
	}

	return snmpfetch.NewHost(hc.ID, hc.Hostname, opts...)
}

// buildGridHosts expands a GridConfig into hosts numbered from firstID.
func buildGridHosts(cfg *Config, gc GridConfig, firstID uint64) ([]snmpfetch.Host, error) {
	opts := []snmpfetch.GridOption{
		snmpfetch.WithHostnameTemplate(gc.HostnameTemplate),
		snmpfetch.WithDimensions(gc.Dimensions),
		snmpfetch.WithFirstID(firstID),
	}

	communities, err := buildCommunities(cfg, gc.Communities)
	if err != nil {
		return nil, err
	}
	for _, c := range communities {
		opts = append(opts, snmpfetch.WithGridCommunity(c.Version, c.String))
	}

	if len(gc.Labels) > 0 {
		opts = append(opts, snmpfetch.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}

	if !gc.Config.IsZero() {
		opts = append(opts, snmpfetch.WithGridConfig(resolveRequestConfig(cfg.Defaults, gc.Config)))
	}

	return snmpfetch.NewHostGrid(opts...)
}

// buildCommunities converts community entries, falling back to the
// top-level community when list is empty.
func buildCommunities(cfg *Config, list []CommunityConfig) ([]snmpfetch.Community, error) {
	if len(list) == 0 && cfg.Community != nil {
		list = []CommunityConfig{*cfg.Community}
	}

	out := make([]snmpfetch.Community, 0, len(list))
	for _, cc := range list {
		v, err := cc.version()
		if err != nil {
			return nil, err
		}
		out = append(out, snmpfetch.Community{Version: v, String: cc.String})
	}
	return out, nil
}

// BuildVarBinds converts the var_binds list into SDK VarBind values, in
// order.
func BuildVarBinds(cfg *Config) ([]snmpfetch.VarBind, error) {
	varBinds := make([]snmpfetch.VarBind, 0, len(cfg.VarBinds))
	for i, vc := range cfg.VarBinds {
		vb, err := snmpfetch.NewVarBind(vc.OID, vc.OIDSize, vc.ValueSize)
		if err != nil {
			return nil, fmt.Errorf("var_binds[%d]: %w", i, err)
		}
		varBinds = append(varBinds, vb)
	}
	return varBinds, nil
}

// DefaultConfig returns the SDK defaults overlaid with the defaults block.
func DefaultConfig(cfg *Config) snmpfetch.Config {
	return resolveRequestConfig(RequestConfig{}, cfg.Defaults)
}

// FetchOptions returns the SDK options carried by the configuration.
func FetchOptions(cfg *Config) []snmpfetch.Option {
	opts := []snmpfetch.Option{
		snmpfetch.WithConfig(DefaultConfig(cfg)),
		snmpfetch.WithMaxActiveSessions(cfg.MaxActiveSessions),
	}
	if cfg.AgentPort != 0 {
		opts = append(opts, snmpfetch.WithAgentPort(cfg.AgentPort))
	}
	return opts
}

// resolveRequestConfig overlays override onto base, and base onto the SDK
// defaults. Zero fields fall through.
func resolveRequestConfig(base, override RequestConfig) snmpfetch.Config {
	out := snmpfetch.DefaultConfig()
	for _, r := range []RequestConfig{base, override} {
		if r.Retries != nil {
			out.Retries = *r.Retries
		}
		if r.Timeout != 0 {
			out.Timeout = r.Timeout.Duration()
		}
		if r.VarBindsPerPDU != 0 {
			out.VarBindsPerPDU = r.VarBindsPerPDU
		}
		if r.BulkRepetitions != 0 {
			out.BulkRepetitions = r.BulkRepetitions
		}
	}
	return out
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
