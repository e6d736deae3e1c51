package snmpfetch

import (
	"errors"
	"strings"

	"github.com/jpalmerr/snmpfetch/internal/poller"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// Host is an agent to collect from.
//
// Host is immutable after creation. Use [NewHost] to create instances
// with validation. All fields are accessed via getter methods.
//
// Only the first community is used to open the session; the rest are
// carried for callers that rotate credentials between runs.
type Host struct {
	id          uint64
	hostname    string
	labels      map[string]string
	communities []Community
	parameters  []ObjectIdentityParameter
	config      *Config
}

// NewHost creates a new [Host] with the given id and hostname.
//
// The id is stamped on every result row and error of the host, so it should
// be unique within a collection. The hostname is "host" or "host:port";
// port 161 is used when none is given.
//
// Returns an error if the hostname is empty or whitespace-only, or if any
// option returns an error.
//
// Example:
//
//	h, err := snmpfetch.NewHost(1, "10.0.0.1",
//	    snmpfetch.WithCommunity(snmpfetch.V2C, "public"),
//	    snmpfetch.WithHostConfig(snmpfetch.Config{Retries: 1, Timeout: time.Second}),
//	)
func NewHost(id uint64, hostname string, opts ...HostOption) (Host, error) {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return Host{}, errors.New("hostname cannot be empty")
	}

	cfg := &hostConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Host{}, err
		}
	}

	return Host{
		id:          id,
		hostname:    hostname,
		labels:      cfg.labels,
		communities: cfg.communities,
		parameters:  cfg.parameters,
		config:      cfg.config,
	}, nil
}

// ID returns the host's id.
func (h Host) ID() uint64 {
	return h.id
}

// Hostname returns the host's address.
func (h Host) Hostname() string {
	return h.hostname
}

// Labels returns a copy of the host's labels.
//
// Labels are not sent to the agent; they are carried into the monitor's
// snapshots for grouping and filtering.
func (h Host) Labels() map[string]string {
	return copyMap(h.labels)
}

// Communities returns a copy of the host's communities.
func (h Host) Communities() []Community {
	if h.communities == nil {
		return nil
	}
	cp := make([]Community, len(h.communities))
	copy(cp, h.communities)
	return cp
}

// Parameters returns a copy of the host's parameters.
func (h Host) Parameters() []ObjectIdentityParameter {
	if h.parameters == nil {
		return nil
	}
	cp := make([]ObjectIdentityParameter, len(h.parameters))
	for i, p := range h.parameters {
		cp[i] = ObjectIdentityParameter{Start: p.Start.Clone(), End: p.End.Clone()}
	}
	return cp
}

// Config returns the host's own collection settings, if it has any.
func (h Host) Config() (Config, bool) {
	if h.config == nil {
		return Config{}, false
	}
	return *h.config, true
}

// toPoller converts the host to the engine's representation.
func (h Host) toPoller() poller.Host {
	ph := poller.Host{ID: h.id, Hostname: h.hostname}
	for _, c := range h.communities {
		ph.Communities = append(ph.Communities, poller.Community{Version: c.Version.wire(), String: c.String})
	}
	for _, p := range h.parameters {
		ph.Parameters = append(ph.Parameters, poller.Parameter{Start: p.Start, End: p.End})
	}
	if h.config != nil {
		pc := poller.Config(*h.config)
		ph.Config = &pc
	}
	return ph
}

// hostFromPoller rebuilds a public host from an error snapshot.
func hostFromPoller(ph poller.Host) Host {
	h := Host{id: ph.ID, hostname: ph.Hostname}
	for _, c := range ph.Communities {
		v := V2C
		if c.Version == transport.Version1 {
			v = V1
		}
		h.communities = append(h.communities, Community{Version: v, String: c.String})
	}
	for _, p := range ph.Parameters {
		h.parameters = append(h.parameters, ObjectIdentityParameter{Start: p.Start.Clone(), End: p.End.Clone()})
	}
	if ph.Config != nil {
		c := Config(*ph.Config)
		h.config = &c
	}
	return h
}

// copyMap returns a shallow copy of the map, or nil if input is nil.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
