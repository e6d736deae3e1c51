// Package config provides YAML configuration parsing for snmpfetch.
//
// This package enables running snmpfetch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	pdu_type: bulkget
//	max_active_sessions: 20
//	community: ${SNMP_COMMUNITY:-public}
//
//	defaults:
//	  retries: 2
//	  timeout: 2s
//	  var_binds_per_pdu: 10
//	  bulk_repetitions: 25
//
//	var_binds:
//	  - oid: .1.3.6.1.2.1.2.2.1.2
//	    oid_size: 128
//	    value_size: 64
//
//	hosts:
//	  - id: 1
//	    hostname: core1.example.net
//	    labels:
//	      site: ams1
//
//	grids:
//	  - hostname_template: "sw{{.rack}}.ams1.example.net"
//	    dimensions:
//	      rack: ["01", "02"]
//
//	serve:
//	  port: 8080
//	  poll_interval: 60s
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/snmpfetch"
	"github.com/jpalmerr/snmpfetch/internal/oid"
)

// minPollInterval is the minimum allowed polling interval in serve mode.
const minPollInterval = 1 * time.Second

// Config is the root configuration structure for snmpfetch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// PDUType is the request kind: get, next or bulkget. Defaults to get.
	PDUType string `yaml:"pdu_type"`

	// MaxActiveSessions bounds concurrently open sessions. Defaults to 10.
	MaxActiveSessions int `yaml:"max_active_sessions"`

	// AgentPort is the UDP port used for hostnames without one. Defaults to
	// the transport's default (161).
	AgentPort int `yaml:"agent_port"`

	// Community is applied to hosts and grids that declare none.
	// Accepts the same forms as entries of a host's communities list.
	Community *CommunityConfig `yaml:"community"`

	// Defaults is the request configuration for hosts without their own.
	Defaults RequestConfig `yaml:"defaults"`

	// VarBinds are the subtree roots to collect, in result order.
	VarBinds []VarBindConfig `yaml:"var_binds"`

	// Hosts defines individual agents.
	Hosts []HostConfig `yaml:"hosts"`

	// Grids defines host grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`

	// Serve configures the monitor started by the serve command.
	Serve ServeConfig `yaml:"serve"`

	pduType snmpfetch.PDUType
}

// RequestConfig mirrors [snmpfetch.Config]. Unset fields keep the SDK
// defaults.
type RequestConfig struct {
	// Retries is a pointer so that an explicit 0 disables retries.
	Retries         *int     `yaml:"retries"`
	Timeout         Duration `yaml:"timeout"`
	VarBindsPerPDU  int      `yaml:"var_binds_per_pdu"`
	BulkRepetitions int      `yaml:"bulk_repetitions"`
}

// IsZero reports whether no field was set.
func (r RequestConfig) IsZero() bool {
	return r.Retries == nil && r.Timeout == 0 && r.VarBindsPerPDU == 0 && r.BulkRepetitions == 0
}

// VarBindConfig defines one subtree root and its row buffer sizes.
type VarBindConfig struct {
	// OID is the dotted root identifier, e.g. ".1.3.6.1.2.1.1".
	OID string `yaml:"oid"`

	// OIDSize is the byte capacity reserved per row for the identifier.
	OIDSize uint64 `yaml:"oid_size"`

	// ValueSize is the byte capacity reserved per row for the value.
	ValueSize uint64 `yaml:"value_size"`
}

// HostConfig defines a single agent.
type HostConfig struct {
	// ID identifies the host in results. Must be unique.
	ID uint64 `yaml:"id"`

	// Hostname is the agent address, optionally with a port.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Hostname string `yaml:"hostname"`

	// Labels are metadata key-value pairs shown in snapshots.
	Labels map[string]string `yaml:"labels"`

	// Communities are tried in order; only the first is used for requests.
	// Defaults to the top-level community.
	Communities []CommunityConfig `yaml:"communities"`

	// Config overrides the top-level defaults for this host.
	Config RequestConfig `yaml:"config"`

	// Parameters are carried through to the host but do not affect requests.
	Parameters []ParameterConfig `yaml:"parameters"`
}

// GridConfig defines a host grid that expands via cartesian product.
//
// For example, with dimensions {site: [ams1, fra1], rack: ["01", "02"]},
// the grid expands to 4 hosts.
type GridConfig struct {
	// HostnameTemplate is a Go template for generating hostnames.
	// Dimension keys are available as template variables: {{.site}}
	// Supports environment variable substitution in the template.
	HostnameTemplate string `yaml:"hostname_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	// FirstID is the id of the first generated host. Defaults to one past
	// the largest id defined before this grid.
	FirstID uint64 `yaml:"first_id"`

	// Labels are additional labels applied to all generated hosts.
	// They take precedence over dimension labels.
	Labels map[string]string `yaml:"labels"`

	// Communities are shared by every generated host.
	Communities []CommunityConfig `yaml:"communities"`

	// Config overrides the top-level defaults for every generated host.
	Config RequestConfig `yaml:"config"`
}

// ParameterConfig is an object identity range.
type ParameterConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ServeConfig configures monitor mode.
type ServeConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between rounds. Defaults to 60s.
	PollInterval Duration `yaml:"poll_interval"`
}

// CommunityConfig is a community string and its protocol version.
//
// It supports two formats in YAML:
//
// Shorthand string, "version:string" or just the string for v2c:
//
//	community: public
//	community: v1:legacy
//
// Structured object:
//
//	community:
//	  version: 2c
//	  string: public
type CommunityConfig struct {
	Version string
	String  string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for CommunityConfig.
func (c *CommunityConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		c.parseShorthand(s)
		return nil
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Version string `yaml:"version"`
			String  string `yaml:"string"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		c.Version = raw.Version
		c.String = raw.String
		return nil
	}

	return fmt.Errorf("community must be a string or object, got %v", node.Kind)
}

// parseShorthand splits "v1:legacy" into version and string. A prefix that
// is not a known version is part of the community string.
func (c *CommunityConfig) parseShorthand(s string) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ":"); idx != -1 {
		if _, err := snmpfetch.ParseVersion(s[:idx]); err == nil {
			c.Version = s[:idx]
			c.String = s[idx+1:]
			return
		}
	}
	c.String = s
}

// version returns the parsed protocol version, v2c when unset.
func (c CommunityConfig) version() (snmpfetch.Version, error) {
	if c.Version == "" {
		return snmpfetch.V2C, nil
	}
	return snmpfetch.ParseVersion(c.Version)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in hostnames, hostname templates and
// community strings. Defaults are applied for PDUType (get),
// MaxActiveSessions (10), Serve.Port (8080) and Serve.PollInterval (60s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.PDUType == "" {
		cfg.PDUType = "get"
	}
	if cfg.MaxActiveSessions == 0 {
		cfg.MaxActiveSessions = 10
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 8080
	}
	if cfg.Serve.PollInterval == 0 {
		cfg.Serve.PollInterval = Duration(60 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// PDU returns the parsed request kind. Valid only on a Config returned by
// [Parse] or [Load].
func (c *Config) PDU() snmpfetch.PDUType {
	return c.pduType
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	kind, err := snmpfetch.ParsePDUType(c.PDUType)
	if err != nil {
		return fmt.Errorf("pdu_type: %w", err)
	}
	c.pduType = kind

	if c.MaxActiveSessions < 0 {
		return fmt.Errorf("max_active_sessions must be positive, got %d", c.MaxActiveSessions)
	}
	if c.AgentPort < 0 || c.AgentPort > 65535 {
		return fmt.Errorf("agent_port must be between 1 and 65535, got %d", c.AgentPort)
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	if c.Serve.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("serve.poll_interval must be at least %s, got %s", minPollInterval, c.Serve.PollInterval.Duration())
	}

	if c.Community != nil {
		if err := expandCommunity(c.Community, "community"); err != nil {
			return err
		}
	}
	if err := validateRequestConfig(c.Defaults, "defaults"); err != nil {
		return err
	}

	if len(c.VarBinds) == 0 {
		return errors.New("at least one var bind must be defined")
	}
	roots := make([]oid.OID, len(c.VarBinds))
	for i, vb := range c.VarBinds {
		root, err := oid.Parse(vb.OID)
		if err != nil {
			return fmt.Errorf("var_binds[%d]: oid: %w", i, err)
		}
		if vb.OIDSize == 0 {
			return fmt.Errorf("var_binds[%d] (%s): oid_size is required", i, vb.OID)
		}
		if vb.ValueSize == 0 {
			return fmt.Errorf("var_binds[%d] (%s): value_size is required", i, vb.OID)
		}
		for j := 0; j < i; j++ {
			if oid.Overlaps(roots[j], root) {
				return fmt.Errorf("var_binds[%d] (%s): overlaps var_binds[%d] (%s)", i, vb.OID, j, c.VarBinds[j].OID)
			}
		}
		roots[i] = root
	}

	seen := make(map[uint64]int, len(c.Hosts))
	for i := range c.Hosts {
		h := &c.Hosts[i]

		if h.Hostname == "" {
			return fmt.Errorf("hosts[%d]: hostname is required", i)
		}
		expanded, err := expandEnvVars(h.Hostname)
		if err != nil {
			return fmt.Errorf("hosts[%d]: hostname: %w", i, err)
		}
		h.Hostname = expanded
		ctx := fmt.Sprintf("hosts[%d] (%s)", i, h.Hostname)

		if prev, dup := seen[h.ID]; dup {
			return fmt.Errorf("%s: id %d already used by hosts[%d]", ctx, h.ID, prev)
		}
		seen[h.ID] = i

		if len(h.Communities) == 0 && c.Community == nil {
			return fmt.Errorf("%s: at least one community is required", ctx)
		}
		for j := range h.Communities {
			if err := expandCommunity(&h.Communities[j], fmt.Sprintf("%s: communities[%d]", ctx, j)); err != nil {
				return err
			}
		}

		if err := validateRequestConfig(h.Config, ctx+": config"); err != nil {
			return err
		}

		for j, p := range h.Parameters {
			start, err := oid.Parse(p.Start)
			if err != nil {
				return fmt.Errorf("%s: parameters[%d]: start: %w", ctx, j, err)
			}
			end, err := oid.Parse(p.End)
			if err != nil {
				return fmt.Errorf("%s: parameters[%d]: end: %w", ctx, j, err)
			}
			if oid.Compare(start, end) > 0 {
				return fmt.Errorf("%s: parameters[%d]: start %s is after end %s", ctx, j, start, end)
			}
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]

		if g.HostnameTemplate == "" {
			return fmt.Errorf("grids[%d]: hostname_template is required", i)
		}
		expanded, err := expandEnvVars(g.HostnameTemplate)
		if err != nil {
			return fmt.Errorf("grids[%d]: hostname_template: %w", i, err)
		}
		g.HostnameTemplate = expanded
		ctx := fmt.Sprintf("grids[%d] (%s)", i, g.HostnameTemplate)

		// fail fast before SDK tries to use invalid template
		if _, err := template.New("").Parse(g.HostnameTemplate); err != nil {
			return fmt.Errorf("%s: invalid hostname_template: %w", ctx, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", ctx)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", ctx, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", ctx, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if len(g.Communities) == 0 && c.Community == nil {
			return fmt.Errorf("%s: at least one community is required", ctx)
		}
		for j := range g.Communities {
			if err := expandCommunity(&g.Communities[j], fmt.Sprintf("%s: communities[%d]", ctx, j)); err != nil {
				return err
			}
		}

		if err := validateRequestConfig(g.Config, ctx+": config"); err != nil {
			return err
		}
	}

	if len(c.Hosts) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one host or grid must be defined")
	}

	return nil
}

// expandCommunity expands environment variables in a community string and
// validates it.
func expandCommunity(cc *CommunityConfig, context string) error {
	expanded, err := expandEnvVars(cc.String)
	if err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	cc.String = expanded

	if cc.String == "" {
		return fmt.Errorf("%s: community string is required", context)
	}
	if _, err := cc.version(); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// validateRequestConfig rejects negative request settings.
func validateRequestConfig(r RequestConfig, context string) error {
	if r.Retries != nil && *r.Retries < 0 {
		return fmt.Errorf("%s: retries cannot be negative, got %d", context, *r.Retries)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%s: timeout cannot be negative, got %s", context, r.Timeout.Duration())
	}
	if r.VarBindsPerPDU < 0 {
		return fmt.Errorf("%s: var_binds_per_pdu cannot be negative, got %d", context, r.VarBindsPerPDU)
	}
	if r.BulkRepetitions < 0 {
		return fmt.Errorf("%s: bulk_repetitions cannot be negative, got %d", context, r.BulkRepetitions)
	}
	return nil
}
