package snmpfetch

import (
	"errors"
	"fmt"
)

// gridConfig holds configuration during host grid construction.
type gridConfig struct {
	hostnameTemplate string
	dimensions       map[string][]string
	staticLabels     map[string]string
	communities      []Community
	config           *Config
	firstID          uint64
}

// GridOption configures host grid generation.
// GridOption implements the functional options pattern for [NewHostGrid].
type GridOption func(*gridConfig) error

// WithHostnameTemplate sets the hostname template for host generation.
// The template uses Go's text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithHostnameTemplate("{{.site}}-edge{{.n}}.example.net:1161")
//
// Returns an error if the template string is empty.
func WithHostnameTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("hostname template required")
		}
		cfg.hostnameTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable, and the cartesian product
// of all values generates the host combinations.
//
// Example:
//
//	WithDimensions(map[string][]string{
//	    "site": {"ams1", "fra1"},
//	    "n":    {"1", "2", "3"},
//	})
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to all generated hosts.
// These labels are merged with auto-generated dimension labels.
// On collision, static labels take precedence over dimension labels.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	WithGridLabels("team", "netops", "tier", "core")
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.staticLabels == nil {
			cfg.staticLabels = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridCommunity adds a community to all generated hosts.
// Can be called multiple times; order is preserved.
//
// Returns an error if the community string is empty or the version is
// unknown.
func WithGridCommunity(version Version, community string) GridOption {
	return func(cfg *gridConfig) error {
		if version != V1 && version != V2C {
			return fmt.Errorf("unknown version %s", version)
		}
		if community == "" {
			return errors.New("community string cannot be empty")
		}
		cfg.communities = append(cfg.communities, Community{Version: version, String: community})
		return nil
	}
}

// WithGridConfig sets the collection settings of all generated hosts.
//
// Returns an error if any field is negative.
func WithGridConfig(c Config) GridOption {
	return func(cfg *gridConfig) error {
		if err := c.validate(); err != nil {
			return fmt.Errorf("grid config: %w", err)
		}
		cfg.config = &c
		return nil
	}
}

// WithFirstID sets the id of the first generated host. Later hosts take
// consecutive ids. Defaults to 1.
func WithFirstID(id uint64) GridOption {
	return func(cfg *gridConfig) error {
		cfg.firstID = id
		return nil
	}
}
