package snmpfetch

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/snmpfetch/internal/oid"
)

// hostConfig holds mutable state during host construction.
type hostConfig struct {
	labels      map[string]string
	communities []Community
	parameters  []ObjectIdentityParameter
	config      *Config
}

// HostOption configures a [Host] during construction.
//
// HostOption implements the functional options pattern, allowing optional
// configuration to be passed to [NewHost]. Options return an error if
// validation fails.
type HostOption func(*hostConfig) error

// WithLabels adds key-value labels to the host.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
// Labels with the same key are overwritten by later values.
//
// Example:
//
//	h, err := snmpfetch.NewHost(1, "10.0.0.1",
//	    snmpfetch.WithLabels("site", "ams1", "role", "core"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) HostOption {
	return func(cfg *hostConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.labels == nil {
			cfg.labels = make(map[string]string, len(keyValues)/2)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithCommunity appends a community to the host.
//
// Can be called multiple times; the first community is the one used to
// collect. A host without any community is reported as a SESSION_ERROR
// when collected.
//
// Example:
//
//	h, err := snmpfetch.NewHost(1, "10.0.0.1",
//	    snmpfetch.WithCommunity(snmpfetch.V2C, "public"),
//	)
//
// Returns an error if the community string is empty or the version is
// unknown.
func WithCommunity(version Version, community string) HostOption {
	return func(cfg *hostConfig) error {
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

// WithCommunities appends several communities at once. Equivalent to
// calling [WithCommunity] for each.
func WithCommunities(communities ...Community) HostOption {
	return func(cfg *hostConfig) error {
		for _, c := range communities {
			if err := WithCommunity(c.Version, c.String)(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithHostConfig sets collection settings for this host only. They replace
// the caller default given to [WithConfig] as a whole.
//
// Returns an error if any field is negative.
func WithHostConfig(c Config) HostOption {
	return func(cfg *hostConfig) error {
		if err := c.validate(); err != nil {
			return fmt.Errorf("host config: %w", err)
		}
		cfg.config = &c
		return nil
	}
}

// WithParameter attaches an identifier range to the host.
//
// Returns an error if either bound does not parse or start sorts after end.
func WithParameter(start, end string) HostOption {
	return func(cfg *hostConfig) error {
		s, err := oid.Parse(start)
		if err != nil {
			return fmt.Errorf("parameter start: %w", err)
		}
		e, err := oid.Parse(end)
		if err != nil {
			return fmt.Errorf("parameter end: %w", err)
		}
		if oid.Compare(s, e) > 0 {
			return fmt.Errorf("parameter start %s is after end %s", s, e)
		}
		cfg.parameters = append(cfg.parameters, ObjectIdentityParameter{Start: s, End: e})
		return nil
	}
}
