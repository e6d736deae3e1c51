package snmpfetch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// NewHostGrid creates multiple hosts from a hostname template and dimensions
// using cartesian product expansion.
//
// The hostname template uses Go's text/template syntax. Missing template
// keys cause an error (fail-fast). Hosts are numbered sequentially from the
// id given to [WithFirstID] (default 1), in the order combinations are
// generated: dimension keys sorted alphabetically, the rightmost key
// varying fastest.
//
// Labels are automatically added from dimension values. Static labels from
// [WithGridLabels] take precedence over dimension labels on collision.
//
// Example:
//
//	hosts, err := snmpfetch.NewHostGrid(
//	    snmpfetch.WithHostnameTemplate("sw{{.rack}}-{{.unit}}.dc1.example.net"),
//	    snmpfetch.WithDimensions(map[string][]string{
//	        "rack": {"01", "02"},
//	        "unit": {"a", "b"},
//	    }),
//	    snmpfetch.WithGridCommunity(snmpfetch.V2C, "public"),
//	)
//	// Returns 4 hosts with ids 1..4
func NewHostGrid(opts ...GridOption) ([]Host, error) {
	// initialise config with empty label map
	cfg := &gridConfig{
		firstID:      1,
		staticLabels: make(map[string]string),
	}

	// apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// validate required fields
	if cfg.hostnameTemplate == "" {
		return nil, errors.New("hostname template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// parse template with missingkey=error for fail-fast behaviour
	tmpl, err := template.New("hostname").Option("missingkey=error").Parse(cfg.hostnameTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid hostname template: %w", err)
	}

	// generate combinations
	combinations := cartesianProduct(cfg.dimensions)
	if len(combinations) == 0 {
		return nil, nil
	}

	// create hosts, numbered in combination order
	hosts := make([]Host, 0, len(combinations))
	for i, combo := range combinations {
		hostname, err := executeTemplate(tmpl, combo)
		if err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		// dimension labels first, static labels override
		labels := mergeMaps(combo, cfg.staticLabels)

		// build host options
		hostOpts := []HostOption{
			WithLabels(flattenMap(labels)...),
			WithCommunities(cfg.communities...),
		}
		if cfg.config != nil {
			hostOpts = append(hostOpts, WithHostConfig(*cfg.config))
		}

		h, err := NewHost(cfg.firstID+uint64(i), hostname, hostOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create host %q: %w", hostname, err)
		}
		hosts = append(hosts, h)
	}

	return hosts, nil
}

// cartesianProduct generates all combinations of dimension values.
// Keys are sorted alphabetically for deterministic output.
// Values maintain their original slice order.
//
// Example:
//
//	Input:  {"x": ["a","b"], "y": ["1","2"]}
//	Output: [{"x":"a","y":"1"}, {"x":"a","y":"2"}, {"x":"b","y":"1"}, {"x":"b","y":"2"}]
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}

	// sort keys for deterministic iteration
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// empty dimensions are also rejected by WithDimensions
	for _, k := range keys {
		if len(dims[k]) == 0 {
			return nil
		}
	}

	// calculate total combinations
	total := 1
	for _, k := range keys {
		total *= len(dims[k])
	}

	result := make([]map[string]string, 0, total)

	// cartesian product
	indices := make([]int, len(keys))
	for {
		combo := make(map[string]string, len(keys))
		for i, k := range keys {
			combo[k] = dims[k][indices[i]]
		}
		result = append(result, combo)

		// increment indices (rightmost first)
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[keys[i]]) {
				break
			}
			indices[i] = 0
			if i == 0 {
				return result
			}
		}
	}
}

// executeTemplate renders the template with the given data.
func executeTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// mergeMaps merges multiple maps, with later maps taking precedence.
func mergeMaps(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// flattenMap converts a map to a slice of key-value pairs for variadic functions.
// Keys are sorted for deterministic output.
func flattenMap(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(m)*2)
	for _, k := range keys {
		result = append(result, k, m[k])
	}
	return result
}
