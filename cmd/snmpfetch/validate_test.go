package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCmd runs the root command with args and returns captured stdout
// and any error.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer rootCmd.SetOut(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
pdu_type: next
community: public
var_binds:
  - oid: .1.3.6.1.2.1.2.2.1.2
    oid_size: 128
    value_size: 64
hosts:
  - id: 1
    hostname: 10.0.0.1
grids:
  - hostname_template: "sw{{.rack}}.example.net"
    dimensions:
      rack: ["01", "02"]
serve:
  poll_interval: 10s
`)

	output, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"PDU type:      next",
		"Var binds:     1",
		"Port:          8080",
		"Poll interval: 10s",
		"1 direct + 2 from grids = 3 total",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
community: public
var_binds:
  - oid: .1.3.6.1.2.1.1
    oid_size: 64
    value_size: 64
hosts:
  - id: 1
`)

	_, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "hostname is required") {
		t.Errorf("error should mention 'hostname is required', got: %v", err)
	}
}

func TestRunValidate_GridMissingKey(t *testing.T) {
	configPath := writeConfig(t, `
community: public
var_binds:
  - oid: .1.3.6.1.2.1.1
    oid_size: 64
    value_size: 64
grids:
  - hostname_template: "{{.site}}-{{.rack}}"
    dimensions:
      site: [ams1]
`)

	_, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil || !strings.Contains(err.Error(), "grids[0]") {
		t.Errorf("validate command error = %v, want grids[0] error", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	output, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.HasPrefix(output, "snmpfetch dev") {
		t.Errorf("output = %q, want snmpfetch dev prefix", output)
	}
}
