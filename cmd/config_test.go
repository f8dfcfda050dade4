package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"toolgate/internal/config"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range config.Keys {
		t.Setenv(key, "")
	}
}

func useEnvFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	original := envFile
	envFile = path
	t.Cleanup(func() { envFile = original })
}

func TestConfigCommand_YAML(t *testing.T) {
	clearConfigEnv(t)
	useEnvFile(t, "MODE=stateless\nVALKEY_PASSWORD=hunter2\n")

	cmd := newConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "yaml", "--port", "9090"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config command failed: %v", err)
	}

	output := out.String()
	for _, want := range []string{"port: 9090", "mode: stateless", "[REDACTED]"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q. Got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "hunter2") {
		t.Errorf("Output leaked the valkey password:\n%s", output)
	}
}

func TestConfigCommand_Table(t *testing.T) {
	clearConfigEnv(t)
	useEnvFile(t, "")

	cmd := newConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "table"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config command failed: %v", err)
	}

	output := out.String()
	for _, key := range config.Keys {
		if !strings.Contains(output, key) {
			t.Errorf("Expected table to list %s", key)
		}
	}
	if !strings.Contains(output, "8000") {
		t.Errorf("Expected default port in table. Got:\n%s", output)
	}
}

func TestConfigCommand_ReportsValidationErrors(t *testing.T) {
	clearConfigEnv(t)
	useEnvFile(t, "AUTH_ENABLED=true\n")

	cmd := newConfigCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"-o", "yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Expected validation error when auth settings are missing")
	}
	if getExitCode(err) != ExitCodeConfig {
		t.Errorf("Expected exit code %d, got %d", ExitCodeConfig, getExitCode(err))
	}
	if !strings.Contains(out.String(), "port: 5050") {
		t.Errorf("Expected the configuration to be printed anyway. Got:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), config.KeyClientID) {
		t.Errorf("Expected report to mention %s. Got:\n%s", config.KeyClientID, errOut.String())
	}
}

func TestConfigCommand_UnsupportedFormat(t *testing.T) {
	cmd := newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-o", "json"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected an error for an unsupported output format")
	}
}
