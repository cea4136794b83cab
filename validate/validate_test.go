package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidateConfigValid(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
prefix: "!"
admins:
  - admin
storage:
  backend: sqlite
  sqlite_path: bot.db
`)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("expected valid config, got errors: %v", result.Errors)
	}
	if result.File != "config.yaml" {
		t.Errorf("expected file name config.yaml, got %q", result.File)
	}
}

func TestValidateConfigMissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if result.Valid {
		t.Fatal("expected missing file to be invalid")
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected an error message for the missing file")
	}
}

func TestValidateConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown backend",
			yaml: "storage:\n  backend: cassandra\n",
		},
		{
			name: "sqlite without path",
			yaml: "storage:\n  backend: sqlite\n  sqlite_path: \"\"\n",
		},
		{
			name: "redis without address",
			yaml: "storage:\n  backend: redis\n  redis:\n    addr: \"\"\n",
		},
		{
			name: "empty prefix",
			yaml: "prefix: \"\"\n",
		},
		{
			name: "negative expiry",
			yaml: "expiry:\n  enabled: true\n  max_age: -1h\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			result := validateConfig(path)
			if result.Valid {
				t.Fatalf("expected invalid config for %q", tt.yaml)
			}
		})
	}
}

func TestValidateConfigNotes(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
expiry:
  enabled: true
  max_age: 1h
  interval: 10m
`)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("notes must not fail validation, got errors: %v", result.Errors)
	}
	if len(result.Errors) < 2 {
		t.Errorf("expected notes about memory expiry and missing admins, got %v", result.Errors)
	}
}
