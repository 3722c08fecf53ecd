package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildRootCmd(t *testing.T) {
	root := buildRootCmd()
	if root.Use != "deskagent" {
		t.Errorf("Use = %q", root.Use)
	}

	want := map[string]bool{"serve": false, "tools": false, "invoke": false}
	for _, cmd := range root.Commands() {
		name := cmd.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 8765 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deskagent.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestResolveConfigPathEnvFallback(t *testing.T) {
	t.Setenv("DESKAGENT_CONFIG", "/etc/deskagent.yaml")
	if got := resolveConfigPath(""); got != "/etc/deskagent.yaml" {
		t.Errorf("resolveConfigPath = %q", got)
	}
	if got := resolveConfigPath("explicit.yaml"); got != "explicit.yaml" {
		t.Errorf("explicit path overridden: %q", got)
	}
}
