package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRootCmd_HasExpectedFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "collection", "dry-run", "json"} {
		if root.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestRootCmd_NoArgs_Allowed(t *testing.T) {
	root := NewRootCmd()
	if err := root.Args(root, nil); err != nil {
		t.Errorf("NoArgs should accept zero positional args: %v", err)
	}
	if err := root.Args(root, []string{"extra"}); err == nil {
		t.Error("NoArgs should reject a positional arg")
	}
}

func TestRootCmd_DryRun_DoesNotRequireRemote(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "outlinesync.yaml")
	content := "api_base_url: http://example.invalid\napi_token: tok\ncollection_id: c1\nsync_root: " + dir + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", configPath, "--dry-run"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "dry-run") {
		t.Errorf("expected dry-run output, got: %s", out.String())
	}
}

func TestRootCmd_MissingConfig_Fails(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := root.Execute(); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestRootCmd_DefaultConfigPath_IsInitConfigYAML(t *testing.T) {
	root := NewRootCmd()
	flag := root.Flags().Lookup("config")
	if flag == nil {
		t.Fatal("expected --config flag to be registered")
	}
	if flag.DefValue != "init/config.yaml" {
		t.Errorf("default --config = %q, want %q", flag.DefValue, "init/config.yaml")
	}
}

func TestRootCmd_ConfigEnvVar_UsedWhenFlagNotSet(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "env-config.yaml")
	content := "api_base_url: http://example.invalid\napi_token: tok\ncollection_id: c1\nsync_root: " + dir + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OUTLINESYNC_CONFIG", configPath)

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--dry-run"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "dry-run") {
		t.Errorf("expected dry-run output picked up via env var config, got: %s", out.String())
	}
}

func TestRootCmd_MultipleCollectionsNoFlag_FailsFastWithoutTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "c1", "name": "One"},
				{"id": "c2", "name": "Two"},
			},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "outlinesync.yaml")
	content := "api_base_url: " + srv.URL + "\napi_token: tok\nsync_root: " + dir + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", configPath})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected an error when multiple collections exist and stdin is not a terminal")
	}
	if !strings.Contains(err.Error(), "non-interactive") {
		t.Errorf("expected a non-interactive-terminal error, got: %v", err)
	}
}

func TestRootCmd_ConfigEnvVar_IgnoredWhenFlagExplicitlySet(t *testing.T) {
	dir := t.TempDir()
	flagConfigPath := filepath.Join(dir, "flag-config.yaml")
	content := "api_base_url: http://example.invalid\napi_token: tok\ncollection_id: c1\nsync_root: " + dir + "\n"
	if err := os.WriteFile(flagConfigPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OUTLINESYNC_CONFIG", filepath.Join(dir, "does-not-exist.yaml"))

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", flagConfigPath, "--dry-run"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
