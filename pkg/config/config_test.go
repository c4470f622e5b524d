package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/skyline.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	cfg, _ := Load("")
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("default tcp_addr: got %s", cfg.Server.TCPAddr)
	}
	if cfg.Index.MaxChildren != 8 {
		t.Errorf("default max_children: got %d", cfg.Index.MaxChildren)
	}
	if cfg.Skyline.VerifyEvery != 0 {
		t.Errorf("default verify_every: got %d", cfg.Skyline.VerifyEvery)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level: got %s", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  addr: ":9000"
  tcp_addr: ":9001"
index:
  max_children: 16
skyline:
  verify_every: 50
dataset:
  path: "data/points.txt"
log:
  level: debug
  console: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.Index.MaxChildren != 16 {
		t.Errorf("max_children: got %d", cfg.Index.MaxChildren)
	}
	if cfg.Skyline.VerifyEvery != 50 {
		t.Errorf("verify_every: got %d", cfg.Skyline.VerifyEvery)
	}
	if cfg.Dataset.Path != "data/points.txt" {
		t.Errorf("dataset path: got %s", cfg.Dataset.Path)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Console {
		t.Errorf("log: got %+v", cfg.Log)
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := `
server:
  rate_limit: 25.5
index:
  max_children: 2
skyline:
  verify_every: -3
log:
  level: ""
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.MaxChildren != 8 {
		t.Errorf("max_children: got %d", cfg.Index.MaxChildren)
	}
	if cfg.Skyline.VerifyEvery != 0 {
		t.Errorf("verify_every: got %d", cfg.Skyline.VerifyEvery)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
	if cfg.Server.RateBurst != 25 {
		t.Errorf("rate_burst: got %d", cfg.Server.RateBurst)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected yaml error")
	}
}
