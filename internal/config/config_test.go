package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, strings.TrimSpace(`
node:
  url: http://node.internal:9090
sequence:
  maxInFlight: 8
  pollInterval: 250ms
`))

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.URL != "http://node.internal:9090" {
		t.Fatalf("unexpected node url %q", cfg.Node.URL)
	}
	if cfg.Sequence.MaxInFlight != 8 {
		t.Fatalf("expected maxInFlight 8, got %d", cfg.Sequence.MaxInFlight)
	}
	if cfg.Sequence.PollInterval != 250*time.Millisecond {
		t.Fatalf("expected pollInterval 250ms, got %v", cfg.Sequence.PollInterval)
	}
	// Untouched fields keep their defaults.
	if cfg.Sequence.MaxWait != 30*time.Second {
		t.Fatalf("expected default maxWait, got %v", cfg.Sequence.MaxWait)
	}
	if cfg.RPC.Addr != DefaultRPCAddr {
		t.Fatalf("expected default rpc addr, got %q", cfg.RPC.Addr)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, strings.TrimSpace(`
node:
  url: http://from-file:9090
`))
	t.Setenv("SEQD_NODE_URL", "http://from-env:9090")
	t.Setenv("SEQD_SEQUENCE_MAX_IN_FLIGHT", "4")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Node.URL != "http://from-env:9090" {
		t.Fatalf("env override lost: %q", cfg.Node.URL)
	}
	if cfg.Sequence.MaxInFlight != 4 {
		t.Fatalf("expected maxInFlight 4, got %d", cfg.Sequence.MaxInFlight)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("expected an error for a missing explicit config path")
	}
}

func TestLoadRequiresNodeURL(t *testing.T) {
	path := writeConfig(t, "rpc:\n  addr: 127.0.0.1:1234\n")
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected validation failure without node.url")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "node: [broken")
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Node.URL = "http://127.0.0.1:9090"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	broken := cfg
	broken.Sequence.PollInterval = 0
	if err := broken.Validate(); err == nil {
		t.Fatal("expected failure for zero pollInterval")
	}

	broken = cfg
	broken.Sequence.MaxWait = -time.Second
	if err := broken.Validate(); err == nil {
		t.Fatal("expected failure for negative maxWait")
	}
}
