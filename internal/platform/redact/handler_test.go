package redact

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestHandleRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewJSONHandler(&buf, nil)))

	logger.Info("account imported",
		"mnemonic", "abandon abandon abandon",
		"rpc_token", "sekrit",
		"address", "tsr1abc")

	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if parsed["mnemonic"] != "[REDACTED]" {
		t.Fatalf("mnemonic leaked: %v", parsed["mnemonic"])
	}
	if parsed["rpc_token"] != "[REDACTED]" {
		t.Fatalf("token leaked: %v", parsed["rpc_token"])
	}
	if parsed["address"] != "tsr1abc" {
		t.Fatalf("address must pass through, got %v", parsed["address"])
	}
	if strings.Contains(buf.String(), "sekrit") {
		t.Fatal("raw secret present in output")
	}
}

func TestWithAttrsRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewJSONHandler(&buf, nil))).With("auth_header", "Bearer x")

	logger.Info("ready")

	if strings.Contains(buf.String(), "Bearer x") {
		t.Fatal("pre-bound secret present in output")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Fatal("wrapping nil must stay nil")
	}
}
