package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_FieldsAndRedaction(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).WithCircuit(CallMetaFromKey("Shop.Orders.Place"))

	logger.Warn(context.Background(), "circuit opened",
		Field{Key: "errorCount", Value: 3},
		Field{Key: "token", Value: "secret-token"},
		Field{Key: "error", Value: errors.New("boom")},
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", e.Level)
	}
	fields := e.ContextMap()
	if fields["circuit.key"] != "Shop.Orders.Place" {
		t.Errorf("circuit.key = %v", fields["circuit.key"])
	}
	if fields["circuit.method"] != "Place" {
		t.Errorf("circuit.method = %v", fields["circuit.method"])
	}
	if fields["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", fields["token"])
	}
	if fields["error"] != "boom" {
		t.Errorf("error = %v, want boom", fields["error"])
	}
}

func TestNewZapLogger_Nil(t *testing.T) {
	logger := NewZapLogger(nil)
	logger.Info(context.Background(), "discarded")
}

func TestNewZapLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLoggerWithWriter("warn", &buf)

	logger.Info(context.Background(), "below level")
	logger.Warn(context.Background(), "circuit opened", Field{Key: "errorCount", Value: 3})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "circuit opened" {
		t.Errorf("msg = %v, want circuit opened", entry["msg"])
	}
	if entry["errorCount"] != float64(3) {
		t.Errorf("errorCount = %v, want 3", entry["errorCount"])
	}
}
