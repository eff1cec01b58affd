package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReplaceAndRestore(t *testing.T) {
	Init("test")
	before := Get()

	core, logs := observer.New(zap.InfoLevel)
	restore := Replace(zap.New(core))

	Named("matcher").Infow("transaction linked", "expense_id", "e-1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "matcher" {
		t.Errorf("expected logger name matcher, got %q", entries[0].LoggerName)
	}
	if entries[0].ContextMap()["expense_id"] != "e-1" {
		t.Errorf("expected expense_id field, got %v", entries[0].ContextMap())
	}

	restore()
	if Get() != before {
		t.Error("restore should reinstate the previous logger")
	}
}
