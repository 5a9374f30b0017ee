package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("skipped", nil)
	logger.Info("skipped", nil)
	logger.Warn("kept", nil)
	logger.Error("kept", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d: %q", len(lines), buf.String())
	}
}

func TestJSONEntryShape(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	logger.Info("query dispatched", map[string]interface{}{
		"sources": 3,
		"query":   "parser",
	})

	var entry struct {
		Timestamp string                 `json:"timestamp"`
		Level     string                 `json:"level"`
		Message   string                 `json:"message"`
		Fields    map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON entry: %v", err)
	}
	if entry.Level != "info" {
		t.Errorf("level = %q, want info", entry.Level)
	}
	if entry.Message != "query dispatched" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Fields["query"] != "parser" {
		t.Errorf("fields[query] = %v", entry.Fields["query"])
	}
}

func TestHumanFormatSortsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("done", map[string]interface{}{"b": 2, "a": 1})

	out := buf.String()
	if !strings.Contains(out, "a=1 b=2") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestWithAttachesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})
	child := logger.With(map[string]interface{}{"source": "lexical"})

	child.Info("queried", map[string]interface{}{"hits": 4})

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON entry: %v", err)
	}
	if entry.Fields["source"] != "lexical" {
		t.Errorf("missing base field: %v", entry.Fields)
	}
	if entry.Fields["hits"] != float64(4) {
		t.Errorf("missing call field: %v", entry.Fields)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DebugLevel {
		t.Error("debug not parsed")
	}
	if ParseLevel("nonsense") != InfoLevel {
		t.Error("unknown level should default to info")
	}
}
