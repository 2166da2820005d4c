package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
)

// TestLogger tests the basic logger functionality
func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(DebugLevel) // Enable debug logging

	logger.Debug("Debug message", String("key", "value"))
	logger.Info("Info message", Int("count", 42))
	logger.Warn("Warning message", Bool("flag", true))
	logger.Error("Error message", ErrorField(errors.New("test error")))

	output := buf.String()

	if !strings.Contains(output, "Debug message") {
		t.Error("Expected debug message in output")
	}
	if !strings.Contains(output, "Info message") {
		t.Error("Expected info message in output")
	}
	if !strings.Contains(output, "Warning message") {
		t.Error("Expected warning message in output")
	}
	if !strings.Contains(output, "Error message") {
		t.Error("Expected error message in output")
	}

	if !strings.Contains(output, "key=value") {
		t.Error("Expected key=value in output")
	}
	if !strings.Contains(output, "count=42") {
		t.Error("Expected count=42 in output")
	}
	if !strings.Contains(output, "flag=true") {
		t.Error("Expected flag=true in output")
	}
	if !strings.Contains(output, "error=test error") {
		t.Error("Expected error=test error in output")
	}
}

// TestLogLevels tests log level filtering
func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger.SetLevel(WarnLevel)

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warning message")
	logger.Error("Error message")

	output := buf.String()

	if strings.Contains(output, "Debug message") {
		t.Error("Debug message should be filtered out")
	}
	if strings.Contains(output, "Info message") {
		t.Error("Info message should be filtered out")
	}
	if !strings.Contains(output, "Warning message") {
		t.Error("Warning message should be present")
	}
	if !strings.Contains(output, "Error message") {
		t.Error("Error message should be present")
	}
}

// TestExplicitLevel tests the Log method used when the level comes from an
// error's severity
func TestExplicitLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(DebugLevel)

	logger.Log(WarnLevel, "leveled message", String("k", "v"))
	logger.Log(DebugLevel, "debug leveled")

	output := buf.String()
	if !strings.Contains(output, "[WARN]") || !strings.Contains(output, "leveled message") {
		t.Error("Expected warn-level message from Log")
	}
	if !strings.Contains(output, "[DEBUG]") || !strings.Contains(output, "debug leveled") {
		t.Error("Expected debug-level message from Log")
	}
}

func TestLevelForSeverity(t *testing.T) {
	tests := []struct {
		severity mcperrors.Severity
		want     Level
	}{
		{mcperrors.SeverityPermanent, ErrorLevel},
		{mcperrors.SeverityRecoverable, WarnLevel},
		{mcperrors.SeverityTransient, DebugLevel},
	}
	for _, tt := range tests {
		if got := LevelForSeverity(tt.severity); got != tt.want {
			t.Errorf("LevelForSeverity(%s) = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

// TestWithFields tests field inheritance
func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger = logger.WithFields(
		String("service", "test-service"),
		String("version", "1.0.0"),
	)

	logger.Info("Test message", String("operation", "test"))

	output := buf.String()

	if !strings.Contains(output, "service=test-service") {
		t.Error("Expected service field")
	}
	if !strings.Contains(output, "version=1.0.0") {
		t.Error("Expected version field")
	}
	if !strings.Contains(output, "operation=test") {
		t.Error("Expected operation field")
	}
}

// TestWithContext tests attempt ID propagation through context
func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	ctx := ContextWithAttemptID(context.Background(), "attempt-123")
	logger = logger.WithContext(ctx)

	logger.Info("Test message")

	if !strings.Contains(buf.String(), "[attempt-123]") {
		t.Error("Expected attempt ID in output")
	}
}

// TestWithError tests classified error annotation
func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	cerr := mcperrors.ClassifyMessage("401 Unauthorized")
	logger.WithError(cerr).Error("Connect failed")

	output := buf.String()

	if !strings.Contains(output, "error=") {
		t.Error("Expected error field")
	}
	if !strings.Contains(output, "error_category=auth") {
		t.Error("Expected error_category field")
	}
	if !strings.Contains(output, "error_severity=permanent") {
		t.Error("Expected error_severity field")
	}
	if !strings.Contains(output, "suggestion=") {
		t.Error("Expected suggestion field for a rule with a recovery suggestion")
	}
}

// TestServerComponentHeader tests the text header slots
func TestServerComponentHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger.WithFields(String("component", "manager"), Server("fs")).Info("connected")

	output := buf.String()
	if !strings.Contains(output, "manager(fs): connected") {
		t.Errorf("Expected component(server) header, got %q", output)
	}
	// Header fields must not repeat in the key=value tail.
	if strings.Contains(output, "server=fs") || strings.Contains(output, "component=manager") {
		t.Errorf("Header fields duplicated in tail: %q", output)
	}
}

// TestJSONFormatter tests JSON output formatting
func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.Info("Test message",
		String("key", "value"),
		Int("count", 42),
		Bool("flag", true),
	)

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if entry["level"] != "INFO" {
		t.Errorf("Expected level INFO, got %v", entry["level"])
	}
	if entry["message"] != "Test message" {
		t.Errorf("Expected message 'Test message', got %v", entry["message"])
	}
	if entry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", entry["key"])
	}
	if entry["count"] != float64(42) { // JSON numbers are float64
		t.Errorf("Expected count=42, got %v", entry["count"])
	}
	if entry["flag"] != true {
		t.Errorf("Expected flag=true, got %v", entry["flag"])
	}

	if _, ok := entry["timestamp"]; !ok {
		t.Error("Expected timestamp field")
	}
}

// TestFieldTypes tests different field types
func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	now := time.Now()
	duration := 5 * time.Second

	logger.Info("Test fields",
		String("string", "value"),
		Int("int", 42),
		Bool("bool", true),
		Duration("duration", duration),
		Time("time", now),
		Any("any", map[string]int{"a": 1, "b": 2}),
		ErrorField(errors.New("test error")),
	)

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if entry["string"] != "value" {
		t.Error("Expected string field")
	}
	if entry["int"] != float64(42) {
		t.Error("Expected int field")
	}
	if entry["bool"] != true {
		t.Error("Expected bool field")
	}
	if entry["error"] != "test error" {
		t.Error("Expected error field")
	}

	// Duration should be in nanoseconds
	if _, ok := entry["duration"].(float64); !ok {
		t.Error("Expected duration as number")
	}

	// Time should be formatted
	if _, ok := entry["time"].(string); !ok {
		t.Error("Expected time as string")
	}

	if anyVal, ok := entry["any"].(map[string]interface{}); ok {
		if anyVal["a"] != float64(1) || anyVal["b"] != float64(2) {
			t.Error("Expected any field to preserve map structure")
		}
	} else {
		t.Error("Expected any field as map")
	}
}

// TestNop verifies the nop logger stays silent
func TestNop(t *testing.T) {
	logger := Nop()
	logger.SetLevel(DebugLevel)
	logger.Debug("into the void")
	logger.Error("also into the void")
	// Nothing to assert beyond not panicking; Nop discards output.
}
