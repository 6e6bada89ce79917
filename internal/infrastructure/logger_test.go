package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func readLastEntry(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "issuer.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}

	logger.Info("license generated", "key", "LIC-****0001")
	CloseLogFile()

	entry := readLastEntry(t, logFile)
	if entry["msg"] != "license generated" {
		t.Errorf("Expected msg='license generated', got %v", entry["msg"])
	}
	if entry["key"] != "LIC-****0001" {
		t.Errorf("Expected key='LIC-****0001', got %v", entry["key"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", entry["level"])
	}
	if _, ok := entry["source"]; !ok {
		t.Error("Expected source location in log entry")
	}
}

func TestInitializeLoggerRunsOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "stderr"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	if err != nil {
		t.Fatalf("Second initialize failed: %v", err)
	}
	if first != second {
		t.Error("Expected InitializeLogger to return the same instance")
	}
	if GetLogger() != first {
		t.Error("GetLogger did not return the initialized logger")
	}
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, false)

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.InfoContext(ctx, "test with trace")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if entry["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", entry["trace_id"])
	}

	buf.Reset()
	WithComponent(logger, "issuer").InfoContext(context.Background(), "no trace")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("Unexpected trace_id in %s", buf.String())
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"Debug", slog.LevelDebug},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLogLevel(tt.level); got != tt.expected {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, false)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("Info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("Warn entry missing")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Fatal("Expected trace ID to be generated")
	}

	if got := GetTraceID(EnsureTraceID(ctx)); got != traceID {
		t.Errorf("EnsureTraceID changed existing trace ID: %s != %s", got, traceID)
	}
	if NewTraceID() == NewTraceID() {
		t.Error("Trace IDs should be unique")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithComponent(logger, "trial").Info("test message")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON: %v", err)
	}
	if entry["component"] != "trial" {
		t.Errorf("Expected component='trial', got %v", entry["component"])
	}
}

func TestCloseLogFileWithoutFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	if _, err := InitializeLogger(config.LoggingConfig{Output: "stderr"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := CloseLogFile(); err != nil {
		t.Errorf("CloseLogFile without a file returned %v", err)
	}
}

func TestSystemMetricsCollector(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	if _, err := NewSystemMetricsCollector(mp.Meter(MeterName), 0, discardLogger()); err == nil {
		t.Error("Expected error for zero interval")
	}

	collector, err := NewSystemMetricsCollector(mp.Meter(MeterName), 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	stats := collector.CurrentStats(context.Background())
	if stats.GoRoutines <= 0 {
		t.Errorf("Expected positive goroutine count, got %d", stats.GoRoutines)
	}
	if stats.HeapInUse <= 0 {
		t.Errorf("Expected positive heap usage, got %d", stats.HeapInUse)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := collector.Start(ctx); err != nil {
		t.Errorf("Start returned %v", err)
	}
}
