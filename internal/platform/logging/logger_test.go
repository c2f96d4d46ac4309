package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureLogOutput captures the entries emitted by logFn and returns the last one as a map.
func captureLogOutput(t *testing.T, logFn func(*zap.Logger)) map[string]any {
	t.Helper()

	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer func() { _ = r.Close() }()

	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	logger := Logger()
	logFn(logger)
	_ = logger.Sync()

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close writer: %v", closeErr)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read log output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	line := lines[len(lines)-1]
	if line == "" {
		t.Fatalf("expected log output, got empty string")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("failed to unmarshal log JSON: %v", err)
	}
	return payload
}

// resetLoggerForTest clears the singleton state so tests can capture fresh log output.
func resetLoggerForTest() {
	loggerOnce = sync.Once{}
	baseLogger = nil
	loggerErr = nil
	SetDebug(false)
}

type captureArrayEncoder struct {
	values []string
}

func (c *captureArrayEncoder) AppendBool(bool)             {}
func (c *captureArrayEncoder) AppendByteString([]byte)     {}
func (c *captureArrayEncoder) AppendComplex128(complex128) {}
func (c *captureArrayEncoder) AppendComplex64(complex64)   {}
func (c *captureArrayEncoder) AppendFloat64(float64)       {}
func (c *captureArrayEncoder) AppendFloat32(float32)       {}
func (c *captureArrayEncoder) AppendInt(int)               {}
func (c *captureArrayEncoder) AppendInt64(int64)           {}
func (c *captureArrayEncoder) AppendInt32(int32)           {}
func (c *captureArrayEncoder) AppendInt16(int16)           {}
func (c *captureArrayEncoder) AppendInt8(int8)             {}
func (c *captureArrayEncoder) AppendString(s string)       { c.values = append(c.values, s) }
func (c *captureArrayEncoder) AppendUint(uint)             {}
func (c *captureArrayEncoder) AppendUint64(uint64)         {}
func (c *captureArrayEncoder) AppendUint32(uint32)         {}
func (c *captureArrayEncoder) AppendUint16(uint16)         {}
func (c *captureArrayEncoder) AppendUint8(uint8)           {}
func (c *captureArrayEncoder) AppendUintptr(uintptr)       {}

func TestLoggerStructuredOutput(t *testing.T) {
	payload := captureLogOutput(t, func(l *zap.Logger) {
		l.Info("GET /")
	})

	if got := payload["severity"]; got != "INFO" {
		t.Fatalf("expected severity INFO, got %v", got)
	}
	if _, exists := payload["level"]; exists {
		t.Fatalf("did not expect level field")
	}
	if msg, ok := payload["message"].(string); !ok || msg != "GET /" {
		t.Fatalf("expected message 'GET /', got %v", payload["message"])
	}
	if _, ok := payload["caller"].(string); !ok {
		t.Fatalf("expected caller field, got %v", payload["caller"])
	}

	ts, ok := payload["timestamp"].(string)
	if !ok {
		t.Fatalf("expected timestamp field to be a string, got %T", payload["timestamp"])
	}
	if _, err := time.Parse(RFC3339Micros, ts); err != nil {
		t.Fatalf("timestamp is not RFC3339Micros: %v", err)
	}
}

func TestEncodeSeverityMapping(t *testing.T) {
	tests := []struct {
		level    zapcore.Level
		expected string
	}{
		{zapcore.DebugLevel, "DEBUG"},
		{zapcore.InfoLevel, "INFO"},
		{zapcore.WarnLevel, "WARNING"},
		{zapcore.ErrorLevel, "ERROR"},
		{zapcore.DPanicLevel, "CRITICAL"},
		{zapcore.PanicLevel, "ALERT"},
		{zapcore.FatalLevel, "EMERGENCY"},
		{zapcore.Level(99), "DEFAULT"},
	}

	for _, tt := range tests {
		enc := &captureArrayEncoder{}
		encodeSeverity(tt.level, enc)
		if len(enc.values) != 1 || enc.values[0] != tt.expected {
			t.Fatalf("encodeSeverity(%v) = %v, want %s", tt.level, enc.values, tt.expected)
		}
	}
}

func TestEncodeTimeMicrosUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, 1, 15, 13, 30, 0, 123456789, loc)

	enc := &captureArrayEncoder{}
	encodeTimeMicros(ts, enc)

	if len(enc.values) != 1 || enc.values[0] != "2024-01-15T10:30:00.123456Z" {
		t.Fatalf("unexpected encoded time: %v", enc.values)
	}
}

func TestDebugSuppressedUntilEnabled(t *testing.T) {
	payload := captureLogOutput(t, func(l *zap.Logger) {
		l.Debug("hidden")
		l.Info("visible")
	})
	if payload["message"] != "visible" {
		t.Fatalf("expected only the info entry, got %v", payload["message"])
	}

	payload = captureLogOutput(t, func(l *zap.Logger) {
		SetDebug(true)
		l.Debug("now visible")
	})
	if payload["severity"] != "DEBUG" || payload["message"] != "now visible" {
		t.Fatalf("expected debug entry once enabled, got %v", payload)
	}
}

func TestSetDebugTogglesLevel(t *testing.T) {
	t.Cleanup(func() { SetDebug(false) })

	SetDebug(true)
	if Level() != zapcore.DebugLevel {
		t.Fatalf("expected debug level, got %s", Level())
	}
	SetDebug(false)
	if Level() != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %s", Level())
	}
}

func TestLoggerSingleton(t *testing.T) {
	resetLoggerForTest()
	if Logger() != Logger() {
		t.Fatal("expected Logger to return the same instance")
	}
	if err := Err(); err != nil {
		t.Fatalf("expected no init error, got %v", err)
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	resetLoggerForTest()

	var wg sync.WaitGroup
	loggers := make([]*zap.Logger, 16)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = Logger()
		}(i)
	}
	wg.Wait()

	for i, l := range loggers {
		if l != loggers[0] {
			t.Fatalf("logger %d differs from first instance", i)
		}
	}
}
