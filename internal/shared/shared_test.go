package shared

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestSleep(t *testing.T) {
	t.Run("zero duration returns immediately", func(t *testing.T) {
		if err := Sleep(context.Background(), 0); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("waits for duration", func(t *testing.T) {
		start := time.Now()
		if err := Sleep(context.Background(), 10*time.Millisecond); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
			t.Errorf("returned after %v, expected at least 10ms", elapsed)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]int{"a": 1}

	t.Run("compact", func(t *testing.T) {
		data, err := MarshalJSON(v, 0)
		if err != nil {
			t.Fatalf("MarshalJSON() error = %v", err)
		}
		if string(data) != `{"a":1}` {
			t.Errorf("MarshalJSON() = %s", data)
		}
	})

	t.Run("indented", func(t *testing.T) {
		data, err := MarshalJSON(v, 4)
		if err != nil {
			t.Fatalf("MarshalJSON() error = %v", err)
		}
		if string(data) != "{\n    \"a\": 1\n}" {
			t.Errorf("MarshalJSON() = %q", data)
		}
	})
}

func TestLogger(t *testing.T) {
	t.Run("SetLogLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		SetLogLevel(logger, "warn")
		if logger.GetLevel() != log.WarnLevel {
			t.Errorf("expected warn level, got %v", logger.GetLevel())
		}

		SetLogLevel(logger, "loud")
		if logger.GetLevel() != log.InfoLevel {
			t.Errorf("expected fallback to info, got %v", logger.GetLevel())
		}
		if !strings.Contains(buf.String(), "unknown log level") {
			t.Errorf("expected warning about unknown level, got %q", buf.String())
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "run", "abc")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "run=abc") {
			t.Errorf("expected run field in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "enrichr.log")

		logger, f, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger() error = %v", err)
		}
		logger.Info("batch processed", "batch", 3)
		f.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected log file, got %v", err)
		}
		if !strings.Contains(string(data), "batch processed") {
			t.Errorf("expected log line in file, got %q", data)
		}
	})

	t.Run("GenerateID", func(t *testing.T) {
		a, b := GenerateID(), GenerateID()
		if a == b || len(a) != 36 {
			t.Errorf("expected distinct uuids, got %s and %s", a, b)
		}
	})
}
