package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(tmpDir, LevelDebug, "run-1")
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.path == "" {
		t.Error("EventLogger path is empty")
	}

	// Verify file exists
	if _, err := os.Stat(logger.path); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.path)
	}

	// Verify filename format
	filename := filepath.Base(logger.path)
	if len(filename) < len("events-20060102-150405.jsonl") {
		t.Errorf("Event log filename format incorrect: %s", filename)
	}
}

func TestEventLogger_Log(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewEventLogger(tmpDir, LevelDebug, "run-1")
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	event := &Event{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Event:     EventResolve,
		Platform:  "filimo",
		SourceID:  "m-42",
		EntityID:  7,
	}

	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	logger.Close()
	content, err := os.ReadFile(logger.path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if len(content) == 0 {
		t.Error("Log file is empty")
	}

	var decoded Event
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Failed to decode JSONL: %v", err)
	}

	if decoded.Platform != "filimo" {
		t.Errorf("Expected platform 'filimo', got '%s'", decoded.Platform)
	}
	if decoded.SourceID != "m-42" {
		t.Errorf("Expected source_id 'm-42', got '%s'", decoded.SourceID)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("Expected run_id 'run-1', got '%s'", decoded.RunID)
	}
}

func TestEventLogger_MinLevelFilters(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewEventLogger(tmpDir, LevelWarning, "run-1")
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	logger.Log(&Event{Level: LevelDebug, Event: EventCache})
	logger.Log(&Event{Level: LevelInfo, Event: EventResolve})
	logger.Log(&Event{Level: LevelWarning, Event: EventAmbiguous})
	logger.Log(&Event{Level: LevelError, Event: EventError, Error: "boom"})
	logger.Close()

	file, err := os.Open(logger.path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}

	if lines != 2 {
		t.Errorf("Expected 2 events at warning level, got %d", lines)
	}
}

func TestEventLogger_ConcurrentLogging(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewEventLogger(tmpDir, LevelDebug, "run-1")
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.LogCreate("filimo", "m-1", "some title", int64(n))
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	file, err := os.Open(logger.path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}

	if lines != 100 {
		t.Errorf("Expected 100 events, got %d", lines)
	}
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()

	if err := logger.Log(&Event{Level: LevelInfo, Event: EventResolve}); err != nil {
		t.Errorf("NullLogger.Log returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close returned error: %v", err)
	}
	if logger.Path() != "" {
		t.Errorf("NullLogger.Path() = %q, want empty", logger.Path())
	}
}
