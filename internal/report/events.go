package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventResolve   EventType = "resolve"
	EventCreate    EventType = "create"
	EventMatch     EventType = "match"
	EventUpgrade   EventType = "upgrade"
	EventSource    EventType = "source"
	EventCache     EventType = "cache"
	EventAmbiguous EventType = "ambiguous"
	EventReject    EventType = "reject"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the resolution pipeline
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	RunID      string            `json:"run_id,omitempty"`
	Platform   string            `json:"platform,omitempty"`
	SourceID   string            `json:"source_id,omitempty"`
	Title      string            `json:"title,omitempty"`
	EntityID   int64             `json:"entity_id,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	Confidence string            `json:"confidence,omitempty"`
	Score      float64           `json:"score,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Duration   int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
	runID    string
}

// NewEventLogger creates a new event logger with a minimum log level.
// minLevel determines which events are written (e.g., LevelInfo skips
// LevelDebug). runID is stamped on every event from this logger.
func NewEventLogger(outputDir string, minLevel EventLevel, runID string) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
		runID:    runID,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogResolve logs the final outcome of resolving one record
func (l *EventLogger) LogResolve(platform, sourceID, title string, entityID int64, confidence string, duration time.Duration) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventResolve,
		Platform:   platform,
		SourceID:   sourceID,
		Title:      title,
		EntityID:   entityID,
		Confidence: confidence,
		Duration:   duration.Milliseconds(),
	})
}

// LogCreate logs a new entity creation
func (l *EventLogger) LogCreate(platform, sourceID, title string, entityID int64) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventCreate,
		Platform: platform,
		SourceID: sourceID,
		Title:    title,
		EntityID: entityID,
	})
}

// LogMatch logs a match against an existing entity
func (l *EventLogger) LogMatch(platform, sourceID, title string, entityID int64, confidence string, score float64, reason string) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventMatch,
		Platform:   platform,
		SourceID:   sourceID,
		Title:      title,
		EntityID:   entityID,
		Confidence: confidence,
		Score:      score,
		Reason:     reason,
	})
}

// LogUpgrade logs an external id being attached to an existing entity
func (l *EventLogger) LogUpgrade(entityID int64, externalID string, adopted bool) error {
	level := LevelInfo
	reason := "adopted"
	if !adopted {
		level = LevelWarning
		reason = "lost race or conflicting id already attached"
	}
	return l.Log(&Event{
		Level:      level,
		Event:      EventUpgrade,
		EntityID:   entityID,
		ExternalID: externalID,
		Reason:     reason,
	})
}

// LogSource logs a source listing being linked to an entity
func (l *EventLogger) LogSource(platform, sourceID string, entityID int64, created bool) error {
	action := "updated"
	if created {
		action = "created"
	}
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventSource,
		Platform: platform,
		SourceID: sourceID,
		EntityID: entityID,
		Extra:    map[string]string{"action": action},
	})
}

// LogCacheHit logs an identity cache lookup result
func (l *EventLogger) LogCacheHit(cacheKey string, entityID int64, hit bool) error {
	result := "miss"
	if hit {
		result = "hit"
	}
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventCache,
		EntityID: entityID,
		Extra:    map[string]string{"key": cacheKey, "result": result},
	})
}

// LogAmbiguous logs a record parked for manual review
func (l *EventLogger) LogAmbiguous(platform, sourceID, title, reason string) error {
	return l.Log(&Event{
		Level:    LevelWarning,
		Event:    EventAmbiguous,
		Platform: platform,
		SourceID: sourceID,
		Title:    title,
		Reason:   reason,
	})
}

// LogReject logs a record rejected by validation
func (l *EventLogger) LogReject(platform, sourceID, title, reason string) error {
	return l.Log(&Event{
		Level:    LevelWarning,
		Event:    EventReject,
		Platform: platform,
		SourceID: sourceID,
		Title:    title,
		Reason:   reason,
	})
}

// LogError logs a pipeline error
func (l *EventLogger) LogError(event EventType, platform, sourceID string, err error) error {
	return l.Log(&Event{
		Level:    LevelError,
		Event:    event,
		Platform: platform,
		SourceID: sourceID,
		Error:    err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
