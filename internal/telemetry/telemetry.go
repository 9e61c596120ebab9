// Package telemetry emits fire-and-forget reply events. Sinks never return
// errors to callers; failures are logged and dropped.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event names.
const (
	EventReplyGenerated = "reply_generated"
	EventTierFailed     = "tier_failed"
)

// Emitter receives named events with arbitrary fields.
type Emitter interface {
	Emit(name string, fields map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(string, map[string]any) {}

// SlogEmitter writes events as structured log records.
type SlogEmitter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogEmitter logs events at level on logger (slog.Default when nil).
func NewSlogEmitter(logger *slog.Logger, level slog.Level) *SlogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEmitter{logger: logger, level: level}
}

func (s *SlogEmitter) Emit(name string, fields map[string]any) {
	attrs := make([]any, 0, len(fields)*2+2)
	attrs = append(attrs, "event", name)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	s.logger.Log(context.Background(), s.level, "telemetry", attrs...)
}

// JSONLEmitter appends one JSON object per event to a file. Each line
// carries the event name and an RFC3339Nano UTC time.
type JSONLEmitter struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewJSONLEmitter writes to path, creating parent directories on first use.
func NewJSONLEmitter(path string, logger *slog.Logger) *JSONLEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLEmitter{path: path, logger: logger, now: time.Now}
}

func (j *JSONLEmitter) Emit(name string, fields map[string]any) {
	// Shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = j.now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		j.logger.Warn("telemetry: marshal", "event", name, "err", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.append(append(b, '\n')); err != nil {
		j.logger.Warn("telemetry: write", "path", j.path, "err", err)
	}
}

func (j *JSONLEmitter) append(line []byte) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(line)
	return err
}

// Multi fans events out to several emitters.
type Multi []Emitter

func (m Multi) Emit(name string, fields map[string]any) {
	for _, e := range m {
		if e != nil {
			e.Emit(name, fields)
		}
	}
}

// New returns the emitter for a configured sink name: "none", "log" or
// "jsonl". Unknown names are an error.
func New(sink, path string, logger *slog.Logger) (Emitter, error) {
	switch sink {
	case "", "none":
		return Nop{}, nil
	case "log":
		return NewSlogEmitter(logger, slog.LevelInfo), nil
	case "jsonl":
		if path == "" {
			return nil, fmt.Errorf("telemetry: jsonl sink needs a path")
		}
		return NewJSONLEmitter(path, logger), nil
	default:
		return nil, fmt.Errorf("telemetry: unknown sink %q (want none, log or jsonl)", sink)
	}
}
