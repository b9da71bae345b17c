package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/ndacheck/ndacheck/internal/observability"
	"github.com/ndacheck/ndacheck/internal/version"
)

const SchemaVersion = "1.0"

// EventPrefix namespaces every event name
const EventPrefix = "ndacheck."

type jsonlLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

type logEntry struct {
	Timestamp       string         `json:"ts"`
	Level           string         `json:"level"`
	Event           string         `json:"event,omitempty"`
	Component       string         `json:"component"`
	OpID            string         `json:"op_id"`
	SchemaVersion   string         `json:"schema_version"`
	NDACheckVersion string         `json:"ndacheck_version,omitempty"`
	GoVersion       string         `json:"go_version,omitempty"`
	Message         string         `json:"msg,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"`
}

func newEntry(level, component string) logEntry {
	return logEntry{
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
		Level:           level,
		Component:       component,
		SchemaVersion:   SchemaVersion,
		NDACheckVersion: version.BuildVersion(),
		GoVersion:       runtime.Version(),
	}
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}
	entry := newEntry(level, component)
	entry.Message = msg
	entry.Fields = pairs(fields)
	j.writeEntry(entry)
}

// Event records a lifecycle event such as "review.finish". The component is
// the first segment of the event name.
func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if levelPriority(LevelInfo) < j.minLevel {
		return
	}
	entry := newEntry(LevelInfo, componentOf(event))
	entry.Event = EventPrefix + event
	entry.OpID = observability.OpID(ctx)
	entry.Fields = fields
	j.writeEntry(entry)
}

func (j *jsonlLogger) writeEntry(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(data)
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// pairs turns k1, v1, k2, v2 into a map; non-string keys are skipped
func pairs(fields []any) map[string]any {
	if len(fields) < 2 {
		return nil
	}
	out := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			out[key] = fields[i+1]
		}
	}
	return out
}

func componentOf(event string) string {
	for i := 0; i < len(event); i++ {
		if event[i] == '.' {
			return event[:i]
		}
	}
	if event == "" {
		return "cli"
	}
	return event
}
