package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// JSONLogger is a structured logger writing one JSON object per line.
// Log level is read from TRIPMASTER_LOG_LEVEL (DEBUG, INFO, WARN, ERROR);
// the default is INFO.
type JSONLogger struct {
	service string
	level   int
	output  io.Writer
	mu      sync.Mutex
}

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var levelNames = map[string]int{
	"DEBUG": levelDebug,
	"INFO":  levelInfo,
	"WARN":  levelWarn,
	"ERROR": levelError,
}

// NewJSONLogger creates a logger for the named service writing to stdout.
func NewJSONLogger(service string) *JSONLogger {
	level := levelInfo
	if env := strings.ToUpper(os.Getenv("TRIPMASTER_LOG_LEVEL")); env != "" {
		if l, ok := levelNames[env]; ok {
			level = l
		}
	}
	return &JSONLogger{
		service: service,
		level:   level,
		output:  os.Stdout,
	}
}

// NewJSONLoggerWithOutput creates a logger writing to the given writer.
// Used by tests to capture output.
func NewJSONLoggerWithOutput(service string, w io.Writer) *JSONLogger {
	l := NewJSONLogger(service)
	l.output = w
	return l
}

func (l *JSONLogger) log(level int, levelName, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		// Errors do not marshal to anything useful; flatten them
		if err, ok := v.(error); ok {
			entry[k] = err.Error()
			continue
		}
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = levelName
	entry["service"] = l.service
	entry["message"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"service":%q,"message":%q,"marshal_error":%q}`,
			levelName, l.service, msg, err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.output, string(data))
}

func (l *JSONLogger) Info(msg string, fields map[string]interface{}) {
	l.log(levelInfo, "INFO", msg, fields)
}

func (l *JSONLogger) Error(msg string, fields map[string]interface{}) {
	l.log(levelError, "ERROR", msg, fields)
}

func (l *JSONLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(levelWarn, "WARN", msg, fields)
}

func (l *JSONLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(levelDebug, "DEBUG", msg, fields)
}
