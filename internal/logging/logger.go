// Package logging provides the leveled logger injected into the controller session.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	// LogLevelDebug includes detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo includes standard operational information.
	LogLevelInfo
	// LogLevelWarn includes warnings about potential issues.
	LogLevelWarn
	// LogLevelError includes only error messages.
	LogLevelError
)

// keepRotated is the number of rotated log files kept next to the active one.
const keepRotated = 5

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Logger writes leveled log lines to a file and, optionally, a mirror writer.
// Debug, Info, Warn and Error accept alternating key/value pairs, which makes
// Logger usable as a retryablehttp.LeveledLogger.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	mirror   io.Writer
	level    LogLevel
	jsonMode bool

	file        *os.File
	filePath    string
	maxSize     int64 // bytes
	currentSize int64
}

// Config configures the logger.
type Config struct {
	Level    LogLevel
	FilePath string
	// Mirror receives a copy of every line (stderr in debug mode).
	Mirror   io.Writer
	JSONMode bool
	MaxSize  int64 // Max file size before rotation (0 = no rotation)
}

// New creates a Logger. Without a FilePath, lines go to the mirror or stderr.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:    cfg.Level,
		jsonMode: cfg.JSONMode,
		maxSize:  cfg.MaxSize,
		mirror:   cfg.Mirror,
	}

	if cfg.FilePath == "" {
		if l.mirror != nil {
			l.writer = l.mirror
			l.mirror = nil
		} else {
			l.writer = os.Stderr
		}
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// #nosec G304 - log path comes from the user's own configuration
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if info, err := f.Stat(); err == nil {
		l.currentSize = info.Size()
	}

	l.file = f
	l.writer = f
	l.filePath = cfg.FilePath

	return l, nil
}

// NewWriter creates a Logger writing text lines to w.
func NewWriter(w io.Writer, level LogLevel) *Logger {
	return &Logger{writer: w, level: level}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.writer = io.Discard
		return err
	}
	return nil
}

type logEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (l *Logger) log(level LogLevel, msg string, kv []interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format(time.RFC3339)
	fields := pairs(kv)

	var line string
	if l.jsonMode {
		entry := logEntry{
			Time:    timestamp,
			Level:   level.String(),
			Message: msg,
			Data:    fields,
		}
		b, err := json.Marshal(entry)
		if err != nil {
			line = fmt.Sprintf("%s [%s] %s\n", timestamp, level.String(), msg)
		} else {
			line = string(b) + "\n"
		}
	} else {
		line = fmt.Sprintf("%s [%s] %s%s\n", timestamp, level.String(), msg, formatFields(fields))
	}

	if l.maxSize > 0 && l.file != nil {
		l.currentSize += int64(len(line))
		if l.currentSize > l.maxSize {
			l.rotate()
		}
	}

	_, _ = io.WriteString(l.writer, line)
	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, line)
	}
}

// pairs turns alternating key/value arguments into a map. A trailing key
// without a value is stored under "extra".
func pairs(kv []interface{}) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	fields := make(map[string]any, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			fields["extra"] = fmt.Sprint(kv[i])
			break
		}
		key := fmt.Sprint(kv[i])
		val := kv[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		fields[key] = val
	}
	return fields
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func (l *Logger) rotate() {
	_ = l.file.Close()

	rotatedPath := l.filePath + "." + time.Now().Format("20060102-150405")
	_ = os.Rename(l.filePath, rotatedPath)

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.file = nil
		l.writer = os.Stderr
		return
	}

	l.file = f
	l.writer = f
	l.currentSize = 0

	l.cleanupOldLogs()
}

func (l *Logger) cleanupOldLogs() {
	matches, err := filepath.Glob(l.filePath + ".*")
	if err != nil || len(matches) <= keepRotated {
		return
	}

	sort.Strings(matches)
	for i := 0; i < len(matches)-keepRotated; i++ {
		_ = os.Remove(matches[i])
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LogLevelDebug, msg, keysAndValues)
}

// Info logs an info message.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LogLevelInfo, msg, keysAndValues)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LogLevelWarn, msg, keysAndValues)
}

// Error logs an error message.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LogLevelError, msg, keysAndValues)
}
