// Package logging provides structured logging for treeclone.
//
// Loggers are backed by zerolog. The API mirrors the small surface the rest of
// the code needs: leveled messages with optional field maps and derived
// loggers carrying fixed fields.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents a log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the encoding of log lines.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// ParseFormat accepts json or text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("unknown log format %q", s)
}

func (l Level) toZerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger provides structured logging.
type Logger struct {
	mu     sync.Mutex
	level  Level
	format Format
	output io.Writer
	fields map[string]any
	nop    bool
	zl     zerolog.Logger
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level Level) *Logger {
	return New(level, FormatJSON, os.Stderr)
}

// New creates a logger with an explicit format and output.
func New(level Level, format Format, w io.Writer) *Logger {
	l := &Logger{
		level:  level,
		format: format,
		output: w,
		fields: make(map[string]any),
	}
	l.rebuild()
	return l
}

// Nop returns a logger that discards everything. Operators default to it.
func Nop() *Logger {
	return &Logger{
		level:  LevelError,
		format: FormatJSON,
		output: io.Discard,
		fields: make(map[string]any),
		nop:    true,
		zl:     zerolog.Nop(),
	}
}

// rebuild must be called with l.mu held or before l is shared.
func (l *Logger) rebuild() {
	if l.nop {
		l.zl = zerolog.Nop()
		return
	}
	w := l.output
	if l.format == FormatText {
		w = zerolog.ConsoleWriter{Out: l.output, NoColor: true, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).Level(l.level.toZerolog()).With().Timestamp()
	if len(l.fields) > 0 {
		ctx = ctx.Fields(l.fields)
	}
	l.zl = ctx.Logger()
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	child := &Logger{
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: newFields,
		nop:    l.nop,
	}
	child.rebuild()
	return child
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.emit(func(zl *zerolog.Logger) *zerolog.Event { return zl.Debug() }, msg, fields)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.emit(func(zl *zerolog.Logger) *zerolog.Event { return zl.Info() }, msg, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.emit(func(zl *zerolog.Logger) *zerolog.Event { return zl.Warn() }, msg, fields)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.emit(func(zl *zerolog.Logger) *zerolog.Event { return zl.Error() }, msg, fields)
}

// ErrorErr logs an error message with an error value.
func (l *Logger) ErrorErr(msg string, err error, fields ...map[string]any) {
	l.emit(func(zl *zerolog.Logger) *zerolog.Event { return zl.Error().Err(err) }, msg, fields)
}

func (l *Logger) emit(start func(*zerolog.Logger) *zerolog.Event, msg string, fields []map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := start(&l.zl)
	if e == nil {
		return
	}
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// Level returns the current level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Global logger instance
var (
	globalMu sync.RWMutex
	global   = NewLogger(LevelInfo)
)

// SetGlobal sets the global logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the logger installed by SetGlobal.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Debug logs to the global logger.
func Debug(msg string, fields ...map[string]any) {
	Global().Debug(msg, fields...)
}

// Info logs to the global logger.
func Info(msg string, fields ...map[string]any) {
	Global().Info(msg, fields...)
}

// Warn logs to the global logger.
func Warn(msg string, fields ...map[string]any) {
	Global().Warn(msg, fields...)
}

// Error logs to the global logger.
func Error(msg string, fields ...map[string]any) {
	Global().Error(msg, fields...)
}

// ErrorErr logs to the global logger with an error.
func ErrorErr(msg string, err error, fields ...map[string]any) {
	Global().ErrorErr(msg, err, fields...)
}

// WithFields returns a new logger from global with additional fields.
func WithFields(fields map[string]any) *Logger {
	return Global().WithFields(fields)
}
