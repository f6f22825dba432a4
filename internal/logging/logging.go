// Package logging provides structured, standards-compliant logging.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	sessionID string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		sessionID: l.sessionID,
	}
}

// WithSessionID returns a new logger with the given session ID.
func (l *Logger) WithSessionID(id string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		sessionID: id,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry in traditional format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}
	if l.sessionID != "" {
		fieldStr = " session=" + l.sessionID + fieldStr
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// TurnStart logs the start of a single agent turn.
func (l *Logger) TurnStart(role string, numTokens int) {
	l.Debug("turn_start", map[string]interface{}{
		"role":   role,
		"tokens": numTokens,
	})
}

// TurnComplete logs a completed agent turn.
func (l *Logger) TurnComplete(role string, finishReasons []string, duration time.Duration) {
	l.Info("turn_complete", map[string]interface{}{
		"role":     role,
		"finish":   strings.Join(finishReasons, ","),
		"duration": duration.String(),
	})
}

// TurnTerminated logs a turn that ended the conversation.
func (l *Logger) TurnTerminated(role string, reasons []string, numTokens int) {
	l.Warn("turn_terminated", map[string]interface{}{
		"role":    role,
		"reasons": strings.Join(reasons, ","),
		"tokens":  numTokens,
	})
}

// RetryAttempt logs a failed gateway call that will be retried.
func (l *Logger) RetryAttempt(attempt int, backoff time.Duration, err error) {
	l.Warn("gateway_retry", map[string]interface{}{
		"attempt": attempt,
		"backoff": backoff.String(),
		"error":   err.Error(),
	})
}

// UsageInfo logs token usage and cost for a completion.
func (l *Logger) UsageInfo(model string, promptTokens, completionTokens, totalTokens int, cost float64) {
	l.Info("usage", map[string]interface{}{
		"model":             model,
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"total_tokens":      totalTokens,
		"cost_usd":          fmt.Sprintf("%.6f", cost),
	})
}

// MemoryRecall logs a successful memory retrieval.
func (l *Logger) MemoryRecall(hits int) {
	l.Debug("memory_recall", map[string]interface{}{
		"hits": hits,
	})
}

// MemoryError logs a recovered memory subsystem failure.
func (l *Logger) MemoryError(stage string, err error) {
	l.Error("memory_error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

// ExchangeStart logs the beginning of an assistant/user exchange.
func (l *Logger) ExchangeStart(assistantRole, userRole string) {
	l.Info("exchange_start", map[string]interface{}{
		"assistant": assistantRole,
		"user":      userRole,
	})
}

// JobStart logs a job state transition to running.
func (l *Logger) JobStart(id string) {
	l.Info("job_start", map[string]interface{}{
		"job": id,
	})
}

// JobComplete logs a terminal job state.
func (l *Logger) JobComplete(id, status string, duration time.Duration) {
	l.Info("job_complete", map[string]interface{}{
		"job":      id,
		"status":   status,
		"duration": duration.String(),
	})
}
