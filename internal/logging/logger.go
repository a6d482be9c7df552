// Package logging provides the structured Logger interface used across the
// orchestration core: env-driven level/format, JSON under Kubernetes,
// rate-limited error logging.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Logger is the structured logging contract every component depends on.
// The *WithContext variants pull a request id out of ctx (attached with
// WithRequestID) so every log line in a request's lifecycle can be
// correlated.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

type requestIDKey struct{}

// WithRequestID returns a context carrying requestID for correlated logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID extracts a request id previously attached with WithRequestID.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// coreLogger is the concrete, process-wide Logger implementation.
type coreLogger struct {
	level       string
	debug       bool
	serviceName string
	format      string
	output      io.Writer
	mu          sync.RWMutex

	errorLimiter *rate.Limiter
}

var (
	singleton     *coreLogger
	singletonOnce sync.Once
)

// New returns the process-wide singleton logger for serviceName. Subsequent
// calls (even with a different serviceName) return the same instance.
func New(serviceName string) Logger {
	singletonOnce.Do(func() {
		singleton = build(serviceName)
	})
	return singleton
}

func build(serviceName string) *coreLogger {
	level := os.Getenv("CORE_LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}
	debug := os.Getenv("CORE_DEBUG") == "true" || strings.ToUpper(level) == "DEBUG"

	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json"
	}
	if envFormat := os.Getenv("CORE_LOG_FORMAT"); envFormat != "" {
		format = envFormat
	}

	return &coreLogger{
		level:        strings.ToUpper(level),
		debug:        debug,
		serviceName:  serviceName,
		format:       format,
		output:       os.Stdout,
		errorLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (l *coreLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *coreLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *coreLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

// Error is rate-limited to bound log volume during failure storms.
func (l *coreLogger) Error(msg string, fields map[string]interface{}) {
	if !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

func withRequestField(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	id, ok := RequestID(ctx)
	if !ok {
		return fields
	}
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["request_id"] = id
	return merged
}

func (l *coreLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, withRequestField(ctx, fields))
}

func (l *coreLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, withRequestField(ctx, fields))
}

func (l *coreLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, withRequestField(ctx, fields))
}

func (l *coreLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, withRequestField(ctx, fields))
}

func (l *coreLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}
	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}
}

func (l *coreLogger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.serviceName,
		"message":   msg,
	}
	for k, v := range fields {
		if _, reserved := entry[k]; !reserved {
			entry[k] = v
		}
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *coreLogger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintf(l.output, "%s [%s] [%s] %s%s\n", timestamp, level, l.serviceName, msg, b.String())
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

func (l *coreLogger) shouldLog(level string) bool {
	cur, ok1 := levelRank[l.level]
	want, ok2 := levelRank[level]
	if !ok1 || !ok2 {
		return true
	}
	return want >= cur
}

// NoOp is a Logger that discards everything; used as a safe default when no
// logger is configured.
type NoOp struct{}

func (NoOp) Info(string, map[string]interface{})                                  {}
func (NoOp) Warn(string, map[string]interface{})                                  {}
func (NoOp) Error(string, map[string]interface{})                                 {}
func (NoOp) Debug(string, map[string]interface{})                                 {}
func (NoOp) InfoWithContext(context.Context, string, map[string]interface{})      {}
func (NoOp) WarnWithContext(context.Context, string, map[string]interface{})      {}
func (NoOp) ErrorWithContext(context.Context, string, map[string]interface{})     {}
func (NoOp) DebugWithContext(context.Context, string, map[string]interface{})     {}

var _ Logger = (*coreLogger)(nil)
var _ Logger = NoOp{}
