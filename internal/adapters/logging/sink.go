package logging

import (
	"context"
	"sync"
	"time"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// SinkFunc receives every entry that passes a SinkLogger's level filter.
type SinkFunc func(Entry)

// SinkLogger forwards entries to a sink and then delegates to another logger.
// It lets event listeners observe the same log stream the console shows.
type SinkLogger struct {
	next   ports.Logger
	fields []ports.Field
	state  *sinkState
}

type sinkState struct {
	mu    sync.RWMutex
	sink  SinkFunc
	level ports.Level
}

// NewSinkLogger wraps next. A nil next is replaced with a NopLogger.
func NewSinkLogger(next ports.Logger, sink SinkFunc) *SinkLogger {
	if next == nil {
		next = NewNopLogger()
	}
	return &SinkLogger{
		next:  next,
		state: &sinkState{sink: sink, level: ports.LevelDebug},
	}
}

// SetSink replaces the sink. Safe to call while logging.
func (l *SinkLogger) SetSink(sink SinkFunc) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.sink = sink
}

// Debug logs a debug message.
func (l *SinkLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.forward(ports.LevelDebug, msg, fields)
	l.next.Debug(ctx, msg, fields...)
}

// Info logs an informational message.
func (l *SinkLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.forward(ports.LevelInfo, msg, fields)
	l.next.Info(ctx, msg, fields...)
}

// Warn logs a warning message.
func (l *SinkLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.forward(ports.LevelWarn, msg, fields)
	l.next.Warn(ctx, msg, fields...)
}

// Error logs an error message.
func (l *SinkLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.forward(ports.LevelError, msg, fields)
	l.next.Error(ctx, msg, fields...)
}

// With returns a logger that adds fields to both the sink and the delegate.
func (l *SinkLogger) With(fields ...ports.Field) ports.Logger {
	return &SinkLogger{
		next:   l.next.With(fields...),
		fields: appendFields(l.fields, fields),
		state:  l.state,
	}
}

// Level returns the minimum level forwarded to the sink.
func (l *SinkLogger) Level() ports.Level {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level
}

// SetLevel sets the minimum level forwarded to the sink.
// The delegate keeps its own level.
func (l *SinkLogger) SetLevel(level ports.Level) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = level
}

func (l *SinkLogger) forward(level ports.Level, msg string, fields []ports.Field) {
	l.state.mu.RLock()
	sink := l.state.sink
	threshold := l.state.level
	l.state.mu.RUnlock()

	if sink == nil || level < threshold {
		return
	}
	sink(Entry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  appendFields(l.fields, fields),
	})
}

// Ensure SinkLogger implements Logger.
var _ ports.Logger = (*SinkLogger)(nil)
