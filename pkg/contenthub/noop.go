package contenthub

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// RecordUploaded does nothing and returns nil
func (n *NoopEventSink) RecordUploaded(ctx context.Context, kind, id string, size int64) error {
	return nil
}

// RecordDeleted does nothing and returns nil
func (n *NoopEventSink) RecordDeleted(ctx context.Context, kind, id string) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) RecordUploaded(ctx context.Context, kind, id string, size int64) error {
	l.logger.InfoContext(ctx, "Record uploaded", "kind", kind, "id", id, "size", size)
	return nil
}

func (l *LoggingEventSink) RecordDeleted(ctx context.Context, kind, id string) error {
	l.logger.InfoContext(ctx, "Record deleted", "kind", kind, "id", id)
	return nil
}

// MultiEventSink fans events out to several sinks, returning the first error.
type MultiEventSink []EventSink

func (m MultiEventSink) RecordUploaded(ctx context.Context, kind, id string, size int64) error {
	var first error
	for _, s := range m {
		if err := s.RecordUploaded(ctx, kind, id, size); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) RecordDeleted(ctx context.Context, kind, id string) error {
	var first error
	for _, s := range m {
		if err := s.RecordDeleted(ctx, kind, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}
