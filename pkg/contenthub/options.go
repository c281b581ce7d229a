package contenthub

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type options struct {
	sink     EventSink
	logger   *slog.Logger
	clock    func() time.Time
	newID    func() string
	attempts uint
}

func defaultOptions() options {
	return options{
		sink:     NewNoopEventSink(),
		logger:   slog.Default(),
		clock:    time.Now,
		newID:    uuid.NewString,
		attempts: 3,
	}
}

// Option represents a functional option for configuring a repository
type Option func(*options)

// WithEventSink sets the event sink notified after index mutations
func WithEventSink(sink EventSink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for uploadedAt
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides the record id generator
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithCommitAttempts sets how many times an index commit is retried after a
// concurrent write conflict before the conflict is returned to the caller.
func WithCommitAttempts(n uint) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}
