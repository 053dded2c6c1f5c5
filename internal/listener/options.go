package listener

import (
	"context"
	"log/slog"

	"github.com/roach88/capture-relay/internal/event"
)

// Deliverer receives normalized events. Implemented by *bridge.Bridge.
type Deliverer interface {
	Deliver(ctx context.Context, e event.Event)
}

type options struct {
	log *slog.Logger
	ids event.IDGenerator
}

// Option configures a listener.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithIDGenerator sets the event id generator. Default: UUIDv7.
func WithIDGenerator(g event.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default(), ids: event.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
