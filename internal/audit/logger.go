package audit

import (
	"context"
	"log/slog"

	"github.com/m41k1204/taskflow/internal/eventbus"
)

const subscribeBuffer = 64

// Logger subscribes to the event bus and writes one log line per domain
// event.
type Logger struct {
	bus *eventbus.Bus
}

func New(bus *eventbus.Bus) *Logger {
	return &Logger{bus: bus}
}

// Start consumes events until ctx is cancelled.
func (l *Logger) Start(ctx context.Context) error {
	id, ch := l.bus.Subscribe(subscribeBuffer)
	defer l.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			attrs := []any{
				"event_id", ev.ID,
				"type", string(ev.Type),
				"resource_id", ev.ResourceID,
			}
			for k, v := range ev.Metadata {
				attrs = append(attrs, k, v)
			}
			slog.InfoContext(ctx, "domain event", attrs...)
		}
	}
}
