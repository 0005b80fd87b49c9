package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to a logger. It is used when no brokers are
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	attrs := []any{
		"event_type", string(event.Type),
		"key", event.Key,
	}
	if event.Identity != "" {
		attrs = append(attrs, "identity", event.Identity)
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, "attr_"+k, v)
	}
	p.logger.InfoContext(ctx, "event", attrs...)
	return nil
}
