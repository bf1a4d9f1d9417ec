package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DavidTortosaaa/gestor-reservas/internal/inbox"
	"github.com/DavidTortosaaa/gestor-reservas/internal/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

// Consumer feeds one topic's reservation events through inbox deduplication
// into a handler. Notifications are best-effort: a handler error is logged
// and the offset still advances, so a broken event cannot wedge the group.
type Consumer struct {
	cfg     Config
	brokers []string
	logger  *slog.Logger
	inbox   *inbox.Repository
	handler Handler
}

func NewConsumer(logger *slog.Logger, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	return &Consumer{
		cfg:     cfg,
		brokers: kafkax.SplitBrokers(cfg.Brokers),
		logger:  logger,
		inbox:   inboxRepo,
		handler: handler,
	}
}

// Run blocks until ctx is cancelled. Without brokers configured it returns
// immediately, matching the outbox publisher: reservations still work, only
// the emails are off.
func (c *Consumer) Run(ctx context.Context) {
	if len(c.brokers) == 0 {
		c.logger.Warn("notification consumer disabled (no kafka brokers configured)", "topic", c.cfg.Topic)
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    c.cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err, "topic", c.cfg.Topic)
			time.Sleep(1 * time.Second)
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	log := c.logger.With("event_id", meta.EventID, "event_type", meta.EventType)

	fresh, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		log.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return
	}
	if !fresh {
		log.Info("duplicate event ignored")
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		log.Error("notification handler failed", "err", err)
		span.RecordError(err)
	}
}
