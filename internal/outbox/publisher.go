package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DavidTortosaaa/gestor-reservas/internal/db"
	"github.com/DavidTortosaaa/gestor-reservas/internal/kafkax"
	"github.com/DavidTortosaaa/gestor-reservas/internal/otelx"
)

// Publisher ships committed reservation events from the outbox table to
// Kafka. Each event lands on the topic named after its event type, keyed by
// reservation id so per-reservation ordering survives partitioning. Rows are
// claimed with FOR UPDATE SKIP LOCKED, so replicas never double-publish.
type Publisher struct {
	pool      *db.Pool
	repo      *Repository
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	p := &Publisher{
		pool:      pool,
		repo:      repo,
		logger:    logger,
		brokers:   kafkax.SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
	if p.pollEvery <= 0 {
		p.pollEvery = 2 * time.Second
	}
	if p.batchSize <= 0 {
		p.batchSize = 50
	}
	return p
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  p.brokers,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		if err := p.drain(ctx, writer); err != nil && ctx.Err() == nil {
			p.logger.Error("outbox drain failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drain publishes one batch. The claim, the Kafka write, and the
// published_at update share a transaction: if the write fails the claim
// rolls back and the rows become visible to the next tick.
func (p *Publisher) drain(ctx context.Context, writer *kafka.Writer) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, p.toMessage(ctx, rec))
		ids = append(ids, rec.ID)
	}
	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}

	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.logger.Debug("outbox batch published", "count", len(records))
	return nil
}

func (p *Publisher) toMessage(ctx context.Context, rec Record) kafka.Message {
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(rec.EventID)},
		{Key: "event_type", Value: []byte(rec.EventType)},
	}
	// Restore the trace the reservation write started, so the consumer
	// span joins it.
	traceCtx := otelx.ContextWithTraceContext(ctx, rec.Traceparent, rec.Tracestate)
	return kafka.Message{
		Topic:   rec.EventType,
		Key:     []byte(rec.AggregateID),
		Value:   rec.Payload,
		Headers: kafkax.InjectTraceHeaders(traceCtx, headers),
	}
}
