package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

// AuditOutbox is the audit_log side of the relay.
type AuditOutbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]repository.PendingAudit, error)
	MarkPublished(ctx context.Context, seqs []int64) error
}

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// AuditRelay polls audit_log for rows not yet published and relays them to
// Kafka in append order.
type AuditRelay struct {
	outbox    AuditOutbox
	producer  Publisher
	topic     string
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewAuditRelay creates a relay publishing to topic.
func NewAuditRelay(outbox AuditOutbox, producer Publisher, topic string, interval time.Duration, batchSize int, logger *slog.Logger) *AuditRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AuditRelay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (r *AuditRelay) Start(ctx context.Context) {
	r.logger.Info("audit relay started", "interval", r.interval, "batch_size", r.batchSize, "topic", r.topic)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("audit relay stopped")
				return
			case <-ticker.C:
				if _, err := r.Poll(ctx); err != nil {
					r.logger.Error("audit relay poll error", "error", err)
				}
			}
		}
	}()
}

// Poll relays one batch and returns how many entries were published. A
// publish failure stops the batch so later entries never overtake it.
func (r *AuditRelay) Poll(ctx context.Context) (int, error) {
	pending, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished audit: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(pending))
	var publishErr error
	for _, p := range pending {
		evt := domain.NewAuditEvent(p.Entry)
		msg, err := json.Marshal(evt)
		if err != nil {
			publishErr = fmt.Errorf("marshal audit event %s: %w", p.Entry.ID, err)
			break
		}
		if err := r.producer.Publish(ctx, r.topic, []byte(evt.UserID), msg); err != nil {
			publishErr = fmt.Errorf("publish audit event %s: %w", p.Entry.ID, err)
			break
		}
		published = append(published, p.Seq)
	}

	if len(published) > 0 {
		if err := r.outbox.MarkPublished(ctx, published); err != nil {
			return 0, fmt.Errorf("mark audit published: %w", err)
		}
		r.logger.Debug("audit relay batch complete", "published", len(published))
	}
	return len(published), publishErr
}
