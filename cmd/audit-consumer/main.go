package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("audit consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is empty")
	}

	groupID := os.Getenv("AUDIT_CONSUMER_GROUP")
	if groupID == "" {
		groupID = "zerotrust-audit-consumer"
	}

	consumer := infra.NewKafkaConsumer(brokers, cfg.AuditTopic, groupID, logger)
	defer consumer.Close()
	logger.Info("audit-consumer starting", "topic", cfg.AuditTopic, "group", groupID)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("audit-consumer shutting down")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		var evt domain.AuditEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("malformed audit event", "offset", msg.Offset, "error", err)
			continue
		}
		var entry domain.AuditEntry
		if err := json.Unmarshal(evt.Payload, &entry); err != nil {
			logger.Error("malformed audit payload", "event_id", evt.EventID, "error", err)
			continue
		}

		logger.Info("audit event",
			"event_id", evt.EventID,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"action", entry.Action,
			"outcome", entry.Outcome,
			"user_email", entry.UserEmail,
			"risk_score", entry.RiskScore,
			"location", entry.Location,
			"occurred_at", evt.OccurredAt,
		)
	}
}
