package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type DefaultKafkaSubscriber struct {
	brokers []string
	dialer  *kafkago.Dialer
	logger  *slog.Logger
}

func NewDefaultKafkaSubscriber(cfg config.KafkaService, logger *slog.Logger) (*DefaultKafkaSubscriber, error) {
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultKafkaSubscriber{brokers: cfg.Brokers(), dialer: dialer, logger: logger}, nil
}

// Consume reads topic as a member of groupID. The offset of a message is
// committed after handle accepts it, so a message whose handler fails is
// redelivered to the group.
func (k *DefaultKafkaSubscriber) Consume(ctx context.Context, topic, groupID string, handle domain.MessageHandler) error {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
		Dialer:  k.dialer,
	})
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", topic, err)
		}

		if err := handle(ctx, domain.Message{Key: m.Key, Value: m.Value}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("handle %s partition %d offset %d: %w", topic, m.Partition, m.Offset, err)
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// the message is redelivered after a rebalance; handlers are idempotent
			k.logger.Warn("kafka commit failed",
				slog.String("topic", topic),
				slog.Int64("offset", m.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}
