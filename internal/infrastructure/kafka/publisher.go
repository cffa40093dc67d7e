package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const writeTimeout = 30 * time.Second

type DefaultKafkaPublisher struct {
	writer *kafkago.Writer
}

func NewDefaultKafkaPublisher(cfg config.KafkaService) (*DefaultKafkaPublisher, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &DefaultKafkaPublisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers()...),
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			Transport:    transport,
		},
	}, nil
}

// Publish writes msgs to topic as one batch. Messages with the same key land
// on the same partition.
func (k *DefaultKafkaPublisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now()
	km := make([]kafkago.Message, 0, len(msgs))
	for _, m := range msgs {
		km = append(km, kafkago.Message{
			Topic: topic,
			Key:   m.Key,
			Value: m.Value,
			Time:  now,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, km...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(km), topic, err)
	}
	return nil
}

func (k *DefaultKafkaPublisher) Close() error {
	return k.writer.Close()
}
