package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
)

const (
	defaultTriggerBackoff = time.Second
	maxTriggerBackoff     = 30 * time.Second
)

// TriggerConsumer turns activation trigger messages into activation jobs.
type TriggerConsumer struct {
	Subscriber domain.SubscriberPort
	Queue      domain.JobQueue
	Topic      string
	GroupID    string
	Logger     *slog.Logger
	// RetryBackoff is the first wait after a failed enqueue. It doubles up to
	// maxTriggerBackoff while the same message keeps failing.
	RetryBackoff time.Duration
}

// ActivationIdempotencyKey is the job key that makes repeated triggers for
// the same purchase collapse into one job.
func ActivationIdempotencyKey(req domain.ActivationRequest) string {
	return fmt.Sprintf("activation:%s:%s:%s:%s", req.UserID, req.PackageCode, req.Source.Type, req.Source.ID)
}

// Run consumes until ctx is done. Malformed messages are logged and
// acknowledged. A message whose enqueue fails is retried and stays
// unacknowledged until it is enqueued.
func (c *TriggerConsumer) Run(ctx context.Context) error {
	c.logger().Info("trigger consumer started", slog.String("topic", c.Topic), slog.String("group_id", c.GroupID))
	if err := c.Subscriber.Consume(ctx, c.Topic, c.GroupID, c.consume); err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume %s: %w", c.Topic, err)
	}
	return nil
}

func (c *TriggerConsumer) consume(ctx context.Context, msg domain.Message) error {
	backoff := c.RetryBackoff
	if backoff <= 0 {
		backoff = defaultTriggerBackoff
	}
	for {
		err := c.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrMalformedMessage) {
			c.logger().Warn("trigger message dropped",
				slog.String("key", string(msg.Key)),
				slog.String("error", err.Error()),
			)
			return nil
		}

		c.logger().Error("trigger enqueue failed, retrying",
			slog.String("key", string(msg.Key)),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxTriggerBackoff)
	}
}

// Handle enqueues one activation job for the message. Messages that can never
// be enqueued fail with ErrMalformedMessage.
func (c *TriggerConsumer) Handle(ctx context.Context, msg domain.Message) error {
	var req domain.ActivationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("%w: decode trigger: %v", domain.ErrMalformedMessage, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: trigger: %v", domain.ErrMalformedMessage, err)
	}
	job, err := c.Queue.Enqueue(ctx, domain.JobTypeActivation, req, domain.EnqueueOptions{
		IdempotencyKey: ActivationIdempotencyKey(req),
	})
	if err != nil {
		return err
	}
	c.logger().Debug("activation job enqueued from trigger",
		slog.String("job_id", job.ID),
		slog.String("user_id", req.UserID),
	)
	return nil
}

func (c *TriggerConsumer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
