package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSubscriber delivers its messages in order and records the ones the
// handler acknowledged. Like the kafka subscriber it stops at the first
// handler error.
type sliceSubscriber struct {
	msgs      []domain.Message
	committed []domain.Message
}

func (s *sliceSubscriber) Consume(ctx context.Context, _, _ string, handle domain.MessageHandler) error {
	for _, m := range s.msgs {
		if err := handle(ctx, m); err != nil {
			return err
		}
		s.committed = append(s.committed, m)
	}
	return nil
}

// flakyQueue fails the first failures Enqueue calls.
type flakyQueue struct {
	domain.JobQueue
	failures int
	calls    atomic.Int32
}

func (q *flakyQueue) Enqueue(ctx context.Context, taskType string, payload any, opts domain.EnqueueOptions) (*domain.Job, error) {
	if int(q.calls.Add(1)) <= q.failures {
		return nil, errors.New("connection refused")
	}
	return q.JobQueue.Enqueue(ctx, taskType, payload, opts)
}

func triggerMessage(t *testing.T, req domain.ActivationRequest) domain.Message {
	t.Helper()
	value, err := json.Marshal(req)
	require.NoError(t, err)
	return domain.Message{Key: []byte(req.UserID), Value: value}
}

func TestTriggerHandleEnqueuesOnce(t *testing.T) {
	q, _ := newQueue(t, 3)
	ctx := context.Background()
	c := &TriggerConsumer{Queue: q, Topic: "activations", Logger: q.Logger}

	req := domain.ActivationRequest{
		UserID:      "U",
		PackageCode: "PRIME_150",
		Source:      domain.SourceRef{Type: "order", ID: "1"},
	}
	require.NoError(t, c.Handle(ctx, triggerMessage(t, req)))
	require.NoError(t, c.Handle(ctx, triggerMessage(t, req)))

	job, err := q.Repo.GetByIdempotencyKey(ctx, "activation:U:PRIME_150:order:1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeActivation, job.Type)

	var decoded domain.ActivationRequest
	require.NoError(t, json.Unmarshal(job.Payload, &decoded))
	assert.Equal(t, req, decoded)

	claimed, err := q.FetchNext(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	claimed, err = q.FetchNext(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestTriggerHandleRejectsBadMessages(t *testing.T) {
	q, _ := newQueue(t, 3)
	c := &TriggerConsumer{Queue: q}

	err := c.Handle(context.Background(), domain.Message{Value: []byte("{")})
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)

	err = c.Handle(context.Background(), triggerMessage(t, domain.ActivationRequest{
		UserID: "U",
		Source: domain.SourceRef{Type: "order", ID: "1"},
	}))
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)

	err = c.Handle(context.Background(), triggerMessage(t, domain.ActivationRequest{
		UserID:      "U",
		PackageCode: "PRIME_150",
	}))
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)
}

var purchaseTrigger = domain.ActivationRequest{
	UserID:      "U",
	PackageCode: "PRIME_150",
	Source:      domain.SourceRef{Type: "order", ID: "1"},
}

func TestTriggerRunAcknowledgesMalformedAndEnqueued(t *testing.T) {
	q, _ := newQueue(t, 3)
	bad := domain.Message{Key: []byte("bad"), Value: []byte("not json")}
	good := triggerMessage(t, purchaseTrigger)
	sub := &sliceSubscriber{msgs: []domain.Message{bad, good}}
	c := &TriggerConsumer{Subscriber: sub, Queue: q, Topic: "activations", GroupID: "matrix", Logger: q.Logger}

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []domain.Message{bad, good}, sub.committed)

	_, err := q.Repo.GetByIdempotencyKey(context.Background(), "activation:U:PRIME_150:order:1")
	assert.NoError(t, err)
}

func TestTriggerRunRetriesFailedEnqueueBeforeAcknowledging(t *testing.T) {
	q, _ := newQueue(t, 3)
	flaky := &flakyQueue{JobQueue: q, failures: 2}
	msg := triggerMessage(t, purchaseTrigger)
	sub := &sliceSubscriber{msgs: []domain.Message{msg}}
	c := &TriggerConsumer{Subscriber: sub, Queue: flaky, Logger: q.Logger, RetryBackoff: time.Millisecond}

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, []domain.Message{msg}, sub.committed)

	_, err := q.Repo.GetByIdempotencyKey(context.Background(), "activation:U:PRIME_150:order:1")
	assert.NoError(t, err)
}

func TestTriggerRunLeavesMessageUnacknowledgedOnShutdown(t *testing.T) {
	q, _ := newQueue(t, 3)
	down := &flakyQueue{JobQueue: q, failures: 1 << 20}
	sub := &sliceSubscriber{msgs: []domain.Message{triggerMessage(t, purchaseTrigger)}}
	c := &TriggerConsumer{Subscriber: sub, Queue: down, Logger: q.Logger, RetryBackoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return down.calls.Load() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Empty(t, sub.committed)

	_, err := q.Repo.GetByIdempotencyKey(context.Background(), "activation:U:PRIME_150:order:1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
