package domain

import "context"

type Message struct {
	Key   []byte
	Value []byte
}

type PublisherPort interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
}

// MessageHandler processes one consumed message. A nil return acknowledges it.
type MessageHandler func(ctx context.Context, msg Message) error

type SubscriberPort interface {
	// Consume hands messages of topic to handle one at a time and blocks until
	// ctx is done. A message is committed only after handle returns nil; a
	// handler error stops consumption with the message uncommitted.
	Consume(ctx context.Context, topic, groupID string, handle MessageHandler) error
}
