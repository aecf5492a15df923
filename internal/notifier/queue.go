package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"macrotrack/internal/pubsub"
)

// QueueSender is satisfied by *pgmq.Client.
type QueueSender interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

// QueueNotifier enqueues notifications for the webhook worker.
type QueueNotifier struct {
	sender QueueSender
	queue  string
}

func NewQueueNotifier(sender QueueSender, queue string) *QueueNotifier {
	return &QueueNotifier{sender: sender, queue: queue}
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notification) error {
	if n.TargetURL == "" {
		return ErrNoTarget
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return q.sender.Send(ctx, q.queue, data)
}

// PubSubNotifier publishes notifications as entry-saved events.
type PubSubNotifier struct {
	publisher pubsub.Publisher
	topic     string
}

func NewPubSubNotifier(publisher pubsub.Publisher, topic string) *PubSubNotifier {
	return &PubSubNotifier{publisher: publisher, topic: topic}
}

func (p *PubSubNotifier) Notify(ctx context.Context, n Notification) error {
	if n.TargetURL == "" {
		return ErrNoTarget
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	_, err = p.publisher.Publish(ctx, p.topic, data, map[string]string{
		"entry_id": n.EntryID,
		"uid":      n.Payload.UID,
	})
	return err
}
