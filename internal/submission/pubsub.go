package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubChannel publishes envelopes to a Pub/Sub topic.
type PubSubChannel struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubChannel constructs a Pub/Sub backed channel.
func NewPubSubChannel(topic *pubsub.Topic) (*PubSubChannel, error) {
	if topic == nil {
		return nil, errors.New("pubsub channel: topic is required")
	}
	return &PubSubChannel{topic: topic, marshal: json.Marshal}, nil
}

// Name implements Channel.
func (c *PubSubChannel) Name() string { return "pubsub" }

// Deliver implements Channel. It blocks until the server acknowledges the
// message or ctx ends.
func (c *PubSubChannel) Deliver(ctx context.Context, env Envelope) error {
	if c == nil || c.topic == nil {
		return errors.New("pubsub channel: not initialised")
	}
	data, err := c.marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	result := c.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: env.Attributes(),
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}
	return nil
}
