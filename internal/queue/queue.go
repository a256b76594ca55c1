package queue

import "context"

// GeneratedQueueName is the durable queue receiving one message per persisted address.
const GeneratedQueueName = "hme.generated"

// Publisher publishes address events to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg AddressGeneratedMessage) error
	Close() error
}
