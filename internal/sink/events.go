package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/queue"
)

// Events publishes one message per persisted address.
type Events struct {
	publisher queue.Publisher
	queue     string
	now       func() time.Time
}

func NewEvents(publisher queue.Publisher) (*Events, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	return &Events{
		publisher: publisher,
		queue:     queue.GeneratedQueueName,
		now:       time.Now,
	}, nil
}

func (e *Events) Append(ctx context.Context, batch domain.PersistedBatch) error {
	generatedAt := batch.CreatedAt
	if generatedAt.IsZero() {
		generatedAt = e.now().UTC()
	}

	for _, address := range batch.Addresses {
		msg := queue.AddressGeneratedMessage{
			Address:     address,
			RunID:       batch.RunID,
			BatchIndex:  batch.Index,
			GeneratedAt: generatedAt,
		}
		if err := e.publisher.Publish(ctx, e.queue, msg); err != nil {
			return fmt.Errorf("failed to publish %q: %w", address, err)
		}
	}
	return nil
}
