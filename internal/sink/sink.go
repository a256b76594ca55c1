// Package sink persists the addresses of each completed batch.
//
// The batch controller writes to sinks only between batches, never
// concurrently, so implementations do not lock.
package sink

import (
	"context"

	"github.com/kursadbilgin/hme-generator/internal/domain"
)

type Sink interface {
	Append(ctx context.Context, batch domain.PersistedBatch) error
}

type Func func(ctx context.Context, batch domain.PersistedBatch) error

func (f Func) Append(ctx context.Context, batch domain.PersistedBatch) error {
	return f(ctx, batch)
}
