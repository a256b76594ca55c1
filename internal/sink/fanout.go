package sink

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"go.uber.org/zap"
)

// Fanout writes to a primary sink and then to best-effort secondaries.
// Only a primary failure is returned; secondary failures are logged.
type Fanout struct {
	primary     Sink
	secondaries map[string]Sink
	order       []string
	logger      *zap.Logger
}

func NewFanout(primary Sink, logger *zap.Logger) (*Fanout, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary sink is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{
		primary:     primary,
		secondaries: make(map[string]Sink),
		logger:      logger,
	}, nil
}

// Add registers a named secondary sink. Secondaries run in registration order.
func (f *Fanout) Add(name string, s Sink) {
	if s == nil {
		return
	}
	if _, exists := f.secondaries[name]; !exists {
		f.order = append(f.order, name)
	}
	f.secondaries[name] = s
}

func (f *Fanout) Append(ctx context.Context, batch domain.PersistedBatch) error {
	if err := f.primary.Append(ctx, batch); err != nil {
		return err
	}

	for _, name := range f.order {
		if err := f.secondaries[name].Append(ctx, batch); err != nil {
			f.logger.Warn("secondary sink failed",
				zap.String("sink", name),
				zap.Int("batch", batch.Index+1),
				zap.Int("addresses", len(batch.Addresses)),
				zap.Error(err),
			)
		}
	}
	return nil
}
