package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/kursadbilgin/hme-generator/internal/report"
	"github.com/kursadbilgin/hme-generator/internal/sink"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize          = 5
	DefaultMaxConcurrentTasks = 10
	DefaultCooldown           = 2700 * time.Second
)

type GeneratorConfig struct {
	BatchSize          int
	MaxConcurrentTasks int
	Cooldown           time.Duration
	// SavedTo is shown in the final summary.
	SavedTo string
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxConcurrentTasks <= 0 {
		c.MaxConcurrentTasks = DefaultMaxConcurrentTasks
	}
	if c.Cooldown < 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// Generator drives a run: it splits the request into batches no larger than
// the provider allows, dispatches each batch, persists its successes and
// cools down between batches. A batch with no success is treated as rate
// limited and retried with the same size after a full cooldown.
type Generator struct {
	unit     Unit
	sink     sink.Sink
	waiter   Waiter
	reporter report.Reporter
	metrics  *observability.Metrics
	logger   *zap.Logger
	cfg      GeneratorConfig
	now      func() time.Time
	newRunID func() string
}

func NewGenerator(
	unit Unit,
	out sink.Sink,
	waiter Waiter,
	reporter report.Reporter,
	cfg GeneratorConfig,
	logger *zap.Logger,
) (*Generator, error) {
	if unit == nil {
		return nil, errors.New("address unit is required")
	}
	if out == nil {
		return nil, errors.New("sink is required")
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	if waiter == nil {
		waiter = NewCooldown(defaultCooldownTick, reporter)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		unit:     unit,
		sink:     out,
		waiter:   waiter,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}, nil
}

func (g *Generator) SetMetrics(metrics *observability.Metrics) {
	g.metrics = metrics
}

// Run generates req.Count addresses. Cancelling ctx stops the run at the next
// dispatch or cooldown; the summary then holds only persisted addresses and
// the returned error is nil. A failure of the sink is returned together with
// the addresses persisted before it.
func (g *Generator) Run(ctx context.Context, req domain.GenerationRequest) (domain.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := req.Validate(); err != nil {
		return domain.RunSummary{}, err
	}

	runID := g.newRunID()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.WithContextLogger(g.logger, ctx)

	summary := domain.RunSummary{
		RunID:     runID,
		Requested: req.Count,
		Addresses: make([]string, 0, req.Count),
	}
	remaining := req.Count
	index := 0

	total := domain.PlanBatch(req.Count, remaining, g.cfg.BatchSize, index).Total
	g.reporter.RunStarted(runID, req.Count, total)

	finish := func(interrupted bool) domain.RunSummary {
		summary.Interrupted = interrupted
		g.reporter.RunFinished(summary, g.cfg.SavedTo)
		return summary
	}

	for remaining > 0 {
		if ctx.Err() != nil {
			return finish(true), nil
		}

		plan := domain.PlanBatch(req.Count, remaining, g.cfg.BatchSize, index)
		g.reporter.BatchStarted(plan)

		concurrency := min(plan.Size, g.cfg.MaxConcurrentTasks)
		outcome := domain.BatchOutcome{
			Plan:      plan,
			Addresses: Dispatch(ctx, plan.Size, concurrency, g.unit),
		}

		if ctx.Err() != nil {
			if outcome.SuccessCount() > 0 {
				logger.Warn("discarding addresses from interrupted batch",
					zap.Int("batch", plan.Index+1),
					zap.Strings("addresses", outcome.Addresses),
				)
			}
			return finish(true), nil
		}
		summary.Batches++

		status := outcome.Status()
		g.metrics.IncBatch(status.String())
		logger.Debug("batch classified",
			zap.Int("batch", plan.Index+1),
			zap.Int("attempted", plan.Size),
			zap.Int("succeeded", outcome.SuccessCount()),
			zap.String("status", status.String()),
		)

		if outcome.IsTotalFailure() {
			g.reporter.BatchRateLimited(plan)
			if err := g.cooldown(ctx, &summary, domain.CooldownRateLimited); err != nil {
				if ctx.Err() != nil {
					return finish(true), nil
				}
				return finish(false), fmt.Errorf("cooldown: %w", err)
			}
			continue
		}

		persisted := domain.PersistedBatch{
			RunID:     runID,
			Index:     plan.Index,
			Attempted: plan.Size,
			Addresses: outcome.Addresses,
			Status:    status,
			CreatedAt: g.now().UTC(),
		}
		if err := g.sink.Append(context.WithoutCancel(ctx), persisted); err != nil {
			logger.Error("failed to persist batch",
				zap.Int("batch", plan.Index+1),
				zap.Strings("addresses", outcome.Addresses),
				zap.Error(err),
			)
			return finish(false), fmt.Errorf("persist batch %d: %w", plan.Index+1, err)
		}

		succeeded := outcome.SuccessCount()
		summary.Addresses = append(summary.Addresses, outcome.Addresses...)
		remaining -= succeeded
		index++
		g.metrics.AddAddressesGenerated(succeeded)
		g.reporter.BatchCompleted(plan, succeeded, summary.Generated(), req.Count)

		if remaining > 0 {
			if err := g.cooldown(ctx, &summary, domain.CooldownInterBatch); err != nil {
				if ctx.Err() != nil {
					return finish(true), nil
				}
				return finish(false), fmt.Errorf("cooldown: %w", err)
			}
		}
	}

	return finish(false), nil
}

func (g *Generator) cooldown(ctx context.Context, summary *domain.RunSummary, reason domain.CooldownReason) error {
	summary.Cooldowns++
	g.metrics.IncCooldown(reason.String())
	return g.waiter.Wait(ctx, g.cfg.Cooldown, reason)
}
