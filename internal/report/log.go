package report

import (
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"go.uber.org/zap"
)

var _ Reporter = (*Log)(nil)

// Log writes progress as structured zap entries. Cooldown ticks are logged
// at debug level only.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) RunStarted(runID string, requested, totalBatches int) {
	l.logger.Info("generation started",
		zap.String("runId", runID),
		zap.Int("requested", requested),
		zap.Int("batches", totalBatches),
	)
}

func (l *Log) BatchStarted(plan domain.BatchPlan) {
	l.logger.Info("batch started",
		zap.Int("batch", plan.Index+1),
		zap.Int("totalBatches", plan.Total),
		zap.Int("size", plan.Size),
	)
}

func (l *Log) UnitProgress(stage domain.UnitStage, address string) {
	progress := 50
	if stage == domain.StageReserve {
		progress = 100
	}
	l.logger.Info("address progress",
		zap.String("stage", stage.String()),
		zap.String("address", address),
		zap.Int("progress", progress),
	)
}

func (l *Log) UnitFailed(stage domain.UnitStage, address string, reason string) {
	fields := []zap.Field{
		zap.String("stage", stage.String()),
		zap.String("reason", reason),
	}
	if address != "" {
		fields = append(fields, zap.String("address", address))
	}
	l.logger.Warn("address unit failed", fields...)
}

func (l *Log) BatchRateLimited(plan domain.BatchPlan) {
	l.logger.Warn("batch produced no addresses, treating as rate limited",
		zap.Int("batch", plan.Index+1),
		zap.Int("size", plan.Size),
	)
}

func (l *Log) BatchCompleted(plan domain.BatchPlan, succeeded, collected, requested int) {
	l.logger.Info("batch persisted",
		zap.Int("batch", plan.Index+1),
		zap.Int("attempted", plan.Size),
		zap.Int("succeeded", succeeded),
		zap.Int("collected", collected),
		zap.Int("requested", requested),
	)
}

func (l *Log) CooldownStarted(reason domain.CooldownReason, d time.Duration) {
	l.logger.Info("cooldown started",
		zap.String("reason", reason.String()),
		zap.Duration("duration", d),
	)
}

func (l *Log) CooldownTick(reason domain.CooldownReason, remaining time.Duration) {
	l.logger.Debug("cooldown tick",
		zap.String("reason", reason.String()),
		zap.Duration("remaining", remaining),
	)
}

func (l *Log) CooldownFinished(reason domain.CooldownReason) {
	l.logger.Info("cooldown finished", zap.String("reason", reason.String()))
}

func (l *Log) RunFinished(summary domain.RunSummary, savedTo string) {
	l.logger.Info("generation finished",
		zap.String("runId", summary.RunID),
		zap.Int("requested", summary.Requested),
		zap.Int("generated", summary.Generated()),
		zap.Int("batches", summary.Batches),
		zap.Int("cooldowns", summary.Cooldowns),
		zap.Bool("interrupted", summary.Interrupted),
		zap.String("savedTo", savedTo),
	)
}
