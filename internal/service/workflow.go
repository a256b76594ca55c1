package service

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/kursadbilgin/hme-generator/internal/provider"
	"github.com/kursadbilgin/hme-generator/internal/ratelimit"
	"github.com/kursadbilgin/hme-generator/internal/report"
	"go.uber.org/zap"
)

const windowExhaustedReason = "local rate-limit window exhausted"

// Unit produces zero or one address. It never returns an error; failures are
// reported and collapse to ok == false.
type Unit func(ctx context.Context) (address string, ok bool)

// AddressWorkflow creates one address and reserves it.
type AddressWorkflow struct {
	service  provider.AddressService
	limiter  ratelimit.WindowLimiter
	account  string
	reporter report.Reporter
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

type WorkflowOption func(*AddressWorkflow)

// WithWindowLimiter makes every unit consume one slot of the shared window
// for account before calling the service.
func WithWindowLimiter(limiter ratelimit.WindowLimiter, account string) WorkflowOption {
	return func(w *AddressWorkflow) {
		w.limiter = limiter
		w.account = account
	}
}

func WithWorkflowMetrics(metrics *observability.Metrics) WorkflowOption {
	return func(w *AddressWorkflow) {
		w.metrics = metrics
	}
}

func NewAddressWorkflow(
	service provider.AddressService,
	reporter report.Reporter,
	logger *zap.Logger,
	opts ...WorkflowOption,
) (*AddressWorkflow, error) {
	if service == nil {
		return nil, errors.New("address service is required")
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &AddressWorkflow{
		service:  service,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run executes one generate-then-reserve sequence.
func (w *AddressWorkflow) Run(ctx context.Context) (string, bool) {
	w.metrics.IncUnitsInFlight()
	defer w.metrics.DecUnitsInFlight()

	logger := observability.WithContextLogger(w.logger, ctx)

	if !w.allowed(ctx, logger) {
		w.metrics.IncUnitFailure(domain.StageGenerate.String(), 0)
		w.reporter.UnitFailed(domain.StageGenerate, "", windowExhaustedReason)
		return "", false
	}

	start := w.now()
	generated, err := w.service.Generate(ctx)
	w.metrics.ObserveServiceCall(domain.StageGenerate.String(), w.now().Sub(start))
	if !w.succeeded(logger, domain.StageGenerate, "", generated, err) {
		return "", false
	}

	address := *generated.Value
	w.reporter.UnitProgress(domain.StageGenerate, address)

	start = w.now()
	reserved, err := w.service.Reserve(ctx, address)
	w.metrics.ObserveServiceCall(domain.StageReserve.String(), w.now().Sub(start))
	if !w.succeeded(logger, domain.StageReserve, address, reserved, err) {
		return "", false
	}

	w.reporter.UnitProgress(domain.StageReserve, address)
	return address, true
}

func (w *AddressWorkflow) allowed(ctx context.Context, logger *zap.Logger) bool {
	if w.limiter == nil {
		return true
	}

	allowed, err := w.limiter.Allow(ctx, w.account)
	if err != nil {
		logger.Warn("window limiter unavailable, continuing without it",
			zap.String("account", w.account),
			zap.Error(err),
		)
		return true
	}
	return allowed
}

func (w *AddressWorkflow) succeeded(
	logger *zap.Logger,
	stage domain.UnitStage,
	address string,
	res domain.Result[string],
	err error,
) bool {
	if err == nil && res.OK() {
		return true
	}

	reason := res.Reason()
	code := res.Code()
	if err != nil {
		reason = err.Error()
		var perr *provider.ProviderError
		if errors.As(err, &perr) {
			code = perr.StatusCode
		}
	}

	w.metrics.IncUnitFailure(stage.String(), code)
	logger.Debug("service call failed",
		zap.String("stage", stage.String()),
		zap.String("address", address),
		zap.Int("code", code),
		zap.String("reason", reason),
	)
	w.reporter.UnitFailed(stage, address, reason)
	return false
}
