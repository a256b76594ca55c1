package service

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/kursadbilgin/hme-generator/internal/report"
)

type fakeAddressService struct {
	generateFn func(ctx context.Context) (domain.Result[string], error)
	reserveFn  func(ctx context.Context, hme string) (domain.Result[string], error)
	listFn     func(ctx context.Context) (domain.Result[[]domain.Address], error)
}

func (f *fakeAddressService) Generate(ctx context.Context) (domain.Result[string], error) {
	if f.generateFn != nil {
		return f.generateFn(ctx)
	}
	return domain.Succeeded("generated@icloud.com"), nil
}

func (f *fakeAddressService) Reserve(ctx context.Context, hme string) (domain.Result[string], error) {
	if f.reserveFn != nil {
		return f.reserveFn(ctx, hme)
	}
	return domain.Succeeded(hme), nil
}

func (f *fakeAddressService) List(ctx context.Context) (domain.Result[[]domain.Address], error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return domain.Succeeded([]domain.Address{}), nil
}

type fakeWindowLimiter struct {
	allowFn func(ctx context.Context, account string) (bool, error)
}

func (f *fakeWindowLimiter) Allow(ctx context.Context, account string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, account)
	}
	return true, nil
}

type fakeWaiter struct {
	mu      sync.Mutex
	reasons []domain.CooldownReason
	waitFn  func(ctx context.Context, d time.Duration, reason domain.CooldownReason) error
}

func (f *fakeWaiter) Wait(ctx context.Context, d time.Duration, reason domain.CooldownReason) error {
	f.mu.Lock()
	f.reasons = append(f.reasons, reason)
	f.mu.Unlock()
	if f.waitFn != nil {
		return f.waitFn(ctx, d, reason)
	}
	return nil
}

func (f *fakeWaiter) Reasons() []domain.CooldownReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CooldownReason(nil), f.reasons...)
}

type recordingSink struct {
	mu      sync.Mutex
	batches []domain.PersistedBatch
	err     error
}

func (s *recordingSink) Append(ctx context.Context, batch domain.PersistedBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) Batches() []domain.PersistedBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PersistedBatch(nil), s.batches...)
}

// recordingReporter keeps one line per event.
type recordingReporter struct {
	report.Nop

	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingReporter) UnitProgress(stage domain.UnitStage, address string) {
	r.record("progress %s %s", stage, address)
}

func (r *recordingReporter) UnitFailed(stage domain.UnitStage, address string, reason string) {
	r.record("failed %s %s %s", stage, address, reason)
}

func (r *recordingReporter) BatchStarted(plan domain.BatchPlan) {
	r.record("batch %d/%d size=%d", plan.Index+1, plan.Total, plan.Size)
}

func (r *recordingReporter) BatchRateLimited(plan domain.BatchPlan) {
	r.record("rate-limited %d", plan.Index+1)
}

func (r *recordingReporter) CooldownStarted(reason domain.CooldownReason, d time.Duration) {
	r.record("cooldown-start %s", reason)
}

func (r *recordingReporter) CooldownTick(reason domain.CooldownReason, remaining time.Duration) {
	r.record("cooldown-tick %s", reason)
}

func (r *recordingReporter) CooldownFinished(reason domain.CooldownReason) {
	r.record("cooldown-done %s", reason)
}

func (r *recordingReporter) RunFinished(summary domain.RunSummary, savedTo string) {
	r.record("finished generated=%d interrupted=%t", summary.Generated(), summary.Interrupted)
}

func countPrefix(events []string, prefix string) int {
	n := 0
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func scrapeMetrics(t *testing.T, m *observability.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func intPtr(v int) *int { return &v }
