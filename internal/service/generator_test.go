package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/kursadbilgin/hme-generator/internal/sink"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// sequenceUnit hands out numbered addresses and fails the calls for which
// fail returns true.
type sequenceUnit struct {
	calls atomic.Int64
	fail  func(n int64) bool
}

func (u *sequenceUnit) Run(ctx context.Context) (string, bool) {
	n := u.calls.Add(1)
	if u.fail != nil && u.fail(n) {
		return "", false
	}
	return fmt.Sprintf("user%d@icloud.com", n), true
}

func newTestGenerator(
	t *testing.T,
	unit Unit,
	out sink.Sink,
	waiter Waiter,
	reporter *recordingReporter,
	batchSize int,
) *Generator {
	t.Helper()

	if reporter == nil {
		reporter = &recordingReporter{}
	}
	g, err := NewGenerator(unit, out, waiter, reporter, GeneratorConfig{
		BatchSize:          batchSize,
		MaxConcurrentTasks: 10,
		Cooldown:           time.Minute,
		SavedTo:            "emails.txt",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	g.newRunID = func() string { return "run-1" }
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func batchSizes(batches []domain.PersistedBatch) []int {
	sizes := make([]int, 0, len(batches))
	for _, b := range batches {
		sizes = append(sizes, len(b.Addresses))
	}
	return sizes
}

func TestGeneratorSplitsRequestIntoBatches(t *testing.T) {
	t.Parallel()

	unit := &sequenceUnit{}
	out := &recordingSink{}
	waiter := &fakeWaiter{}
	reporter := &recordingReporter{}
	g := newTestGenerator(t, unit.Run, out, waiter, reporter, 5)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 7})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Generated() != 7 || summary.Interrupted {
		t.Fatalf("summary = %+v, want 7 generated, not interrupted", summary)
	}
	if summary.RunID != "run-1" || summary.Batches != 2 || summary.Cooldowns != 1 {
		t.Fatalf("summary = %+v, want run-1 with 2 batches and 1 cooldown", summary)
	}
	if got := batchSizes(out.Batches()); fmt.Sprint(got) != "[5 2]" {
		t.Fatalf("persisted batch sizes = %v, want [5 2]", got)
	}
	if unit.calls.Load() != 7 {
		t.Fatalf("units launched = %d, want 7", unit.calls.Load())
	}
	if reasons := waiter.Reasons(); len(reasons) != 1 || reasons[0] != domain.CooldownInterBatch {
		t.Fatalf("cooldowns = %v, want one inter-batch cooldown", reasons)
	}

	events := reporter.Events()
	if countPrefix(events, "batch 1/2 size=5") != 1 || countPrefix(events, "batch 2/2 size=2") != 1 {
		t.Fatalf("events = %v, want batch 1/2 of 5 then 2/2 of 2", events)
	}

	first := out.Batches()[0]
	if first.RunID != "run-1" || first.Index != 0 || first.Attempted != 5 || first.Status != domain.BatchStatusCompleted {
		t.Fatalf("first persisted batch = %+v", first)
	}
}

func TestGeneratorRetriesTotallyFailedBatch(t *testing.T) {
	t.Parallel()

	unit := &sequenceUnit{fail: func(n int64) bool { return n <= 5 }}
	out := &recordingSink{}
	waiter := &fakeWaiter{}
	reporter := &recordingReporter{}
	g := newTestGenerator(t, unit.Run, out, waiter, reporter, 5)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 5})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Generated() != 5 {
		t.Fatalf("generated = %d, want 5", summary.Generated())
	}
	if unit.calls.Load() != 10 {
		t.Fatalf("units launched = %d, want 5 failed + 5 retried", unit.calls.Load())
	}
	if reasons := waiter.Reasons(); len(reasons) != 1 || reasons[0] != domain.CooldownRateLimited {
		t.Fatalf("cooldowns = %v, want one rate-limited cooldown", reasons)
	}
	if got := batchSizes(out.Batches()); fmt.Sprint(got) != "[5]" {
		t.Fatalf("persisted batch sizes = %v, want [5]", got)
	}

	events := reporter.Events()
	if countPrefix(events, "batch 1/1 size=5") != 2 {
		t.Fatalf("events = %v, want batch 1/1 planned twice with the same size", events)
	}
	if countPrefix(events, "rate-limited 1") != 1 {
		t.Fatalf("events = %v, want one rate-limited batch", events)
	}
}

func TestGeneratorPartialBatchReplansRemainder(t *testing.T) {
	t.Parallel()

	unit := &sequenceUnit{fail: func(n int64) bool { return n == 3 }}
	out := &recordingSink{}
	waiter := &fakeWaiter{}
	g := newTestGenerator(t, unit.Run, out, waiter, nil, 5)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 3})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Generated() != 3 {
		t.Fatalf("generated = %d, want 3", summary.Generated())
	}
	batches := out.Batches()
	if got := batchSizes(batches); fmt.Sprint(got) != "[2 1]" {
		t.Fatalf("persisted batch sizes = %v, want [2 1]", got)
	}
	if batches[0].Status != domain.BatchStatusPartialFailure || batches[0].Attempted != 3 {
		t.Fatalf("first batch = %+v, want partial failure of 3", batches[0])
	}
	if batches[1].Attempted != 1 || batches[1].Index != 1 {
		t.Fatalf("second batch = %+v, want 1 attempt at index 1", batches[1])
	}
	if reasons := waiter.Reasons(); len(reasons) != 1 || reasons[0] != domain.CooldownInterBatch {
		t.Fatalf("cooldowns = %v, want one inter-batch cooldown", reasons)
	}
}

func TestGeneratorNeverExceedsRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count     int
		batchSize int
		fail      func(n int64) bool
	}{
		{count: 1, batchSize: 5},
		{count: 12, batchSize: 5, fail: func(n int64) bool { return n%3 == 0 }},
		{count: 9, batchSize: 2, fail: func(n int64) bool { return n%2 == 1 }},
		{count: 10, batchSize: 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("count=%d/batch=%d", tt.count, tt.batchSize), func(t *testing.T) {
			t.Parallel()

			unit := &sequenceUnit{fail: tt.fail}
			out := &recordingSink{}
			g := newTestGenerator(t, unit.Run, out, &fakeWaiter{}, nil, tt.batchSize)

			summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: tt.count})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if summary.Generated() != tt.count {
				t.Fatalf("generated = %d, want %d", summary.Generated(), tt.count)
			}

			total := 0
			for _, b := range out.Batches() {
				if len(b.Addresses) == 0 || b.Attempted > tt.batchSize {
					t.Fatalf("batch %+v violates batch bounds", b)
				}
				total += len(b.Addresses)
			}
			if total != tt.count {
				t.Fatalf("persisted = %d, want %d", total, tt.count)
			}
		})
	}
}

func TestGeneratorInterruptDuringCooldown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unit := &sequenceUnit{}
	out := &recordingSink{}
	waiter := &fakeWaiter{
		waitFn: func(ctx context.Context, d time.Duration, reason domain.CooldownReason) error {
			if d != time.Minute {
				t.Errorf("cooldown = %v, want configured 1m", d)
			}
			cancel()
			return ctx.Err()
		},
	}
	reporter := &recordingReporter{}
	g := newTestGenerator(t, unit.Run, out, waiter, reporter, 5)

	summary, err := g.Run(ctx, domain.GenerationRequest{Count: 12})
	if err != nil {
		t.Fatalf("Run returned error on interrupt: %v", err)
	}

	if !summary.Interrupted {
		t.Fatal("summary not marked interrupted")
	}
	if summary.Generated() != 5 {
		t.Fatalf("generated = %d, want the 5 persisted before the interrupt", summary.Generated())
	}
	if unit.calls.Load() != 5 {
		t.Fatalf("units launched = %d, want no batch after the interrupt", unit.calls.Load())
	}
	if len(out.Batches()) != 1 || summary.Batches != 1 {
		t.Fatalf("persisted batches = %d, summary batches = %d, want 1", len(out.Batches()), summary.Batches)
	}
	events := reporter.Events()
	if events[len(events)-1] != "finished generated=5 interrupted=true" {
		t.Fatalf("last event = %q", events[len(events)-1])
	}
}

func TestGeneratorInterruptDuringDispatchDiscardsBatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &recordingSink{}
	unit := func(context.Context) (string, bool) {
		cancel()
		return "late@icloud.com", true
	}
	g := newTestGenerator(t, unit, out, &fakeWaiter{}, nil, 5)

	summary, err := g.Run(ctx, domain.GenerationRequest{Count: 5})
	if err != nil {
		t.Fatalf("Run returned error on interrupt: %v", err)
	}
	if !summary.Interrupted || summary.Generated() != 0 || summary.Batches != 0 {
		t.Fatalf("summary = %+v, want interrupted with no batch counted", summary)
	}
	if len(out.Batches()) != 0 {
		t.Fatal("in-flight batch was persisted")
	}
}

func TestGeneratorCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	unit := &sequenceUnit{}
	g := newTestGenerator(t, unit.Run, &recordingSink{}, &fakeWaiter{}, nil, 5)

	summary, err := g.Run(ctx, domain.GenerationRequest{Count: 3})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !summary.Interrupted || unit.calls.Load() != 0 {
		t.Fatalf("summary = %+v, calls = %d, want interrupted without work", summary, unit.calls.Load())
	}
}

func TestGeneratorSinkFailureIsReturned(t *testing.T) {
	t.Parallel()

	sinkErr := errors.New("disk full")
	out := &recordingSink{err: sinkErr}
	g := newTestGenerator(t, (&sequenceUnit{}).Run, out, &fakeWaiter{}, nil, 5)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 7})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Run error = %v, want sink failure", err)
	}
	if summary.Generated() != 0 || summary.Interrupted {
		t.Fatalf("summary = %+v, want nothing persisted", summary)
	}
}

func TestGeneratorWaiterFailureIsReturned(t *testing.T) {
	t.Parallel()

	waitErr := errors.New("clock broken")
	waiter := &fakeWaiter{
		waitFn: func(context.Context, time.Duration, domain.CooldownReason) error { return waitErr },
	}
	g := newTestGenerator(t, (&sequenceUnit{}).Run, &recordingSink{}, waiter, nil, 5)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 7})
	if !errors.Is(err, waitErr) {
		t.Fatalf("Run error = %v, want waiter failure", err)
	}
	if summary.Generated() != 5 {
		t.Fatalf("generated = %d, want first batch kept", summary.Generated())
	}
}

func TestGeneratorRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t, (&sequenceUnit{}).Run, &recordingSink{}, &fakeWaiter{}, nil, 5)

	for _, count := range []int{0, -3} {
		if _, err := g.Run(context.Background(), domain.GenerationRequest{Count: count}); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Run(count=%d) error = %v, want ErrValidation", count, err)
		}
	}
}

func TestGeneratorAppendsToEmailsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "emails.txt")
	if err := os.WriteFile(path, []byte("existing@icloud.com\n"), 0o644); err != nil {
		t.Fatalf("seed emails file: %v", err)
	}
	fileLog, err := sink.NewFileLog(path)
	if err != nil {
		t.Fatalf("NewFileLog returned error: %v", err)
	}

	unit := &sequenceUnit{fail: func(n int64) bool { return n == 2 }}
	g := newTestGenerator(t, unit.Run, fileLog, &fakeWaiter{}, nil, 5)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 7})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open emails file: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 8 || lines[0] != "existing@icloud.com" {
		t.Fatalf("emails file = %v, want existing line plus 7 new", lines)
	}
	if strings.Join(lines[1:], ",") != strings.Join(summary.Addresses, ",") {
		t.Fatalf("file lines %v do not match summary %v", lines[1:], summary.Addresses)
	}
}

func TestGeneratorLogsAndMetrics(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	metrics := observability.NewMetrics()

	unit := &sequenceUnit{fail: func(n int64) bool { return n <= 2 }}
	g, err := NewGenerator(unit.Run, &recordingSink{}, &fakeWaiter{}, nil, GeneratorConfig{
		BatchSize: 2,
		Cooldown:  time.Second,
	}, zap.New(core))
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	g.SetMetrics(metrics)

	summary, err := g.Run(context.Background(), domain.GenerationRequest{Count: 3})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	classified := logs.FilterMessage("batch classified").All()
	if len(classified) != 3 {
		t.Fatalf("batch classified logs = %d, want 3", len(classified))
	}
	for _, entry := range classified {
		if entry.ContextMap()["runId"] != summary.RunID {
			t.Fatalf("log runId = %v, want %s", entry.ContextMap()["runId"], summary.RunID)
		}
	}
	if got := classified[0].ContextMap()["status"]; got != string(domain.BatchStatusRateLimited) {
		t.Fatalf("first batch status = %v, want RATE_LIMITED", got)
	}

	body := scrapeMetrics(t, metrics)
	for _, want := range []string{
		"hme_generator_addresses_generated_total 3",
		`hme_generator_batches_total{status="rate_limited"} 1`,
		`hme_generator_cooldowns_total{reason="rate_limited"} 1`,
		`hme_generator_cooldowns_total{reason="inter_batch"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Parallel()

	unit := (&sequenceUnit{}).Run
	if _, err := NewGenerator(nil, &recordingSink{}, nil, nil, GeneratorConfig{}, nil); err == nil {
		t.Fatal("expected error for nil unit")
	}
	if _, err := NewGenerator(unit, nil, nil, nil, GeneratorConfig{}, nil); err == nil {
		t.Fatal("expected error for nil sink")
	}

	g, err := NewGenerator(unit, &recordingSink{}, nil, nil, GeneratorConfig{Cooldown: -1}, nil)
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	if g.cfg.BatchSize != DefaultBatchSize || g.cfg.MaxConcurrentTasks != DefaultMaxConcurrentTasks || g.cfg.Cooldown != DefaultCooldown {
		t.Fatalf("defaults = %+v", g.cfg)
	}
}
