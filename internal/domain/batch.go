package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus classifies the outcome of one dispatch round.
type BatchStatus string

const (
	BatchStatusCompleted      BatchStatus = "COMPLETED"
	BatchStatusPartialFailure BatchStatus = "PARTIAL_FAILURE"
	BatchStatusRateLimited    BatchStatus = "RATE_LIMITED"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusPartialFailure, BatchStatusRateLimited:
		return true
	}
	return false
}

// BatchPlan is recomputed from the remaining count on every iteration.
type BatchPlan struct {
	Index int // zero-based index of the batch being attempted
	Total int // display only, derived from the original request
	Size  int
}

// PlanBatch sizes the next batch. The total is derived from the original
// request and is only used for progress reporting.
func PlanBatch(requested, remaining, batchSize, index int) BatchPlan {
	size := remaining
	if size > batchSize {
		size = batchSize
	}
	return BatchPlan{
		Index: index,
		Total: (requested + batchSize - 1) / batchSize,
		Size:  size,
	}
}

// BatchOutcome holds the successes of one dispatch round in completion order.
type BatchOutcome struct {
	Plan      BatchPlan
	Addresses []string
}

func (o BatchOutcome) SuccessCount() int { return len(o.Addresses) }

func (o BatchOutcome) IsTotalFailure() bool { return o.SuccessCount() == 0 }

func (o BatchOutcome) Status() BatchStatus {
	switch {
	case o.IsTotalFailure():
		return BatchStatusRateLimited
	case o.SuccessCount() < o.Plan.Size:
		return BatchStatusPartialFailure
	default:
		return BatchStatusCompleted
	}
}

// PersistedBatch is what sinks receive after a batch with at least one success.
type PersistedBatch struct {
	RunID     string
	Index     int
	Attempted int
	Addresses []string
	Status    BatchStatus
	CreatedAt time.Time
}

// Validate rejects batches that could not have come out of a generation run.
func (b PersistedBatch) Validate() error {
	if strings.TrimSpace(b.RunID) == "" {
		return fmt.Errorf("%w: run id is required", ErrValidation)
	}
	if len(b.Addresses) == 0 {
		return fmt.Errorf("%w: batch has no addresses", ErrValidation)
	}
	if !b.Status.IsValid() || b.Status == BatchStatusRateLimited {
		return fmt.Errorf("%w: invalid batch status %q", ErrValidation, b.Status)
	}
	if len(b.Addresses) > b.Attempted {
		return fmt.Errorf("%w: %d addresses exceed %d attempted", ErrValidation, len(b.Addresses), b.Attempted)
	}
	return nil
}

// RunSummary is returned when a generation run ends, successfully or not.
type RunSummary struct {
	RunID       string
	Requested   int
	Addresses   []string
	Batches     int // classified batches; a batch discarded on interrupt is not counted
	Cooldowns   int
	Interrupted bool
}

func (s RunSummary) Generated() int { return len(s.Addresses) }
