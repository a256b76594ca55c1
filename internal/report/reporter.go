// Package report renders generation progress. Reporters are passed to the
// generator explicitly; unit callbacks arrive from concurrent goroutines.
package report

import (
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
)

type Reporter interface {
	RunStarted(runID string, requested, totalBatches int)
	BatchStarted(plan domain.BatchPlan)
	UnitProgress(stage domain.UnitStage, address string)
	UnitFailed(stage domain.UnitStage, address string, reason string)
	BatchRateLimited(plan domain.BatchPlan)
	BatchCompleted(plan domain.BatchPlan, succeeded, collected, requested int)
	CooldownStarted(reason domain.CooldownReason, d time.Duration)
	CooldownTick(reason domain.CooldownReason, remaining time.Duration)
	CooldownFinished(reason domain.CooldownReason)
	RunFinished(summary domain.RunSummary, savedTo string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RunStarted(string, int, int)                          {}
func (Nop) BatchStarted(domain.BatchPlan)                        {}
func (Nop) UnitProgress(domain.UnitStage, string)                {}
func (Nop) UnitFailed(domain.UnitStage, string, string)          {}
func (Nop) BatchRateLimited(domain.BatchPlan)                    {}
func (Nop) BatchCompleted(domain.BatchPlan, int, int, int)       {}
func (Nop) CooldownStarted(domain.CooldownReason, time.Duration) {}
func (Nop) CooldownTick(domain.CooldownReason, time.Duration)    {}
func (Nop) CooldownFinished(domain.CooldownReason)               {}
func (Nop) RunFinished(domain.RunSummary, string)                {}

// Multi forwards every event to each reporter in order.
type Multi []Reporter

func (m Multi) RunStarted(runID string, requested, totalBatches int) {
	for _, r := range m {
		r.RunStarted(runID, requested, totalBatches)
	}
}

func (m Multi) BatchStarted(plan domain.BatchPlan) {
	for _, r := range m {
		r.BatchStarted(plan)
	}
}

func (m Multi) UnitProgress(stage domain.UnitStage, address string) {
	for _, r := range m {
		r.UnitProgress(stage, address)
	}
}

func (m Multi) UnitFailed(stage domain.UnitStage, address string, reason string) {
	for _, r := range m {
		r.UnitFailed(stage, address, reason)
	}
}

func (m Multi) BatchRateLimited(plan domain.BatchPlan) {
	for _, r := range m {
		r.BatchRateLimited(plan)
	}
}

func (m Multi) BatchCompleted(plan domain.BatchPlan, succeeded, collected, requested int) {
	for _, r := range m {
		r.BatchCompleted(plan, succeeded, collected, requested)
	}
}

func (m Multi) CooldownStarted(reason domain.CooldownReason, d time.Duration) {
	for _, r := range m {
		r.CooldownStarted(reason, d)
	}
}

func (m Multi) CooldownTick(reason domain.CooldownReason, remaining time.Duration) {
	for _, r := range m {
		r.CooldownTick(reason, remaining)
	}
}

func (m Multi) CooldownFinished(reason domain.CooldownReason) {
	for _, r := range m {
		r.CooldownFinished(reason)
	}
}

func (m Multi) RunFinished(summary domain.RunSummary, savedTo string) {
	for _, r := range m {
		r.RunFinished(summary, savedTo)
	}
}
