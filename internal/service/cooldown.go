package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/report"
)

const defaultCooldownTick = time.Second

// Waiter blocks between batches.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration, reason domain.CooldownReason) error
}

// Cooldown waits a fixed duration and reports the remaining time on every tick.
type Cooldown struct {
	tick     time.Duration
	reporter report.Reporter
	now      func() time.Time
}

func NewCooldown(tick time.Duration, reporter report.Reporter) *Cooldown {
	if tick <= 0 {
		tick = defaultCooldownTick
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Cooldown{
		tick:     tick,
		reporter: reporter,
		now:      time.Now,
	}
}

// Wait returns nil once d has elapsed or ctx.Err() if ctx is cancelled first.
func (c *Cooldown) Wait(ctx context.Context, d time.Duration, reason domain.CooldownReason) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	deadline := c.now().Add(d)
	c.reporter.CooldownStarted(reason, d)

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			c.reporter.CooldownFinished(reason)
			return nil
		case <-ticker.C:
			remaining := deadline.Sub(c.now())
			if remaining < 0 {
				remaining = 0
			}
			c.reporter.CooldownTick(reason, remaining)
		}
	}
}
