package ratelimit

import "context"

// WindowLimiter guards address creations against a shared per-account budget.
type WindowLimiter interface {
	Allow(ctx context.Context, account string) (bool, error)
}
