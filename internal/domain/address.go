package domain

import (
	"fmt"
	"strings"
	"time"
)

// Address is a masked relay address as reported by the account service.
type Address struct {
	Label     string
	Hme       string
	Note      string
	CreatedAt time.Time
	IsActive  bool
}

// GenerationRequest is the immutable input of a generation run.
type GenerationRequest struct {
	Count int
}

func (r GenerationRequest) Validate() error {
	if r.Count <= 0 {
		return fmt.Errorf("%w: count must be positive (got %d)", ErrValidation, r.Count)
	}
	return nil
}

// AddressFilter selects addresses for the list command.
type AddressFilter struct {
	Active bool
	Search string
}

func NormalizeAddress(hme string) string {
	return strings.ToLower(strings.TrimSpace(hme))
}
