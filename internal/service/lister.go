package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/provider"
	"go.uber.org/zap"
)

// Lister fetches existing addresses and filters them by state and label.
type Lister struct {
	service provider.AddressService
	logger  *zap.Logger
}

func NewLister(service provider.AddressService, logger *zap.Logger) (*Lister, error) {
	if service == nil {
		return nil, errors.New("address service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{service: service, logger: logger}, nil
}

// List returns the addresses whose active state matches filter.Active and,
// when filter.Search is set, whose label matches it as a regular expression.
func (l *Lister) List(ctx context.Context, filter domain.AddressFilter) ([]domain.Address, error) {
	var search *regexp.Regexp
	if pattern := strings.TrimSpace(filter.Search); pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid search pattern %q: %v", domain.ErrValidation, pattern, err)
		}
		search = re
	}

	res, err := l.service.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	if !res.OK() {
		l.logger.Error("failed to list emails",
			zap.Int("code", res.Code()),
			zap.String("reason", res.Reason()),
		)
		return nil, fmt.Errorf("%w: failed to list emails: %s", domain.ErrRejected, res.Reason())
	}

	matched := make([]domain.Address, 0, len(*res.Value))
	for _, addr := range *res.Value {
		if addr.IsActive != filter.Active {
			continue
		}
		if search != nil && !search.MatchString(addr.Label) {
			continue
		}
		matched = append(matched, addr)
	}

	l.logger.Debug("listed addresses",
		zap.Int("total", len(*res.Value)),
		zap.Int("matched", len(matched)),
		zap.Bool("active", filter.Active),
	)
	return matched, nil
}
