package sink

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/repository"
)

// History records every persisted batch in the generation history database.
type History struct {
	repo repository.HistoryRepository
}

func NewHistory(repo repository.HistoryRepository) (*History, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	return &History{repo: repo}, nil
}

func (h *History) Append(ctx context.Context, batch domain.PersistedBatch) error {
	if err := h.repo.SaveBatch(ctx, &batch); err != nil {
		return fmt.Errorf("failed to record batch %d: %w", batch.Index+1, err)
	}
	return nil
}
