package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hme-generator/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HistoryRepository interface {
	SaveBatch(ctx context.Context, b *domain.PersistedBatch) error
	ListBatches(ctx context.Context, runID string) ([]domain.PersistedBatch, error)
}

type GormHistoryRepo struct {
	db *gorm.DB
}

func NewGormHistoryRepo(db *gorm.DB) *GormHistoryRepo {
	return &GormHistoryRepo{db: db}
}

// SaveBatch stores the batch row and its addresses in one transaction.
// Addresses already recorded by an earlier run are skipped.
func (r *GormHistoryRepo) SaveBatch(ctx context.Context, b *domain.PersistedBatch) error {
	if b == nil {
		return fmt.Errorf("%w: batch is required", domain.ErrValidation)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	batchID := uuid.NewString()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batchModelFromDomain(batchID, b)).Error; err != nil {
			return err
		}
		if len(b.Addresses) == 0 {
			return nil
		}

		rows := make([]GeneratedAddressModel, 0, len(b.Addresses))
		for _, address := range b.Addresses {
			rows = append(rows, GeneratedAddressModel{
				ID:        uuid.NewString(),
				BatchID:   batchID,
				RunID:     b.RunID,
				Address:   domain.NormalizeAddress(address),
				CreatedAt: b.CreatedAt,
			})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoNothing: true,
		}).Create(&rows).Error
	})
}

func (r *GormHistoryRepo) ListBatches(ctx context.Context, runID string) ([]domain.PersistedBatch, error) {
	var models []GenerationBatchModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("batch_index ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	batches := make([]domain.PersistedBatch, 0, len(models))
	for i := range models {
		var addresses []string
		err := r.db.WithContext(ctx).
			Model(&GeneratedAddressModel{}).
			Where("batch_id = ?", models[i].ID).
			Order("created_at ASC").
			Pluck("address", &addresses).Error
		if err != nil {
			return nil, err
		}
		batches = append(batches, *batchModelToDomain(&models[i], addresses))
	}

	return batches, nil
}
