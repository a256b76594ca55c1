package repository

import (
	"time"

	"github.com/kursadbilgin/hme-generator/internal/domain"
)

// GenerationBatchModel is the persistence model for generation_batches.
type GenerationBatchModel struct {
	ID         string             `gorm:"type:uuid;primaryKey"`
	RunID      string             `gorm:"type:uuid;not null"`
	BatchIndex int                `gorm:"not null"`
	Attempted  int                `gorm:"not null"`
	Succeeded  int                `gorm:"not null"`
	Status     domain.BatchStatus `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time
}

func (GenerationBatchModel) TableName() string {
	return "generation_batches"
}

// GeneratedAddressModel is the persistence model for generated_addresses.
type GeneratedAddressModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	BatchID   string `gorm:"type:uuid;not null"`
	RunID     string `gorm:"type:uuid;not null"`
	Address   string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
}

func (GeneratedAddressModel) TableName() string {
	return "generated_addresses"
}

func batchModelFromDomain(id string, b *domain.PersistedBatch) *GenerationBatchModel {
	if b == nil {
		return nil
	}

	return &GenerationBatchModel{
		ID:         id,
		RunID:      b.RunID,
		BatchIndex: b.Index,
		Attempted:  b.Attempted,
		Succeeded:  len(b.Addresses),
		Status:     b.Status,
		CreatedAt:  b.CreatedAt,
	}
}

func batchModelToDomain(m *GenerationBatchModel, addresses []string) *domain.PersistedBatch {
	if m == nil {
		return nil
	}

	return &domain.PersistedBatch{
		RunID:     m.RunID,
		Index:     m.BatchIndex,
		Attempted: m.Attempted,
		Addresses: addresses,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}
