package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/hme-generator/internal/repository"
	"gorm.io/gorm"
)

func createGenerationBatchesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_generation_batches",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.GenerationBatchModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_generation_batches_run ON generation_batches (run_id, batch_index)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.GenerationBatchModel{})
		},
	}
}
