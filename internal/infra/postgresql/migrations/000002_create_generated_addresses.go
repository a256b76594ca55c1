package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/hme-generator/internal/repository"
	"gorm.io/gorm"
)

func createGeneratedAddressesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_generated_addresses",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.GeneratedAddressModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_generated_addresses_address ON generated_addresses (address)`,
				`CREATE INDEX IF NOT EXISTS idx_generated_addresses_batch_id ON generated_addresses (batch_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.GeneratedAddressModel{})
		},
	}
}
