package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/sqlstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Early records kept their body under the document id itself.
const migrationBackfillContentIDs = "2026-10-01_backfill_document_content_ids"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillContentIDs, apply: backfillContentIDs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func backfillContentIDs(db *gorm.DB) error {
	return db.Model(&sqlstore.DocumentRow{}).
		Where("content_id = ''").
		Update("content_id", gorm.Expr("document_id")).Error
}
