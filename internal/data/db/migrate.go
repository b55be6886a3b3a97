package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/substationlabs/assetview-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.AssetRecord{},
		&types.AssetFile{},
		&types.ImportRun{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureAssetIndexes(db)
}

// EnsureAssetIndexes creates the indexes AutoMigrate cannot express. The
// record key must be unique among live rows only, so re-importing a key
// that was soft-deleted earlier still works.
func EnsureAssetIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_asset_record_key_active
			ON asset_record (key) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_asset_file_record_kind
			ON asset_file (record_id, kind)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure asset indexes: %w", err)
		}
	}
	return nil
}
