package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
)

const (
	FileKindModel    = "model"
	FileKindPanorama = "panorama"
	FileKindFile     = "file"

	FileStatusUploaded = "uploaded"
)

// AssetFile is one stored scan artifact (3-D model, 360° panorama, or other
// identifier-named file) linked to the record its filename resolved to.
// RecordKey is denormalized so file listings survive record re-imports.
type AssetFile struct {
	ID       uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID uuid.UUID    `gorm:"type:uuid;not null;index" json:"record_id"`
	Record   *AssetRecord `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecordID;references:ID" json:"record,omitempty"`

	RecordKey    string `gorm:"column:record_key;not null;index" json:"record_key"`
	OriginalName string `gorm:"column:original_name;not null" json:"original_name"`
	Kind         string `gorm:"column:kind;not null;index" json:"kind"`
	StorageKey   string `gorm:"column:storage_key;not null" json:"storage_key"`
	ContentType  string `gorm:"column:content_type" json:"content_type"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`
	Status       string `gorm:"column:status;not null;default:'uploaded'" json:"status"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AssetFile) TableName() string { return "asset_file" }

func (f *AssetFile) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FileKindForRule derives the stored kind from the normalizer rule that
// resolved the filename.
func FileKindForRule(rule classify.Rule) string {
	switch rule {
	case classify.RuleModelSuffix:
		return FileKindModel
	case classify.RulePanoramaSuffix:
		return FileKindPanorama
	default:
		return FileKindFile
	}
}
