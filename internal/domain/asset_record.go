package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
)

// AssetRecord is one piece of plant equipment as imported from a workbook.
// Key is the canonical lowercase identifier scan files are named after.
// Level1..Level4 are the ordered classification attributes; Metadata keeps
// every workbook column that maps to no fixed field.
type AssetRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key         string    `gorm:"column:key;not null;index" json:"key"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	Category    string    `gorm:"column:category;index" json:"category"`

	Level1 string `gorm:"column:level1" json:"level1"`
	Level2 string `gorm:"column:level2" json:"level2"`
	Level3 string `gorm:"column:level3" json:"level3"`
	Level4 string `gorm:"column:level4" json:"level4"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AssetRecord) TableName() string { return "asset_record" }

// BeforeCreate assigns the primary key app-side so the schema works on both
// supported gorm drivers; sqlite cannot evaluate uuid defaults in DDL.
func (r *AssetRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// LevelValues returns the classification columns in level order.
func (r *AssetRecord) LevelValues() []string {
	return []string{r.Level1, r.Level2, r.Level3, r.Level4}
}

// SetLevelValues writes values back onto the fixed level columns in order;
// missing positions blank the column.
func (r *AssetRecord) SetLevelValues(values []string) {
	cols := []*string{&r.Level1, &r.Level2, &r.Level3, &r.Level4}
	for i, col := range cols {
		if i < len(values) {
			*col = strings.TrimSpace(values[i])
		} else {
			*col = ""
		}
	}
}

// ClassificationAttributes maps the level columns onto the schema's level
// keys positionally, producing the attribute view the classification core
// consumes. Keys beyond the stored arity read as empty.
func (r *AssetRecord) ClassificationAttributes(levelKeys []string) map[string]any {
	values := r.LevelValues()
	attrs := make(map[string]any, len(levelKeys))
	for i, key := range levelKeys {
		if i < len(values) {
			attrs[key] = values[i]
		} else {
			attrs[key] = ""
		}
	}
	return attrs
}

// ToClassifyRecord narrows the row to the classification core's input type.
func (r *AssetRecord) ToClassifyRecord(levelKeys []string) classify.Record {
	return classify.Record{
		Key:         r.Key,
		DisplayName: r.DisplayName,
		Category:    r.Category,
		Attributes:  r.ClassificationAttributes(levelKeys),
	}
}
