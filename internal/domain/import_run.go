package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ImportStatusRunning   = "running"
	ImportStatusSucceeded = "succeeded"
	ImportStatusFailed    = "failed"
)

// ImportRun is the audit row for one workbook ingestion.
type ImportRun struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename string    `gorm:"column:filename;not null" json:"filename"`
	Status   string    `gorm:"column:status;not null;default:'running'" json:"status"`

	RowsTotal   int `gorm:"column:rows_total" json:"rows_total"`
	RowsCreated int `gorm:"column:rows_created" json:"rows_created"`
	RowsUpdated int `gorm:"column:rows_updated" json:"rows_updated"`
	RowsSkipped int `gorm:"column:rows_skipped" json:"rows_skipped"`

	Errors datatypes.JSON `gorm:"column:errors;type:jsonb" json:"errors"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ImportRun) TableName() string { return "import_run" }

func (ir *ImportRun) BeforeCreate(*gorm.DB) error {
	if ir.ID == uuid.Nil {
		ir.ID = uuid.New()
	}
	return nil
}

// ImportRowError is one skipped workbook row, kept in the run's Errors
// column for the import history endpoint.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// EncodeImportRowErrors marshals row errors for the jsonb column; an empty
// list encodes as [] so consumers never see null.
func EncodeImportRowErrors(rowErrs []ImportRowError) datatypes.JSON {
	if len(rowErrs) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	raw, err := json.Marshal(rowErrs)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}
