package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/data/repos/assets"
	types "github.com/substationlabs/assetview-backend/internal/domain"
	pkgerrors "github.com/substationlabs/assetview-backend/internal/pkg/errors"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

// ClassificationUpdate is the mutable classification surface of a record.
// Levels always replaces all level columns; nil pointers leave the other
// fields untouched.
type ClassificationUpdate struct {
	Levels      []string `json:"levels"`
	Category    *string  `json:"category,omitempty"`
	DisplayName *string  `json:"display_name,omitempty"`
}

type AssetService interface {
	List(ctx context.Context, category string) ([]*types.AssetRecord, error)
	Get(ctx context.Context, key string) (*types.AssetRecord, error)
	UpdateClassification(ctx context.Context, key string, update ClassificationUpdate) (*types.AssetRecord, error)
	Delete(ctx context.Context, key string) error
	ListFiles(ctx context.Context, key string) ([]*types.AssetFile, error)
}

type assetService struct {
	db          *gorm.DB
	log         *logger.Logger
	schema      classify.Schema
	recordRepo  assets.RecordRepo
	fileService FileService
	hierarchy   HierarchyService
}

func NewAssetService(
	db *gorm.DB,
	baseLog *logger.Logger,
	schema classify.Schema,
	recordRepo assets.RecordRepo,
	fileService FileService,
	hierarchy HierarchyService,
) AssetService {
	serviceLog := baseLog.With("service", "AssetService")
	return &assetService{
		db:          db,
		log:         serviceLog,
		schema:      schema,
		recordRepo:  recordRepo,
		fileService: fileService,
		hierarchy:   hierarchy,
	}
}

func (as *assetService) List(ctx context.Context, category string) ([]*types.AssetRecord, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if strings.TrimSpace(category) != "" {
		return as.recordRepo.GetByCategory(dbc, strings.TrimSpace(category))
	}
	return as.recordRepo.GetAll(dbc)
}

func (as *assetService) Get(ctx context.Context, key string) (*types.AssetRecord, error) {
	record, err := as.recordRepo.GetByKey(dbctx.Context{Ctx: ctx}, canonicalKey(key))
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, pkgerrors.ErrNotFound
	}
	return record, nil
}

// UpdateClassification replaces a record's level columns (trimmed, same
// treatment the extractor applies) and optionally its category and display
// name, then drops the hierarchy snapshot.
func (as *assetService) UpdateClassification(ctx context.Context, key string, update ClassificationUpdate) (*types.AssetRecord, error) {
	if len(update.Levels) > len(as.schema.LevelKeys) {
		return nil, fmt.Errorf("%w: at most %d levels", pkgerrors.ErrInvalidArgument, len(as.schema.LevelKeys))
	}

	record, err := as.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	record.SetLevelValues(update.Levels)
	if update.Category != nil {
		record.Category = strings.TrimSpace(*update.Category)
	}
	if update.DisplayName != nil {
		record.DisplayName = strings.TrimSpace(*update.DisplayName)
	}

	if err := as.recordRepo.Update(dbctx.Context{Ctx: ctx}, record); err != nil {
		as.log.Error("Update failed", "error", err, "key", record.Key)
		return nil, fmt.Errorf("update record: %w", err)
	}

	as.hierarchy.Invalidate(ctx)
	return record, nil
}

// Delete soft-deletes a record and its files in one transaction; object
// storage cleanup runs after commit and is best-effort.
func (as *assetService) Delete(ctx context.Context, key string) error {
	record, err := as.Get(ctx, key)
	if err != nil {
		return err
	}

	transaction := as.db.Begin()
	if transaction.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", transaction.Error)
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: transaction}

	if err := as.fileService.DeleteRowsForRecord(dbc, record); err != nil {
		transaction.Rollback()
		return fmt.Errorf("delete record files: %w", err)
	}
	if err := as.recordRepo.SoftDeleteByKeys(dbc, []string{record.Key}); err != nil {
		transaction.Rollback()
		as.log.Error("SoftDeleteByKeys failed", "error", err, "key", record.Key)
		return fmt.Errorf("delete record: %w", err)
	}
	if err := transaction.Commit().Error; err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	as.fileService.CleanupStorageForRecord(ctx, record)
	as.hierarchy.Invalidate(ctx)
	return nil
}

func (as *assetService) ListFiles(ctx context.Context, key string) ([]*types.AssetFile, error) {
	record, err := as.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return as.fileService.ListForRecord(dbctx.Context{Ctx: ctx}, record)
}

// canonicalKey mirrors the normalizer's output form: record keys are stored
// and looked up lowercase.
func canonicalKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
