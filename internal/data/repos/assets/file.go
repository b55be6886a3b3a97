package assets

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type FileRepo interface {
	Create(dbc dbctx.Context, files []*types.AssetFile) ([]*types.AssetFile, error)
	Update(dbc dbctx.Context, file *types.AssetFile) error
	GetByID(dbc dbctx.Context, fileID uuid.UUID) (*types.AssetFile, error)
	GetByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) ([]*types.AssetFile, error)
	GetByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) ([]*types.AssetFile, error)
	GetByRecordKey(dbc dbctx.Context, recordKey string) ([]*types.AssetFile, error)
	SoftDeleteByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) error
	SoftDeleteByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) error
	FullDeleteByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) error
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	repoLog := baseLog.With("repo", "FileRepo")
	return &fileRepo{db: db, log: repoLog}
}

func (r *fileRepo) Create(dbc dbctx.Context, files []*types.AssetFile) ([]*types.AssetFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(files) == 0 {
		return []*types.AssetFile{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepo) Update(dbc dbctx.Context, file *types.AssetFile) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if file == nil {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).Save(file).Error
}

func (r *fileRepo) GetByID(dbc dbctx.Context, fileID uuid.UUID) (*types.AssetFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.AssetFile
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", fileID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *fileRepo) GetByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) ([]*types.AssetFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AssetFile
	if len(fileIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", fileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) GetByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) ([]*types.AssetFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AssetFile
	if len(recordIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("record_id IN ?", recordIDs).
		Order("original_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) GetByRecordKey(dbc dbctx.Context, recordKey string) ([]*types.AssetFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AssetFile
	if err := transaction.WithContext(dbc.Ctx).
		Where("record_key = ?", recordKey).
		Order("original_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileRepo) SoftDeleteByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fileIDs) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", fileIDs).
		Delete(&types.AssetFile{}).Error
}

func (r *fileRepo) SoftDeleteByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(recordIDs) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Where("record_id IN ?", recordIDs).
		Delete(&types.AssetFile{}).Error
}

func (r *fileRepo) FullDeleteByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fileIDs) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", fileIDs).
		Delete(&types.AssetFile{}).Error
}
