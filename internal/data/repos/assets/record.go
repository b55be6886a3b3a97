package assets

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type RecordRepo interface {
	Create(dbc dbctx.Context, records []*types.AssetRecord) ([]*types.AssetRecord, error)
	Update(dbc dbctx.Context, record *types.AssetRecord) error
	GetAll(dbc dbctx.Context) ([]*types.AssetRecord, error)
	GetByKey(dbc dbctx.Context, key string) (*types.AssetRecord, error)
	GetByKeys(dbc dbctx.Context, keys []string) ([]*types.AssetRecord, error)
	GetByCategory(dbc dbctx.Context, category string) ([]*types.AssetRecord, error)
	SoftDeleteByKeys(dbc dbctx.Context, keys []string) error
	FullDeleteByKeys(dbc dbctx.Context, keys []string) error
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	repoLog := baseLog.With("repo", "RecordRepo")
	return &recordRepo{db: db, log: repoLog}
}

func (r *recordRepo) Create(dbc dbctx.Context, records []*types.AssetRecord) ([]*types.AssetRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*types.AssetRecord{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *recordRepo) Update(dbc dbctx.Context, record *types.AssetRecord) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if record == nil {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).Save(record).Error
}

// GetAll materializes the full live record set. The hierarchy build requires
// every record up front, so there is deliberately no pagination here.
func (r *recordRepo) GetAll(dbc dbctx.Context) ([]*types.AssetRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AssetRecord
	if err := transaction.WithContext(dbc.Ctx).
		Order("key ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) GetByKey(dbc dbctx.Context, key string) (*types.AssetRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.AssetRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("key = ?", key).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *recordRepo) GetByKeys(dbc dbctx.Context, keys []string) ([]*types.AssetRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AssetRecord
	if len(keys) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("key IN ?", keys).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) GetByCategory(dbc dbctx.Context, category string) ([]*types.AssetRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AssetRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("category = ?", category).
		Order("key ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) SoftDeleteByKeys(dbc dbctx.Context, keys []string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(keys) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Where("key IN ?", keys).
		Delete(&types.AssetRecord{}).Error
}

func (r *recordRepo) FullDeleteByKeys(dbc dbctx.Context, keys []string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(keys) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("key IN ?", keys).
		Delete(&types.AssetRecord{}).Error
}
