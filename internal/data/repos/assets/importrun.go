package assets

import (
	"gorm.io/gorm"

	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type ImportRunRepo interface {
	Create(dbc dbctx.Context, run *types.ImportRun) error
	Update(dbc dbctx.Context, run *types.ImportRun) error
	List(dbc dbctx.Context, limit int) ([]*types.ImportRun, error)
}

type importRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImportRunRepo(db *gorm.DB, baseLog *logger.Logger) ImportRunRepo {
	repoLog := baseLog.With("repo", "ImportRunRepo")
	return &importRunRepo{db: db, log: repoLog}
}

func (r *importRunRepo) Create(dbc dbctx.Context, run *types.ImportRun) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if run == nil {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).Create(run).Error
}

func (r *importRunRepo) Update(dbc dbctx.Context, run *types.ImportRun) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if run == nil {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).Save(run).Error
}

func (r *importRunRepo) List(dbc dbctx.Context, limit int) ([]*types.ImportRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(dbc.Ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var results []*types.ImportRun
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
