package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/substationlabs/assetview-backend/internal/domain"
)

func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, key string, levels ...string) *types.AssetRecord {
	tb.Helper()
	rec := &types.AssetRecord{
		ID:          uuid.New(),
		Key:         key,
		DisplayName: "Asset " + key,
		Category:    "equipment",
		Metadata:    datatypes.JSON([]byte("{}")),
	}
	rec.SetLevelValues(levels)
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed asset record: %v", err)
	}
	return rec
}

func SeedFile(tb testing.TB, ctx context.Context, tx *gorm.DB, rec *types.AssetRecord, originalName, kind string) *types.AssetFile {
	tb.Helper()
	f := &types.AssetFile{
		ID:           uuid.New(),
		RecordID:     rec.ID,
		RecordKey:    rec.Key,
		OriginalName: originalName,
		Kind:         kind,
		StorageKey:   "assets/" + rec.ID.String() + "/" + originalName,
		Status:       types.FileStatusUploaded,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed asset file: %v", err)
	}
	return f
}

func SeedImportRun(tb testing.TB, ctx context.Context, tx *gorm.DB, filename string) *types.ImportRun {
	tb.Helper()
	run := &types.ImportRun{
		ID:       uuid.New(),
		Filename: filename,
		Status:   types.ImportStatusRunning,
		Errors:   datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(run).Error; err != nil {
		tb.Fatalf("seed import run: %v", err)
	}
	return run
}
