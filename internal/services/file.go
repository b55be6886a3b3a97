package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/data/repos/assets"
	types "github.com/substationlabs/assetview-backend/internal/domain"
	pkgerrors "github.com/substationlabs/assetview-backend/internal/pkg/errors"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/gcs"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

// ResolveResult is the per-filename outcome of a resolve call. Resolution
// failures are data, not errors: a batch reports every filename's outcome
// and never aborts on one bad name.
type ResolveResult struct {
	Filename string             `json:"filename"`
	Resolved bool               `json:"resolved"`
	Key      string             `json:"key,omitempty"`
	Rule     string             `json:"rule,omitempty"`
	Record   *types.AssetRecord `json:"record,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// FileUpload is one incoming multipart part. Reader opens the part's
// content on demand so concurrent uploads each hold their own handle.
type FileUpload struct {
	OriginalName string
	SizeBytes    int64
	Reader       func() (io.ReadCloser, error)
}

// UploadResult is the per-file outcome of an upload batch.
type UploadResult struct {
	OriginalName string           `json:"original_name"`
	Uploaded     bool             `json:"uploaded"`
	File         *types.AssetFile `json:"file,omitempty"`
	URL          string           `json:"url,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type FileService interface {
	Resolve(ctx context.Context, filename string) *ResolveResult
	ResolveBatch(ctx context.Context, filenames []string) []*ResolveResult
	Upload(ctx context.Context, uploads []FileUpload) ([]*UploadResult, error)
	Rename(ctx context.Context, fileID uuid.UUID, newName string) (*types.AssetFile, error)
	Delete(ctx context.Context, fileID uuid.UUID) error
	ListForRecord(dbc dbctx.Context, record *types.AssetRecord) ([]*types.AssetFile, error)
	// DeleteRowsForRecord soft-deletes a record's file rows inside the
	// caller's transaction; CleanupStorageForRecord sweeps the record's
	// storage prefix afterwards, best-effort.
	DeleteRowsForRecord(dbc dbctx.Context, record *types.AssetRecord) error
	CleanupStorageForRecord(ctx context.Context, record *types.AssetRecord)
}

type fileService struct {
	db            *gorm.DB
	log           *logger.Logger
	normalizer    *classify.Normalizer
	recordRepo    assets.RecordRepo
	fileRepo      assets.FileRepo
	bucketService gcs.BucketService
	hierarchy     HierarchyService
	maxConcurrent int
}

func NewFileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	schema classify.Schema,
	recordRepo assets.RecordRepo,
	fileRepo assets.FileRepo,
	bucketService gcs.BucketService,
	hierarchy HierarchyService,
	maxConcurrentUploads int,
) FileService {
	serviceLog := baseLog.With("service", "FileService")
	if maxConcurrentUploads < 1 {
		maxConcurrentUploads = 1
	}
	return &fileService{
		db:            db,
		log:           serviceLog,
		normalizer:    classify.NewNormalizer(schema),
		recordRepo:    recordRepo,
		fileRepo:      fileRepo,
		bucketService: bucketService,
		hierarchy:     hierarchy,
		maxConcurrent: maxConcurrentUploads,
	}
}

func (fs *fileService) Resolve(ctx context.Context, filename string) *ResolveResult {
	res := &ResolveResult{Filename: filename}

	match, err := fs.normalizer.Normalize(filename)
	if err != nil {
		res.Error = "filename matches no identifier rule"
		return res
	}
	res.Key = match.Key
	res.Rule = match.Rule.String()

	record, err := fs.recordRepo.GetByKey(dbctx.Context{Ctx: ctx}, match.Key)
	if err != nil {
		fs.log.Error("GetByKey failed", "error", err, "key", match.Key)
		res.Error = "record lookup failed"
		return res
	}
	if record == nil {
		res.Error = fmt.Sprintf("no record with key %q", match.Key)
		return res
	}

	res.Resolved = true
	res.Record = record
	return res
}

func (fs *fileService) ResolveBatch(ctx context.Context, filenames []string) []*ResolveResult {
	results := make([]*ResolveResult, len(filenames))
	for i, name := range filenames {
		results[i] = fs.Resolve(ctx, name)
	}
	return results
}

// Upload stores a batch of asset files. Each file resolves independently:
// a filename that matches no rule or no record fails alone, while the rest
// of the batch proceeds. Storage writes run concurrently, bounded.
func (fs *fileService) Upload(ctx context.Context, uploads []FileUpload) ([]*UploadResult, error) {
	results := make([]*UploadResult, len(uploads))

	type pendingUpload struct {
		idx  int
		file *types.AssetFile
	}
	pendings := make([]pendingUpload, 0, len(uploads))

	for i, up := range uploads {
		results[i] = &UploadResult{OriginalName: up.OriginalName}

		match, err := fs.normalizer.Normalize(up.OriginalName)
		if err != nil {
			results[i].Error = "filename matches no identifier rule"
			continue
		}
		record, err := fs.recordRepo.GetByKey(dbctx.Context{Ctx: ctx}, match.Key)
		if err != nil {
			fs.log.Error("GetByKey failed", "error", err, "key", match.Key)
			results[i].Error = "record lookup failed"
			continue
		}
		if record == nil {
			results[i].Error = fmt.Sprintf("no record with key %q", match.Key)
			continue
		}

		f := &types.AssetFile{
			ID:           uuid.New(),
			RecordID:     record.ID,
			RecordKey:    record.Key,
			OriginalName: up.OriginalName,
			Kind:         types.FileKindForRule(match.Rule),
			SizeBytes:    up.SizeBytes,
			Status:       types.FileStatusUploaded,
		}
		f.StorageKey = storageKeyFor(record.ID, f.ID, up.OriginalName)
		pendings = append(pendings, pendingUpload{idx: i, file: f})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fs.maxConcurrent)
	for _, p := range pendings {
		p := p
		up := uploads[p.idx]
		g.Go(func() error {
			reader, err := up.Reader()
			if err != nil {
				results[p.idx].Error = "could not open upload"
				return nil
			}
			defer reader.Close()

			fs.log.Info("Uploading asset file to bucket",
				"file_id", p.file.ID,
				"storage_key", p.file.StorageKey,
			)
			if err := fs.bucketService.UploadFile(dbctx.Context{Ctx: gctx}, p.file.StorageKey, reader); err != nil {
				fs.log.Error("UploadFile failed",
					"error", err,
					"file_id", p.file.ID,
					"storage_key", p.file.StorageKey,
				)
				results[p.idx].Error = "storage upload failed"
				return nil
			}
			if attrs, err := fs.bucketService.GetObjectAttrs(gctx, p.file.StorageKey); err == nil {
				p.file.SizeBytes = attrs.Size
				p.file.ContentType = attrs.ContentType
			}
			return nil
		})
	}
	_ = g.Wait()

	created := make([]*types.AssetFile, 0, len(pendings))
	createdIdx := make([]int, 0, len(pendings))
	for _, p := range pendings {
		if results[p.idx].Error != "" {
			continue
		}
		created = append(created, p.file)
		createdIdx = append(createdIdx, p.idx)
	}

	if len(created) > 0 {
		if _, err := fs.fileRepo.Create(dbctx.Context{Ctx: ctx}, created); err != nil {
			fs.log.Error("Create failed for uploaded files", "error", err)
			for _, idx := range createdIdx {
				results[idx].Error = "file row create failed"
			}
			for _, f := range created {
				_ = fs.bucketService.DeleteFile(dbctx.Context{Ctx: ctx}, f.StorageKey)
			}
			return results, fmt.Errorf("create file rows: %w", err)
		}
		for i, idx := range createdIdx {
			results[idx].Uploaded = true
			results[idx].File = created[i]
			results[idx].URL = fs.bucketService.GetPublicURL(created[i].StorageKey)
		}
	}

	return results, nil
}

// Rename re-resolves the file's record from the new name, moves the stored
// object when its key changes, then updates the row.
func (fs *fileService) Rename(ctx context.Context, fileID uuid.UUID, newName string) (*types.AssetFile, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: empty filename", pkgerrors.ErrInvalidArgument)
	}

	file, err := fs.fileRepo.GetByID(dbctx.Context{Ctx: ctx}, fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if file == nil {
		return nil, pkgerrors.ErrNotFound
	}

	match, err := fs.normalizer.Normalize(newName)
	if err != nil {
		return nil, fmt.Errorf("%w: filename matches no identifier rule", pkgerrors.ErrInvalidArgument)
	}
	record, err := fs.recordRepo.GetByKey(dbctx.Context{Ctx: ctx}, match.Key)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no record with key %q", pkgerrors.ErrNotFound, match.Key)
	}

	oldStorageKey := file.StorageKey
	newStorageKey := storageKeyFor(record.ID, file.ID, newName)

	if newStorageKey != oldStorageKey {
		if err := fs.bucketService.CopyObject(ctx, oldStorageKey, newStorageKey); err != nil {
			return nil, fmt.Errorf("move stored object: %w", err)
		}
	}

	file.RecordID = record.ID
	file.RecordKey = record.Key
	file.OriginalName = newName
	file.Kind = types.FileKindForRule(match.Rule)
	file.StorageKey = newStorageKey
	if ct := gcs.ContentTypeForKey(newStorageKey); ct != "" {
		file.ContentType = ct
	}

	if err := fs.fileRepo.Update(dbctx.Context{Ctx: ctx}, file); err != nil {
		fs.log.Error("Update failed after rename", "error", err, "file_id", file.ID)
		if newStorageKey != oldStorageKey {
			_ = fs.bucketService.DeleteFile(dbctx.Context{Ctx: ctx}, newStorageKey)
		}
		return nil, fmt.Errorf("update file row: %w", err)
	}

	if newStorageKey != oldStorageKey {
		if err := fs.bucketService.DeleteFile(dbctx.Context{Ctx: ctx}, oldStorageKey); err != nil {
			fs.log.Warn("old object delete failed after rename",
				"error", err,
				"storage_key", oldStorageKey,
			)
		}
	}

	return file, nil
}

func (fs *fileService) Delete(ctx context.Context, fileID uuid.UUID) error {
	file, err := fs.fileRepo.GetByID(dbctx.Context{Ctx: ctx}, fileID)
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}
	if file == nil {
		return pkgerrors.ErrNotFound
	}

	if file.StorageKey != "" {
		if err := fs.bucketService.DeleteFile(dbctx.Context{Ctx: ctx}, file.StorageKey); err != nil {
			fs.log.Warn("stored object delete failed",
				"error", err,
				"file_id", file.ID,
				"storage_key", file.StorageKey,
			)
		}
	}

	if err := fs.fileRepo.SoftDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{file.ID}); err != nil {
		fs.log.Error("SoftDeleteByIDs failed", "error", err, "file_id", file.ID)
		return fmt.Errorf("delete file row: %w", err)
	}
	return nil
}

func (fs *fileService) ListForRecord(dbc dbctx.Context, record *types.AssetRecord) ([]*types.AssetFile, error) {
	if record == nil {
		return []*types.AssetFile{}, nil
	}
	return fs.fileRepo.GetByRecordIDs(dbc, []uuid.UUID{record.ID})
}

func (fs *fileService) DeleteRowsForRecord(dbc dbctx.Context, record *types.AssetRecord) error {
	if record == nil {
		return nil
	}
	return fs.fileRepo.SoftDeleteByRecordIDs(dbc, []uuid.UUID{record.ID})
}

func (fs *fileService) CleanupStorageForRecord(ctx context.Context, record *types.AssetRecord) {
	if record == nil {
		return
	}
	prefix := fmt.Sprintf("assets/%s/", record.ID)
	if err := fs.bucketService.DeletePrefix(ctx, prefix); err != nil {
		fs.log.Warn("storage prefix cleanup failed", "error", err, "prefix", prefix)
	}
}

// storageKeyFor lays out stored objects as assets/<record_id>/<file_id><ext>.
// The extension rides along so content types stay derivable from the key.
func storageKeyFor(recordID, fileID uuid.UUID, originalName string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(originalName)))
	return fmt.Sprintf("assets/%s/%s%s", recordID, fileID, ext)
}
