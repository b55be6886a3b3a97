package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/data/repos/assets"
	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type ImportService interface {
	// ImportWorkbook ingests the first sheet of an xlsx workbook: one record
	// per row, upserted by canonical key. Bad rows are skipped and recorded
	// on the run; only workbook-level problems fail the import.
	ImportWorkbook(ctx context.Context, filename string, r io.Reader) (*types.ImportRun, error)
	History(ctx context.Context, limit int) ([]*types.ImportRun, error)
}

type importService struct {
	db            *gorm.DB
	log           *logger.Logger
	schema        classify.Schema
	recordRepo    assets.RecordRepo
	importRunRepo assets.ImportRunRepo
	hierarchy     HierarchyService
}

func NewImportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	schema classify.Schema,
	recordRepo assets.RecordRepo,
	importRunRepo assets.ImportRunRepo,
	hierarchy HierarchyService,
) ImportService {
	serviceLog := baseLog.With("service", "ImportService")
	return &importService{
		db:            db,
		log:           serviceLog,
		schema:        schema,
		recordRepo:    recordRepo,
		importRunRepo: importRunRepo,
		hierarchy:     hierarchy,
	}
}

// headerMapping resolves workbook columns to record fields. Columns that
// match no fixed field land in Metadata under their original header.
type headerMapping struct {
	key         int
	displayName int
	category    int
	levels      []int
	metadata    map[string]int
}

func (is *importService) ImportWorkbook(ctx context.Context, filename string, r io.Reader) (*types.ImportRun, error) {
	run := &types.ImportRun{
		Filename: strings.TrimSpace(filename),
		Status:   types.ImportStatusRunning,
		Errors:   types.EncodeImportRowErrors(nil),
	}
	// The audit row is created outside the import transaction so a failed
	// ingestion still shows up in history.
	if err := is.importRunRepo.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
		return nil, fmt.Errorf("create import run: %w", err)
	}

	result, rowErrs, err := is.ingest(ctx, r)
	if err != nil {
		run.Status = types.ImportStatusFailed
		run.Errors = types.EncodeImportRowErrors(append(rowErrs, types.ImportRowError{
			Row:     0,
			Message: err.Error(),
		}))
		if uErr := is.importRunRepo.Update(dbctx.Context{Ctx: ctx}, run); uErr != nil {
			is.log.Error("failed to mark import run as failed", "error", uErr, "run_id", run.ID)
		}
		return run, err
	}

	run.Status = types.ImportStatusSucceeded
	run.RowsTotal = result.total
	run.RowsCreated = result.created
	run.RowsUpdated = result.updated
	run.RowsSkipped = result.skipped
	run.Errors = types.EncodeImportRowErrors(rowErrs)
	if err := is.importRunRepo.Update(dbctx.Context{Ctx: ctx}, run); err != nil {
		is.log.Error("failed to finalize import run", "error", err, "run_id", run.ID)
		return run, fmt.Errorf("finalize import run: %w", err)
	}

	is.log.Info("workbook imported",
		"run_id", run.ID,
		"filename", run.Filename,
		"rows_total", run.RowsTotal,
		"rows_created", run.RowsCreated,
		"rows_updated", run.RowsUpdated,
		"rows_skipped", run.RowsSkipped,
	)

	is.hierarchy.Invalidate(ctx)
	return run, nil
}

type ingestCounters struct {
	total   int
	created int
	updated int
	skipped int
}

func (is *importService) ingest(ctx context.Context, r io.Reader) (ingestCounters, []types.ImportRowError, error) {
	var counters ingestCounters
	var rowErrs []types.ImportRowError

	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return counters, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return counters, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return counters, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return counters, nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	mapping := is.mapHeader(rows[0])
	if mapping.key < 0 {
		return counters, nil, fmt.Errorf("sheet %q has no key column", sheets[0])
	}

	dataRows := rows[1:]
	counters.total = len(dataRows)

	// First pass: canonicalize keys, drop keyless and duplicate rows.
	type parsedRow struct {
		rowNum int
		key    string
		cells  []string
	}
	parsed := make([]parsedRow, 0, len(dataRows))
	keys := make([]string, 0, len(dataRows))
	firstRowForKey := map[string]int{}
	for i, cells := range dataRows {
		rowNum := i + 2 // 1-based, header is row 1
		key := strings.ToLower(cellAt(cells, mapping.key))
		if key == "" {
			counters.skipped++
			rowErrs = append(rowErrs, types.ImportRowError{Row: rowNum, Message: "missing key"})
			continue
		}
		if prev, dup := firstRowForKey[key]; dup {
			counters.skipped++
			rowErrs = append(rowErrs, types.ImportRowError{
				Row:     rowNum,
				Message: fmt.Sprintf("duplicate key %q (first at row %d)", key, prev),
			})
			continue
		}
		firstRowForKey[key] = rowNum
		parsed = append(parsed, parsedRow{rowNum: rowNum, key: key, cells: cells})
		keys = append(keys, key)
	}

	transaction := is.db.Begin()
	if transaction.Error != nil {
		return counters, rowErrs, fmt.Errorf("failed to begin transaction: %w", transaction.Error)
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: transaction}

	existingRows, err := is.recordRepo.GetByKeys(dbc, keys)
	if err != nil {
		transaction.Rollback()
		return counters, rowErrs, fmt.Errorf("load existing records: %w", err)
	}
	existing := make(map[string]*types.AssetRecord, len(existingRows))
	for _, rec := range existingRows {
		existing[rec.Key] = rec
	}

	creates := make([]*types.AssetRecord, 0, len(parsed))
	for _, row := range parsed {
		if rec, ok := existing[row.key]; ok {
			is.applyRow(rec, mapping, row.cells)
			if err := is.recordRepo.Update(dbc, rec); err != nil {
				transaction.Rollback()
				return counters, rowErrs, fmt.Errorf("update record %q: %w", row.key, err)
			}
			counters.updated++
			continue
		}
		rec := &types.AssetRecord{Key: row.key, Metadata: datatypes.JSON([]byte("{}"))}
		is.applyRow(rec, mapping, row.cells)
		creates = append(creates, rec)
		counters.created++
	}

	if _, err := is.recordRepo.Create(dbc, creates); err != nil {
		transaction.Rollback()
		return counters, rowErrs, fmt.Errorf("create records: %w", err)
	}
	if err := transaction.Commit().Error; err != nil {
		return counters, rowErrs, fmt.Errorf("commit import: %w", err)
	}
	return counters, rowErrs, nil
}

// mapHeader matches header cells case-insensitively, ignoring spaces and
// underscores, so "Display Name", "display_name" and "DisplayName" all map
// to the same field.
func (is *importService) mapHeader(header []string) headerMapping {
	mapping := headerMapping{
		key:         -1,
		displayName: -1,
		category:    -1,
		levels:      make([]int, len(is.schema.LevelKeys)),
		metadata:    map[string]int{},
	}
	for i := range mapping.levels {
		mapping.levels[i] = -1
	}

	normalizedLevelKeys := make([]string, len(is.schema.LevelKeys))
	for i, k := range is.schema.LevelKeys {
		normalizedLevelKeys[i] = normalizeHeader(k)
	}

	for idx, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		switch normalized := normalizeHeader(name); {
		case normalized == "key" || normalized == "id" || normalized == "uuid" || normalized == "identifier":
			if mapping.key < 0 {
				mapping.key = idx
			}
		case normalized == "displayname" || normalized == "name" || normalized == "title":
			if mapping.displayName < 0 {
				mapping.displayName = idx
			}
		case normalized == "category" || normalized == "type":
			if mapping.category < 0 {
				mapping.category = idx
			}
		case levelIndex(normalizedLevelKeys, normalized) >= 0:
			li := levelIndex(normalizedLevelKeys, normalized)
			if mapping.levels[li] < 0 {
				mapping.levels[li] = idx
			}
		default:
			if _, ok := mapping.metadata[name]; !ok {
				mapping.metadata[name] = idx
			}
		}
	}
	return mapping
}

// applyRow writes mapped cells onto the record. Only columns present in the
// workbook touch fields, so partial sheets update partially; short rows read
// as empty cells.
func (is *importService) applyRow(rec *types.AssetRecord, mapping headerMapping, cells []string) {
	if mapping.displayName >= 0 {
		rec.DisplayName = cellAt(cells, mapping.displayName)
	}
	if mapping.category >= 0 {
		rec.Category = cellAt(cells, mapping.category)
	}

	levels := rec.LevelValues()
	for i, idx := range mapping.levels {
		if idx >= 0 {
			levels[i] = cellAt(cells, idx)
		}
	}
	rec.SetLevelValues(levels)

	if len(mapping.metadata) > 0 {
		meta := make(map[string]any, len(mapping.metadata))
		for name, idx := range mapping.metadata {
			meta[name] = cellAt(cells, idx)
		}
		if raw, err := json.Marshal(meta); err == nil {
			rec.Metadata = datatypes.JSON(raw)
		}
	}
	if len(rec.Metadata) == 0 {
		rec.Metadata = datatypes.JSON([]byte("{}"))
	}
}

func (is *importService) History(ctx context.Context, limit int) ([]*types.ImportRun, error) {
	return is.importRunRepo.List(dbctx.Context{Ctx: ctx}, limit)
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

func levelIndex(normalizedKeys []string, normalized string) int {
	for i, k := range normalizedKeys {
		if k == normalized {
			return i
		}
	}
	return -1
}
