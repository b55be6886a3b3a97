package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/data/repos/assets"
	"github.com/substationlabs/assetview-backend/internal/data/repos/testutil"
	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
)

type fakeImportRunRepo struct {
	runs    []*types.ImportRun
	updates int
}

var _ assets.ImportRunRepo = (*fakeImportRunRepo)(nil)

func (f *fakeImportRunRepo) Create(dbc dbctx.Context, run *types.ImportRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeImportRunRepo) Update(dbc dbctx.Context, run *types.ImportRun) error {
	f.updates++
	return nil
}

func (f *fakeImportRunRepo) List(dbc dbctx.Context, limit int) ([]*types.ImportRun, error) {
	out := make([]*types.ImportRun, 0, len(f.runs))
	for i := len(f.runs) - 1; i >= 0; i-- {
		out = append(out, f.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestImportServiceMapHeader(t *testing.T) {
	is := &importService{schema: classify.DefaultSchema()}

	mapping := is.mapHeader([]string{
		"Key", "Display Name", "Category", "Level1", "level 2", "LEVEL_3", "Level4", "Serial Number",
	})
	if mapping.key != 0 || mapping.displayName != 1 || mapping.category != 2 {
		t.Fatalf("fixed columns: key=%d display=%d category=%d",
			mapping.key, mapping.displayName, mapping.category)
	}
	for i, want := range []int{3, 4, 5, 6} {
		if mapping.levels[i] != want {
			t.Fatalf("levels[%d]: want=%d got=%d", i, want, mapping.levels[i])
		}
	}
	if idx, ok := mapping.metadata["Serial Number"]; !ok || idx != 7 {
		t.Fatalf("metadata: %v", mapping.metadata)
	}

	// Aliases resolve to the same fields.
	mapping = is.mapHeader([]string{"UUID", "Name", "Type"})
	if mapping.key != 0 || mapping.displayName != 1 || mapping.category != 2 {
		t.Fatalf("aliases: key=%d display=%d category=%d",
			mapping.key, mapping.displayName, mapping.category)
	}

	mapping = is.mapHeader([]string{"Display Name", "Level1"})
	if mapping.key != -1 {
		t.Fatalf("missing key column: got %d", mapping.key)
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"  Display Name ": "displayname",
		"display_name":    "displayname",
		"LEVEL_2":         "level2",
		"level 2":         "level2",
		"Key":             "key",
	}
	for in, want := range cases {
		if got := normalizeHeader(in); got != want {
			t.Fatalf("normalizeHeader(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestCellAt(t *testing.T) {
	cells := []string{" a ", "b"}
	if got := cellAt(cells, 0); got != "a" {
		t.Fatalf("cellAt trim: %q", got)
	}
	if got := cellAt(cells, 5); got != "" {
		t.Fatalf("cellAt out of range: %q", got)
	}
	if got := cellAt(cells, -1); got != "" {
		t.Fatalf("cellAt negative: %q", got)
	}
}

func TestImportServiceHistory(t *testing.T) {
	runRepo := &fakeImportRunRepo{}
	for i := 0; i < 3; i++ {
		_ = runRepo.Create(dbctx.Context{}, &types.ImportRun{Filename: fmt.Sprintf("wb-%d.xlsx", i)})
	}
	svc := NewImportService(nil, testLogger(t), classify.DefaultSchema(), nil, runRepo, &fakeHierarchy{})

	runs, err := svc.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(runs) != 2 || runs[0].Filename != "wb-2.xlsx" {
		t.Fatalf("History: %+v", runs)
	}
}

// Workbook-level failures happen before any database work, so these run on
// fakes alone.
func TestImportServiceImportWorkbookRejectsGarbage(t *testing.T) {
	runRepo := &fakeImportRunRepo{}
	svc := NewImportService(nil, testLogger(t), classify.DefaultSchema(), nil, runRepo, &fakeHierarchy{})

	run, err := svc.ImportWorkbook(context.Background(), "bad.xlsx", strings.NewReader("not a workbook"))
	if err == nil {
		t.Fatalf("ImportWorkbook: want error")
	}
	if run == nil || run.Status != types.ImportStatusFailed {
		t.Fatalf("run: %+v", run)
	}
	if len(runRepo.runs) != 1 || runRepo.updates != 1 {
		t.Fatalf("audit trail: runs=%d updates=%d", len(runRepo.runs), runRepo.updates)
	}

	var rowErrs []types.ImportRowError
	if err := json.Unmarshal(run.Errors, &rowErrs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 0 {
		t.Fatalf("row errors: %+v", rowErrs)
	}
}

func TestImportServiceImportWorkbookRequiresKeyColumn(t *testing.T) {
	runRepo := &fakeImportRunRepo{}
	svc := NewImportService(nil, testLogger(t), classify.DefaultSchema(), nil, runRepo, &fakeHierarchy{})

	buf := buildWorkbook(t, [][]interface{}{
		{"Display Name", "Level1"},
		{"Breaker", "Circuit Breakers"},
	})
	run, err := svc.ImportWorkbook(context.Background(), "nokey.xlsx", buf)
	if err == nil || !strings.Contains(err.Error(), "no key column") {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if run.Status != types.ImportStatusFailed {
		t.Fatalf("run status: %q", run.Status)
	}
}

func buildWorkbook(t *testing.T, rows [][]interface{}) *strings.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow("Sheet1", cell, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow %s: %v", cell, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return strings.NewReader(buf.String())
}

// The row upsert runs in its own transaction, so the full path needs a real
// database.
func TestImportServiceImportWorkbook(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	recordRepo := assets.NewRecordRepo(db, log)
	runRepo := &fakeImportRunRepo{}
	hier := &fakeHierarchy{}
	svc := NewImportService(db, log, classify.DefaultSchema(), recordRepo, runRepo, hier)

	keyA := "import-a-" + uuid.New().String()
	keyB := "import-b-" + uuid.New().String()
	t.Cleanup(func() {
		_ = recordRepo.FullDeleteByKeys(dbctx.Context{Ctx: context.Background()}, []string{keyA, keyB})
	})

	header := []interface{}{"Key", "Display Name", "Category", "Level1", "Level2", "Serial Number"}
	sheet := [][]interface{}{
		header,
		{strings.ToUpper(keyA), "Breaker A", "equipment", "Circuit Breakers", "Horizontal", "SN-1"},
		{"", "Keyless", "equipment", "", "", ""},
		{keyA, "Duplicate", "equipment", "", "", ""},
		{keyB, "Breaker B", "equipment", "Circuit Breakers", "Vertical", "SN-2"},
	}

	run, err := svc.ImportWorkbook(ctx, "assets.xlsx", buildWorkbook(t, sheet))
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if run.Status != types.ImportStatusSucceeded {
		t.Fatalf("status: %q", run.Status)
	}
	if run.RowsTotal != 4 || run.RowsCreated != 2 || run.RowsUpdated != 0 || run.RowsSkipped != 2 {
		t.Fatalf("counters: total=%d created=%d updated=%d skipped=%d",
			run.RowsTotal, run.RowsCreated, run.RowsUpdated, run.RowsSkipped)
	}

	var rowErrs []types.ImportRowError
	if err := json.Unmarshal(run.Errors, &rowErrs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(rowErrs) != 2 || rowErrs[0].Row != 3 || rowErrs[1].Row != 4 {
		t.Fatalf("row errors: %+v", rowErrs)
	}
	if !strings.Contains(rowErrs[1].Message, "duplicate key") {
		t.Fatalf("duplicate message: %q", rowErrs[1].Message)
	}

	rec, err := recordRepo.GetByKey(dbctx.Context{Ctx: ctx}, keyA)
	if err != nil || rec == nil {
		t.Fatalf("GetByKey %q: rec=%v err=%v", keyA, rec, err)
	}
	if rec.DisplayName != "Breaker A" || rec.Level1 != "Circuit Breakers" || rec.Level2 != "Horizontal" {
		t.Fatalf("record fields: %+v", rec)
	}
	var meta map[string]any
	if err := json.Unmarshal(rec.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta["Serial Number"] != "SN-1" {
		t.Fatalf("metadata: %v", meta)
	}
	if hier.invalidations != 1 {
		t.Fatalf("invalidations: %d", hier.invalidations)
	}

	// Same workbook again: keyed rows now update in place.
	sheet[1][1] = "Breaker A2"
	run, err = svc.ImportWorkbook(ctx, "assets.xlsx", buildWorkbook(t, sheet))
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if run.RowsCreated != 0 || run.RowsUpdated != 2 || run.RowsSkipped != 2 {
		t.Fatalf("re-import counters: created=%d updated=%d skipped=%d",
			run.RowsCreated, run.RowsUpdated, run.RowsSkipped)
	}
	rec, err = recordRepo.GetByKey(dbctx.Context{Ctx: ctx}, keyA)
	if err != nil || rec == nil {
		t.Fatalf("GetByKey after re-import: rec=%v err=%v", rec, err)
	}
	if rec.DisplayName != "Breaker A2" {
		t.Fatalf("update not applied: %q", rec.DisplayName)
	}
}
