package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/services"
)

type fakeImportService struct {
	runs      []*types.ImportRun
	imported  []string
	lastLimit int
	fail      bool
}

var _ services.ImportService = (*fakeImportService)(nil)

func (f *fakeImportService) ImportWorkbook(ctx context.Context, filename string, r io.Reader) (*types.ImportRun, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.imported = append(f.imported, filename+":"+string(content))
	if f.fail {
		return nil, errors.New("workbook is not valid xlsx")
	}
	return &types.ImportRun{Filename: filename, Status: types.ImportStatusSucceeded, RowsTotal: 2}, nil
}

func (f *fakeImportService) History(ctx context.Context, limit int) ([]*types.ImportRun, error) {
	f.lastLimit = limit
	return f.runs, nil
}

func importRouter(t *testing.T, svc services.ImportService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewImportHandler(newTestLogger(t), svc, 0)
	r := gin.New()
	r.POST("/api/imports", h.ImportWorkbook)
	r.GET("/api/imports", h.ListImportRuns)
	return r
}

func TestImportWorkbook(t *testing.T) {
	svc := &fakeImportService{}
	r := importRouter(t, svc)

	body, contentType := multipartBody(t, "workbook", map[string]string{
		"assets.xlsx": "sheet-bytes",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Run types.ImportRun `json:"run"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Run.Status != types.ImportStatusSucceeded || resp.Run.RowsTotal != 2 {
		t.Fatalf("run: %+v", resp.Run)
	}
	if len(svc.imported) != 1 || svc.imported[0] != "assets.xlsx:sheet-bytes" {
		t.Fatalf("imported: %v", svc.imported)
	}
}

func TestImportWorkbookAcceptsFileField(t *testing.T) {
	svc := &fakeImportService{}
	r := importRouter(t, svc)

	body, contentType := multipartBody(t, "file", map[string]string{
		"assets.xlsx": "sheet-bytes",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	if len(svc.imported) != 1 {
		t.Fatalf("imported: %v", svc.imported)
	}
}

func TestImportWorkbookRequiresFile(t *testing.T) {
	r := importRouter(t, &fakeImportService{})

	body, contentType := multipartBody(t, "unrelated", map[string]string{"x.xlsx": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestImportWorkbookFailureIsUnprocessable(t *testing.T) {
	r := importRouter(t, &fakeImportService{fail: true})

	body, contentType := multipartBody(t, "workbook", map[string]string{"bad.xlsx": "garbage"})
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "import_failed" {
		t.Fatalf("code: %q", resp.Error.Code)
	}
}

func TestListImportRuns(t *testing.T) {
	svc := &fakeImportService{runs: []*types.ImportRun{
		{Filename: "latest.xlsx"},
	}}
	r := importRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if svc.lastLimit != 5 {
		t.Fatalf("limit: %d", svc.lastLimit)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if svc.lastLimit != 20 {
		t.Fatalf("default limit: %d", svc.lastLimit)
	}

	var resp struct {
		Runs []*types.ImportRun `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].Filename != "latest.xlsx" {
		t.Fatalf("runs: %+v", resp.Runs)
	}
}

func TestListImportRunsConfiguredDefault(t *testing.T) {
	svc := &fakeImportService{}
	gin.SetMode(gin.TestMode)
	h := NewImportHandler(newTestLogger(t), svc, 7)
	r := gin.New()
	r.GET("/api/imports", h.ListImportRuns)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if svc.lastLimit != 7 {
		t.Fatalf("configured limit: %d", svc.lastLimit)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports?limit=-3", nil))
	if svc.lastLimit != 7 {
		t.Fatalf("non-positive query limit should keep default: %d", svc.lastLimit)
	}
}
