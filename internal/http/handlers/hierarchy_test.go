package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/services"
)

type fakeHierarchyService struct {
	result      *classify.HierarchyResult
	stats       *services.HierarchyStats
	refreshes   []bool
	invalidated int
}

var _ services.HierarchyService = (*fakeHierarchyService)(nil)

func (f *fakeHierarchyService) Get(ctx context.Context, refresh bool) (*classify.HierarchyResult, error) {
	f.refreshes = append(f.refreshes, refresh)
	return f.result, nil
}

func (f *fakeHierarchyService) Stats(ctx context.Context) (*services.HierarchyStats, error) {
	return f.stats, nil
}

func (f *fakeHierarchyService) Orphans(ctx context.Context) ([]classify.Record, error) {
	return f.result.Orphans, nil
}

func (f *fakeHierarchyService) Invalidate(ctx context.Context) {
	f.invalidated++
}

func hierarchyRouter(t *testing.T, svc services.HierarchyService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHierarchyHandler(newTestLogger(t), svc)
	r := gin.New()
	r.GET("/api/hierarchy", h.GetHierarchy)
	r.GET("/api/hierarchy/stats", h.GetHierarchyStats)
	r.GET("/api/hierarchy/orphans", h.ListOrphans)
	return r
}

func TestGetHierarchyRefreshFlag(t *testing.T) {
	svc := &fakeHierarchyService{result: &classify.HierarchyResult{TotalCount: 3}}
	r := hierarchyRouter(t, svc)

	for _, tc := range []struct {
		query string
		want  bool
	}{
		{"", false},
		{"?refresh=1", true},
		{"?refresh=true", true},
		{"?refresh=yes", true},
		{"?refresh=0", false},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy"+tc.query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%q status: %d", tc.query, rec.Code)
		}
	}
	want := []bool{false, true, true, true, false}
	if len(svc.refreshes) != len(want) {
		t.Fatalf("refreshes: %v", svc.refreshes)
	}
	for i, r := range want {
		if svc.refreshes[i] != r {
			t.Fatalf("refresh[%d]: want=%v got=%v", i, r, svc.refreshes[i])
		}
	}
}

func TestGetHierarchyBody(t *testing.T) {
	svc := &fakeHierarchyService{result: &classify.HierarchyResult{
		TotalCount:    2,
		MaxDepth:      3,
		DistinctPaths: []string{"equipment > breakers"},
	}}
	r := hierarchyRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var body classify.HierarchyResult
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalCount != 2 || body.MaxDepth != 3 {
		t.Fatalf("body: %+v", body)
	}
}

func TestGetHierarchyStats(t *testing.T) {
	svc := &fakeHierarchyService{stats: &services.HierarchyStats{
		TotalAssets: 5,
		OrphanCount: 1,
	}}
	r := hierarchyRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var body services.HierarchyStats
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalAssets != 5 || body.OrphanCount != 1 {
		t.Fatalf("stats: %+v", body)
	}
}

func TestListOrphans(t *testing.T) {
	svc := &fakeHierarchyService{result: &classify.HierarchyResult{
		Orphans: []classify.Record{{Key: "stray", DisplayName: "Stray Sensor"}},
	}}
	r := hierarchyRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy/orphans", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var body struct {
		Orphans []classify.Record `json:"orphans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Orphans) != 1 || body.Orphans[0].Key != "stray" {
		t.Fatalf("orphans: %+v", body.Orphans)
	}
}
