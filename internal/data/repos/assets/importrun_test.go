package assets

import (
	"context"
	"testing"

	"github.com/substationlabs/assetview-backend/internal/data/repos/testutil"
	types "github.com/substationlabs/assetview-backend/internal/domain"
	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
)

func TestImportRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewImportRunRepo(db, testutil.Logger(t))

	first := testutil.SeedImportRun(t, ctx, tx, "assets-2024.xlsx")
	second := testutil.SeedImportRun(t, ctx, tx, "assets-2025.xlsx")

	second.Status = types.ImportStatusSucceeded
	second.RowsTotal = 10
	second.RowsCreated = 7
	second.RowsUpdated = 2
	second.RowsSkipped = 1
	second.Errors = types.EncodeImportRowErrors([]types.ImportRowError{
		{Row: 5, Message: "missing key"},
	})
	if err := repo.Update(dbc, second); err != nil {
		t.Fatalf("Update: %v", err)
	}

	runs, err := repo.List(dbc, 0)
	if err != nil || len(runs) != 2 {
		t.Fatalf("List: err=%v len=%d", err, len(runs))
	}

	runs, err = repo.List(dbc, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("List limit: err=%v len=%d", err, len(runs))
	}
	if runs[0].ID != second.ID {
		t.Fatalf("List order: want newest first, got=%v", runs[0].Filename)
	}
	if runs[0].RowsCreated != 7 || runs[0].Status != types.ImportStatusSucceeded {
		t.Fatalf("List readback: got=%+v", runs[0])
	}

	_ = first
}
