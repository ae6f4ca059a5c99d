package seed

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/Simplici0/printdesk/internal/db"
	"github.com/Simplici0/printdesk/internal/migrations"
	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/pricing"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/store"
)

func openRepo(t *testing.T) (*sql.DB, *repository.Repository) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(context.Background(), database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database, repository.New(database, repository.FixedOwner("user-a"), nil)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, repo := openRepo(t)

	for i := 0; i < 3; i++ {
		stats, err := Run(ctx, repo)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 4 {
				t.Fatalf("expected 4 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Skipped != 4 {
			t.Fatalf("iteration %d: %+v", i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM clients WHERE name = ?`, demoClientName, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM materials WHERE name = ?`, demoMaterialName, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM inks WHERE name = ?`, demoInkName, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM service_orders WHERE name = ?`, demoServiceName, 1)
}

func TestRunWritesPricedDemoService(t *testing.T) {
	ctx := context.Background()
	_, repo := openRepo(t)

	if _, err := Run(ctx, repo); err != nil {
		t.Fatalf("Run: %v", err)
	}
	services, err := repo.Services.List(ctx)
	if err != nil || len(services) != 1 {
		t.Fatalf("List: %v %d", err, len(services))
	}
	svc := services[0]
	if svc.Status != models.StatusApproved || svc.Client == nil || svc.Client.Name != demoClientName {
		t.Fatalf("unexpected service: %+v", svc)
	}
	// 5 m * 18.5 + 120 ml * 120/L + 1.5 h * 60
	if math.Abs(svc.Totals.TotalCost-196.9) > 1e-9 {
		t.Fatalf("TotalCost = %v", svc.Totals.TotalCost)
	}
	if math.Abs(svc.Totals.Price-275.66) > 1e-9 {
		t.Fatalf("Price = %v", svc.Totals.Price)
	}
}

func TestMigrateFromStoreAppends(t *testing.T) {
	ctx := context.Background()
	database, repo := openRepo(t)

	if _, err := repo.Clients.Create(ctx, repository.ClientInput{Name: "Existente"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	state := store.DefaultState()
	state.Clients = []models.Client{{ID: "local-c", Name: "Cacheado"}}
	state.Materials = []models.Material{{ID: "local-m", Name: "Lona", Unit: pricing.UnitSquareMeter, CostPerUnit: 30}}
	state.Services = []models.ServiceOrder{{
		ID:       "local-s",
		Name:     "Banner",
		ClientID: "local-c",
		Items: []models.ServiceItem{{
			MaterialID:   "local-m",
			MaterialItem: pricing.MaterialItem{Unit: pricing.UnitSquareMeter, Width: 2, Height: 1, UnitCostSnapshot: 30},
		}},
	}}

	res, err := MigrateFromStore(ctx, repo, state)
	if err != nil {
		t.Fatalf("MigrateFromStore: %v", err)
	}
	if !res.Moved || res.Stats.Clients != 1 || res.Stats.Services != 1 {
		t.Fatalf("result = %+v", res)
	}
	assertCount(t, database, `SELECT COUNT(*) FROM clients WHERE user_id = ?`, "user-a", 2)

	services, err := repo.Services.List(ctx)
	if err != nil || len(services) != 1 {
		t.Fatalf("List: %v %d", err, len(services))
	}
	if services[0].Client == nil || services[0].Client.Name != "Cacheado" {
		t.Fatalf("client not rewired: %+v", services[0])
	}
	if services[0].Totals.TotalCost != 60 {
		t.Fatalf("TotalCost = %v", services[0].Totals.TotalCost)
	}
}

func TestMigrateFromStoreEmpty(t *testing.T) {
	_, repo := openRepo(t)
	res, err := MigrateFromStore(context.Background(), repo, store.DefaultState())
	if err != nil || res.Moved {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func assertCount(t *testing.T, db *sql.DB, query string, arg any, want int) {
	t.Helper()

	var got int
	if err := db.QueryRow(query, arg).Scan(&got); err != nil {
		t.Fatalf("query count: %v", err)
	}
	if got != want {
		t.Fatalf("count for %q = %d, want %d", query, got, want)
	}
}
