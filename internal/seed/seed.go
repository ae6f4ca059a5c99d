// Package seed writes demo data for the signed-in user and imports
// collections cached by the state store.
package seed

import (
	"context"
	"fmt"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/pricing"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/store"
)

const (
	demoClientName   = "Cliente Exemplo"
	demoMaterialName = "Vinil Fosco 1,06m"
	demoInkName      = "CMYK EcoSolv"
	demoServiceName  = "Faixa Promocional"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int `json:"inserts"`
	Skipped int `json:"skipped"`
}

// Run writes the demo client, material, ink and service order. Rows that
// already exist by name are reused, so running it again inserts nothing.
func Run(ctx context.Context, repo *repository.Repository) (Stats, error) {
	stats := Stats{}

	client, err := ensureClient(ctx, repo, &stats)
	if err != nil {
		return Stats{}, err
	}
	material, err := ensureMaterial(ctx, repo, &stats)
	if err != nil {
		return Stats{}, err
	}
	ink, err := ensureInk(ctx, repo, &stats)
	if err != nil {
		return Stats{}, err
	}
	if err := ensureService(ctx, repo, client, material, ink, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func ensureClient(ctx context.Context, repo *repository.Repository, stats *Stats) (models.Client, error) {
	clients, err := repo.Clients.List(ctx)
	if err != nil {
		return models.Client{}, fmt.Errorf("list clients: %w", err)
	}
	for _, c := range clients {
		if c.Name == demoClientName {
			stats.Skipped++
			return c, nil
		}
	}

	c, err := repo.Clients.Create(ctx, repository.ClientInput{
		Name:  demoClientName,
		Email: "exemplo@cliente.com",
		Phone: "+5511999999999",
	})
	if err != nil {
		return models.Client{}, fmt.Errorf("insert demo client: %w", err)
	}
	stats.Inserts++
	return c, nil
}

func ensureMaterial(ctx context.Context, repo *repository.Repository, stats *Stats) (models.Material, error) {
	materials, err := repo.Materials.List(ctx)
	if err != nil {
		return models.Material{}, fmt.Errorf("list materials: %w", err)
	}
	for _, m := range materials {
		if m.Name == demoMaterialName {
			stats.Skipped++
			return m, nil
		}
	}

	m, err := repo.Materials.Create(ctx, repository.MaterialInput{
		Name:        demoMaterialName,
		Unit:        pricing.UnitMeter,
		CostPerUnit: 18.5,
	})
	if err != nil {
		return models.Material{}, fmt.Errorf("insert demo material: %w", err)
	}
	stats.Inserts++
	return m, nil
}

func ensureInk(ctx context.Context, repo *repository.Repository, stats *Stats) (models.Ink, error) {
	inks, err := repo.Inks.List(ctx)
	if err != nil {
		return models.Ink{}, fmt.Errorf("list inks: %w", err)
	}
	for _, ink := range inks {
		if ink.Name == demoInkName {
			stats.Skipped++
			return ink, nil
		}
	}

	ink, err := repo.Inks.Create(ctx, repository.InkInput{Name: demoInkName, CostPerLiter: 120})
	if err != nil {
		return models.Ink{}, fmt.Errorf("insert demo ink: %w", err)
	}
	stats.Inserts++
	return ink, nil
}

func ensureService(ctx context.Context, repo *repository.Repository, client models.Client, material models.Material, ink models.Ink, stats *Stats) error {
	services, err := repo.Services.List(ctx)
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}
	for _, svc := range services {
		if svc.Name == demoServiceName {
			stats.Skipped++
			return nil
		}
	}

	markup := 40.0
	if _, err := repo.Services.Create(ctx, repository.ServiceInput{
		ClientID:   client.ID,
		Name:       demoServiceName,
		Status:     models.StatusApproved,
		LaborHours: 1.5,
		LaborRate:  60,
		Markup:     &markup,
		Items:      []models.ServiceItem{models.NewServiceItem(material, 1, 5, 0, 0)},
		Inks:       []models.ServiceInk{models.NewServiceInk(ink, 120)},
	}); err != nil {
		return fmt.Errorf("insert demo service: %w", err)
	}
	stats.Inserts++
	return nil
}

// MigrateResult reports what MigrateFromStore wrote.
type MigrateResult struct {
	Moved bool                   `json:"moved"`
	Stats repository.ImportStats `json:"stats"`
}

// MigrateFromStore appends the catalog and service collections cached in
// the store snapshot to the database under fresh ids. Existing rows are
// left alone.
func MigrateFromStore(ctx context.Context, repo *repository.Repository, state store.AppState) (MigrateResult, error) {
	d := repository.Dataset{
		Clients:   state.Clients,
		Materials: state.Materials,
		Inks:      state.Inks,
		Services:  state.Services,
	}
	if len(d.Clients)+len(d.Materials)+len(d.Inks)+len(d.Services) == 0 {
		return MigrateResult{}, nil
	}

	stats, err := repo.Append(ctx, d)
	if err != nil {
		return MigrateResult{}, err
	}
	return MigrateResult{Moved: true, Stats: stats}, nil
}
