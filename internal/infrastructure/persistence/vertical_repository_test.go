package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/domain/vertical"
	"gorm.io/gorm"
)

func activationRepo(t *testing.T) (*GormVerticalActivationRepository, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewGormVerticalActivationRepository(db), db
}

func TestVerticalActivateAndQuery(t *testing.T) {
	repo, _ := activationRepo(t)
	ctx := context.Background()

	active, err := repo.IsActive(ctx, "padaria-bairro", "PADARIA")
	require.NoError(t, err)
	assert.False(t, active)

	err = repo.Activate(ctx, vertical.Activation{
		TenantID:     "padaria-bairro",
		VerticalName: "PADARIA",
		Config:       vertical.PropertyBag{"production_tracking": vertical.Bool(true)},
	})
	require.NoError(t, err)

	active, err = repo.IsActive(ctx, "padaria-bairro", "PADARIA")
	require.NoError(t, err)
	assert.True(t, active)

	activations, err := repo.ListActive(ctx, "padaria-bairro")
	require.NoError(t, err)
	require.Len(t, activations, 1)
	assert.Equal(t, "PADARIA", activations[0].VerticalName)
	assert.True(t, activations[0].Config["production_tracking"].BoolVal())

	// another tenant sees nothing
	activations, err = repo.ListActive(ctx, "farmacia-centro")
	require.NoError(t, err)
	assert.Empty(t, activations)
}

func TestVerticalActivateTwiceLoses(t *testing.T) {
	repo, _ := activationRepo(t)
	ctx := context.Background()

	activation := vertical.Activation{TenantID: "padaria-bairro", VerticalName: "PADARIA"}
	require.NoError(t, repo.Activate(ctx, activation))

	err := repo.Activate(ctx, activation)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestVerticalReactivateAfterDeactivate(t *testing.T) {
	repo, _ := activationRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Activate(ctx, vertical.Activation{
		TenantID:     "padaria-bairro",
		VerticalName: "PADARIA",
		Config:       vertical.PropertyBag{"oven_count": vertical.Number(1)},
	}))

	changed, err := repo.Deactivate(ctx, "padaria-bairro", "PADARIA")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Deactivate(ctx, "padaria-bairro", "PADARIA")
	require.NoError(t, err)
	assert.False(t, changed)

	// reactivation reuses the row and replaces the configuration
	require.NoError(t, repo.Activate(ctx, vertical.Activation{
		TenantID:     "padaria-bairro",
		VerticalName: "PADARIA",
		Config:       vertical.PropertyBag{"oven_count": vertical.Number(3)},
	}))

	activations, err := repo.ListActive(ctx, "padaria-bairro")
	require.NoError(t, err)
	require.Len(t, activations, 1)
	assert.Equal(t, float64(3), activations[0].Config["oven_count"].NumberVal())
	assert.Nil(t, activations[0].DeactivatedAt)
}

func TestVerticalListActiveOrdered(t *testing.T) {
	repo, _ := activationRepo(t)
	ctx := context.Background()

	for _, name := range []string{"SUPERMERCADO", "FARMACIA", "PADARIA"} {
		require.NoError(t, repo.Activate(ctx, vertical.Activation{
			TenantID:     "mercado-geral",
			VerticalName: name,
		}))
	}

	activations, err := repo.ListActive(ctx, "mercado-geral")
	require.NoError(t, err)
	require.Len(t, activations, 3)
	assert.Equal(t, "FARMACIA", activations[0].VerticalName)
	assert.Equal(t, "PADARIA", activations[1].VerticalName)
	assert.Equal(t, "SUPERMERCADO", activations[2].VerticalName)
}

func TestVerticalRecordRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVerticalRecordRepository(db)
	ctx := context.Background()

	record := &vertical.Record{
		ID:            "rec-1",
		TenantID:      "padaria-bairro",
		EntityType:    "product",
		VerticalType:  "PADARIA",
		SchemaVersion: "1.1",
		Properties: vertical.PropertyBag{
			"shelf_life_hours": vertical.Number(48),
			"allergens":        vertical.Map(map[string]vertical.Value{"nuts": vertical.Bool(true)}),
		},
		Active: true,
	}
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, record.Properties, found.Properties)
	assert.Equal(t, "1.1", found.SchemaVersion)
	assert.True(t, found.Active)

	// updating through Save rewrites by primary key
	record.SchemaVersion = "1.2"
	require.NoError(t, repo.Save(ctx, record))

	found, err = repo.FindByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "1.2", found.SchemaVersion)

	_, err = repo.FindByID(ctx, "rec-missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerticalRecordListByVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVerticalRecordRepository(db)
	ctx := context.Background()

	seed := []vertical.Record{
		{ID: "a", TenantID: "t1", EntityType: "product", VerticalType: "PADARIA", SchemaVersion: "1.0"},
		{ID: "b", TenantID: "t2", EntityType: "product", VerticalType: "PADARIA", SchemaVersion: "1.0"},
		{ID: "c", TenantID: "t1", EntityType: "product", VerticalType: "PADARIA", SchemaVersion: "1.1"},
		{ID: "d", TenantID: "t1", EntityType: "product", VerticalType: "FARMACIA", SchemaVersion: "1.0"},
	}
	for i := range seed {
		require.NoError(t, repo.Save(ctx, &seed[i]))
	}

	// migration scans across tenants for one (vertical, version) pair
	records, err := repo.ListByVersion(ctx, "PADARIA", "1.0")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}
