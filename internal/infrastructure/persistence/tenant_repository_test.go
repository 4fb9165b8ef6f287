package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varejo/backend/internal/domain/shared"
	domaintenant "github.com/varejo/backend/internal/domain/tenant"
)

func TestTenantRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := context.Background()

	err := repo.Save(ctx, &domaintenant.Tenant{
		ID:       "farmacia-centro",
		Name:     "Farmácia Centro",
		Active:   true,
		PlanCode: "STARTER",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, "farmacia-centro")
	require.NoError(t, err)
	assert.Equal(t, "Farmácia Centro", found.Name)
	assert.True(t, found.Active)
	assert.Equal(t, "STARTER", found.PlanCode)

	// saving again updates in place
	found.Active = false
	require.NoError(t, repo.Save(ctx, found))

	found, err = repo.FindByID(ctx, "farmacia-centro")
	require.NoError(t, err)
	assert.False(t, found.Active)
}

func TestTenantRepositoryFindMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTenantRepository(db)

	_, err := repo.FindByID(context.Background(), "nao-existe")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTenantRepositorySaveRejectsUnnormalizedSlug(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTenantRepository(db)

	err := repo.Save(context.Background(), &domaintenant.Tenant{
		ID:   "Farmacia Centro",
		Name: "Farmácia Centro",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
