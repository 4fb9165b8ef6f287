package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varejo/backend/internal/domain/shared"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testProduct struct {
	ID       uint   `gorm:"primarykey"`
	TenantID string `gorm:"size:64;index"`
	Name     string
	Price    float64
}

type testSetting struct {
	ID    uint `gorm:"primarykey"`
	Key   string
	Value string
}

func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testProduct{}, &testSetting{}))

	EnableIsolation(db, true)
	return db
}

func tenantCtx(tenantID string) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID)
	return ctx
}

func TestCreateStampsTenant(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{Name: "Pão francês", Price: 0.75}
	require.NoError(t, db.WithContext(tenantCtx("padaria-bairro")).Create(product).Error)

	assert.Equal(t, "padaria-bairro", product.TenantID)
}

func TestCreateRejectsForgedTenant(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{TenantID: "farmacia-centro", Name: "Pão francês"}
	err := db.WithContext(tenantCtx("padaria-bairro")).Create(product).Error

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTenantMismatch)
	assert.ErrorIs(t, err, shared.ErrConsistencyViolation)

	var count int64
	db.WithContext(tenantCtx("farmacia-centro")).Model(&testProduct{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateAcceptsMatchingTenant(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{TenantID: "padaria-bairro", Name: "Bolo"}
	assert.NoError(t, db.WithContext(tenantCtx("padaria-bairro")).Create(product).Error)
}

func TestCrossTenantReadBehavesAsNotFound(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{Name: "Dipirona", Price: 8.90}
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Create(product).Error)

	var found testProduct
	err := db.WithContext(tenantCtx("padaria-bairro")).First(&found, product.ID).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var all []testProduct
	require.NoError(t, db.WithContext(tenantCtx("padaria-bairro")).Find(&all).Error)
	assert.Empty(t, all)

	// the owning tenant still sees it
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).First(&found, product.ID).Error)
	assert.Equal(t, "Dipirona", found.Name)
}

func TestUpdateScopedToTenant(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{Name: "Dipirona", Price: 8.90}
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Create(product).Error)

	result := db.WithContext(tenantCtx("padaria-bairro")).
		Model(&testProduct{}).
		Where("id = ?", product.ID).
		Update("price", 1.00)
	require.NoError(t, result.Error)
	assert.Zero(t, result.RowsAffected)

	var found testProduct
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).First(&found, product.ID).Error)
	assert.Equal(t, 8.90, found.Price)
}

func TestUpdateRejectsTenantRewrite(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{Name: "Dipirona"}
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Create(product).Error)

	err := db.WithContext(tenantCtx("farmacia-centro")).
		Model(&testProduct{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{"tenant_id": "padaria-bairro"}).Error

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTenantMismatch)

	// writing the same tenant back is harmless
	err = db.WithContext(tenantCtx("farmacia-centro")).
		Model(&testProduct{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{"tenant_id": "farmacia-centro", "name": "Dipirona 500mg"}).Error
	assert.NoError(t, err)
}

func TestDeleteScopedToTenant(t *testing.T) {
	db := setupIsolatedDB(t)

	product := &testProduct{Name: "Dipirona"}
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Create(product).Error)

	result := db.WithContext(tenantCtx("padaria-bairro")).Delete(&testProduct{}, product.ID)
	require.NoError(t, result.Error)
	assert.Zero(t, result.RowsAffected)

	var count int64
	db.WithContext(tenantCtx("farmacia-centro")).Model(&testProduct{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestQueryWithoutTenantFails(t *testing.T) {
	db := setupIsolatedDB(t)

	var products []testProduct
	err := db.WithContext(context.Background()).Find(&products).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTenantRequired)
	assert.ErrorIs(t, err, shared.ErrTenantNotIdentified)
}

func TestTablesWithoutTenantColumnStayGlobal(t *testing.T) {
	db := setupIsolatedDB(t)

	setting := &testSetting{Key: "maintenance_window", Value: "03:00"}
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Create(setting).Error)

	var found testSetting
	require.NoError(t, db.WithContext(tenantCtx("padaria-bairro")).First(&found, setting.ID).Error)
	assert.Equal(t, "03:00", found.Value)
}

func TestUnscopedBypassesIsolation(t *testing.T) {
	db := setupIsolatedDB(t)

	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Create(&testProduct{Name: "a"}).Error)
	require.NoError(t, db.WithContext(tenantCtx("padaria-bairro")).Create(&testProduct{Name: "b"}).Error)

	var all []testProduct
	require.NoError(t, db.WithContext(tenantCtx("farmacia-centro")).Unscoped().Find(&all).Error)
	assert.Len(t, all, 2)
}
