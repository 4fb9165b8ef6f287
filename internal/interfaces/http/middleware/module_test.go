package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varejo/backend/internal/domain/entitlement"
)

type stubEntitlements struct {
	modules  map[string]bool
	checkErr error
	plan     string
	canSell  bool
	sellErr  error
}

func (s *stubEntitlements) HasActiveModule(ctx context.Context, tenantID, moduleCode string) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.modules[moduleCode], nil
}

func (s *stubEntitlements) Entitlements(ctx context.Context, tenantID string) (*entitlement.Snapshot, error) {
	snap := &entitlement.Snapshot{}
	if s.plan != "" {
		snap.Plan = &entitlement.PlanSnapshot{Code: s.plan}
	}
	return snap, nil
}

func (s *stubEntitlements) ValidateCanSell(ctx context.Context, tenantID string) (bool, error) {
	return s.canSell, s.sellErr
}

func setTenant(tenantID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			MissingModules []string `json:"missing_modules"`
			CurrentPlan    string   `json:"current_plan"`
			UpgradeHint    string   `json:"upgrade_hint"`
		} `json:"details"`
	} `json:"error"`
}

func TestRequireModulePasses(t *testing.T) {
	stub := &stubEntitlements{modules: map[string]bool{entitlement.ModuleStock: true}}

	r := gin.New()
	r.Use(setTenant("loja1"), RequireModule(stub, entitlement.ModuleStock))
	r.GET("/stock", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireModuleDenied(t *testing.T) {
	stub := &stubEntitlements{modules: map[string]bool{}, plan: "STARTER"}

	r := gin.New()
	r.Use(setTenant("loja1"), RequireModule(stub, entitlement.ModulePromotions))
	r.GET("/promotions", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/promotions", nil))

	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "MODULE_NOT_ACTIVE", body.Error.Code)
	assert.Equal(t, []string{entitlement.ModulePromotions}, body.Error.Details.MissingModules)
	assert.Equal(t, "STARTER", body.Error.Details.CurrentPlan)
	assert.NotEmpty(t, body.Error.Details.UpgradeHint)
}

func TestRequireModuleFailsClosedOnError(t *testing.T) {
	stub := &stubEntitlements{checkErr: errors.New("entitlements unavailable")}

	r := gin.New()
	r.Use(setTenant("loja1"), RequireModule(stub, entitlement.ModuleStock))
	r.GET("/stock", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock", nil))

	// an undeterminable entitlement is an availability problem, not a
	// payment problem: no upgrade envelope, same code the handlers use
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "CACHE_FETCH_FAILURE", body.Error.Code)
	assert.Empty(t, body.Error.Details.UpgradeHint)
}

func TestRequireAnyModule(t *testing.T) {
	stub := &stubEntitlements{modules: map[string]bool{entitlement.ModuleStock: true}}

	r := gin.New()
	r.Use(setTenant("loja1"), RequireAnyModule(stub, entitlement.ModulePromotions, entitlement.ModuleStock))
	r.GET("/reports", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireModuleWithoutTenant(t *testing.T) {
	stub := &stubEntitlements{}

	r := gin.New()
	r.Use(RequireModule(stub, entitlement.ModuleStock))
	r.GET("/stock", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSales(t *testing.T) {
	tests := []struct {
		name         string
		stub         *stubEntitlements
		expectedCode int
		errorCode    string
	}{
		{
			name:         "allowed",
			stub:         &stubEntitlements{canSell: true},
			expectedCode: http.StatusOK,
		},
		{
			name:         "breaker open",
			stub:         &stubEntitlements{canSell: false},
			expectedCode: http.StatusPaymentRequired,
			errorCode:    "SALES_NOT_AVAILABLE",
		},
		{
			name:         "validator error",
			stub:         &stubEntitlements{sellErr: errors.New("boom")},
			expectedCode: http.StatusInternalServerError,
			errorCode:    "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(setTenant("loja1"), RequireSales(tt.stub))
			r.POST("/sales", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", nil))

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.errorCode != "" {
				var body errorEnvelope
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.errorCode, body.Error.Code)
			}
		})
	}
}
