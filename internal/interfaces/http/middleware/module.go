package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ModuleChecker reports whether a tenant currently holds a module. Implemented
// by the entitlement application service.
type ModuleChecker interface {
	HasActiveModule(ctx context.Context, tenantID, moduleCode string) (bool, error)
	Entitlements(ctx context.Context, tenantID string) (*entitlement.Snapshot, error)
}

// SalesValidator gates sale-creating endpoints. Implemented by the
// entitlement application service.
type SalesValidator interface {
	ValidateCanSell(ctx context.Context, tenantID string) (bool, error)
}

// RequireModule creates middleware that rejects requests from tenants whose
// current entitlements lack the module. Denials answer 402 with the missing
// codes so the frontend can render an upgrade prompt.
func RequireModule(checker ModuleChecker, moduleCode string) gin.HandlerFunc {
	return RequireAnyModule(checker, moduleCode)
}

// RequireAnyModule passes when the tenant holds at least one of the modules
func RequireAnyModule(checker ModuleChecker, moduleCodes ...string) gin.HandlerFunc {
	if checker == nil {
		panic("module middleware requires a checker")
	}
	if len(moduleCodes) == 0 {
		panic("module middleware requires at least one module code")
	}

	return func(c *gin.Context) {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TENANT_NOT_IDENTIFIED",
					"message": "Tenant identification required",
				},
			})
			return
		}

		ctx := c.Request.Context()
		var missing []string
		fetchFailed := false
		for _, code := range moduleCodes {
			ok, err := checker.HasActiveModule(ctx, tenantID, code)
			if err != nil {
				logger.L(ctx).Warn("Module check failed",
					zap.String("tenant_id", tenantID),
					zap.String("module", code),
					zap.Error(err))
				fetchFailed = true
				continue
			}
			if ok {
				c.Next()
				return
			}
			missing = append(missing, code)
		}

		// Fail closed without an upgrade prompt when entitlements could not
		// be determined: the tenant may well hold the module, so a payment
		// envelope would mislead the frontend.
		if fetchFailed {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CACHE_FETCH_FAILURE",
					"message": "Entitlements are temporarily unavailable",
				},
			})
			return
		}

		respondModuleRequired(c, checker, tenantID, missing)
	}
}

// RequireSales gates sale creation on the graduated degradation state: a
// tenant whose entitlements have been unrefreshable past the tolerance window
// is denied even if the last known snapshot contained the sales module.
func RequireSales(validator SalesValidator) gin.HandlerFunc {
	if validator == nil {
		panic("sales middleware requires a validator")
	}

	return func(c *gin.Context) {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TENANT_NOT_IDENTIFIED",
					"message": "Tenant identification required",
				},
			})
			return
		}

		ok, err := validator.ValidateCanSell(c.Request.Context(), tenantID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to validate sales entitlement",
				},
			})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SALES_NOT_AVAILABLE",
					"message": "Sales are not available for this account",
					"details": gin.H{
						"modules":      []string{entitlement.ModuleSales},
						"upgrade_hint": "Activate the sales module or contact support",
					},
				},
			})
			return
		}
		c.Next()
	}
}

func respondModuleRequired(c *gin.Context, checker ModuleChecker, tenantID string, missing []string) {
	planCode := ""
	if snap, err := checker.Entitlements(c.Request.Context(), tenantID); err == nil && snap.Plan != nil {
		planCode = snap.Plan.Code
	}

	c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "MODULE_NOT_ACTIVE",
			"message": "Required module is not active for this tenant: " + strings.Join(missing, ", "),
			"details": gin.H{
				"missing_modules": missing,
				"current_plan":    planCode,
				"upgrade_hint":    "Activate the module or upgrade your plan to access this feature",
			},
		},
	})
}
