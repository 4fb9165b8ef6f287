package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/interfaces/http/middleware"
)

// EntitlementRoutes wires the entitlement handler into the API group
type EntitlementRoutes struct {
	Handler *EntitlementHandler
}

// RegisterRoutes registers entitlement routes
func (r EntitlementRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/modules", r.Handler.ListModules)

	ent := rg.Group("/entitlements")
	{
		ent.GET("", r.Handler.GetStatus)
		ent.GET("/can-sell", r.Handler.CanSell)
		ent.GET("/modules/:code", r.Handler.CheckModule)
		ent.POST("/modules/:code/activate", r.Handler.ActivateModule)
		ent.POST("/modules/:code/deactivate", r.Handler.DeactivateModule)
		ent.POST("/refresh", r.Handler.Refresh)
	}
}

// VerticalRoutes wires the vertical handler into the API group. Record
// endpoints sit behind the module gates: creating records requires the
// products module, and sale records additionally pass the sales circuit
// breaker.
type VerticalRoutes struct {
	Handler *VerticalHandler
	Checker middleware.ModuleChecker
	Sales   middleware.SalesValidator
}

// RegisterRoutes registers vertical routes
func (r VerticalRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	verticals := rg.Group("/verticals")
	{
		verticals.GET("", r.Handler.ListAvailable)
		verticals.GET("/active", r.Handler.ListActive)
		verticals.GET("/:name/can-activate", r.Handler.CanActivate)
		verticals.POST("/:name/activate", r.Handler.Activate)
		verticals.POST("/:name/deactivate", r.Handler.Deactivate)
		verticals.POST("/:name/validate", r.Handler.ValidateProperties)
		verticals.POST("/:name/records",
			middleware.RequireModule(r.Checker, entitlement.ModuleProducts),
			r.Handler.CreateRecord)
	}

	rg.GET("/records/:id", r.Handler.GetRecord)

	sales := rg.Group("/sales", middleware.RequireSales(r.Sales))
	{
		sales.POST("/records", r.Handler.CreateSaleRecord)
	}

	admin := rg.Group("/admin")
	{
		admin.POST("/verticals/:name/migrate", r.Handler.MigrateSchema)
	}
}
