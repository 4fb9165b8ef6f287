package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appentitlement "github.com/varejo/backend/internal/application/entitlement"
	"github.com/varejo/backend/internal/domain/entitlement"
	"github.com/varejo/backend/internal/interfaces/http/middleware"
)

// EntitlementHandler exposes module catalog and per-tenant entitlement
// endpoints
type EntitlementHandler struct {
	BaseHandler
	service *appentitlement.Service
}

// NewEntitlementHandler creates an EntitlementHandler
func NewEntitlementHandler(service *appentitlement.Service) *EntitlementHandler {
	return &EntitlementHandler{service: service}
}

// ModuleResponse is the module catalog item
type ModuleResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	Essential bool   `json:"essential"`
}

// ListModules returns the module catalog
// GET /api/v1/modules
func (h *EntitlementHandler) ListModules(c *gin.Context) {
	modules, err := h.service.ListModules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]ModuleResponse, len(modules))
	for i, m := range modules {
		resp[i] = ModuleResponse{
			Code:      m.Code,
			Name:      m.Name,
			Category:  m.Category,
			Essential: m.Essential,
		}
	}
	h.Success(c, resp)
}

// GetStatus returns the tenant's entitlements and degradation state
// GET /api/v1/entitlements
func (h *EntitlementHandler) GetStatus(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	status, err := h.service.Status(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// CheckModule reports whether one module is active for the tenant
// GET /api/v1/entitlements/modules/:code
func (h *EntitlementHandler) CheckModule(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	code := c.Param("code")

	active, err := h.service.HasActiveModule(c.Request.Context(), tenantID, code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"module": code, "active": active})
}

// moduleChangeRequest is the body for activation and deactivation
type moduleChangeRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// ActivateModule turns a module on for the tenant
// POST /api/v1/entitlements/modules/:code/activate
func (h *EntitlementHandler) ActivateModule(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	code := c.Param("code")

	var req moduleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, "Invalid request body")
		return
	}

	changed, err := h.service.ActivateModule(c.Request.Context(), tenantID, code, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"module": code, "active": true, "changed": changed})
}

// DeactivateModule turns a module off for the tenant. Essential modules are
// rejected; deactivating an inactive module reports changed=false.
// POST /api/v1/entitlements/modules/:code/deactivate
func (h *EntitlementHandler) DeactivateModule(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	code := c.Param("code")

	var req moduleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, "Invalid request body")
		return
	}

	changed, err := h.service.DeactivateModule(c.Request.Context(), tenantID, code, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"module": code, "active": false, "changed": changed})
}

// CanSell answers the sales gate for the tenant
// GET /api/v1/entitlements/can-sell
func (h *EntitlementHandler) CanSell(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	ok, err := h.service.ValidateCanSell(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"can_sell": ok,
		"module":   entitlement.ModuleSales,
	})
}

// Refresh forces a synchronous entitlement refresh for the tenant
// POST /api/v1/entitlements/refresh
func (h *EntitlementHandler) Refresh(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	if err := h.service.RefreshTenant(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"refreshed_at": time.Now().UTC()})
}
