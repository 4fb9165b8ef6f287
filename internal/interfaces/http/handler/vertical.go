package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appvertical "github.com/varejo/backend/internal/application/vertical"
	"github.com/varejo/backend/internal/domain/vertical"
	"github.com/varejo/backend/internal/interfaces/http/dto"
	"github.com/varejo/backend/internal/interfaces/http/middleware"
)

// VerticalHandler exposes vertical composition endpoints
type VerticalHandler struct {
	BaseHandler
	service *appvertical.Service
}

// NewVerticalHandler creates a VerticalHandler
func NewVerticalHandler(service *appvertical.Service) *VerticalHandler {
	return &VerticalHandler{service: service}
}

// ListAvailable returns every registered vertical with the tenant's
// activation state
// GET /api/v1/verticals
func (h *VerticalHandler) ListAvailable(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	statuses, err := h.service.ListAvailable(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statuses)
}

// ListActive returns the tenant's active verticals
// GET /api/v1/verticals/active
func (h *VerticalHandler) ListActive(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	activations, err := h.service.ListActive(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	type activeVertical struct {
		Name        string               `json:"name"`
		Config      vertical.PropertyBag `json:"config,omitempty"`
		ActivatedAt string               `json:"activated_at"`
	}
	resp := make([]activeVertical, len(activations))
	for i, a := range activations {
		resp[i] = activeVertical{
			Name:        a.VerticalName,
			Config:      a.Config,
			ActivatedAt: a.ActivatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	h.Success(c, resp)
}

// CanActivate reports whether the tenant meets a vertical's module
// requirements
// GET /api/v1/verticals/:name/can-activate
func (h *VerticalHandler) CanActivate(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	name := c.Param("name")

	ok, missing, err := h.service.CanActivate(c.Request.Context(), tenantID, name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"vertical":        name,
		"can_activate":    ok,
		"missing_modules": missing,
	})
}

// activateRequest is the body for vertical activation
type activateRequest struct {
	Config vertical.PropertyBag `json:"config"`
}

// Activate turns a vertical on for the tenant
// POST /api/v1/verticals/:name/activate
func (h *VerticalHandler) Activate(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	name := c.Param("name")

	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.service.Activate(c.Request.Context(), tenantID, name, req.Config); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, gin.H{"vertical": name, "active": true})
}

// Deactivate turns a vertical off for the tenant
// POST /api/v1/verticals/:name/deactivate
func (h *VerticalHandler) Deactivate(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	name := c.Param("name")

	changed, err := h.service.Deactivate(c.Request.Context(), tenantID, name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"vertical": name, "active": false, "changed": changed})
}

// validateRequest is the body for property validation
type validateRequest struct {
	SchemaVersion string               `json:"schema_version"`
	Properties    vertical.PropertyBag `json:"properties"`
}

// ValidateProperties validates a property bag against a vertical schema.
// Violations come back in a 200 result; only unknown verticals or versions
// are errors.
// POST /api/v1/verticals/:name/validate
func (h *VerticalHandler) ValidateProperties(c *gin.Context) {
	name := c.Param("name")

	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.service.ValidateProperties(c.Request.Context(), name, req.SchemaVersion, req.Properties)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// recordResponse is the wire shape of a vertical record
type recordResponse struct {
	ID            string               `json:"id"`
	EntityType    string               `json:"entity_type"`
	Vertical      string               `json:"vertical"`
	SchemaVersion string               `json:"schema_version"`
	Properties    vertical.PropertyBag `json:"properties"`
	Active        bool                 `json:"active"`
}

func toRecordResponse(r *vertical.Record) recordResponse {
	return recordResponse{
		ID:            r.ID,
		EntityType:    r.EntityType,
		Vertical:      r.VerticalType,
		SchemaVersion: r.SchemaVersion,
		Properties:    r.Properties,
		Active:        r.Active,
	}
}

// createRecordRequest is the body for record creation
type createRecordRequest struct {
	EntityType string               `json:"entity_type" binding:"required,max=64"`
	Properties vertical.PropertyBag `json:"properties" binding:"required"`
}

// CreateRecord creates a vertical record after validating its properties
// against the vertical's current schema. Violations answer 422 with the
// structured result.
// POST /api/v1/verticals/:name/records
func (h *VerticalHandler) CreateRecord(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)
	name := c.Param("name")

	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "entity_type and properties are required")
		return
	}

	record, result, err := h.service.CreateRecord(c.Request.Context(), tenantID, name, req.EntityType, req.Properties)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !result.Valid {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithDetails(
			dto.ErrCodeSchemaMalformed, "Properties failed schema validation", getRequestID(c), result))
		return
	}
	h.Created(c, toRecordResponse(record))
}

// GetRecord returns one of the tenant's vertical records. Records of other
// tenants answer 404.
// GET /api/v1/records/:id
func (h *VerticalHandler) GetRecord(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	record, err := h.service.GetRecord(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRecordResponse(record))
}

// createSaleRequest is the body for sale record creation
type createSaleRequest struct {
	Vertical   string               `json:"vertical" binding:"required,max=64"`
	Properties vertical.PropertyBag `json:"properties" binding:"required"`
}

// CreateSaleRecord creates a sale-typed record. The route sits behind the
// sales gate, so a tenant in the sales-disabled degradation state never
// reaches this handler.
// POST /api/v1/sales/records
func (h *VerticalHandler) CreateSaleRecord(c *gin.Context) {
	tenantID := middleware.MustGetTenantID(c)

	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "vertical and properties are required")
		return
	}

	record, result, err := h.service.CreateRecord(c.Request.Context(), tenantID, req.Vertical, "sale", req.Properties)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !result.Valid {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithDetails(
			dto.ErrCodeSchemaMalformed, "Properties failed schema validation", getRequestID(c), result))
		return
	}
	h.Created(c, toRecordResponse(record))
}

// migrateRequest is the body for schema migration
type migrateRequest struct {
	FromVersion string `json:"from_version" binding:"required"`
	ToVersion   string `json:"to_version" binding:"required"`
}

// MigrateSchema migrates every record of a vertical between schema versions.
// This is a system-level operation; per-entity failures are reported in the
// result, not as an error.
// POST /api/v1/admin/verticals/:name/migrate
func (h *VerticalHandler) MigrateSchema(c *gin.Context) {
	name := c.Param("name")

	var req migrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "from_version and to_version are required")
		return
	}

	report, err := h.service.MigrateSchema(c.Request.Context(), name, req.FromVersion, req.ToVersion)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
