package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	domaintenant "github.com/varejo/backend/internal/domain/tenant"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	// TenantIDKey is the gin context key carrying the resolved tenant ID
	TenantIDKey = "tenant_id"
	// TenantSourceKey is the gin context key carrying the resolution source
	TenantSourceKey = "tenant_source"
	// TenantHeaderKey is the explicit tenant header
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantMiddlewareConfig holds configuration for tenant resolution middleware
type TenantMiddlewareConfig struct {
	// Resolver applies the precedence and normalization rules
	Resolver *domaintenant.Resolver
	// Validator, when set, checks the resolved tenant against the system of
	// record. An unknown or inactive tenant is rejected the same way as an
	// unresolvable one.
	Validator func(ctx context.Context, tenantID string) error
	// SkipPaths are paths that don't require tenant context (e.g. health check)
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig(resolver *domaintenant.Resolver) TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		Resolver:  resolver,
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// TenantMiddleware resolves the tenant for each request.
// Precedence: X-Tenant-ID header > subdomain > JWT claim > configured
// default. A request with no resolvable tenant is rejected with 401.
func TenantMiddleware(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	if cfg.Resolver == nil {
		panic("tenant middleware requires a resolver")
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		resolution, err := cfg.Resolver.Resolve(domaintenant.Request{
			Header: c.GetHeader(TenantHeaderKey),
			Host:   c.Request.Host,
			Claim:  GetJWTTenantID(c),
		})
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Tenant resolution failed",
					zap.String("host", c.Request.Host),
					zap.String("path", path))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TENANT_NOT_IDENTIFIED",
					"message": "Tenant identification required",
				},
			})
			return
		}

		if cfg.Validator != nil {
			if err := cfg.Validator(c.Request.Context(), resolution.TenantID); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("Tenant validation failed",
						zap.String("tenant_id", resolution.TenantID),
						zap.Error(err))
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "TENANT_NOT_IDENTIFIED",
						"message": "Tenant identification required",
					},
				})
				return
			}
		}

		c.Set(TenantIDKey, resolution.TenantID)
		c.Set(TenantSourceKey, string(resolution.Source))

		ctx := c.Request.Context()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), resolution.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID retrieves the resolved tenant ID from gin.Context
func GetTenantID(c *gin.Context) string {
	if tenantID, exists := c.Get(TenantIDKey); exists {
		if tid, ok := tenantID.(string); ok {
			return tid
		}
	}
	return ""
}

// MustGetTenantID retrieves the tenant ID or panics. Use only in handlers
// behind the tenant middleware.
func MustGetTenantID(c *gin.Context) string {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		panic("tenant_id not found in context")
	}
	return tenantID
}
