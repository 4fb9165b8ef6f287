package tenant

import (
	"reflect"
	"strings"

	"github.com/varejo/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Callback provides GORM callback hooks that enforce tenant isolation on
// every query, create, update and delete against tenant-scoped models.
type Callback struct {
	tenantColumn string
	required     bool
}

// NewCallback creates a new tenant callback handler
func NewCallback(tenantColumn string, required bool) *Callback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	return &Callback{
		tenantColumn: tenantColumn,
		required:     required,
	}
}

// Register registers the tenant callbacks with GORM
func (tc *Callback) Register(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("tenant:before_query", tc.beforeQuery)
	_ = db.Callback().Row().Before("gorm:row").Register("tenant:before_row", tc.beforeQuery)
	_ = db.Callback().Create().Before("gorm:create").Register("tenant:before_create", tc.beforeCreate)
	_ = db.Callback().Update().Before("gorm:update").Register("tenant:before_update", tc.beforeUpdate)
	_ = db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", tc.beforeQuery)
}

// EnableIsolation registers tenant isolation callbacks on a GORM DB instance
func EnableIsolation(db *gorm.DB, required bool) {
	NewCallback("tenant_id", required).Register(db)
}

// beforeQuery restricts reads and deletes to the resolved tenant
func (tc *Callback) beforeQuery(db *gorm.DB) {
	tc.addTenantFilter(db)
}

// beforeCreate stamps the tenant column on inserts. An explicit tenant that
// differs from the resolved tenant is rejected, never silently corrected:
// silent correction would mask integration bugs.
func (tc *Callback) beforeCreate(db *gorm.DB) {
	field := tc.tenantField(db)
	if field == nil {
		return
	}

	tenantID, ok := tc.resolvedTenant(db)
	if !ok {
		return
	}

	stmt := db.Statement
	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			if !tc.stampOrReject(db, field, stmt.ReflectValue.Index(i), tenantID) {
				return
			}
		}
	case reflect.Struct:
		tc.stampOrReject(db, field, stmt.ReflectValue, tenantID)
	}
}

// stampOrReject sets the tenant field when empty and rejects a differing one
func (tc *Callback) stampOrReject(db *gorm.DB, field *schema.Field, rv reflect.Value, tenantID string) bool {
	value, isZero := field.ValueOf(db.Statement.Context, rv)
	if isZero {
		if err := field.Set(db.Statement.Context, rv, tenantID); err != nil {
			_ = db.AddError(err)
			return false
		}
		return true
	}

	if current, ok := value.(string); ok && current != tenantID {
		logger.L(db.Statement.Context).Error("Rejected cross-tenant create",
			zap.String("record_tenant", current),
			zap.String("resolved_tenant", tenantID),
			zap.String("table", db.Statement.Table))
		_ = db.AddError(ErrTenantMismatch)
		return false
	}
	return true
}

// beforeUpdate restricts updates to the resolved tenant and rejects any
// attempt to rewrite the tenant column to a different value
func (tc *Callback) beforeUpdate(db *gorm.DB) {
	if db.Statement.Schema != nil && tc.tenantField(db) == nil {
		return
	}
	tenantID, ok := tc.resolvedTenant(db)
	if ok {
		if violation, forged := tc.forgedTenantValue(db, tenantID); forged {
			logger.L(db.Statement.Context).Error("Rejected tenant column rewrite",
				zap.String("attempted_tenant", violation),
				zap.String("resolved_tenant", tenantID),
				zap.String("table", db.Statement.Table))
			_ = db.AddError(ErrTenantMismatch)
			return
		}
	}
	tc.addTenantFilter(db)
}

// forgedTenantValue inspects the update payload for a tenant column carrying
// a value other than the resolved tenant
func (tc *Callback) forgedTenantValue(db *gorm.DB, tenantID string) (string, bool) {
	switch dest := db.Statement.Dest.(type) {
	case map[string]any:
		if raw, exists := dest[tc.tenantColumn]; exists {
			if v, ok := raw.(string); ok && v != tenantID {
				return v, true
			}
		}
	case map[string]string:
		if v, exists := dest[tc.tenantColumn]; exists && v != tenantID {
			return v, true
		}
	default:
		field := tc.tenantField(db)
		if field == nil {
			return "", false
		}
		rv := reflect.ValueOf(db.Statement.Dest)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return "", false
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct || rv.Type() != db.Statement.Schema.ModelType {
			return "", false
		}
		value, isZero := field.ValueOf(db.Statement.Context, rv)
		if isZero {
			return "", false
		}
		if v, ok := value.(string); ok && v != tenantID {
			return v, true
		}
	}
	return "", false
}

// addTenantFilter adds the tenant equality predicate to the statement
func (tc *Callback) addTenantFilter(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	if db.Statement.Unscoped {
		return
	}
	if tc.hasTenantCondition(db) {
		return
	}
	// system-level tables without a tenant column stay global
	if db.Statement.Schema != nil && tc.tenantField(db) == nil {
		return
	}

	tenantID, ok := tc.resolvedTenant(db)
	if !ok {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// resolvedTenant returns the tenant from the statement context, recording an
// error when one is required but absent
func (tc *Callback) resolvedTenant(db *gorm.DB) (string, bool) {
	if db.Statement.Context == nil {
		return "", false
	}
	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		if tc.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return "", false
	}
	return tenantID, true
}

// tenantField looks up the tenant column on the statement schema. Models
// without the column (system-level tables) are left alone.
func (tc *Callback) tenantField(db *gorm.DB) *schema.Field {
	if db.Statement.Schema == nil {
		return nil
	}
	return db.Statement.Schema.LookUpField(tc.tenantColumn)
}

// hasTenantCondition checks whether a tenant predicate is already present
func (tc *Callback) hasTenantCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if tc.exprContainsTenant(expr) {
					return true
				}
			}
		}
	}

	sql := db.Statement.SQL.String()
	return sql != "" && strings.Contains(sql, tc.tenantColumn)
}

func (tc *Callback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.tenantColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.tenantColumn
		}
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}
