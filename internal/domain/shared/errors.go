package shared

// DomainError represents a domain-level error with a stable machine code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists        = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrTenantNotIdentified  = NewDomainError("TENANT_NOT_IDENTIFIED", "No tenant could be resolved for this request")
	ErrModuleNotActive      = NewDomainError("MODULE_NOT_ACTIVE", "Required module is not active for this tenant")
	ErrPlanLimitExceeded    = NewDomainError("PLAN_LIMIT_EXCEEDED", "Plan limit exceeded")
	ErrConsistencyViolation = NewDomainError("CONSISTENCY_VIOLATION", "Tenant identifier on a record may not be altered or forged")
	ErrCacheFetchFailure    = NewDomainError("CACHE_FETCH_FAILURE", "Entitlement data could not be refreshed")
	ErrSalesDisabled        = NewDomainError("SALES_DISABLED", "Sales are disabled because entitlement data has been unavailable for too long")
	ErrSchemaMalformed      = NewDomainError("SCHEMA_MALFORMED", "Property payload is malformed or unparseable")
)
