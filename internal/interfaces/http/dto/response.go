// Package dto defines the response envelope shared by every HTTP endpoint
package dto

import "net/http"

// Response is the standard API response envelope
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo carries the machine-readable error code and the human message
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Meta carries pagination information
type Meta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Error codes shared across handlers
const (
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeAlreadyExists        = "ALREADY_EXISTS"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeTenantNotIdentified  = "TENANT_NOT_IDENTIFIED"
	ErrCodeModuleNotActive      = "MODULE_NOT_ACTIVE"
	ErrCodePlanLimitExceeded    = "PLAN_LIMIT_EXCEEDED"
	ErrCodeConsistencyViolation = "CONSISTENCY_VIOLATION"
	ErrCodeCacheFetchFailure    = "CACHE_FETCH_FAILURE"
	ErrCodeSalesDisabled        = "SALES_DISABLED"
	ErrCodeSchemaMalformed      = "SCHEMA_MALFORMED"
)

// statusByCode maps error codes to HTTP status codes
var statusByCode = map[string]int{
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeUnauthorized:         http.StatusUnauthorized,
	ErrCodeForbidden:            http.StatusForbidden,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeAlreadyExists:        http.StatusConflict,
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeTenantNotIdentified:  http.StatusUnauthorized,
	ErrCodeModuleNotActive:      http.StatusPaymentRequired,
	ErrCodePlanLimitExceeded:    http.StatusPaymentRequired,
	ErrCodeConsistencyViolation: http.StatusForbidden,
	ErrCodeCacheFetchFailure:    http.StatusServiceUnavailable,
	ErrCodeSalesDisabled:        http.StatusPaymentRequired,
	ErrCodeSchemaMalformed:      http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 for unknown
// codes
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewSuccessResponse creates a success envelope
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta creates a success envelope with pagination meta
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Page: page, PageSize: pageSize},
	}
}

// NewErrorResponse creates an error envelope
func NewErrorResponse(code, message string) Response {
	return Response{Success: false, Error: &ErrorInfo{Code: code, Message: message}}
}

// NewErrorResponseWithRequestID creates an error envelope carrying the
// request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message, RequestID: requestID},
	}
}

// NewErrorResponseWithDetails creates an error envelope with structured
// details
func NewErrorResponseWithDetails(code, message, requestID string, details any) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message, RequestID: requestID, Details: details},
	}
}

// ValidationDetail describes one request field that failed binding validation
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationErrorResponse creates an error envelope for failed request
// validation
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      ErrCodeInvalidInput,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	}
}
