package entitlement

import (
	"fmt"
	"strings"

	"github.com/varejo/backend/internal/domain/shared"
)

// ModuleNotActiveError reports that a tenant lacks one or more required
// modules. It carries the upgrade metadata surfaced to callers.
type ModuleNotActiveError struct {
	TenantID string
	Missing  []string
	PlanCode string
}

func (e *ModuleNotActiveError) Error() string {
	return fmt.Sprintf("tenant %s lacks required module(s): %s", e.TenantID, strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match shared.ErrModuleNotActive
func (e *ModuleNotActiveError) Unwrap() error {
	return shared.ErrModuleNotActive
}

// PlanLimitError reports that tenant usage exceeds a contracted plan limit
type PlanLimitError struct {
	TenantID string
	Resource string
	Limit    int64
	Usage    int64
}

func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("tenant %s exceeds plan limit for %s: %d/%d", e.TenantID, e.Resource, e.Usage, e.Limit)
}

// Unwrap lets errors.Is match shared.ErrPlanLimitExceeded
func (e *PlanLimitError) Unwrap() error {
	return shared.ErrPlanLimitExceeded
}

// FetchError wraps a failed system-of-record fetch. It drives the degradation
// state machine and is not surfaced to end callers except through the sales
// circuit breaker.
type FetchError struct {
	TenantID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("entitlement fetch failed for tenant %s: %v", e.TenantID, e.Err)
}

// Unwrap lets errors.Is match both the cause and shared.ErrCacheFetchFailure
func (e *FetchError) Unwrap() []error {
	return []error{e.Err, shared.ErrCacheFetchFailure}
}
