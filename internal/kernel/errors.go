// Package kernel implements the policy kernel: the single entry point all
// mutating and sensitive operations are routed through. It validates
// requests, evaluates auto-approval rules, dispatches to operation
// handlers behind circuit breakers, records every decision in the audit
// trail and falls back to degraded handlers on failure.
package kernel

import (
	"fmt"

	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// ValidationError reports a missing or malformed required request field.
// Fatal: no fallback is attempted.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("kernel: request validation failed: missing %s", e.Field)
}

// FreezeModeError is returned while the kernel is frozen.
// Fatal: no fallback is attempted.
type FreezeModeError struct{}

func (e *FreezeModeError) Error() string {
	return "kernel: system is in freeze mode"
}

// ApprovalRejectedError reports that the auto-approval rules were not
// satisfied. Triggers the fallback handler when one is registered.
type ApprovalRejectedError struct {
	Operation types.OperationType
	Priority  types.Priority
}

func (e *ApprovalRejectedError) Error() string {
	return fmt.Sprintf("kernel: approval rejected for %s at priority %s", e.Operation, e.Priority)
}

// HandlerError wraps an operation-specific failure during dispatch.
// Triggers the fallback handler when one is registered.
type HandlerError struct {
	Operation types.OperationType
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("kernel: handler for %s failed: %v", e.Operation, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// FallbackUnavailableError reports that no fallback handler is registered
// for the operation type. Surfaces as the final failure.
type FallbackUnavailableError struct {
	Operation types.OperationType
}

func (e *FallbackUnavailableError) Error() string {
	return fmt.Sprintf("kernel: no fallback handler registered for %s", e.Operation)
}
