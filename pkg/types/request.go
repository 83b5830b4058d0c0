package types

import "time"

// OperationType identifies the kind of mutation or sensitive operation
// routed through the policy kernel.
type OperationType string

const (
	OpLogicUpdate    OperationType = "LOGIC_UPDATE"
	OpMemoryCreate   OperationType = "MEMORY_CREATE"
	OpMemoryUpdate   OperationType = "MEMORY_UPDATE"
	OpMemoryDelete   OperationType = "MEMORY_DELETE"
	OpPluginLoad     OperationType = "PLUGIN_LOAD"
	OpPluginUnload   OperationType = "PLUGIN_UNLOAD"
	OpKernelRoute    OperationType = "KERNEL_ROUTE"
	OpBrandSwitch    OperationType = "BRAND_SWITCH"
	OpSecurityChange OperationType = "SECURITY_CHANGE"
)

// ValidOperationTypes contains all operation types the kernel recognizes.
// MEMORY_DELETE is reserved: it is a valid request type but no handler is
// registered for it.
var ValidOperationTypes = []OperationType{
	OpLogicUpdate,
	OpMemoryCreate,
	OpMemoryUpdate,
	OpMemoryDelete,
	OpPluginLoad,
	OpPluginUnload,
	OpKernelRoute,
	OpBrandSwitch,
	OpSecurityChange,
}

// IsValidOperationType checks if the given type is recognized.
func IsValidOperationType(t OperationType) bool {
	for _, valid := range ValidOperationTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// Priority orders operation requests from routine to emergency.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
	PriorityEmergency
)

// String returns the uppercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	case PriorityEmergency:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority converts a string into a Priority. Unknown strings map to
// PriorityMedium so malformed caller input never escalates a request.
func ParsePriority(s string) Priority {
	switch s {
	case "LOW":
		return PriorityLow
	case "MEDIUM":
		return PriorityMedium
	case "HIGH":
		return PriorityHigh
	case "CRITICAL":
		return PriorityCritical
	case "EMERGENCY":
		return PriorityEmergency
	default:
		return PriorityMedium
	}
}

// OperationRequest is the envelope every mutating or sensitive operation
// travels in. Requests are ephemeral; only the audit trail keeps a trace.
type OperationRequest struct {
	ID     string        `json:"id"`
	Type   OperationType `json:"type"`
	Origin string        `json:"origin"`
	Target string        `json:"target"`

	Payload  map[string]interface{} `json:"payload,omitempty"`
	Priority Priority               `json:"priority"`

	RequiresApproval bool     `json:"requires_approval"`
	BrandAffinity    []string `json:"brand_affinity,omitempty"`

	// Lineage is the causal chain of upstream request ids, if any.
	Lineage []string `json:"lineage,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// RouteResult is what the kernel returns for every routed request.
// Callers above the kernel never see raw errors; failures arrive here as
// Success=false with a populated Error.
type RouteResult struct {
	Success      bool        `json:"success"`
	Result       interface{} `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
	FallbackUsed bool        `json:"fallback_used"`

	// ProcessingTimeMS is wall time spent routing, in milliseconds.
	ProcessingTimeMS float64 `json:"processing_time_ms"`

	// AuditLogID references the audit entry recorded for this request.
	AuditLogID string `json:"audit_log_id,omitempty"`
}
