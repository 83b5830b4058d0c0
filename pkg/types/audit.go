package types

import "time"

// AuditStatus tracks a request through the kernel lifecycle.
type AuditStatus string

const (
	AuditStarted   AuditStatus = "started"
	AuditApproved  AuditStatus = "approved"
	AuditRejected  AuditStatus = "rejected"
	AuditCompleted AuditStatus = "completed"
	AuditFailed    AuditStatus = "failed"
	AuditFallback  AuditStatus = "fallback"
	AuditExpired   AuditStatus = "expired"
)

// ValidAuditStatuses contains all audit status values.
var ValidAuditStatuses = []AuditStatus{
	AuditStarted,
	AuditApproved,
	AuditRejected,
	AuditCompleted,
	AuditFailed,
	AuditFallback,
	AuditExpired,
}

// IsValidAuditStatus checks if the given status is recognized.
func IsValidAuditStatus(s AuditStatus) bool {
	for _, valid := range ValidAuditStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// auditTransitions is the kernel lifecycle state machine:
//
//	started -> approved | rejected | completed | failed | fallback
//	approved -> completed | failed | fallback
//	rejected -> failed | fallback
//
// completed, failed, fallback and expired are terminal.
var auditTransitions = map[AuditStatus][]AuditStatus{
	AuditStarted:  {AuditApproved, AuditRejected, AuditCompleted, AuditFailed, AuditFallback},
	AuditApproved: {AuditCompleted, AuditFailed, AuditFallback},
	AuditRejected: {AuditFailed, AuditFallback},
}

// IsValidAuditTransition reports whether an entry may move from current to
// next. Terminal statuses allow no further transitions.
func IsValidAuditTransition(current, next AuditStatus) bool {
	for _, allowed := range auditTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// StatusChange records one lifecycle transition of an audit entry.
type StatusChange struct {
	Status    AuditStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// AuditEntry is one append-only record of a kernel decision. The entry is
// created at status "started" and transitions through the lifecycle; the
// full transition history is kept in History.
type AuditEntry struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id"`
	Operation OperationType `json:"operation"`
	Origin    string        `json:"origin"`
	Target    string        `json:"target"`

	Status    AuditStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`

	Details       map[string]interface{} `json:"details,omitempty"`
	BrandAffinity []string               `json:"brand_affinity,omitempty"`
	Lineage       []string               `json:"lineage,omitempty"`

	History []StatusChange `json:"history,omitempty"`
}

// Clone returns a deep copy of the entry for safe hand-out to readers.
func (e *AuditEntry) Clone() *AuditEntry {
	out := *e
	out.BrandAffinity = append([]string(nil), e.BrandAffinity...)
	out.Lineage = append([]string(nil), e.Lineage...)
	out.History = append([]StatusChange(nil), e.History...)
	if e.Details != nil {
		out.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			out.Details[k] = v
		}
	}
	return &out
}
