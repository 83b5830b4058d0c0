package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/audit"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// AuditHandlers serves read-only views of the audit trail.
type AuditHandlers struct {
	trail *audit.Trail
}

// NewAuditHandlers creates a new AuditHandlers instance.
func NewAuditHandlers(trail *audit.Trail) *AuditHandlers {
	return &AuditHandlers{trail: trail}
}

// ListAudit handles GET /api/audit. Supported query parameters: operation,
// origin, since, until (RFC3339) and limit. Entries come back newest-first.
func (h *AuditHandlers) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := audit.QueryOptions{
		Operation: types.OperationType(q.Get("operation")),
		Origin:    q.Get("origin"),
		Limit:     parseInt(q.Get("limit"), 0),
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since timestamp", err)
			return
		}
		opts.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid until timestamp", err)
			return
		}
		opts.Until = t
	}

	entries := h.trail.Query(opts)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
		"total":   h.trail.Len(),
	})
}

// GetAudit handles GET /api/audit/{id}.
func (h *AuditHandlers) GetAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := h.trail.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "audit entry not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
