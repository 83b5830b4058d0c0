package handlers

import (
	"net/http"
	"time"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/audit"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/kernel"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
)

// StatsHandler serves the /api/stats dashboard endpoint.
type StatsHandler struct {
	store   *memory.Store
	trail   *audit.Trail
	kernel  *kernel.Kernel
	started time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store *memory.Store, trail *audit.Trail, k *kernel.Kernel) *StatsHandler {
	return &StatsHandler{
		store:   store,
		trail:   trail,
		kernel:  k,
		started: time.Now(),
	}
}

// StatsResponse is the JSON response for GET /api/stats.
type StatsResponse struct {
	Memory memory.Stats `json:"memory"`

	AuditTotal    int            `json:"audit_total"`
	AuditByStatus map[string]int `json:"audit_by_status"`

	PendingApprovals int  `json:"pending_approvals"`
	DeferredWrites   int  `json:"deferred_writes"`
	FreezeMode       bool `json:"freeze_mode"`

	UptimeSeconds float64 `json:"uptime_seconds"`
}

// GetStats handles GET /api/stats.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	byStatus := make(map[string]int)
	for status, count := range h.trail.CountByStatus() {
		byStatus[string(status)] = count
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Memory:           h.store.Stats(),
		AuditTotal:       h.trail.Len(),
		AuditByStatus:    byStatus,
		PendingApprovals: len(h.kernel.PendingApprovals()),
		DeferredWrites:   h.kernel.DeferredCount(),
		FreezeMode:       h.kernel.FreezeMode(),
		UptimeSeconds:    time.Since(h.started).Seconds(),
	})
}
