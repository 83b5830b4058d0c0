package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/kernel"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// KernelHandlers exposes the policy kernel's control surface: raw operation
// routing, freeze mode, and the pending approval ledger.
type KernelHandlers struct {
	kernel *kernel.Kernel
}

// NewKernelHandlers creates a new KernelHandlers instance.
func NewKernelHandlers(k *kernel.Kernel) *KernelHandlers {
	return &KernelHandlers{kernel: k}
}

// RouteOperation handles POST /api/kernel/route. The body is a full
// operation request; logic modules use this to reach the kernel directly.
func (h *KernelHandlers) RouteOperation(w http.ResponseWriter, r *http.Request) {
	var req types.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	res := h.kernel.Route(&req)
	if !res.Success {
		respondJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetFreeze handles GET /api/kernel/freeze.
func (h *KernelHandlers) GetFreeze(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{
		"freeze_mode": h.kernel.FreezeMode(),
	})
}

// SetFreeze handles POST /api/kernel/freeze.
func (h *KernelHandlers) SetFreeze(w http.ResponseWriter, r *http.Request) {
	var req FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	h.kernel.SetFreezeMode(req.Enabled)
	respondJSON(w, http.StatusOK, map[string]bool{
		"freeze_mode": h.kernel.FreezeMode(),
	})
}

// ListApprovals handles GET /api/kernel/approvals, returning requests
// awaiting manual review oldest-first.
func (h *KernelHandlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	pending := h.kernel.PendingApprovals()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
		"count":   len(pending),
	})
}
