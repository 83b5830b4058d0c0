// Package handlers provides the HTTP handlers and middleware for the JRVI
// dashboard API. All mutating memory operations are submitted to the policy
// kernel; only plain reads talk to the store directly.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/kernel"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// MemoryHandlers contains the REST handlers for memory records.
type MemoryHandlers struct {
	kernel *kernel.Kernel
	store  *memory.Store
}

// NewMemoryHandlers creates a new MemoryHandlers instance.
func NewMemoryHandlers(k *kernel.Kernel, store *memory.Store) *MemoryHandlers {
	return &MemoryHandlers{kernel: k, store: store}
}

// CreateMemory handles POST /api/memories. The create is routed through the
// kernel as a MEMORY_CREATE operation and the RouteResult is returned as-is.
func (h *MemoryHandlers) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	payload := map[string]interface{}{
		"content": req.Content,
	}
	if req.Category != "" {
		payload["category"] = req.Category
	}
	if len(req.Tags) > 0 {
		payload["tags"] = req.Tags
	}
	if req.Metadata != nil {
		payload["metadata"] = req.Metadata
	}
	if req.ParentID != "" {
		payload["parent_id"] = req.ParentID
	}
	if req.SecurityLevel != "" {
		payload["security_level"] = req.SecurityLevel
	}
	if req.ConfidenceHint != 0 {
		payload["confidence"] = req.ConfidenceHint
	}
	if req.RelevanceHint != 0 {
		payload["relevance"] = req.RelevanceHint
	}

	origin := req.Origin
	if origin == "" {
		origin = "api"
	}

	res := h.kernel.Route(&types.OperationRequest{
		ID:               uuid.New().String(),
		Type:             types.OpMemoryCreate,
		Origin:           origin,
		Target:           "memory-core",
		Priority:         types.ParsePriority(req.Priority),
		Payload:          payload,
		RequiresApproval: req.RequiresApproval,
		BrandAffinity:    req.BrandAffinity,
	})

	if !res.Success {
		respondJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// GetMemory handles GET /api/memories/{id}. Reads bypass the kernel but
// still refresh the record's access stats.
func (h *MemoryHandlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "memory ID is required", nil)
		return
	}

	rec, ok := h.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "memory not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// GetAssociations handles GET /api/memories/{id}/associations.
func (h *MemoryHandlers) GetAssociations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	neighbors, ok := h.store.Neighbors(id)
	if !ok {
		respondError(w, http.StatusNotFound, "memory not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":           id,
		"associations": neighbors,
	})
}

// UpdateMemory handles PATCH /api/memories/{id} via a MEMORY_UPDATE
// operation.
func (h *MemoryHandlers) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "memory ID is required", nil)
		return
	}

	var req UpdateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	payload := map[string]interface{}{"id": id}
	if req.Content != nil {
		payload["content"] = *req.Content
	}
	if len(req.Tags) > 0 {
		payload["tags"] = req.Tags
	}
	if req.Metadata != nil {
		payload["metadata"] = req.Metadata
	}
	if req.SecurityLevel != nil {
		payload["security_level"] = *req.SecurityLevel
	}
	if len(req.BrandAffinity) > 0 {
		payload["brand_affinity"] = req.BrandAffinity
	}

	res := h.kernel.Route(&types.OperationRequest{
		ID:               uuid.New().String(),
		Type:             types.OpMemoryUpdate,
		Origin:           "api",
		Target:           "memory-core",
		Priority:         types.ParsePriority(req.Priority),
		Payload:          payload,
		RequiresApproval: req.RequiresApproval,
	})

	if !res.Success {
		respondJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// DeleteMemory handles DELETE /api/memories/{id}. Deletion has no
// registered handler, so the kernel records the attempt and fails it; the
// endpoint surfaces that as 501.
func (h *MemoryHandlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.kernel.Route(&types.OperationRequest{
		ID:      uuid.New().String(),
		Type:    types.OpMemoryDelete,
		Origin:  "api",
		Target:  "memory-core",
		Payload: map[string]interface{}{"id": id},
	})
	respondJSON(w, http.StatusNotImplemented, res)
}

// QueryMemories handles GET /api/memories. Query parameters are packed into
// a KERNEL_ROUTE operation so lookups share the kernel's audit and fallback
// path with every other consumer.
func (h *MemoryHandlers) QueryMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	payload := map[string]interface{}{}
	if v := q.Get("keyword"); v != "" {
		payload["keyword"] = v
	}
	if v := q["tag"]; len(v) > 0 {
		payload["tags"] = toInterfaces(v)
	}
	if v := q["category"]; len(v) > 0 {
		payload["categories"] = toInterfaces(v)
	}
	if v := q["brand"]; len(v) > 0 {
		payload["brand_affinity"] = toInterfaces(v)
	}
	if v := q.Get("security_level"); v != "" {
		payload["security_level"] = v
	}
	if v := parseFloat(q.Get("min_score"), 0); v > 0 {
		payload["min_score"] = v
	}
	if v := parseFloat(q.Get("min_wisdom"), 0); v > 0 {
		payload["min_wisdom"] = v
	}
	if v := parseInt(q.Get("limit"), 0); v > 0 {
		payload["max_results"] = float64(v)
	}
	if q.Get("include_decayed") == "true" {
		payload["include_decayed"] = true
	}

	res := h.kernel.Route(&types.OperationRequest{
		ID:          uuid.New().String(),
		Type:        types.OpKernelRoute,
		Origin:      "api",
		Target:      "memory-core",
		Payload:     payload,
		SubmittedAt: time.Now().UTC(),
	})

	if !res.Success {
		respondJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// toInterfaces converts a string slice to the []interface{} shape payload
// readers expect from decoded JSON.
func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
