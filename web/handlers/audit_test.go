package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAudit(t *testing.T) {
	router, _ := newTestRouter(t)
	createMemory(t, router, "first audited record")
	createMemory(t, router, "second audited record")

	w := doJSON(t, router, http.MethodGet, "/api/audit", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Entries []struct {
			ID        string `json:"id"`
			Operation string `json:"operation"`
			Status    string `json:"status"`
		} `json:"entries"`
		Count int `json:"count"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 2, res.Total)
	for _, e := range res.Entries {
		assert.Equal(t, "MEMORY_CREATE", e.Operation)
		assert.Equal(t, "completed", e.Status)
	}
}

func TestListAudit_FilterAndLimit(t *testing.T) {
	router, _ := newTestRouter(t)
	createMemory(t, router, "one")
	createMemory(t, router, "two")
	createMemory(t, router, "three")

	w := doJSON(t, router, http.MethodGet, "/api/audit?operation=MEMORY_CREATE&limit=2", nil)
	var res struct {
		Count int `json:"count"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 3, res.Total)

	w = doJSON(t, router, http.MethodGet, "/api/audit?operation=BRAND_SWITCH", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 0, res.Count)
}

func TestListAudit_BadTimestamp(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/audit?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAuditEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/memories", map[string]interface{}{
		"content":           "trace me through the trail",
		"requires_approval": true,
	})
	var created struct {
		AuditLogID string `json:"audit_log_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.AuditLogID)

	w = doJSON(t, router, http.MethodGet, "/api/audit/"+created.AuditLogID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var entry struct {
		ID      string `json:"id"`
		History []struct {
			Status string `json:"status"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, created.AuditLogID, entry.ID)
	assert.Len(t, entry.History, 3) // started, approved, completed
}

func TestGetAuditEntry_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/audit/01ZZZZZZZZZZZZZZZZZZZZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
