package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorResponse is the standard error envelope for API responses.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CreateMemoryRequest is the body for POST /api/memories.
type CreateMemoryRequest struct {
	Content       string                 `json:"content"`
	Category      string                 `json:"category,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ParentID      string                 `json:"parent_id,omitempty"`
	Origin        string                 `json:"origin,omitempty"`
	BrandAffinity []string               `json:"brand_affinity,omitempty"`
	SecurityLevel string                 `json:"security_level,omitempty"`

	Priority         string `json:"priority,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`

	ConfidenceHint float64 `json:"confidence_hint,omitempty"`
	RelevanceHint  float64 `json:"relevance_hint,omitempty"`
}

// UpdateMemoryRequest is the body for PATCH /api/memories/{id}. Nil fields
// are left untouched.
type UpdateMemoryRequest struct {
	Content       *string                `json:"content,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	SecurityLevel *string                `json:"security_level,omitempty"`
	BrandAffinity []string               `json:"brand_affinity,omitempty"`

	Priority         string `json:"priority,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
}

// FreezeRequest is the body for POST /api/kernel/freeze.
type FreezeRequest struct {
	Enabled bool `json:"enabled"`
}

// parseInt parses an integer from a string, returning defaultValue if
// parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// parseFloat parses a float from a string, returning defaultValue if
// parsing fails.
func parseFloat(s string, defaultValue float64) float64 {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing more we can do.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}
