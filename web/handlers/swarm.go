package handlers

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// swarmAgentNames are the simulated agents shown on the dashboard.
var swarmAgentNames = []string{
	"scout", "archivist", "curator", "sentinel", "broker", "sage",
}

// SwarmHandler serves simulated swarm telemetry for the dashboard. The
// numbers are randomly generated on each request; no real agent fleet
// backs this endpoint.
type SwarmHandler struct {
	rng *rand.Rand
}

// NewSwarmHandler creates a new SwarmHandler.
func NewSwarmHandler() *SwarmHandler {
	return &SwarmHandler{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SwarmAgent is one simulated agent's telemetry snapshot.
type SwarmAgent struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	Load          float64 `json:"load"`
	MemoryOpsPerM int     `json:"memory_ops_per_min"`
	LastHeartbeat string  `json:"last_heartbeat"`
}

// GetSwarm handles GET /api/swarm.
func (h *SwarmHandler) GetSwarm(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	agents := make([]SwarmAgent, 0, len(swarmAgentNames))

	for i, name := range swarmAgentNames {
		status := "active"
		if h.rng.Float64() < 0.1 {
			status = "idle"
		}
		agents = append(agents, SwarmAgent{
			ID:            fmt.Sprintf("agent-%02d", i+1),
			Name:          name,
			Status:        status,
			Load:          h.rng.Float64(),
			MemoryOpsPerM: h.rng.Intn(120),
			LastHeartbeat: now.Add(-time.Duration(h.rng.Intn(30)) * time.Second).Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agents":    agents,
		"generated": now.Format(time.RFC3339),
	})
}
