package handlers

import (
	"net/http"
	"time"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
)

// ActivityHandler serves the /api/activity memory creation time series.
type ActivityHandler struct {
	store *memory.Store
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(store *memory.Store) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// ActivityPoint is a single data point in the activity time series.
type ActivityPoint struct {
	Time  string `json:"time"`  // ISO-8601 timestamp (bucket start)
	Count int    `json:"count"` // Records created in this bucket
}

// ActivityResponse is the JSON response for GET /api/activity.
type ActivityResponse struct {
	Points    []ActivityPoint `json:"points"`
	Range     string          `json:"range"`
	BucketSec int             `json:"bucket_sec"`
}

// GetActivity handles GET /api/activity?range={5min|1hour|24hour|week},
// bucketing record creation counts by an interval suited to the range.
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	rangeParam := r.URL.Query().Get("range")

	var windowDur time.Duration
	var bucketSec int
	switch rangeParam {
	case "5min":
		windowDur = 5 * time.Minute
		bucketSec = 10
	case "1hour":
		windowDur = time.Hour
		bucketSec = 120
	case "week":
		windowDur = 7 * 24 * time.Hour
		bucketSec = 4 * 3600
	default:
		rangeParam = "24hour"
		windowDur = 24 * time.Hour
		bucketSec = 3600
	}

	now := time.Now().UTC()
	since := now.Add(-windowDur)

	counts := make(map[int64]int)
	for _, created := range h.store.CreationTimes(since) {
		bucket := (created.UTC().Unix() / int64(bucketSec)) * int64(bucketSec)
		counts[bucket]++
	}

	respondJSON(w, http.StatusOK, ActivityResponse{
		Points:    generateBuckets(since, now, bucketSec, counts),
		Range:     rangeParam,
		BucketSec: bucketSec,
	})
}

// generateBuckets emits one point per bucket between since and now so
// zero-count periods stay visible on the dashboard.
func generateBuckets(since, now time.Time, bucketSec int, counts map[int64]int) []ActivityPoint {
	startEpoch := (since.Unix() / int64(bucketSec)) * int64(bucketSec)

	var points []ActivityPoint
	for t := startEpoch; t <= now.Unix(); t += int64(bucketSec) {
		points = append(points, ActivityPoint{
			Time:  time.Unix(t, 0).UTC().Format(time.RFC3339),
			Count: counts[t],
		})
	}
	return points
}
