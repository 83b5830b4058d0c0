// Package audit provides the append-only trail of policy kernel decisions.
// Every routed request produces one entry that transitions through the
// kernel lifecycle; the trail keeps the full transition history and is
// queryable by operation, origin and time range.
package audit

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// Listener receives a copy of an entry after every append or transition.
// Listeners must not block; the trail calls them synchronously under no lock.
type Listener func(entry types.AuditEntry)

// Trail is the in-process append-only audit log. Entries are identified by
// ULIDs, so id order is creation order.
type Trail struct {
	mu      sync.RWMutex
	entries []*types.AuditEntry
	byID    map[string]*types.AuditEntry

	entropy *ulid.MonotonicEntropy

	listenersMu sync.RWMutex
	listeners   []Listener

	now func() time.Time
}

// NewTrail creates an empty audit trail.
func NewTrail() *Trail {
	return NewTrailWithClock(time.Now)
}

// NewTrailWithClock creates a trail with an injectable clock for tests.
func NewTrailWithClock(now func() time.Time) *Trail {
	return &Trail{
		byID:    make(map[string]*types.AuditEntry),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     now,
	}
}

// Append records a new entry for a request at the given status and returns
// a copy of it.
func (t *Trail) Append(req *types.OperationRequest, status types.AuditStatus, details map[string]interface{}) *types.AuditEntry {
	now := t.now()

	t.mu.Lock()
	entry := &types.AuditEntry{
		ID:            ulid.MustNew(ulid.Timestamp(now), t.entropy).String(),
		RequestID:     req.ID,
		Operation:     req.Type,
		Origin:        req.Origin,
		Target:        req.Target,
		Status:        status,
		Timestamp:     now,
		Details:       details,
		BrandAffinity: append([]string(nil), req.BrandAffinity...),
		Lineage:       append([]string(nil), req.Lineage...),
		History:       []types.StatusChange{{Status: status, Timestamp: now}},
	}
	t.entries = append(t.entries, entry)
	t.byID[entry.ID] = entry
	out := entry.Clone()
	t.mu.Unlock()

	t.notify(out)
	return out
}

// Transition moves an entry to a new lifecycle status, recording the change
// in its history and merging any extra details. Invalid transitions and
// unknown ids return an error and leave the entry untouched.
func (t *Trail) Transition(id string, status types.AuditStatus, details map[string]interface{}) error {
	t.mu.Lock()
	entry, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("audit: entry %s not found", id)
	}
	if !types.IsValidAuditTransition(entry.Status, status) {
		current := entry.Status
		t.mu.Unlock()
		return fmt.Errorf("audit: invalid transition %s -> %s for entry %s", current, status, id)
	}

	entry.Status = status
	entry.History = append(entry.History, types.StatusChange{Status: status, Timestamp: t.now()})
	if len(details) > 0 {
		if entry.Details == nil {
			entry.Details = make(map[string]interface{}, len(details))
		}
		for k, v := range details {
			entry.Details[k] = v
		}
	}
	out := entry.Clone()
	t.mu.Unlock()

	t.notify(out)
	return nil
}

// Get returns a copy of the entry with the given id.
func (t *Trail) Get(id string) (*types.AuditEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// QueryOptions filters audit trail queries. Zero values mean "no filter".
type QueryOptions struct {
	Operation types.OperationType
	Origin    string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Query returns matching entries sorted newest-first. A non-positive limit
// defaults to 100.
func (t *Trail) Query(opts QueryOptions) []*types.AuditEntry {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*types.AuditEntry, 0, limit)
	// Entries are appended in time order; walk backwards for newest-first.
	for i := len(t.entries) - 1; i >= 0 && len(out) < limit; i-- {
		entry := t.entries[i]
		if opts.Operation != "" && entry.Operation != opts.Operation {
			continue
		}
		if opts.Origin != "" && entry.Origin != opts.Origin {
			continue
		}
		if !opts.Since.IsZero() && entry.Timestamp.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && entry.Timestamp.After(opts.Until) {
			continue
		}
		out = append(out, entry.Clone())
	}
	return out
}

// Len returns the total number of entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// CountByStatus tallies entries per lifecycle status for the dashboard.
func (t *Trail) CountByStatus() map[types.AuditStatus]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[types.AuditStatus]int)
	for _, entry := range t.entries {
		out[entry.Status]++
	}
	return out
}

// Subscribe registers a listener for entry appends and transitions.
func (t *Trail) Subscribe(l Listener) {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	t.listeners = append(t.listeners, l)
}

func (t *Trail) notify(entry *types.AuditEntry) {
	t.listenersMu.RLock()
	defer t.listenersMu.RUnlock()
	for _, l := range t.listeners {
		l(*entry)
	}
}
