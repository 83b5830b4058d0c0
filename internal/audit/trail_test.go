package audit_test

import (
	"testing"
	"time"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/audit"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

func sampleRequest(op types.OperationType, origin string) *types.OperationRequest {
	return &types.OperationRequest{
		ID:            "req-" + origin,
		Type:          op,
		Origin:        origin,
		Target:        "memory-core",
		BrandAffinity: []string{"JRVI"},
	}
}

func TestAppendAndTransition(t *testing.T) {
	trail := audit.NewTrail()

	entry := trail.Append(sampleRequest(types.OpMemoryCreate, "api"), types.AuditStarted, nil)
	if entry.ID == "" {
		t.Fatal("expected a generated entry id")
	}
	if entry.Status != types.AuditStarted {
		t.Fatalf("expected started status, got %s", entry.Status)
	}

	if err := trail.Transition(entry.ID, types.AuditApproved, map[string]interface{}{"auto": true}); err != nil {
		t.Fatalf("transition to approved failed: %v", err)
	}
	if err := trail.Transition(entry.ID, types.AuditCompleted, nil); err != nil {
		t.Fatalf("transition to completed failed: %v", err)
	}

	got, ok := trail.Get(entry.ID)
	if !ok {
		t.Fatal("entry should be retrievable")
	}
	if got.Status != types.AuditCompleted {
		t.Errorf("final status = %s, want completed", got.Status)
	}
	if got.Details["auto"] != true {
		t.Error("transition details should be merged into the entry")
	}

	wantHistory := []types.AuditStatus{types.AuditStarted, types.AuditApproved, types.AuditCompleted}
	if len(got.History) != len(wantHistory) {
		t.Fatalf("history length = %d, want %d", len(got.History), len(wantHistory))
	}
	for i, status := range wantHistory {
		if got.History[i].Status != status {
			t.Errorf("history[%d] = %s, want %s", i, got.History[i].Status, status)
		}
	}
}

func TestTransitionRejectsInvalidMoves(t *testing.T) {
	trail := audit.NewTrail()

	entry := trail.Append(sampleRequest(types.OpMemoryCreate, "api"), types.AuditStarted, nil)
	if err := trail.Transition(entry.ID, types.AuditCompleted, nil); err != nil {
		t.Fatalf("started -> completed should be allowed: %v", err)
	}

	if err := trail.Transition(entry.ID, types.AuditApproved, nil); err == nil {
		t.Error("completed is terminal; transition should fail")
	}
	if err := trail.Transition("no-such-entry", types.AuditFailed, nil); err == nil {
		t.Error("unknown id should fail")
	}

	// The failed transition must not corrupt the entry.
	got, _ := trail.Get(entry.ID)
	if got.Status != types.AuditCompleted {
		t.Errorf("status changed by invalid transition: %s", got.Status)
	}
}

func TestQueryNewestFirstWithFilters(t *testing.T) {
	trail := audit.NewTrail()

	trail.Append(sampleRequest(types.OpMemoryCreate, "api"), types.AuditStarted, nil)
	trail.Append(sampleRequest(types.OpLogicUpdate, "scheduler"), types.AuditStarted, nil)
	trail.Append(sampleRequest(types.OpMemoryCreate, "importer"), types.AuditStarted, nil)

	all := trail.Query(audit.QueryOptions{})
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	// Newest first: the importer entry was appended last.
	if all[0].Origin != "importer" {
		t.Errorf("expected newest entry first, got origin %s", all[0].Origin)
	}
	if all[0].ID <= all[2].ID {
		t.Error("ULID ids should sort with insertion order")
	}

	byOp := trail.Query(audit.QueryOptions{Operation: types.OpMemoryCreate})
	if len(byOp) != 2 {
		t.Errorf("operation filter: expected 2 entries, got %d", len(byOp))
	}

	byOrigin := trail.Query(audit.QueryOptions{Origin: "scheduler"})
	if len(byOrigin) != 1 || byOrigin[0].Operation != types.OpLogicUpdate {
		t.Errorf("origin filter returned wrong entries: %v", byOrigin)
	}

	limited := trail.Query(audit.QueryOptions{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d entries", len(limited))
	}
}

func TestQueryTimeRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	trail := audit.NewTrailWithClock(func() time.Time { return current })

	trail.Append(sampleRequest(types.OpMemoryCreate, "early"), types.AuditStarted, nil)
	current = base.Add(time.Hour)
	trail.Append(sampleRequest(types.OpMemoryCreate, "late"), types.AuditStarted, nil)

	recent := trail.Query(audit.QueryOptions{Since: base.Add(30 * time.Minute)})
	if len(recent) != 1 || recent[0].Origin != "late" {
		t.Errorf("time range filter returned %v", recent)
	}

	old := trail.Query(audit.QueryOptions{Until: base.Add(30 * time.Minute)})
	if len(old) != 1 || old[0].Origin != "early" {
		t.Errorf("until filter returned %v", old)
	}
}

func TestCountByStatus(t *testing.T) {
	trail := audit.NewTrail()

	a := trail.Append(sampleRequest(types.OpMemoryCreate, "api"), types.AuditStarted, nil)
	trail.Transition(a.ID, types.AuditCompleted, nil)
	trail.Append(sampleRequest(types.OpMemoryUpdate, "api"), types.AuditStarted, nil)

	counts := trail.CountByStatus()
	if counts[types.AuditCompleted] != 1 || counts[types.AuditStarted] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestSubscribeReceivesLifecycleEvents(t *testing.T) {
	trail := audit.NewTrail()

	var events []types.AuditStatus
	trail.Subscribe(func(entry types.AuditEntry) {
		events = append(events, entry.Status)
	})

	entry := trail.Append(sampleRequest(types.OpMemoryCreate, "api"), types.AuditStarted, nil)
	trail.Transition(entry.ID, types.AuditApproved, nil)
	trail.Transition(entry.ID, types.AuditCompleted, nil)

	want := []types.AuditStatus{types.AuditStarted, types.AuditApproved, types.AuditCompleted}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, status := range want {
		if events[i] != status {
			t.Errorf("event[%d] = %s, want %s", i, events[i], status)
		}
	}
}

func TestListenerGetsCopyNotReference(t *testing.T) {
	trail := audit.NewTrail()

	var captured types.AuditEntry
	trail.Subscribe(func(entry types.AuditEntry) { captured = entry })

	entry := trail.Append(sampleRequest(types.OpMemoryCreate, "api"), types.AuditStarted, map[string]interface{}{"k": "v"})
	captured.Details["k"] = "mutated"

	got, _ := trail.Get(entry.ID)
	if got.Details["k"] != "v" {
		t.Error("listener mutation leaked into the trail")
	}
}
