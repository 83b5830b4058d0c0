package kernel

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// autoApproveTypes is the fixed low-risk operation set that qualifies for
// auto-approval at routine priorities.
var autoApproveTypes = map[types.OperationType]bool{
	types.OpMemoryCreate: true,
	types.OpLogicUpdate:  true,
	types.OpKernelRoute:  true,
}

// ShouldAutoApprove decides whether a request clears the auto-approval
// rules. It is a pure function of the request's type, priority and brand
// affinity plus the configured default brand:
//
//   - low-risk type at priority <= MEDIUM, or
//   - carrying the default brand at priority <= HIGH.
//
// Everything else requires manual approval, which is not implemented and
// therefore rejects.
func ShouldAutoApprove(opType types.OperationType, priority types.Priority, brandAffinity []string, defaultBrand string) bool {
	if autoApproveTypes[opType] && priority <= types.PriorityMedium {
		return true
	}
	for _, brand := range brandAffinity {
		if brand == defaultBrand && priority <= types.PriorityHigh {
			return true
		}
	}
	return false
}

// PendingApproval is a ledger entry for a request that fell through
// auto-approval and awaits manual review.
type PendingApproval struct {
	RequestID string              `json:"request_id"`
	AuditID   string              `json:"audit_id"`
	Operation types.OperationType `json:"operation"`
	Origin    string              `json:"origin"`
	Priority  types.Priority      `json:"priority"`
	CreatedAt time.Time           `json:"created_at"`
}

// approvalLedger tracks pending manual approvals. Entries that outlive the
// approval timeout are swept to expired by the ExpirySweeper.
type approvalLedger struct {
	mu      sync.Mutex
	pending map[string]PendingApproval
}

func newApprovalLedger() *approvalLedger {
	return &approvalLedger{pending: make(map[string]PendingApproval)}
}

func (l *approvalLedger) add(p PendingApproval) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[p.RequestID] = p
}

// snapshot returns the pending entries sorted oldest-first.
func (l *approvalLedger) snapshot() []PendingApproval {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]PendingApproval, 0, len(l.pending))
	for _, p := range l.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// expire removes and returns every entry pending longer than timeout.
func (l *approvalLedger) expire(now time.Time, timeout time.Duration) []PendingApproval {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []PendingApproval
	for id, p := range l.pending {
		if now.Sub(p.CreatedAt) >= timeout {
			expired = append(expired, p)
			delete(l.pending, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	return expired
}

// ExpirySweeper periodically expires stale pending approvals, with an
// explicit start/stop lifecycle like the decay sweeper.
type ExpirySweeper struct {
	kernel   *Kernel
	interval time.Duration
	done     chan struct{}
}

// NewExpirySweeper creates a sweeper over the kernel's pending approvals.
// A non-positive interval falls back to one minute.
func NewExpirySweeper(k *Kernel, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		kernel:   k,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called. It blocks; run it in a goroutine.
func (e *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case now := <-ticker.C:
			if expired := e.kernel.ExpirePending(now); expired > 0 {
				log.Printf("approval sweep expired %d pending requests", expired)
			}
		}
	}
}

// Stop terminates the sweep loop. Safe to call once.
func (e *ExpirySweeper) Stop() {
	close(e.done)
}
