package kernel

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/audit"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/config"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// Handler executes one operation type against the memory core. The result
// is operation-specific; the error triggers the fallback path.
type Handler func(req *types.OperationRequest) (interface{}, error)

// Kernel routes every mutating or sensitive operation: validation,
// approval gating, audited dispatch behind circuit breakers, and degraded
// fallback on failure. Callers above the kernel never see raw errors;
// every outcome arrives as a RouteResult.
type Kernel struct {
	store *memory.Store
	trail *audit.Trail

	mu              sync.RWMutex
	frozen          bool
	defaultAffinity []string
	approvalTimeout time.Duration

	handlers  map[types.OperationType]Handler
	fallbacks map[types.OperationType]Handler
	breakers  map[types.OperationType]*gobreaker.CircuitBreaker

	ledger *approvalLedger

	// Handler working state (see handlers.go).
	logicRevisions map[string]int
	plugins        map[string]bool
	deferred       []map[string]interface{}
	lastQuery      []*types.MemoryRecord

	now func() time.Time
}

// New creates a kernel over the given store and audit trail and registers
// the default operation handlers and fallbacks.
func New(cfg config.KernelConfig, store *memory.Store, trail *audit.Trail) *Kernel {
	return NewWithClock(cfg, store, trail, time.Now)
}

// NewWithClock creates a kernel with an injectable clock for tests.
func NewWithClock(cfg config.KernelConfig, store *memory.Store, trail *audit.Trail, now func() time.Time) *Kernel {
	k := &Kernel{
		store:           store,
		trail:           trail,
		frozen:          cfg.FreezeMode,
		defaultAffinity: append([]string(nil), cfg.DefaultBrandAffinity...),
		approvalTimeout: cfg.ApprovalTimeout,
		handlers:        make(map[types.OperationType]Handler),
		fallbacks:       make(map[types.OperationType]Handler),
		breakers:        make(map[types.OperationType]*gobreaker.CircuitBreaker),
		ledger:          newApprovalLedger(),
		logicRevisions:  make(map[string]int),
		plugins:         make(map[string]bool),
		now:             now,
	}
	k.registerDefaults()
	return k
}

// RegisterHandler installs the primary handler for an operation type and
// provisions its circuit breaker.
func (k *Kernel) RegisterHandler(op types.OperationType, h Handler) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.handlers[op] = h
	k.breakers[op] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: string(op),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		Timeout: 30 * time.Second,
	})
}

// RegisterFallback installs the degraded handler invoked when the primary
// handler fails or approval is rejected.
func (k *Kernel) RegisterFallback(op types.OperationType, h Handler) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fallbacks[op] = h
}

// SetFreezeMode toggles freeze mode. While frozen every routed request
// fails immediately with no approval or dispatch.
func (k *Kernel) SetFreezeMode(frozen bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.frozen = frozen
}

// FreezeMode reports whether the kernel is frozen.
func (k *Kernel) FreezeMode() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.frozen
}

// DefaultBrandAffinity returns the labels applied to requests that carry
// none. The first label is the default brand used by approval rules.
func (k *Kernel) DefaultBrandAffinity() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]string(nil), k.defaultAffinity...)
}

func (k *Kernel) defaultBrand() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(k.defaultAffinity) == 0 {
		return ""
	}
	return k.defaultAffinity[0]
}

// PendingApprovals returns the requests awaiting manual review,
// oldest-first.
func (k *Kernel) PendingApprovals() []PendingApproval {
	return k.ledger.snapshot()
}

// ExpirePending sweeps pending approvals older than the approval timeout,
// appending an expired audit entry for each. Returns the number expired.
func (k *Kernel) ExpirePending(now time.Time) int {
	expired := k.ledger.expire(now, k.approvalTimeout)
	for _, p := range expired {
		req := &types.OperationRequest{
			ID:     p.RequestID,
			Type:   p.Operation,
			Origin: p.Origin,
			Target: "approval-ledger",
		}
		k.trail.Append(req, types.AuditExpired, map[string]interface{}{
			"original_audit_id": p.AuditID,
			"pending_since":     p.CreatedAt,
		})
	}
	return len(expired)
}

// Route is the single entry point for all operations. It walks the request
// through freeze check, validation, approval, dispatch and fallback, and
// always returns a RouteResult carrying the audit entry id and processing
// time.
func (k *Kernel) Route(req *types.OperationRequest) *types.RouteResult {
	start := time.Now()
	res := &types.RouteResult{}
	finish := func() *types.RouteResult {
		res.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000.0
		return res
	}

	if len(req.BrandAffinity) == 0 {
		req.BrandAffinity = k.DefaultBrandAffinity()
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = k.now()
	}

	// Freeze mode rejects before anything else runs; the trail records
	// only the arrival.
	if k.FreezeMode() {
		entry := k.trail.Append(req, types.AuditStarted, map[string]interface{}{"freeze_mode": true})
		res.AuditLogID = entry.ID
		res.Error = (&FreezeModeError{}).Error()
		return finish()
	}

	entry := k.trail.Append(req, types.AuditStarted, nil)
	res.AuditLogID = entry.ID

	if verr := validate(req); verr != nil {
		// Validation failures are fatal: no fallback.
		_ = k.trail.Transition(entry.ID, types.AuditFailed, map[string]interface{}{"error": verr.Error()})
		res.Error = verr.Error()
		return finish()
	}

	if req.RequiresApproval {
		if ShouldAutoApprove(req.Type, req.Priority, req.BrandAffinity, k.defaultBrand()) {
			_ = k.trail.Transition(entry.ID, types.AuditApproved, map[string]interface{}{"auto_approved": true})
		} else {
			k.ledger.add(PendingApproval{
				RequestID: req.ID,
				AuditID:   entry.ID,
				Operation: req.Type,
				Origin:    req.Origin,
				Priority:  req.Priority,
				CreatedAt: k.now(),
			})
			rejection := &ApprovalRejectedError{Operation: req.Type, Priority: req.Priority}
			_ = k.trail.Transition(entry.ID, types.AuditRejected, map[string]interface{}{"reason": rejection.Error()})
			return k.fallbackOrFail(req, entry.ID, rejection, res, finish)
		}
	}

	result, err := k.dispatch(req)
	if err != nil {
		return k.fallbackOrFail(req, entry.ID, err, res, finish)
	}

	_ = k.trail.Transition(entry.ID, types.AuditCompleted, nil)
	res.Success = true
	res.Result = result
	return finish()
}

// dispatch runs the primary handler for the request type behind its
// circuit breaker.
func (k *Kernel) dispatch(req *types.OperationRequest) (interface{}, error) {
	k.mu.RLock()
	handler, ok := k.handlers[req.Type]
	breaker := k.breakers[req.Type]
	k.mu.RUnlock()

	if !ok {
		return nil, &HandlerError{Operation: req.Type, Err: errNoHandler}
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		return handler(req)
	})
	if err != nil {
		return nil, &HandlerError{Operation: req.Type, Err: err}
	}
	return result, nil
}

// fallbackOrFail attempts the registered fallback handler after a
// rejection or dispatch failure, then settles the audit entry.
func (k *Kernel) fallbackOrFail(req *types.OperationRequest, entryID string, cause error, res *types.RouteResult, finish func() *types.RouteResult) *types.RouteResult {
	k.mu.RLock()
	fallback, ok := k.fallbacks[req.Type]
	k.mu.RUnlock()

	if !ok {
		unavailable := &FallbackUnavailableError{Operation: req.Type}
		_ = k.trail.Transition(entryID, types.AuditFailed, map[string]interface{}{
			"error":    cause.Error(),
			"fallback": unavailable.Error(),
		})
		res.Error = cause.Error()
		return finish()
	}

	result, err := fallback(req)
	if err != nil {
		_ = k.trail.Transition(entryID, types.AuditFailed, map[string]interface{}{
			"error":          cause.Error(),
			"fallback_error": err.Error(),
		})
		res.Error = cause.Error()
		return finish()
	}

	_ = k.trail.Transition(entryID, types.AuditFallback, map[string]interface{}{"error": cause.Error()})
	res.Success = true
	res.Result = result
	res.FallbackUsed = true
	return finish()
}

// validate checks the required request fields.
func validate(req *types.OperationRequest) error {
	switch {
	case req.ID == "":
		return &ValidationError{Field: "id"}
	case req.Type == "":
		return &ValidationError{Field: "type"}
	case !types.IsValidOperationType(req.Type):
		return &ValidationError{Field: "type"}
	case req.Origin == "":
		return &ValidationError{Field: "origin"}
	case req.Target == "":
		return &ValidationError{Field: "target"}
	default:
		return nil
	}
}
