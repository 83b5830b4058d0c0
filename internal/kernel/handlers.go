package kernel

import (
	"errors"
	"fmt"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// errNoHandler marks operation types with no registered primary handler.
// MEMORY_DELETE deliberately stays in this state: the type is reserved but
// not implemented.
var errNoHandler = errors.New("no handler registered")

// registerDefaults wires the built-in operation handlers and fallbacks.
func (k *Kernel) registerDefaults() {
	k.RegisterHandler(types.OpMemoryCreate, k.handleMemoryCreate)
	k.RegisterHandler(types.OpMemoryUpdate, k.handleMemoryUpdate)
	k.RegisterHandler(types.OpKernelRoute, k.handleKernelRoute)
	k.RegisterHandler(types.OpLogicUpdate, k.handleLogicUpdate)
	k.RegisterHandler(types.OpBrandSwitch, k.handleBrandSwitch)
	k.RegisterHandler(types.OpSecurityChange, k.handleSecurityChange)
	k.RegisterHandler(types.OpPluginLoad, k.handlePluginLoad)
	k.RegisterHandler(types.OpPluginUnload, k.handlePluginUnload)

	k.RegisterFallback(types.OpMemoryCreate, k.fallbackMemoryCreate)
	k.RegisterFallback(types.OpMemoryUpdate, k.fallbackMemoryUpdate)
	k.RegisterFallback(types.OpKernelRoute, k.fallbackKernelRoute)
}

// handleMemoryCreate stores a new memory record from the request payload.
func (k *Kernel) handleMemoryCreate(req *types.OperationRequest) (interface{}, error) {
	content := payloadString(req.Payload, "content")
	if content == "" {
		return nil, fmt.Errorf("payload missing content")
	}

	category := types.MemoryCategory(payloadString(req.Payload, "category"))
	if category == "" {
		category = types.CategoryContextual
	}

	affinity := payloadStrings(req.Payload, "brand_affinity")
	if len(affinity) == 0 {
		affinity = req.BrandAffinity
	}

	rec, err := k.store.Create(memory.CreateRequest{
		Content:       content,
		Category:      category,
		Tags:          payloadStrings(req.Payload, "tags"),
		Metadata:      payloadMap(req.Payload, "metadata"),
		ParentID:      payloadString(req.Payload, "parent_id"),
		Origin:        req.Origin,
		BrandAffinity: affinity,
		SecurityLevel: types.ParseSecurityLevel(payloadString(req.Payload, "security_level")),
		Confidence:    payloadFloat(req.Payload, "confidence"),
		Relevance:     payloadFloat(req.Payload, "relevance"),
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// handleMemoryUpdate applies a partial update to an existing record.
func (k *Kernel) handleMemoryUpdate(req *types.OperationRequest) (interface{}, error) {
	id := payloadString(req.Payload, "id")
	if id == "" {
		return nil, fmt.Errorf("payload missing id")
	}

	upd := memory.UpdateRequest{
		Metadata:   payloadMap(req.Payload, "metadata"),
		Confidence: payloadFloat(req.Payload, "confidence"),
		Relevance:  payloadFloat(req.Payload, "relevance"),
	}
	if content, ok := req.Payload["content"].(string); ok {
		upd.Content = &content
	}
	if _, ok := req.Payload["tags"]; ok {
		upd.Tags = payloadStrings(req.Payload, "tags")
	}
	if _, ok := req.Payload["brand_affinity"]; ok {
		upd.BrandAffinity = payloadStrings(req.Payload, "brand_affinity")
	}
	if levelStr, ok := req.Payload["security_level"].(string); ok {
		level := types.ParseSecurityLevel(levelStr)
		upd.SecurityLevel = &level
	}

	if !k.store.Update(id, upd) {
		return nil, fmt.Errorf("record %s not found", id)
	}
	rec, _ := k.store.Get(id)
	return rec, nil
}

// handleKernelRoute runs a ranked memory query on behalf of logic modules.
func (k *Kernel) handleKernelRoute(req *types.OperationRequest) (interface{}, error) {
	filter := memory.Filter{
		Tags:           payloadStrings(req.Payload, "tags"),
		Keyword:        payloadString(req.Payload, "keyword"),
		MinScore:       payloadFloat(req.Payload, "min_score"),
		MinWisdom:      payloadFloat(req.Payload, "min_wisdom"),
		BrandAffinity:  payloadStrings(req.Payload, "brand_affinity"),
		SecurityLevel:  types.ParseSecurityLevel(payloadString(req.Payload, "security_level")),
		IncludeDecayed: payloadBool(req.Payload, "include_decayed"),
		MaxResults:     int(payloadFloat(req.Payload, "max_results")),
	}
	for _, c := range payloadStrings(req.Payload, "categories") {
		category := types.MemoryCategory(c)
		if types.IsValidCategory(category) {
			filter.Categories = append(filter.Categories, category)
		}
	}

	results := k.store.Query(filter)

	k.mu.Lock()
	k.lastQuery = results
	k.mu.Unlock()

	return results, nil
}

// handleLogicUpdate bumps the revision of a named logic module.
func (k *Kernel) handleLogicUpdate(req *types.OperationRequest) (interface{}, error) {
	module := payloadString(req.Payload, "module")
	if module == "" {
		return nil, fmt.Errorf("payload missing module")
	}

	k.mu.Lock()
	k.logicRevisions[module]++
	revision := k.logicRevisions[module]
	k.mu.Unlock()

	return map[string]interface{}{"module": module, "revision": revision}, nil
}

// handleBrandSwitch changes the active default brand.
func (k *Kernel) handleBrandSwitch(req *types.OperationRequest) (interface{}, error) {
	brand := payloadString(req.Payload, "brand")
	if brand == "" {
		return nil, fmt.Errorf("payload missing brand")
	}

	k.mu.Lock()
	previous := ""
	if len(k.defaultAffinity) > 0 {
		previous = k.defaultAffinity[0]
	}
	k.defaultAffinity = []string{brand}
	k.mu.Unlock()

	return map[string]interface{}{"brand": brand, "previous": previous}, nil
}

// handleSecurityChange reclassifies a record's security level.
// No fallback is registered for this operation: a degraded responder must
// never loosen or tighten classification.
func (k *Kernel) handleSecurityChange(req *types.OperationRequest) (interface{}, error) {
	id := payloadString(req.Payload, "id")
	levelStr := payloadString(req.Payload, "security_level")
	if id == "" || levelStr == "" {
		return nil, fmt.Errorf("payload missing id or security_level")
	}

	level := types.ParseSecurityLevel(levelStr)
	if !k.store.Update(id, memory.UpdateRequest{SecurityLevel: &level}) {
		return nil, fmt.Errorf("record %s not found", id)
	}
	return map[string]interface{}{"id": id, "security_level": level.String()}, nil
}

// handlePluginLoad marks a plugin active.
func (k *Kernel) handlePluginLoad(req *types.OperationRequest) (interface{}, error) {
	name := payloadString(req.Payload, "plugin")
	if name == "" {
		return nil, fmt.Errorf("payload missing plugin")
	}

	k.mu.Lock()
	k.plugins[name] = true
	k.mu.Unlock()

	return map[string]interface{}{"plugin": name, "loaded": true}, nil
}

// handlePluginUnload marks a plugin inactive.
func (k *Kernel) handlePluginUnload(req *types.OperationRequest) (interface{}, error) {
	name := payloadString(req.Payload, "plugin")
	if name == "" {
		return nil, fmt.Errorf("payload missing plugin")
	}

	k.mu.Lock()
	delete(k.plugins, name)
	k.mu.Unlock()

	return map[string]interface{}{"plugin": name, "loaded": false}, nil
}

// fallbackMemoryCreate defers the create into a holding queue instead of
// storing it, so the caller gets an acknowledgement it can retry on.
func (k *Kernel) fallbackMemoryCreate(req *types.OperationRequest) (interface{}, error) {
	k.mu.Lock()
	k.deferred = append(k.deferred, req.Payload)
	queued := len(k.deferred)
	k.mu.Unlock()

	return map[string]interface{}{"deferred": true, "queue_depth": queued}, nil
}

// fallbackMemoryUpdate defers the update the same way.
func (k *Kernel) fallbackMemoryUpdate(req *types.OperationRequest) (interface{}, error) {
	k.mu.Lock()
	k.deferred = append(k.deferred, req.Payload)
	queued := len(k.deferred)
	k.mu.Unlock()

	return map[string]interface{}{"deferred": true, "queue_depth": queued}, nil
}

// fallbackKernelRoute answers with the most recent successful query result.
// Degraded answers are flagged so callers can tell them from live ones.
func (k *Kernel) fallbackKernelRoute(req *types.OperationRequest) (interface{}, error) {
	k.mu.RLock()
	cached := k.lastQuery
	k.mu.RUnlock()

	if cached == nil {
		cached = []*types.MemoryRecord{}
	}
	return map[string]interface{}{"degraded": true, "results": cached}, nil
}

// DeferredCount reports how many operations the fallbacks have queued.
func (k *Kernel) DeferredCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.deferred)
}

// LoadedPlugins lists the currently active plugin names.
func (k *Kernel) LoadedPlugins() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]string, 0, len(k.plugins))
	for name := range k.plugins {
		out = append(out, name)
	}
	return out
}

// payloadString extracts a string payload field, empty when absent.
func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

// payloadFloat extracts a numeric payload field, zero when absent.
// JSON decoding yields float64; ints from direct callers are accepted too.
func payloadFloat(payload map[string]interface{}, key string) float64 {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// payloadBool extracts a boolean payload field, false when absent.
func payloadBool(payload map[string]interface{}, key string) bool {
	if payload == nil {
		return false
	}
	b, _ := payload[key].(bool)
	return b
}

// payloadStrings extracts a string slice field. Both []string and the
// []interface{} produced by JSON decoding are accepted.
func payloadStrings(payload map[string]interface{}, key string) []string {
	if payload == nil {
		return nil
	}
	switch v := payload[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// payloadMap extracts a nested map payload field, nil when absent.
func payloadMap(payload map[string]interface{}, key string) map[string]interface{} {
	if payload == nil {
		return nil
	}
	m, _ := payload[key].(map[string]interface{})
	return m
}
