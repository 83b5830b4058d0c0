package memory

import (
	"sort"

	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// enforceCapacity evicts the lowest-relevance members of a pool until its
// population fits the configured capacity. Eviction removes the record
// from the store, purges it from the secondary indexes and drops all of
// its association edges.
//
// Evictions are applied directly rather than routed through the policy
// kernel, so they do not appear in the audit trail. This mirrors the
// upstream behavior; see DESIGN.md for the open question.
//
// Caller must hold the store lock.
func (s *Store) enforceCapacity(pool types.MemoryPool) {
	capacity := s.cfg.LTMCapacity
	if pool == types.PoolSTM {
		capacity = s.cfg.STMCapacity
	}
	if capacity <= 0 {
		return
	}

	members := make([]*types.MemoryRecord, 0)
	for _, rec := range s.records {
		if rec.Pool(s.cfg.PromotionThreshold) == pool {
			members = append(members, rec)
		}
	}
	excess := len(members) - capacity
	if excess <= 0 {
		return
	}

	// Lowest composite relevance goes first.
	sort.Slice(members, func(i, j int) bool {
		ri := relevance(members[i], queryTerms{})
		rj := relevance(members[j], queryTerms{})
		if ri != rj {
			return ri < rj
		}
		return members[i].ID < members[j].ID
	})

	for _, victim := range members[:excess] {
		s.evict(victim)
	}
}

// evict removes a single record and all traces of it from the indexes and
// the association graph. Caller must hold the store lock.
func (s *Store) evict(rec *types.MemoryRecord) {
	s.dropEdges(rec.ID)
	s.idx.remove(rec)
	delete(s.records, rec.ID)
	s.evictions++
}
