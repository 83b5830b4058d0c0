package memory

import (
	"sort"

	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// autoAssociate links a freshly inserted record to every existing record
// whose content similarity reaches the threshold or whose tags overlap.
// Association is a side effect of insertion, O(N) like the novelty scan.
// Caller must hold the store lock.
func (s *Store) autoAssociate(rec *types.MemoryRecord) {
	for _, other := range s.records {
		if other.ID == rec.ID {
			continue
		}
		if Similarity(rec.Content, other.Content) >= autoAssociateThreshold || tagOverlap(rec.Tags, other.Tags) > 0 {
			s.addEdge(rec.ID, other.ID, 1.0)
		}
	}
}

// Associate creates a bidirectional association edge between two records.
// A non-positive weight defaults to 1.0. Returns false when either id is
// absent or both ids are the same.
func (s *Store) Associate(idA, idB string, weight float64) bool {
	if idA == idB {
		return false
	}
	if weight <= 0 {
		weight = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[idA]; !ok {
		return false
	}
	if _, ok := s.records[idB]; !ok {
		return false
	}

	s.addEdge(idA, idB, weight)
	return true
}

// Neighbors returns the sorted ids associated with the given record.
// The empty slice distinguishes "no neighbors" from "no such record" only
// through the bool.
func (s *Store) Neighbors(id string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[id]; !ok {
		return nil, false
	}

	edges := s.graph[id]
	out := make([]string, 0, len(edges))
	for neighbor := range edges {
		out = append(out, neighbor)
	}
	sort.Strings(out)
	return out, true
}

// addEdge inserts a symmetric edge and mirrors it into both records'
// association lists. Caller must hold the store lock.
func (s *Store) addEdge(idA, idB string, weight float64) {
	if s.graph[idA] == nil {
		s.graph[idA] = make(map[string]float64)
	}
	if s.graph[idB] == nil {
		s.graph[idB] = make(map[string]float64)
	}
	s.graph[idA][idB] = weight
	s.graph[idB][idA] = weight

	recA := s.records[idA]
	recB := s.records[idB]
	recA.Associations = appendIfAbsent(recA.Associations, idB)
	recB.Associations = appendIfAbsent(recB.Associations, idA)
}

// dropEdges removes every edge touching id and purges id from its
// neighbors' association lists. Caller must hold the store lock.
func (s *Store) dropEdges(id string) {
	for neighbor := range s.graph[id] {
		delete(s.graph[neighbor], id)
		if len(s.graph[neighbor]) == 0 {
			delete(s.graph, neighbor)
		}
		if rec, ok := s.records[neighbor]; ok {
			rec.Associations = removeString(rec.Associations, id)
		}
	}
	delete(s.graph, id)
}

func appendIfAbsent(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}
