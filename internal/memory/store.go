package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/config"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

// ErrNotFound is returned when a referenced record id is absent.
var ErrNotFound = errors.New("memory: record not found")

// ErrInvalidCategory is returned when a create request carries a category
// outside the closed set.
var ErrInvalidCategory = errors.New("memory: invalid category")

// ErrEmptyContent is returned when a create request carries no content.
var ErrEmptyContent = errors.New("memory: content must not be empty")

// Store owns the canonical set of memory records plus the secondary
// indexes and the association graph built over them. All access goes
// through its methods; callers never hold references into internal maps.
type Store struct {
	mu sync.RWMutex

	cfg config.MemoryConfig

	records map[string]*types.MemoryRecord
	idx     *index

	// graph holds weighted bidirectional association edges.
	graph map[string]map[string]float64

	// wisdomTotal is the process-wide wisdom accumulator.
	wisdomTotal float64
	evictions   int

	now func() time.Time
}

// NewStore creates a Store with the given configuration.
func NewStore(cfg config.MemoryConfig) *Store {
	return NewStoreWithClock(cfg, time.Now)
}

// NewStoreWithClock creates a Store with an injectable clock for tests.
func NewStoreWithClock(cfg config.MemoryConfig, now func() time.Time) *Store {
	return &Store{
		cfg:     cfg,
		records: make(map[string]*types.MemoryRecord),
		idx:     newIndex(),
		graph:   make(map[string]map[string]float64),
		now:     now,
	}
}

// CreateRequest carries the inputs for storing a new memory record.
type CreateRequest struct {
	Content  string
	Category types.MemoryCategory
	Tags     []string
	Metadata map[string]interface{}

	// ParentID links the new record into a lineage chain. Must reference
	// an existing record when set.
	ParentID string

	// Origin tags where the record came from (lineage origin).
	Origin string

	BrandAffinity []string
	SecurityLevel types.SecurityLevel

	// Confidence and Relevance are optional scoring hints in (0, 1].
	Confidence float64
	Relevance  float64
}

// Create stores a new record: it scores the content, computes novelty and
// wisdom against the existing population, auto-associates similar records,
// indexes the record and enforces pool capacity. The dominant cost is the
// O(N) similarity scan.
func (s *Store) Create(req CreateRequest) (*types.MemoryRecord, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if !types.IsValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lineage *types.Lineage
	if req.ParentID != "" {
		parent, ok := s.records[req.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %s", ErrNotFound, req.ParentID)
		}
		path := make([]string, 0, 1)
		if parent.Lineage != nil {
			path = append(path, parent.Lineage.DerivationPath...)
		}
		path = append(path, parent.ID)
		generation := 1
		if parent.Lineage != nil {
			generation = parent.Lineage.Generation + 1
		}
		lineage = &types.Lineage{
			ParentID:       req.ParentID,
			Generation:     generation,
			Origin:         req.Origin,
			DerivationPath: path,
		}
	} else if req.Origin != "" {
		lineage = &types.Lineage{Origin: req.Origin}
	}

	now := s.now()
	nov := s.novelty(req.Content)
	wisdom := WisdomGain(nov, req.Category)

	metadata := make(map[string]interface{}, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["version"] = 1

	rec := &types.MemoryRecord{
		ID:             uuid.NewString(),
		Content:        req.Content,
		Category:       req.Category,
		Tags:           append([]string(nil), req.Tags...),
		Score:          InitialScore(req.Content, req.Category, ScoreHints{Confidence: req.Confidence, Relevance: req.Relevance}),
		WisdomGain:     wisdom,
		Lineage:        lineage,
		Metadata:       metadata,
		BrandAffinity:  append([]string(nil), req.BrandAffinity...),
		SecurityLevel:  req.SecurityLevel,
		LastAccessedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.records[rec.ID] = rec
	s.idx.add(rec)
	s.autoAssociate(rec)
	s.wisdomTotal += wisdom

	s.enforceCapacity(rec.Pool(s.cfg.PromotionThreshold))

	// The new record itself may have been the eviction victim.
	stored, ok := s.records[rec.ID]
	if !ok {
		return rec.Clone(), nil
	}
	return stored.Clone(), nil
}

// Get retrieves a record by id. A hit counts as an access: it increments
// the access count and refreshes the last-accessed timestamp, which feeds
// decay resistance.
func (s *Store) Get(id string) (*types.MemoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}

	rec.AccessCount++
	rec.LastAccessedAt = s.now()
	return rec.Clone(), true
}

// UpdateRequest carries partial updates for an existing record.
// Nil pointer fields and nil slices are left unchanged.
type UpdateRequest struct {
	Content       *string
	Tags          []string
	Metadata      map[string]interface{}
	SecurityLevel *types.SecurityLevel
	BrandAffinity []string

	// Confidence and Relevance re-score the record when content changes.
	Confidence float64
	Relevance  float64
}

// Update applies a partial update. When content changes the importance
// score is recomputed; metadata is shallow-merged and its version counter
// incremented. Returns false when the id is absent.
func (s *Store) Update(id string, upd UpdateRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false
	}

	if upd.Content != nil && *upd.Content != rec.Content {
		rec.Content = *upd.Content
		rec.Score = InitialScore(rec.Content, rec.Category, ScoreHints{Confidence: upd.Confidence, Relevance: upd.Relevance})
	}

	if upd.Tags != nil {
		rec.Tags = append([]string(nil), upd.Tags...)
		// Tag index writes are add-only; dropped tags stay indexed and
		// are filtered at query time.
		s.idx.addTags(rec.ID, rec.Tags)
	}

	if upd.SecurityLevel != nil {
		rec.SecurityLevel = *upd.SecurityLevel
	}
	if upd.BrandAffinity != nil {
		rec.BrandAffinity = append([]string(nil), upd.BrandAffinity...)
	}

	if rec.Metadata == nil {
		rec.Metadata = make(map[string]interface{})
	}
	for k, v := range upd.Metadata {
		rec.Metadata[k] = v
	}
	version, _ := rec.Metadata["version"].(int)
	rec.Metadata["version"] = version + 1

	rec.UpdatedAt = s.now()

	// Re-scoring can move the record between pools.
	s.enforceCapacity(types.PoolSTM)
	s.enforceCapacity(types.PoolLTM)

	return true
}

// Filter selects and ranks records for Query.
type Filter struct {
	Categories []types.MemoryCategory
	Tags       []string

	CreatedAfter  time.Time
	CreatedBefore time.Time

	MinScore  float64
	MinWisdom float64

	// BrandAffinity restricts results to records sharing at least one label.
	BrandAffinity []string

	// SecurityLevel is the reader's clearance; records above it are hidden.
	SecurityLevel types.SecurityLevel

	// Keyword matches as a case-insensitive substring of content.
	Keyword string

	// IncludeDecayed includes records whose decay has reached the ceiling.
	IncludeDecayed bool

	MaxResults int
}

// Query returns records matching the filter, ranked by composite relevance
// descending and capped at MaxResults. Every returned record counts as an
// access; retrieval deliberately extends freshness.
func (s *Store) Query(f Filter) []*types.MemoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.candidateIDs(f)
	terms := queryTerms{keywords: strings.Fields(f.Keyword), tags: f.Tags}

	matched := make([]*types.MemoryRecord, 0, len(candidates))
	for id := range candidates {
		rec, ok := s.records[id]
		if !ok {
			// Stale index entry; the record was evicted.
			continue
		}
		if s.matches(rec, f) {
			matched = append(matched, rec)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		ri := relevance(matched[i], terms)
		rj := relevance(matched[j], terms)
		if ri != rj {
			return ri > rj
		}
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	limit := f.MaxResults
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}
	if limit <= 0 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	now := s.now()
	out := make([]*types.MemoryRecord, len(matched))
	for i, rec := range matched {
		rec.AccessCount++
		rec.LastAccessedAt = now
		out[i] = rec.Clone()
	}
	return out
}

// candidateIDs narrows the search space through the secondary indexes when
// the filter names categories or tags; otherwise every record is a candidate.
func (s *Store) candidateIDs(f Filter) map[string]struct{} {
	var byCat, byTag map[string]struct{}
	if len(f.Categories) > 0 {
		byCat = s.idx.idsForCategories(f.Categories)
	}
	if len(f.Tags) > 0 {
		byTag = s.idx.idsForTags(f.Tags)
	}

	switch {
	case byCat != nil && byTag != nil:
		out := make(map[string]struct{})
		for id := range byCat {
			if _, ok := byTag[id]; ok {
				out[id] = struct{}{}
			}
		}
		return out
	case byCat != nil:
		return byCat
	case byTag != nil:
		return byTag
	default:
		out := make(map[string]struct{}, len(s.records))
		for id := range s.records {
			out[id] = struct{}{}
		}
		return out
	}
}

// matches applies the non-index filter predicates to a record.
func (s *Store) matches(rec *types.MemoryRecord, f Filter) bool {
	if !f.SecurityLevel.Allows(rec.SecurityLevel) {
		return false
	}
	if !f.IncludeDecayed && rec.Decay >= s.cfg.MaxDecay {
		return false
	}
	if rec.Score < f.MinScore || rec.WisdomGain < f.MinWisdom {
		return false
	}
	if !f.CreatedAfter.IsZero() && rec.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && rec.CreatedAt.After(f.CreatedBefore) {
		return false
	}
	if len(f.BrandAffinity) > 0 && tagOverlap(f.BrandAffinity, rec.BrandAffinity) == 0 {
		return false
	}
	if f.Keyword != "" && !strings.Contains(strings.ToLower(rec.Content), strings.ToLower(f.Keyword)) {
		return false
	}
	// Tag overlap itself is guaranteed by the index candidate set, but a
	// stale entry may survive a tag rewrite; re-check against live tags.
	if len(f.Tags) > 0 && tagOverlap(f.Tags, rec.Tags) == 0 {
		return false
	}
	return true
}

// Stats summarizes the store for the dashboard.
type Stats struct {
	TotalRecords int `json:"total_records"`
	STMCount     int `json:"stm_count"`
	LTMCount     int `json:"ltm_count"`

	WisdomTotal  float64 `json:"wisdom_total"`
	AverageScore float64 `json:"average_score"`
	Evictions    int     `json:"evictions"`

	CategoryCounts map[types.MemoryCategory]int `json:"category_counts"`
}

// Stats returns a point-in-time snapshot of store population and scoring.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalRecords:   len(s.records),
		WisdomTotal:    s.wisdomTotal,
		Evictions:      s.evictions,
		CategoryCounts: make(map[types.MemoryCategory]int),
	}

	scoreSum := 0.0
	for _, rec := range s.records {
		scoreSum += rec.Score
		st.CategoryCounts[rec.Category]++
		if rec.Pool(s.cfg.PromotionThreshold) == types.PoolSTM {
			st.STMCount++
		} else {
			st.LTMCount++
		}
	}
	if len(s.records) > 0 {
		st.AverageScore = scoreSum / float64(len(s.records))
	}
	return st
}

// CreationTimes returns the creation timestamps of records created at or
// after since, unordered. Used for activity time series; reading them does
// not count as access.
func (s *Store) CreationTimes(since time.Time) []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []time.Time
	for _, rec := range s.records {
		if !rec.CreatedAt.Before(since) {
			out = append(out, rec.CreatedAt)
		}
	}
	return out
}
