// Package types defines the shared data model for the JRVI cognitive memory
// core: memory records, operation requests routed through the policy kernel,
// and audit trail entries.
package types

import "time"

// MemoryCategory classifies a memory record. The set is closed; records with
// an unknown category are rejected at creation time.
type MemoryCategory string

const (
	CategoryFactual    MemoryCategory = "factual"
	CategoryProcedural MemoryCategory = "procedural"
	CategoryEpisodic   MemoryCategory = "episodic"
	CategorySemantic   MemoryCategory = "semantic"
	CategoryEmotional  MemoryCategory = "emotional"
	CategoryContextual MemoryCategory = "contextual"
)

// ValidCategories contains all valid memory category values.
var ValidCategories = []MemoryCategory{
	CategoryFactual,
	CategoryProcedural,
	CategoryEpisodic,
	CategorySemantic,
	CategoryEmotional,
	CategoryContextual,
}

// IsValidCategory checks if the given category is a member of the closed set.
func IsValidCategory(c MemoryCategory) bool {
	for _, valid := range ValidCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// categoryWeights scale the initial importance score by category.
// Procedural knowledge is weighted highest, emotional lowest.
var categoryWeights = map[MemoryCategory]float64{
	CategoryProcedural: 0.9,
	CategoryFactual:    0.8,
	CategorySemantic:   0.7,
	CategoryContextual: 0.6,
	CategoryEpisodic:   0.6,
	CategoryEmotional:  0.5,
}

// CategoryWeight returns the importance weight for a category.
// Unknown categories get the lowest weight rather than an error so that
// scoring stays total.
func CategoryWeight(c MemoryCategory) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return 0.5
}

// categoryApplicability measures how broadly knowledge in a category
// transfers to other contexts. It is one of the two inputs to wisdom gain.
var categoryApplicability = map[MemoryCategory]float64{
	CategorySemantic:   0.9,
	CategoryFactual:    0.85,
	CategoryProcedural: 0.8,
	CategoryContextual: 0.65,
	CategoryEpisodic:   0.55,
	CategoryEmotional:  0.45,
}

// CategoryApplicability returns the applicability factor for a category.
func CategoryApplicability(c MemoryCategory) float64 {
	if a, ok := categoryApplicability[c]; ok {
		return a
	}
	return 0.5
}

// SecurityLevel is an ordered classification for memory records.
// A query at level L may see records at levels <= L.
type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota
	SecurityPrivate
	SecurityConfidential
	SecurityRestricted
)

// String returns the lowercase name of the security level.
func (s SecurityLevel) String() string {
	switch s {
	case SecurityPublic:
		return "public"
	case SecurityPrivate:
		return "private"
	case SecurityConfidential:
		return "confidential"
	case SecurityRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// ParseSecurityLevel converts a string into a SecurityLevel.
// Unknown strings map to SecurityPublic, the most restrictive default for
// a reader (it can only see public records).
func ParseSecurityLevel(s string) SecurityLevel {
	switch s {
	case "private":
		return SecurityPrivate
	case "confidential":
		return SecurityConfidential
	case "restricted":
		return SecurityRestricted
	default:
		return SecurityPublic
	}
}

// Allows reports whether a reader at level s may see a record at level rec.
func (s SecurityLevel) Allows(rec SecurityLevel) bool {
	return rec <= s
}

// MemoryPool identifies which capacity-bounded pool a record belongs to.
type MemoryPool string

const (
	// PoolSTM is short-term memory: low-importance records, small capacity.
	PoolSTM MemoryPool = "stm"
	// PoolLTM is long-term memory: records promoted by importance score.
	PoolLTM MemoryPool = "ltm"
)

// Lineage tracks the derivation chain of a record, independent of
// association edges.
type Lineage struct {
	// ParentID is the id of the record this one was derived from.
	ParentID string `json:"parent_id,omitempty"`

	// Generation is the parent's generation + 1, or 0 for roots.
	Generation int `json:"generation"`

	// Origin tags where the derivation came from (e.g. "manual", "logic").
	Origin string `json:"origin,omitempty"`

	// DerivationPath is the ordered list of ancestor ids, oldest first.
	DerivationPath []string `json:"derivation_path,omitempty"`
}

// MemoryRecord is the atomic unit of storage in the cognitive memory core.
// Records live entirely in process memory; durable storage is a planned
// later integration.
type MemoryRecord struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Category MemoryCategory `json:"category"`
	Tags     []string       `json:"tags,omitempty"`

	// Score is the static importance computed at creation/update, in [0,1].
	Score float64 `json:"score"`

	// Decay is the accumulated freshness penalty, in [0, maxDecay].
	// It only decreases through access-driven reduction.
	Decay float64 `json:"decay"`

	// WisdomGain rewards novel, broadly applicable content, in [0,1].
	// It protects the record against decay.
	WisdomGain float64 `json:"wisdom_gain"`

	Lineage      *Lineage `json:"lineage,omitempty"`
	Associations []string `json:"associations,omitempty"`

	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	BrandAffinity []string               `json:"brand_affinity,omitempty"`
	SecurityLevel SecurityLevel          `json:"security_level"`

	AccessCount    int       `json:"access_count"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Pool derives the record's pool from its score and the promotion threshold.
// Pool membership is never stored; it always follows the current score.
func (m *MemoryRecord) Pool(promotionThreshold float64) MemoryPool {
	if m.Score >= promotionThreshold {
		return PoolLTM
	}
	return PoolSTM
}

// Clone returns a deep copy of the record so callers never hold references
// into store-owned state.
func (m *MemoryRecord) Clone() *MemoryRecord {
	out := *m
	out.Tags = append([]string(nil), m.Tags...)
	out.Associations = append([]string(nil), m.Associations...)
	out.BrandAffinity = append([]string(nil), m.BrandAffinity...)
	if m.Lineage != nil {
		lin := *m.Lineage
		lin.DerivationPath = append([]string(nil), m.Lineage.DerivationPath...)
		out.Lineage = &lin
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
