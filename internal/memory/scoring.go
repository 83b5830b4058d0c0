// Package memory implements the cognitive memory store: record storage with
// secondary indexes, importance scoring, freshness decay, associative
// linking and capacity-bounded STM/LTM pools.
package memory

import (
	"math"
	"strings"
	"unicode"

	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

const (
	// contentLengthDivisor converts content length into a score bonus.
	contentLengthDivisor = 1000.0

	// contentLengthBonusCap limits how much sheer length can add.
	contentLengthBonusCap = 0.3

	// baseScore is the starting importance before any adjustment.
	baseScore = 0.5

	// autoAssociateThreshold is the minimum content similarity that creates
	// an association edge on insert.
	autoAssociateThreshold = 0.3
)

// ScoreHints carries optional caller-supplied scoring inputs.
// A zero value means the hint was not provided; provided hints must be
// in (0, 1].
type ScoreHints struct {
	Confidence float64
	Relevance  float64
}

// InitialScore computes the static importance of content at creation or
// update time: a base of 0.5 plus a capped length bonus, scaled by the
// category weight and any caller hints. The result is clamped to [0, 1].
func InitialScore(content string, category types.MemoryCategory, hints ScoreHints) float64 {
	score := baseScore + math.Min(float64(len(content))/contentLengthDivisor, contentLengthBonusCap)
	score *= types.CategoryWeight(category)

	if hints.Confidence > 0 {
		score *= clamp(hints.Confidence, 0, 1)
	}
	if hints.Relevance > 0 {
		score *= clamp(hints.Relevance, 0, 1)
	}

	return clamp(score, 0, 1)
}

// wordSet tokenizes content into a lowercase word set.
func wordSet(content string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Similarity returns the word-set Jaccard similarity of two contents,
// in [0, 1]. Two contents with no words at all are considered dissimilar.
func Similarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// novelty returns 1 minus the maximum similarity between content and any
// existing record. This is an O(N * content length) scan and the dominant
// cost of storing a memory; acceptable for the bounded in-process
// population but a scalability ceiling if the store grows.
func (s *Store) novelty(content string) float64 {
	maxSim := 0.0
	for _, rec := range s.records {
		if sim := Similarity(content, rec.Content); sim > maxSim {
			maxSim = sim
		}
	}
	return 1 - maxSim
}

// WisdomGain combines novelty with the category's applicability into the
// record's wisdom score, in [0, 1].
func WisdomGain(novelty float64, category types.MemoryCategory) float64 {
	return clamp(0.5*(novelty+types.CategoryApplicability(category)), 0, 1)
}

// queryTerms holds the pre-tokenized query inputs used for relevance ranking.
type queryTerms struct {
	keywords []string
	tags     []string
}

// relevance computes the composite retrieval score used for both ranking
// query results and choosing eviction victims:
//
//	score*(1-decay) + wisdom*0.2 + ln(accessCount+1)*0.1
//	  + keywordMatchFraction*0.3 + tagMatchFraction*0.2
func relevance(rec *types.MemoryRecord, q queryTerms) float64 {
	r := rec.Score*(1-rec.Decay) +
		rec.WisdomGain*0.2 +
		math.Log(float64(rec.AccessCount)+1)*0.1

	if len(q.keywords) > 0 {
		content := strings.ToLower(rec.Content)
		matched := 0
		for _, kw := range q.keywords {
			if strings.Contains(content, strings.ToLower(kw)) {
				matched++
			}
		}
		r += float64(matched) / float64(len(q.keywords)) * 0.3
	}

	if len(q.tags) > 0 {
		recTags := make(map[string]struct{}, len(rec.Tags))
		for _, t := range rec.Tags {
			recTags[t] = struct{}{}
		}
		matched := 0
		for _, t := range q.tags {
			if _, ok := recTags[t]; ok {
				matched++
			}
		}
		r += float64(matched) / float64(len(q.tags)) * 0.2
	}

	return r
}

// tagOverlap counts how many tags two tag sets share.
func tagOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	return overlap
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
