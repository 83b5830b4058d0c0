package memory_test

import (
	"math"
	"strings"
	"testing"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
)

const epsilon = 1e-9

// TestInitialScoreProceduralLongContent pins the scoring arithmetic: 1200
// characters of procedural content at full confidence and relevance scores
// min(0.5+0.3, 1) * 0.9 * 1 * 1 = 0.72.
func TestInitialScoreProceduralLongContent(t *testing.T) {
	content := strings.Repeat("a", 1200)

	score := memory.InitialScore(content, types.CategoryProcedural, memory.ScoreHints{
		Confidence: 1.0,
		Relevance:  1.0,
	})

	if math.Abs(score-0.72) > epsilon {
		t.Errorf("expected score 0.72, got %v", score)
	}
}

func TestInitialScoreLengthBonusCapped(t *testing.T) {
	short := memory.InitialScore(strings.Repeat("a", 100), types.CategoryFactual, memory.ScoreHints{})
	long := memory.InitialScore(strings.Repeat("a", 5000), types.CategoryFactual, memory.ScoreHints{})
	longer := memory.InitialScore(strings.Repeat("a", 50000), types.CategoryFactual, memory.ScoreHints{})

	if short >= long {
		t.Errorf("longer content should score higher: short=%v long=%v", short, long)
	}
	if long != longer {
		t.Errorf("length bonus should cap at 300 chars over the divisor: %v vs %v", long, longer)
	}
}

func TestInitialScoreHintsScaleDown(t *testing.T) {
	base := memory.InitialScore("some content", types.CategoryFactual, memory.ScoreHints{})
	hinted := memory.InitialScore("some content", types.CategoryFactual, memory.ScoreHints{Confidence: 0.5})

	if math.Abs(hinted-base*0.5) > epsilon {
		t.Errorf("confidence 0.5 should halve the score: base=%v hinted=%v", base, hinted)
	}
}

func TestInitialScoreBounds(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		category types.MemoryCategory
		hints    memory.ScoreHints
	}{
		{"empty_content", "", types.CategoryEmotional, memory.ScoreHints{}},
		{"max_everything", strings.Repeat("x", 10000), types.CategoryProcedural, memory.ScoreHints{Confidence: 1, Relevance: 1}},
		{"tiny_hints", "x", types.CategoryFactual, memory.ScoreHints{Confidence: 0.01, Relevance: 0.01}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score := memory.InitialScore(tc.content, tc.category, tc.hints)
			if score < 0 || score > 1 {
				t.Errorf("score %v outside [0, 1]", score)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the quick brown fox", "the quick brown fox", 1.0},
		{"disjoint", "alpha beta", "gamma delta", 0.0},
		{"half_overlap", "alpha beta gamma", "alpha beta delta", 0.5},
		{"case_insensitive", "Alpha Beta", "alpha beta", 1.0},
		{"empty_left", "", "alpha", 0.0},
		{"both_empty", "", "", 0.0},
		{"punctuation_ignored", "alpha, beta!", "alpha beta", 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := memory.Similarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > epsilon {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestWisdomGainBounds(t *testing.T) {
	for _, c := range types.ValidCategories {
		for _, novelty := range []float64{0, 0.5, 1} {
			gain := memory.WisdomGain(novelty, c)
			if gain < 0 || gain > 1 {
				t.Errorf("WisdomGain(%v, %s) = %v outside [0, 1]", novelty, c, gain)
			}
		}
	}

	// Higher novelty always earns more wisdom within a category.
	low := memory.WisdomGain(0.1, types.CategorySemantic)
	high := memory.WisdomGain(0.9, types.CategorySemantic)
	if low >= high {
		t.Errorf("wisdom should grow with novelty: low=%v high=%v", low, high)
	}
}
