package highlights

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoInsight/core"
)

func TestHeuristicScorerSignals(t *testing.T) {
	scorer := HeuristicScorer{}
	ctx := Context{VideoDuration: 600}

	tests := []struct {
		name string
		seg  core.Segment
		min  float64
		max  float64
	}{
		{
			name: "filler gets nothing",
			seg:  core.Segment{Start: 100, End: 105, Text: "um yeah ok"},
			min:  0, max: 0.05,
		},
		{
			name: "question scores",
			seg:  core.Segment{Start: 100, End: 110, Text: "But have you ever wondered why databases need a write ahead log at all?"},
			min:  0.2, max: 1,
		},
		{
			name: "action verb and numbers",
			seg:  core.Segment{Start: 200, End: 210, Text: "Let me show you how we cut latency from 800 milliseconds down to 12."},
			min:  0.3, max: 1,
		},
		{
			name: "never above one",
			seg:  core.Segment{Start: 300, End: 310, Text: "First, why does this fail? Let me show you how we improve it: 3 steps, surprisingly simple, and it can change everything you test."},
			min:  0, max: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := scorer.Score(tt.seg, ctx)
			assert.GreaterOrEqual(t, score, tt.min)
			assert.LessOrEqual(t, score, tt.max)
		})
	}
}

func TestHeuristicScorerDampsIntroAndOutro(t *testing.T) {
	scorer := HeuristicScorer{}
	ctx := Context{VideoDuration: 600}
	text := "Why does this matter? Let me show you the 3 things that change everything."

	mid, _ := scorer.Score(core.Segment{Start: 300, End: 310, Text: text}, ctx)
	intro, _ := scorer.Score(core.Segment{Start: 0, End: 10, Text: text}, ctx)
	outro, _ := scorer.Score(core.Segment{Start: 590, End: 600, Text: text}, ctx)

	assert.Less(t, intro, mid)
	assert.Less(t, outro, mid)
}

func TestHeuristicScorerTopicOverlap(t *testing.T) {
	scorer := HeuristicScorer{}
	seg := core.Segment{Start: 100, End: 110, Text: "kubernetes handles the restart"}

	plain, _ := scorer.Score(seg, Context{VideoDuration: 600})
	topical, _ := scorer.Score(seg, Context{VideoDuration: 600, KeyTopics: []string{"Kubernetes"}})

	assert.Greater(t, topical, plain)
}

func TestDetectHighlightsDeterministic(t *testing.T) {
	segs := make([]core.Segment, 0, 30)
	for i := 0; i < 30; i++ {
		text := "nothing to see"
		if i%3 == 0 {
			text = fmt.Sprintf("Why does step %d matter? Let me show you what breaks without it.", i)
		}
		segs = append(segs, core.Segment{
			ID:    fmt.Sprintf("seg-%d", i),
			Start: float64(i * 20),
			End:   float64(i*20 + 15),
			Text:  text,
		})
	}
	ctx := Context{VideoDuration: 600}

	first := DetectHighlights(segs, HeuristicScorer{}, ctx)
	second := DetectHighlights(segs, HeuristicScorer{}, ctx)
	require.Equal(t, first, second)
	assert.NotEmpty(t, first)
	assert.LessOrEqual(t, len(first), 20)
}

func TestDetectHighlightsRespectsGapAndCap(t *testing.T) {
	// Back-to-back strong segments: the 5 second gap rule must thin them.
	segs := make([]core.Segment, 0, 40)
	for i := 0; i < 40; i++ {
		segs = append(segs, core.Segment{
			ID:    fmt.Sprintf("seg-%d", i),
			Start: float64(i * 10),
			End:   float64(i*10 + 8),
			Text:  fmt.Sprintf("Why does attempt %d fail? Let me show you the fix in 2 steps.", i),
		})
	}
	out := DetectHighlights(segs, HeuristicScorer{}, Context{VideoDuration: 400})
	require.NotEmpty(t, out)
	assert.LessOrEqual(t, len(out), 20)
	for i, a := range out {
		for j, b := range out {
			if i == j {
				continue
			}
			apart := a.End+minHighlightGap <= b.Start || b.End+minHighlightGap <= a.Start
			assert.True(t, apart, "highlights %d and %d are closer than the minimum gap", i, j)
		}
	}
}

func TestDetectHighlightsThreshold(t *testing.T) {
	segs := []core.Segment{
		{ID: "a", Start: 100, End: 110, Text: "mm hm"},
		{ID: "b", Start: 200, End: 210, Text: "right"},
	}
	out := DetectHighlights(segs, HeuristicScorer{}, Context{VideoDuration: 600})
	assert.Empty(t, out)
}
