package highlights

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoInsight/core"
)

func candidateGrid(n int, clipLen, spacing float64) []core.HighlightCandidate {
	out := make([]core.HighlightCandidate, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * spacing
		out = append(out, core.HighlightCandidate{
			SegmentIDs: []string{fmt.Sprintf("seg-%d", i)},
			Score:      0.3 + 0.02*float64(i%10),
			Start:      start,
			End:        start + clipLen,
		})
	}
	return out
}

func TestBuildPlanFillsTarget(t *testing.T) {
	// 20 candidates of 5s each against a 60s target.
	cands := candidateGrid(20, 5, 30)
	plan, err := BuildPlan("vid-1", cands, 60, 600, "vertical", "bold")
	require.NoError(t, err)

	total := plan.TotalDuration()
	assert.GreaterOrEqual(t, total, 45.0)
	assert.LessOrEqual(t, total, 65.0)
	assert.Equal(t, "vertical", plan.Style)
	assert.Equal(t, "bold", plan.CaptionStyle)
}

func TestBuildPlanChronologicalAndNonOverlapping(t *testing.T) {
	cands := candidateGrid(15, 8, 40)
	plan, err := BuildPlan("vid-1", cands, 40, 600, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, plan.Ranges)

	for i := 1; i < len(plan.Ranges); i++ {
		assert.Greater(t, plan.Ranges[i].Start, plan.Ranges[i-1].End,
			"ranges must be chronological and non-overlapping")
	}
}

func TestBuildPlanNeverExceedsTargetByMoreThanOneClip(t *testing.T) {
	const clipLen = 12.0
	cands := candidateGrid(30, clipLen, 25)
	plan, err := BuildPlan("vid-1", cands, 60, 800, "", "")
	require.NoError(t, err)
	assert.LessOrEqual(t, plan.TotalDuration(), 60+clipLen)
}

func TestBuildPlanMergesOverlaps(t *testing.T) {
	cands := []core.HighlightCandidate{
		{SegmentIDs: []string{"a"}, Score: 0.9, Start: 10, End: 20},
		{SegmentIDs: []string{"b"}, Score: 0.8, Start: 18, End: 28},
		{SegmentIDs: []string{"c"}, Score: 0.7, Start: 100, End: 110},
	}
	plan, err := BuildPlan("vid-1", cands, 60, 600, "", "")
	require.NoError(t, err)
	require.Len(t, plan.Ranges, 2)
	assert.Equal(t, core.TimeRange{Start: 10, End: 28}, plan.Ranges[0])
	assert.Equal(t, core.TimeRange{Start: 100, End: 110}, plan.Ranges[1])
}

func TestBuildPlanClampsToVideoBounds(t *testing.T) {
	cands := []core.HighlightCandidate{
		{SegmentIDs: []string{"a"}, Score: 0.9, Start: 290, End: 320},
		{SegmentIDs: []string{"b"}, Score: 0.8, Start: 50, End: 60},
	}
	plan, err := BuildPlan("vid-1", cands, 60, 300, "", "")
	require.NoError(t, err)
	for _, r := range plan.Ranges {
		assert.GreaterOrEqual(t, r.Start, 0.0)
		assert.LessOrEqual(t, r.End, 300.0)
	}
}

func TestBuildPlanPrefersHigherScores(t *testing.T) {
	cands := []core.HighlightCandidate{
		{SegmentIDs: []string{"low"}, Score: 0.25, Start: 0, End: 30},
		{SegmentIDs: []string{"high"}, Score: 0.95, Start: 100, End: 130},
		{SegmentIDs: []string{"mid"}, Score: 0.6, Start: 200, End: 230},
	}
	plan, err := BuildPlan("vid-1", cands, 60, 600, "", "")
	require.NoError(t, err)

	ranges := map[core.TimeRange]bool{}
	for _, r := range plan.Ranges {
		ranges[r] = true
	}
	assert.True(t, ranges[core.TimeRange{Start: 100, End: 130}], "best candidate must be included")
	assert.True(t, ranges[core.TimeRange{Start: 200, End: 230}], "second best candidate must be included")
}

func TestBuildPlanErrors(t *testing.T) {
	_, err := BuildPlan("vid-1", nil, 60, 600, "", "")
	require.Error(t, err)
	assert.Equal(t, core.CodeNotFound, core.CodeOf(err))

	_, err = BuildPlan("vid-1", candidateGrid(3, 5, 30), 0, 600, "", "")
	require.Error(t, err)
	assert.Equal(t, core.CodeInvalidArgument, core.CodeOf(err))
}

func TestBuildPlanDeterministic(t *testing.T) {
	cands := candidateGrid(25, 6, 20)
	a, err := BuildPlan("vid-1", cands, 45, 500, "", "")
	require.NoError(t, err)
	b, err := BuildPlan("vid-1", cands, 45, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
