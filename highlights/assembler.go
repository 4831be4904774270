package highlights

import (
	"sort"

	"videoInsight/core"
)

// minShortSegments keeps very short plans from collapsing to one clip; below
// this count a candidate that overflows the target is still taken.
const minShortSegments = 2

// BuildPlan assembles a short video from highlight candidates: best
// candidates greedily under the target duration, then reordered
// chronologically with adjacent ranges merged. Total duration never exceeds
// the target by more than one candidate's length.
func BuildPlan(videoID string, candidates []core.HighlightCandidate, targetDuration, videoDuration float64, style, captionStyle string) (core.ShortVideoPlan, error) {
	plan := core.ShortVideoPlan{
		VideoID:        videoID,
		TargetDuration: targetDuration,
		Style:          style,
		CaptionStyle:   captionStyle,
	}
	if targetDuration <= 0 {
		return plan, core.NewError(core.CodeInvalidArgument, "target duration must be positive")
	}
	if len(candidates) == 0 {
		return plan, core.NewError(core.CodeNotFound, "no highlight candidates")
	}

	sorted := make([]core.HighlightCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Start < sorted[j].Start
	})

	var picked []core.TimeRange
	var total float64
	for _, c := range sorted {
		d := c.Duration()
		if d <= 0 {
			continue
		}
		if total+d > targetDuration && len(picked) >= minShortSegments {
			continue
		}
		picked = append(picked, core.TimeRange{Start: c.Start, End: c.End})
		total += d
		if total >= targetDuration {
			break
		}
	}
	if len(picked) == 0 {
		return plan, core.NewError(core.CodeNotFound, "no usable highlight candidates")
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].Start < picked[j].Start })

	// Merge overlapping or touching ranges and clamp to the video bounds.
	merged := make([]core.TimeRange, 0, len(picked))
	for _, r := range picked {
		if r.Start < 0 {
			r.Start = 0
		}
		if videoDuration > 0 && r.End > videoDuration {
			r.End = videoDuration
		}
		if r.End <= r.Start {
			continue
		}
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	if len(merged) == 0 {
		return plan, core.NewError(core.CodeNotFound, "no usable highlight candidates")
	}

	plan.Ranges = merged
	return plan, nil
}
