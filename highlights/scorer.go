package highlights

import (
	"sort"
	"strings"
	"unicode"

	"videoInsight/core"
)

// Context carries video-level signals into segment scoring.
type Context struct {
	KeyTopics     []string
	VideoDuration float64
}

// Scorer rates a single segment's highlight potential in [0, 1].
type Scorer interface {
	Score(seg core.Segment, ctx Context) (score float64, reason string)
}

var actionVerbs = map[string]bool{
	"show": true, "build": true, "create": true, "learn": true, "discover": true,
	"reveal": true, "explain": true, "demonstrate": true, "compare": true,
	"solve": true, "break": true, "launch": true, "win": true, "fail": true,
	"change": true, "improve": true, "test": true, "try": true,
}

var transitionWords = map[string]bool{
	"first": true, "second": true, "finally": true, "however": true,
	"importantly": true, "actually": true, "surprisingly": true, "but": true,
	"now": true, "next": true, "because": true, "therefore": true,
}

// HeuristicScorer scores on surface signals: sentence shape, questions,
// numbers, action verbs, transitions, topic overlap, and position within
// the video. Deterministic, no model calls.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(seg core.Segment, ctx Context) (float64, string) {
	text := seg.Text
	words := strings.Fields(text)
	var score float64
	var reasons []string

	if n := len(words); n >= 10 && n <= 100 {
		score += 0.2
		reasons = append(reasons, "substantial")
	}
	if strings.Contains(text, "?") {
		score += 0.2
		reasons = append(reasons, "question")
	}
	if strings.ContainsFunc(text, unicode.IsDigit) {
		score += 0.1
		reasons = append(reasons, "numbers")
	}
	lower := strings.ToLower(text)
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?;:\"'")
		if actionVerbs[w] {
			score += 0.2
			reasons = append(reasons, "action")
			break
		}
	}
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?;:\"'")
		if transitionWords[w] {
			score += 0.1
			reasons = append(reasons, "transition")
			break
		}
	}

	if overlap := topicOverlap(lower, ctx.KeyTopics); overlap > 0 {
		score += overlap
		reasons = append(reasons, "on-topic")
	}

	// Intros and outros rarely make good highlights.
	if ctx.VideoDuration > 60 {
		if seg.End <= 15 || seg.Start >= ctx.VideoDuration-15 {
			score *= 0.5
		}
	}

	// Very long segments get the same ceiling as short ones.
	if seg.Duration() > 60 {
		score *= 60 / seg.Duration()
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, strings.Join(reasons, ",")
}

// topicOverlap adds up to 0.3 for segments mentioning the video's key topics.
func topicOverlap(lowerText string, topics []string) float64 {
	if len(topics) == 0 {
		return 0
	}
	matched := 0
	for _, t := range topics {
		if t == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(t)) {
			matched++
		}
	}
	overlap := 0.1 * float64(matched)
	if overlap > 0.3 {
		overlap = 0.3
	}
	return overlap
}

const (
	highlightThreshold = 0.2
	minHighlightGap    = 5.0
	maxHighlights      = 20
)

// DetectHighlights scores every segment and returns non-overlapping
// candidates above the threshold, best first, at most 20. Candidates closer
// than 5 seconds to an already accepted one are skipped. Deterministic for
// identical input.
func DetectHighlights(segs []core.Segment, scorer Scorer, ctx Context) []core.HighlightCandidate {
	type scored struct {
		seg    core.Segment
		score  float64
		reason string
	}
	candidates := make([]scored, 0, len(segs))
	for _, seg := range segs {
		score, reason := scorer.Score(seg, ctx)
		if score >= highlightThreshold {
			candidates = append(candidates, scored{seg, score, reason})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seg.Start < candidates[j].seg.Start
	})

	var out []core.HighlightCandidate
	for _, c := range candidates {
		if len(out) == maxHighlights {
			break
		}
		tooClose := false
		for _, h := range out {
			if c.seg.Start < h.End+minHighlightGap && c.seg.End > h.Start-minHighlightGap {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		out = append(out, core.HighlightCandidate{
			SegmentIDs: []string{c.seg.ID},
			Score:      c.score,
			Start:      c.seg.Start,
			End:        c.seg.End,
			Snippet:    core.TruncateRunes(c.seg.Text, 200),
			Reason:     c.reason,
		})
	}
	return out
}
