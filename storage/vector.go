package storage

import (
	"context"
	"math"
	"sort"
	"sync"

	"videoInsight/core"
	"videoInsight/providers"
)

// VectorIndex is the retrieval backend. Upsert inserts or updates vectors
// per segment, keyed by segment ID; segments not named keep their vectors.
// Invalidate drops every vector for a video; until the next Upsert, Query
// fails with INDEX_EMPTY rather than serving stale neighbors.
type VectorIndex interface {
	Upsert(ctx context.Context, videoID string, segs []core.Segment) (int, error)
	Query(ctx context.Context, videoID, query string, topK int) ([]core.Hit, error)
	Invalidate(ctx context.Context, videoID string) error
}

// ---------------- Memory implementation ----------------

type indexedSegment struct {
	seg core.Segment
	vec []float32
}

type MemoryVectorIndex struct {
	mu       sync.RWMutex
	embedder providers.Embedder
	byVideo  map[string][]indexedSegment
}

func NewMemoryVectorIndex(embedder providers.Embedder) *MemoryVectorIndex {
	return &MemoryVectorIndex{embedder: embedder, byVideo: map[string][]indexedSegment{}}
}

func (s *MemoryVectorIndex) Upsert(ctx context.Context, videoID string, segs []core.Segment) (int, error) {
	indexed := make([]indexedSegment, 0, len(segs))
	for _, seg := range segs {
		vec, err := s.embedder.Embed(ctx, seg.Text)
		if err != nil {
			return 0, err
		}
		indexed = append(indexed, indexedSegment{seg: seg, vec: vec})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := make(map[string]bool, len(indexed))
	for _, d := range indexed {
		fresh[d.seg.ID] = true
	}
	merged := make([]indexedSegment, 0, len(s.byVideo[videoID])+len(indexed))
	for _, d := range s.byVideo[videoID] {
		if !fresh[d.seg.ID] {
			merged = append(merged, d)
		}
	}
	merged = append(merged, indexed...)
	s.byVideo[videoID] = merged
	return len(indexed), nil
}

func (s *MemoryVectorIndex) Query(ctx context.Context, videoID, query string, topK int) ([]core.Hit, error) {
	s.mu.RLock()
	indexed := s.byVideo[videoID]
	s.mu.RUnlock()
	if len(indexed) == 0 {
		return nil, core.NewError(core.CodeIndexEmpty, "no indexed segments for video "+videoID)
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	hits := make([]core.Hit, 0, len(indexed))
	for _, d := range indexed {
		hits = append(hits, core.Hit{
			SegmentID: d.seg.ID,
			Score:     cosine(qv, d.vec),
			Start:     d.seg.Start,
			End:       d.seg.End,
			Text:      d.seg.Text,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func (s *MemoryVectorIndex) Invalidate(_ context.Context, videoID string) error {
	s.mu.Lock()
	delete(s.byVideo, videoID)
	s.mu.Unlock()
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
