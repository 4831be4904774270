package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"videoInsight/core"
)

// SegmentStore holds the canonical transcript. Replace swaps the whole
// transcript atomically and reports whether an earlier transcript existed,
// which is the signal that derived artifacts are now stale.
type SegmentStore interface {
	Replace(ctx context.Context, videoID string, segs []core.Segment) (replaced bool, err error)
	List(ctx context.Context, videoID string) ([]core.Segment, error)
	Delete(ctx context.Context, videoID string) error
}

// ---------------- Memory implementation ----------------

type MemorySegmentStore struct {
	mu   sync.RWMutex
	segs map[string][]core.Segment
}

func NewMemorySegmentStore() *MemorySegmentStore {
	return &MemorySegmentStore{segs: map[string][]core.Segment{}}
}

func (s *MemorySegmentStore) Replace(_ context.Context, videoID string, segs []core.Segment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.segs[videoID]
	cp := make([]core.Segment, len(segs))
	copy(cp, segs)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Start < cp[j].Start })
	s.segs[videoID] = cp
	return existed, nil
}

func (s *MemorySegmentStore) List(_ context.Context, videoID string) ([]core.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs, ok := s.segs[videoID]
	if !ok {
		return nil, nil
	}
	out := make([]core.Segment, len(segs))
	copy(out, segs)
	return out, nil
}

func (s *MemorySegmentStore) Delete(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.segs, videoID)
	return nil
}

// ---------------- Postgres implementation ----------------

type PgSegmentStore struct {
	pool Pool
}

func NewPgSegmentStore(pool Pool) *PgSegmentStore { return &PgSegmentStore{pool: pool} }

func (s *PgSegmentStore) Replace(ctx context.Context, videoID string, segs []core.Segment) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transcript_segments WHERE video_id = $1`, videoID)
	if err != nil {
		return false, core.WrapError(err, core.CodeInternal, "clear transcript")
	}
	replaced := tag.RowsAffected() > 0
	if len(segs) == 0 {
		return replaced, nil
	}
	rows := make([][]any, 0, len(segs))
	for _, seg := range segs {
		rows = append(rows, []any{seg.ID, videoID, seg.Start, seg.End, seg.Text})
	}
	_, err = s.pool.CopyFrom(ctx,
		pgx.Identifier{"transcript_segments"},
		[]string{"id", "video_id", "start_time", "end_time", "text"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return replaced, core.WrapError(err, core.CodeInternal, "store transcript")
	}
	return replaced, nil
}

func (s *PgSegmentStore) List(ctx context.Context, videoID string) ([]core.Segment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, video_id, start_time, end_time, text
		FROM transcript_segments WHERE video_id = $1 ORDER BY start_time`, videoID)
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "list transcript")
	}
	defer rows.Close()
	var out []core.Segment
	for rows.Next() {
		var seg core.Segment
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.Start, &seg.End, &seg.Text); err != nil {
			return nil, core.WrapError(err, core.CodeInternal, "scan segment")
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func (s *PgSegmentStore) Delete(ctx context.Context, videoID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM transcript_segments WHERE video_id = $1`, videoID)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "delete transcript")
	}
	return nil
}
