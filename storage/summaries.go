package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"

	"videoInsight/core"
)

// SummaryStore keeps one summary per (video, kind); Put overwrites.
type SummaryStore interface {
	Put(ctx context.Context, sum *core.Summary) error
	Get(ctx context.Context, videoID string, kind core.SummaryKind) (*core.Summary, error)
	List(ctx context.Context, videoID string) ([]core.Summary, error)
	Delete(ctx context.Context, videoID string) error
}

// ---------------- Memory implementation ----------------

type MemorySummaryStore struct {
	mu   sync.RWMutex
	sums map[string]map[core.SummaryKind]core.Summary
}

func NewMemorySummaryStore() *MemorySummaryStore {
	return &MemorySummaryStore{sums: map[string]map[core.SummaryKind]core.Summary{}}
}

func (s *MemorySummaryStore) Put(_ context.Context, sum *core.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKind, ok := s.sums[sum.VideoID]
	if !ok {
		byKind = map[core.SummaryKind]core.Summary{}
		s.sums[sum.VideoID] = byKind
	}
	byKind[sum.Kind] = *sum
	return nil
}

func (s *MemorySummaryStore) Get(_ context.Context, videoID string, kind core.SummaryKind) (*core.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.sums[videoID][kind]
	if !ok {
		return nil, core.NewError(core.CodeNotFound, "summary not found")
	}
	out := sum
	return &out, nil
}

func (s *MemorySummaryStore) List(_ context.Context, videoID string) ([]core.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Summary
	for _, kind := range []core.SummaryKind{core.SummaryFull, core.SummaryBullet, core.SummaryShort} {
		if sum, ok := s.sums[videoID][kind]; ok {
			out = append(out, sum)
		}
	}
	return out, nil
}

func (s *MemorySummaryStore) Delete(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sums, videoID)
	return nil
}

// ---------------- Postgres implementation ----------------

type PgSummaryStore struct {
	pool Pool
}

func NewPgSummaryStore(pool Pool) *PgSummaryStore { return &PgSummaryStore{pool: pool} }

func (s *PgSummaryStore) Put(ctx context.Context, sum *core.Summary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO summaries (video_id, kind, content, key_topics, generation_time, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (video_id, kind) DO UPDATE SET
			content = EXCLUDED.content,
			key_topics = EXCLUDED.key_topics,
			generation_time = EXCLUDED.generation_time,
			generated_at = EXCLUDED.generated_at`,
		sum.VideoID, string(sum.Kind), sum.Content, sum.KeyTopics, sum.GenerationTime, sum.GeneratedAt)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "store summary")
	}
	return nil
}

func scanSummary(row pgx.Row) (*core.Summary, error) {
	var sum core.Summary
	var kind string
	err := row.Scan(&sum.VideoID, &kind, &sum.Content, &sum.KeyTopics, &sum.GenerationTime, &sum.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NewError(core.CodeNotFound, "summary not found")
		}
		return nil, core.WrapError(err, core.CodeInternal, "scan summary")
	}
	sum.Kind = core.SummaryKind(kind)
	return &sum, nil
}

const summaryColumns = `video_id, kind, content, key_topics, generation_time, generated_at`

func (s *PgSummaryStore) Get(ctx context.Context, videoID string, kind core.SummaryKind) (*core.Summary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE video_id = $1 AND kind = $2`,
		videoID, string(kind))
	return scanSummary(row)
}

func (s *PgSummaryStore) List(ctx context.Context, videoID string) ([]core.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE video_id = $1 ORDER BY kind`, videoID)
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "list summaries")
	}
	defer rows.Close()
	var out []core.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, rows.Err()
}

func (s *PgSummaryStore) Delete(ctx context.Context, videoID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM summaries WHERE video_id = $1`, videoID)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "delete summaries")
	}
	return nil
}
