package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"videoInsight/core"
)

// VideoStore persists the video lifecycle records the orchestrator drives.
type VideoStore interface {
	Put(ctx context.Context, v *core.Video) error
	Get(ctx context.Context, id string) (*core.Video, error)
	List(ctx context.Context) ([]core.Video, error)
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]core.Video, error)
	Delete(ctx context.Context, id string) error
}

// ---------------- Memory implementation ----------------

type MemoryVideoStore struct {
	mu     sync.RWMutex
	videos map[string]core.Video
}

func NewMemoryVideoStore() *MemoryVideoStore {
	return &MemoryVideoStore{videos: map[string]core.Video{}}
}

func (s *MemoryVideoStore) Put(_ context.Context, v *core.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.ID] = *v
	return nil
}

func (s *MemoryVideoStore) Get(_ context.Context, id string) (*core.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, core.NewError(core.CodeNotFound, "video not found: "+id)
	}
	out := v
	return &out, nil
}

func (s *MemoryVideoStore) List(_ context.Context) ([]core.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Video, 0, len(s.videos))
	for _, v := range s.videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryVideoStore) ListOlderThan(_ context.Context, cutoff time.Time) ([]core.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Video
	for _, v := range s.videos {
		if v.CreatedAt.Before(cutoff) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
	return nil
}

// ---------------- Postgres implementation ----------------

type PgVideoStore struct {
	pool Pool
}

func NewPgVideoStore(pool Pool) *PgVideoStore { return &PgVideoStore{pool: pool} }

const videoColumns = `id, source_path, duration, status, processing_progress, error_code, error_message, created_at, updated_at, processed_at`

func (s *PgVideoStore) Put(ctx context.Context, v *core.Video) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			duration = EXCLUDED.duration,
			status = EXCLUDED.status,
			processing_progress = EXCLUDED.processing_progress,
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at,
			processed_at = EXCLUDED.processed_at`,
		v.ID, v.SourcePath, v.Duration, string(v.Status), v.Progress,
		v.ErrorCode, v.ErrorMessage, v.CreatedAt, v.UpdatedAt, v.ProcessedAt)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "store video")
	}
	return nil
}

func scanVideo(row pgx.Row) (*core.Video, error) {
	var v core.Video
	var status string
	err := row.Scan(&v.ID, &v.SourcePath, &v.Duration, &status, &v.Progress,
		&v.ErrorCode, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt, &v.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NewError(core.CodeNotFound, "video not found")
		}
		return nil, core.WrapError(err, core.CodeInternal, "scan video")
	}
	v.Status = core.VideoStatus(status)
	return &v, nil
}

func (s *PgVideoStore) Get(ctx context.Context, id string) (*core.Video, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	return scanVideo(row)
}

func (s *PgVideoStore) list(ctx context.Context, sql string, args ...any) ([]core.Video, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "list videos")
	}
	defer rows.Close()
	var out []core.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *PgVideoStore) List(ctx context.Context) ([]core.Video, error) {
	return s.list(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at`)
}

func (s *PgVideoStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]core.Video, error) {
	return s.list(ctx, `SELECT `+videoColumns+` FROM videos WHERE created_at < $1 ORDER BY created_at`, cutoff)
}

func (s *PgVideoStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "delete video")
	}
	return nil
}
