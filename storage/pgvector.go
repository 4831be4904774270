package storage

import (
	"context"

	pgvector "github.com/pgvector/pgvector-go"

	"videoInsight/core"
	"videoInsight/providers"
)

// PgVectorIndex keeps segment embeddings in Postgres and ranks with the
// pgvector cosine operator.
type PgVectorIndex struct {
	pool     Pool
	embedder providers.Embedder
}

func NewPgVectorIndex(pool Pool, embedder providers.Embedder) *PgVectorIndex {
	return &PgVectorIndex{pool: pool, embedder: embedder}
}

func (s *PgVectorIndex) Upsert(ctx context.Context, videoID string, segs []core.Segment) (int, error) {
	count := 0
	for _, seg := range segs {
		vec, err := s.embedder.Embed(ctx, seg.Text)
		if err != nil {
			return count, err
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO video_segments (video_id, segment_id, start_time, end_time, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (video_id, segment_id) DO UPDATE SET
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding`,
			videoID, seg.ID, seg.Start, seg.End, seg.Text, pgvector.NewVector(vec))
		if err != nil {
			return count, core.WrapError(err, core.CodeInternal, "upsert segment vector")
		}
		count++
	}
	return count, nil
}

func (s *PgVectorIndex) Query(ctx context.Context, videoID, query string, topK int) ([]core.Hit, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT segment_id, start_time, end_time, text, 1 - (embedding <=> $1) AS score
		FROM video_segments
		WHERE video_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, pgvector.NewVector(qv), videoID, topK)
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "vector query")
	}
	defer rows.Close()
	var hits []core.Hit
	for rows.Next() {
		var h core.Hit
		if err := rows.Scan(&h.SegmentID, &h.Start, &h.End, &h.Text, &h.Score); err != nil {
			return nil, core.WrapError(err, core.CodeInternal, "scan hit")
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "vector query rows")
	}
	if len(hits) == 0 {
		return nil, core.NewError(core.CodeIndexEmpty, "no indexed segments for video "+videoID)
	}
	return hits, nil
}

func (s *PgVectorIndex) Invalidate(ctx context.Context, videoID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM video_segments WHERE video_id = $1`, videoID)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "invalidate index")
	}
	return nil
}
