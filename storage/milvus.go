package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"videoInsight/core"
	"videoInsight/providers"
)

// MilvusVectorIndex stores segment embeddings in a Milvus collection with an
// HNSW cosine index, partitioned logically by video_id.
type MilvusVectorIndex struct {
	mc       client.Client
	coll     string
	dim      int
	embedder providers.Embedder
}

func NewMilvusVectorIndex(ctx context.Context, addr, coll string, embedder providers.Embedder) (*MilvusVectorIndex, error) {
	if coll == "" {
		coll = "video_segments"
	}
	mc, err := client.NewClient(ctx, client.Config{Address: addr})
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "connect milvus")
	}
	s := &MilvusVectorIndex{mc: mc, coll: coll, dim: embedder.Dim(), embedder: embedder}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusVectorIndex) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "check milvus collection")
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("video_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("segment_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return core.WrapError(err, core.CodeInternal, "create milvus collection")
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "new hnsw index")
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return core.WrapError(err, core.CodeInternal, "create milvus index")
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return core.WrapError(err, core.CodeInternal, "load milvus collection")
	}
	return nil
}

func videoFilter(videoID string) string {
	return fmt.Sprintf("video_id == %q", strings.ReplaceAll(videoID, `"`, `\"`))
}

func segmentFilter(videoID string, segs []core.Segment) string {
	quoted := make([]string, 0, len(segs))
	for _, seg := range segs {
		quoted = append(quoted, fmt.Sprintf("%q", strings.ReplaceAll(seg.ID, `"`, `\"`)))
	}
	return videoFilter(videoID) + " && segment_id in [" + strings.Join(quoted, ", ") + "]"
}

func (s *MilvusVectorIndex) Upsert(ctx context.Context, videoID string, segs []core.Segment) (int, error) {
	if len(segs) == 0 {
		return 0, nil
	}
	// Replace only the rows for the given segments; the rest of the video's
	// vectors stay in place.
	if err := s.mc.Delete(ctx, s.coll, "", segmentFilter(videoID, segs)); err != nil {
		return 0, core.WrapError(err, core.CodeInternal, "replace milvus vectors")
	}
	videoIDs := make([]string, 0, len(segs))
	segIDs := make([]string, 0, len(segs))
	starts := make([]float64, 0, len(segs))
	ends := make([]float64, 0, len(segs))
	texts := make([]string, 0, len(segs))
	vectors := make([][]float32, 0, len(segs))
	for _, seg := range segs {
		v, err := s.embedder.Embed(ctx, seg.Text)
		if err != nil {
			return 0, err
		}
		videoIDs = append(videoIDs, videoID)
		segIDs = append(segIDs, seg.ID)
		starts = append(starts, seg.Start)
		ends = append(ends, seg.End)
		texts = append(texts, seg.Text)
		vectors = append(vectors, v)
	}
	_, err := s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("video_id", videoIDs),
		entity.NewColumnVarChar("segment_id", segIDs),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return 0, core.WrapError(err, core.CodeInternal, "insert milvus vectors")
	}
	return len(vectors), nil
}

func (s *MilvusVectorIndex) Query(ctx context.Context, videoID, query string, topK int) ([]core.Hit, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, videoFilter(videoID),
		[]string{"segment_id", "start", "end", "text"},
		[]entity.Vector{entity.FloatVector(qv)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "milvus search")
	}
	var hits []core.Hit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var h core.Hit
			if c, ok := cols["segment_id"].(*entity.ColumnVarChar); ok && i < len(c.Data()) {
				h.SegmentID = c.Data()[i]
			}
			if c, ok := cols["start"].(*entity.ColumnDouble); ok && i < len(c.Data()) {
				h.Start = c.Data()[i]
			}
			if c, ok := cols["end"].(*entity.ColumnDouble); ok && i < len(c.Data()) {
				h.End = c.Data()[i]
			}
			if c, ok := cols["text"].(*entity.ColumnVarChar); ok && i < len(c.Data()) {
				h.Text = c.Data()[i]
			}
			h.Score = float64(r.Scores[i])
			hits = append(hits, h)
		}
	}
	if len(hits) == 0 {
		return nil, core.NewError(core.CodeIndexEmpty, "no indexed segments for video "+videoID)
	}
	return hits, nil
}

func (s *MilvusVectorIndex) Invalidate(ctx context.Context, videoID string) error {
	if err := s.mc.Delete(ctx, s.coll, "", videoFilter(videoID)); err != nil {
		return core.WrapError(err, core.CodeInternal, "invalidate milvus vectors")
	}
	return nil
}
