package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"videoChat/config"
	"videoChat/core"
)

// MilvusIndex keeps one video's segments in a shared Milvus collection,
// filtered by video_id at search time.
type MilvusIndex struct {
	mc       client.Client
	coll     string
	dim      int
	videoID  string
	embedder EmbeddingProvider
}

func NewMilvusIndex(ctx context.Context, cfg *config.Config, videoID string, embedder EmbeddingProvider) (*MilvusIndex, error) {
	mc, err := client.NewClient(ctx, client.Config{Address: cfg.MilvusAddr})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	s := &MilvusIndex{
		mc:       mc,
		coll:     cfg.MilvusCollection,
		dim:      cfg.EmbeddingDim,
		videoID:  videoID,
		embedder: embedder,
	}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		mc.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusIndex) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("video_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("segment_id").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	// vector hnsw cosine index
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusIndex) videoFilter() string {
	return fmt.Sprintf("video_id == \"%s\"", strings.ReplaceAll(s.videoID, "\"", "\\\""))
}

// Build 删除该视频的旧数据后整体重建
func (s *MilvusIndex) Build(ctx context.Context, segments []core.Segment) error {
	texts, metas := filterSegments(segments)
	if len(texts) == 0 {
		return fmt.Errorf("no valid text segments for video %s", s.videoID)
	}

	vectors32, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed segments: %w", err)
	}
	if len(vectors32) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors32), len(texts))
	}

	videoIDs := make([]string, 0, len(texts))
	segmentIDs := make([]int64, 0, len(texts))
	starts := make([]float64, 0, len(texts))
	ends := make([]float64, 0, len(texts))
	rowTexts := make([]string, 0, len(texts))
	rowVectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec := vectors32[i]
		if len(vec) != s.dim {
			return fmt.Errorf("embedding dimension %d does not match configured dimension %d", len(vec), s.dim)
		}
		l2Normalize(vec)
		videoIDs = append(videoIDs, s.videoID)
		segmentIDs = append(segmentIDs, int64(metas[i].SegmentID))
		starts = append(starts, metas[i].Start)
		ends = append(ends, metas[i].End)
		rowTexts = append(rowTexts, text)
		rowVectors = append(rowVectors, vec)
	}

	if err := s.mc.Delete(ctx, s.coll, "", s.videoFilter()); err != nil {
		return fmt.Errorf("clear previous segments: %w", err)
	}
	_, err = s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("video_id", videoIDs),
		entity.NewColumnInt64("segment_id", segmentIDs),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnVarChar("text", rowTexts),
		entity.NewColumnFloatVector("vector", s.dim, rowVectors),
	)
	if err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}
	if err := s.mc.Flush(ctx, s.coll, false); err != nil {
		log.Printf("Warning: flush after build failed for video %s: %v", s.videoID, err)
	}

	log.Printf("Index built with %d documents (video %s, milvus)", len(texts), s.videoID)
	return nil
}

func (s *MilvusIndex) Load(ctx context.Context) error {
	rs, err := s.mc.Query(ctx, s.coll, nil, s.videoFilter(), []string{"id"}, client.WithLimit(1))
	if err != nil {
		log.Printf("Milvus query failed for video %s: %v", s.videoID, err)
		return ErrNotIndexed
	}
	for _, col := range rs {
		if col.Len() > 0 {
			return nil
		}
	}
	return ErrNotIndexed
}

func (s *MilvusIndex) Query(ctx context.Context, question string, topK int) []core.RetrievedResult {
	if topK <= 0 {
		topK = 5
	}
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil || len(vectors) != 1 {
		log.Printf("Query embedding failed for video %s: %v", s.videoID, err)
		return nil
	}
	query := vectors[0]
	l2Normalize(query)

	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, s.videoFilter(),
		[]string{"segment_id", "start", "end", "text"},
		[]entity.Vector{entity.FloatVector(query)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		log.Printf("Search failed for video %s: %v", s.videoID, err)
		return nil
	}

	var results []core.RetrievedResult
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var start, end float64
			var segmentID int64
			var text string
			if c, ok := cols["start"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					start = data[i]
				}
			}
			if c, ok := cols["end"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					end = data[i]
				}
			}
			if c, ok := cols["segment_id"].(*entity.ColumnInt64); ok {
				if data := c.Data(); i < len(data) {
					segmentID = data[i]
				}
			}
			if c, ok := cols["text"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					text = data[i]
				}
			}
			results = append(results, core.RetrievedResult{
				Text:  text,
				Score: float64(r.Scores[i]),
				Start: start,
				End:   end,
				Meta:  core.SegmentMeta{Start: start, End: end, SegmentID: int(segmentID)},
			})
		}
	}
	return results
}

// Count is best-effort for the Milvus backend; search already limits by topK
// server-side, so an unknown count only affects logging.
func (s *MilvusIndex) Count() int {
	rs, err := s.mc.Query(context.Background(), s.coll, nil, s.videoFilter(), []string{"id"})
	if err != nil {
		return 0
	}
	for _, col := range rs {
		if col.Name() == "id" {
			return col.Len()
		}
	}
	return 0
}

func (s *MilvusIndex) Close() error {
	return s.mc.Close()
}
