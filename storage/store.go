package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"videoChat/config"
	"videoChat/core"
)

// minSegmentChars: segments at or below this length (after trimming) are
// dropped before indexing. They add noise without retrieval value.
const minSegmentChars = 10

// ErrNotIndexed marks the normal "no index exists for this video yet" state.
var ErrNotIndexed = errors.New("video not indexed")

// SegmentIndex is the per-video nearest-neighbor index over transcript
// segments. Each instance is scoped to exactly one video; there is no
// cross-video state. Build replaces the whole index (no incremental update),
// Load brings persisted state into memory, Query never fails the caller: on
// any problem it returns an empty result list.
type SegmentIndex interface {
	Build(ctx context.Context, segments []core.Segment) error
	Load(ctx context.Context) error
	Query(ctx context.Context, question string, topK int) []core.RetrievedResult
	Count() int
}

// OpenIndex 根据配置选择索引后端
func OpenIndex(ctx context.Context, cfg *config.Config, videoID string, embedder EmbeddingProvider) (SegmentIndex, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	switch backend {
	case "", "file":
		return NewFileIndex(cfg.IndexRoot, videoID, embedder), nil
	case "pgvector":
		return NewPgVectorIndex(ctx, cfg, videoID, embedder)
	case "milvus":
		return NewMilvusIndex(ctx, cfg, videoID, embedder)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
}

// filterSegments keeps texts long enough to be worth indexing, preserving
// input order. The returned slices stay index-aligned.
func filterSegments(segments []core.Segment) ([]string, []core.SegmentMeta) {
	texts := make([]string, 0, len(segments))
	metas := make([]core.SegmentMeta, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if len(text) <= minSegmentChars {
			continue
		}
		texts = append(texts, text)
		metas = append(metas, core.SegmentMeta{Start: seg.Start, End: seg.End, SegmentID: seg.ID})
	}
	return texts, metas
}
