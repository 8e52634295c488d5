package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"videoChat/config"
	"videoChat/core"
)

// PgVectorIndex keeps one video's segments in a shared pgvector table.
// Durability lives in Postgres, so Build both replaces the rows and persists
// them in one step, and Load is a row-count probe.
type PgVectorIndex struct {
	conn     *pgx.Conn
	embedder EmbeddingProvider
	videoID  string
	dim      int
}

func NewPgVectorIndex(ctx context.Context, cfg *config.Config, videoID string, embedder EmbeddingProvider) (*PgVectorIndex, error) {
	conn, err := pgx.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgVectorIndex{conn: conn, embedder: embedder, videoID: videoID, dim: cfg.EmbeddingDim}
	if err := s.ensureTable(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PgVectorIndex) ensureTable(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS video_segments (
			id SERIAL PRIMARY KEY,
			video_id VARCHAR(255) NOT NULL,
			segment_id INT NOT NULL,
			start_time FLOAT NOT NULL,
			end_time FLOAT NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(video_id, segment_id)
		);
	`, s.dim)
	if _, err := s.conn.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("failed to create video_segments table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_video_segments_video_id ON video_segments(video_id);",
		`CREATE INDEX IF NOT EXISTS idx_video_segments_embedding
			ON video_segments USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);`,
	}
	for _, indexQuery := range indexes {
		if _, err := s.conn.Exec(ctx, indexQuery); err != nil {
			log.Printf("Warning: failed to create index: %v", err)
		}
	}
	return nil
}

// Build 整体重建当前视频的所有行（无增量更新）
func (s *PgVectorIndex) Build(ctx context.Context, segments []core.Segment) error {
	texts, metas := filterSegments(segments)
	if len(texts) == 0 {
		return fmt.Errorf("no valid text segments for video %s", s.videoID)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed segments: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, vec := range vectors {
		if len(vec) != s.dim {
			return fmt.Errorf("embedding dimension %d does not match configured dimension %d", len(vec), s.dim)
		}
		l2Normalize(vec)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM video_segments WHERE video_id = $1", s.videoID); err != nil {
		return fmt.Errorf("clear previous segments: %w", err)
	}
	for i, text := range texts {
		meta := metas[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO video_segments (video_id, segment_id, start_time, end_time, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.videoID, meta.SegmentID, meta.Start, meta.End, text, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("insert segment %d: %w", meta.SegmentID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	log.Printf("Index built with %d documents (video %s, pgvector)", len(texts), s.videoID)
	return nil
}

func (s *PgVectorIndex) Load(ctx context.Context) error {
	if s.Count() == 0 {
		return ErrNotIndexed
	}
	return nil
}

func (s *PgVectorIndex) Query(ctx context.Context, question string, topK int) []core.RetrievedResult {
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

	rows, err := s.conn.Query(ctx, `
		SELECT segment_id, start_time, end_time, text,
		       1 - (embedding <=> $1) AS similarity
		FROM video_segments
		WHERE video_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(query), s.videoID, topK)
	if err != nil {
		log.Printf("Search failed for video %s: %v", s.videoID, err)
		return nil
	}
	defer rows.Close()

	var results []core.RetrievedResult
	for rows.Next() {
		var segmentID int
		var start, end, similarity float64
		var text string
		if err := rows.Scan(&segmentID, &start, &end, &text, &similarity); err != nil {
			continue
		}
		results = append(results, core.RetrievedResult{
			Text:  text,
			Score: similarity,
			Start: start,
			End:   end,
			Meta:  core.SegmentMeta{Start: start, End: end, SegmentID: segmentID},
		})
	}
	return results
}

func (s *PgVectorIndex) Count() int {
	var count int
	err := s.conn.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM video_segments WHERE video_id = $1", s.videoID).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

func (s *PgVectorIndex) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
