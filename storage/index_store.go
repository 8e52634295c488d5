package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"videoChat/core"
)

const (
	vectorFileName = "index.vec"
	dataFileName   = "data.json"
)

// indexData is the structured half of a persisted index: the documents and
// metadata aligned with the vector file, plus the embedding identity they
// were built with.
type indexData struct {
	Model     string             `json:"embedding_model"`
	Dimension int                `json:"dimension"`
	Documents []string           `json:"documents"`
	Metadatas []core.SegmentMeta `json:"metadatas"`
}

// FileIndex is the file-backed SegmentIndex: a flat inner-product index plus
// documents/metadata persisted as two files under indexRoot/<videoID>/.
// Both files must exist and agree for a load to succeed; anything else is
// treated as "not indexed", never as a fatal error.
type FileIndex struct {
	videoID  string
	dir      string
	embedder EmbeddingProvider

	mu        sync.Mutex
	index     *flatIndex
	documents []string
	metadatas []core.SegmentMeta
	loaded    bool
}

func NewFileIndex(indexRoot, videoID string, embedder EmbeddingProvider) *FileIndex {
	return &FileIndex{
		videoID:  videoID,
		dir:      filepath.Join(indexRoot, videoID),
		embedder: embedder,
	}
}

// Build embeds the surviving segments, constructs a fresh index and persists
// it. On any failure the previous in-memory and on-disk state is kept; no
// partial index is ever left behind.
func (s *FileIndex) Build(ctx context.Context, segments []core.Segment) error {
	texts, metas := filterSegments(segments)
	if len(texts) == 0 {
		return fmt.Errorf("no valid text segments for video %s", s.videoID)
	}

	log.Printf("Generating embeddings for %d segments (video %s)", len(texts), s.videoID)
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed segments: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	index := newFlatIndex(len(vectors[0]))
	for _, vec := range vectors {
		l2Normalize(vec)
		if err := index.add(vec); err != nil {
			return fmt.Errorf("index segment: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(index, texts, metas); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	s.index = index
	s.documents = texts
	s.metadatas = metas
	s.loaded = true
	log.Printf("Index built with %d documents (video %s)", index.count(), s.videoID)
	return nil
}

// save writes the vector file and the data file, each atomically
// (write-to-temp-then-rename). A concurrent reader sees either both halves of
// some complete build or a load failure it treats as absence.
func (s *FileIndex) save(index *flatIndex, documents []string, metadatas []core.SegmentMeta) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	vecPath := filepath.Join(s.dir, vectorFileName)
	if err := writeFileAtomic(vecPath, index.writeTo); err != nil {
		return fmt.Errorf("write vector file: %w", err)
	}

	data := indexData{
		Model:     s.embedder.ModelName(),
		Dimension: index.dim,
		Documents: documents,
		Metadatas: metadatas,
	}
	dataPath := filepath.Join(s.dir, dataFileName)
	err := writeFileAtomic(dataPath, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(&data)
	})
	if err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the persisted index. A missing file, unreadable content or a
// mismatch against the configured embedder reports ErrNotIndexed and leaves
// the store in the "not indexed" state.
func (s *FileIndex) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileIndex) loadLocked() error {
	vecPath := filepath.Join(s.dir, vectorFileName)
	dataPath := filepath.Join(s.dir, dataFileName)

	vecFile, err := os.Open(vecPath)
	if err != nil {
		return ErrNotIndexed
	}
	defer vecFile.Close()
	dataBytes, err := os.ReadFile(dataPath)
	if err != nil {
		return ErrNotIndexed
	}

	index, err := readFlatIndex(vecFile)
	if err != nil {
		log.Printf("Corrupt vector file for video %s: %v", s.videoID, err)
		return ErrNotIndexed
	}
	var data indexData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		log.Printf("Corrupt data file for video %s: %v", s.videoID, err)
		return ErrNotIndexed
	}

	if len(data.Documents) != len(data.Metadatas) || len(data.Documents) != index.count() {
		log.Printf("Inconsistent index for video %s: %d documents, %d metadatas, %d vectors",
			s.videoID, len(data.Documents), len(data.Metadatas), index.count())
		return ErrNotIndexed
	}
	if data.Dimension != index.dim {
		log.Printf("Inconsistent index dimension for video %s: data says %d, vectors say %d",
			s.videoID, data.Dimension, index.dim)
		return ErrNotIndexed
	}
	if data.Model != s.embedder.ModelName() {
		// Built with a different embedding model; treat as absent so the
		// caller rebuilds rather than mixing vector spaces.
		log.Printf("Index for video %s built with model %q, configured model is %q",
			s.videoID, data.Model, s.embedder.ModelName())
		return ErrNotIndexed
	}

	s.index = index
	s.documents = data.Documents
	s.metadatas = data.Metadatas
	s.loaded = true
	log.Printf("Index loaded with %d documents (video %s)", index.count(), s.videoID)
	return nil
}

// Query lazily loads the index, embeds the question and returns the topK
// nearest segments. Every failure path returns an empty list; retrieval
// problems must not crash question answering.
func (s *FileIndex) Query(ctx context.Context, question string, topK int) []core.RetrievedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return nil
		}
	}
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

	hits, err := s.index.search(query, topK)
	if err != nil {
		log.Printf("Search failed for video %s: %v", s.videoID, err)
		return nil
	}

	results := make([]core.RetrievedResult, 0, len(hits))
	for _, hit := range hits {
		meta := s.metadatas[hit.Position]
		results = append(results, core.RetrievedResult{
			Text:  s.documents[hit.Position],
			Score: hit.Score,
			Start: meta.Start,
			End:   meta.End,
			Meta:  meta,
		})
	}
	return results
}

func (s *FileIndex) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return 0
	}
	return s.index.count()
}
