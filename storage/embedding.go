package storage

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"videoChat/config"
)

// embedBatchSize caps how many texts go into one embeddings request.
const embedBatchSize = 64

// EmbeddingProvider maps text to fixed-dimension vectors. Deterministic for a
// fixed model name; every index records the model it was built with.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	cli   *openai.Client
	model string
}

func NewOpenAIEmbedder(cfg *config.Config) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		cli:   newOpenAIClient(cfg),
		model: cfg.EmbeddingModel,
	}
}

func (e *OpenAIEmbedder) ModelName() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		req := openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: texts[offset:end],
		}
		resp, err := e.cli.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embedding API failed: %w", err)
		}
		if len(resp.Data) != end-offset {
			return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), end-offset)
		}
		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
	}
	return vectors, nil
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// l2Normalize scales vec to unit length in place. Stored and query vectors are
// all unit-length, so inner product equals cosine similarity.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
