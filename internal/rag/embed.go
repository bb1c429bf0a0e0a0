package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/llm"
)

// NewOpenAIEmbedding returns a chromem embedding function backed by the
// OpenAI embeddings endpoint.
func NewOpenAIEmbedding(cfg config.Config) (chromem.EmbeddingFunc, error) {
	key := strings.TrimSpace(config.GetAPIKey(cfg))
	if key == "" {
		return nil, llm.ErrMissingAPIKey
	}
	opts := []openai.Option{
		openai.WithToken(key),
		openai.WithEmbeddingModel(cfg.LLM.EmbeddingModel),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("rag: creating OpenAI client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("rag: creating embedder: %w", err)
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}, nil
}
