package adapter

import (
	"context"
	"errors"
)

// Embedder is a narrower interface for components that only need embedding,
// not full chat completion. An LLMAdapter satisfies this interface.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ErrEmbeddingsUnsupported is returned by providers without an embedding API.
var ErrEmbeddingsUnsupported = errors.New("adapter: embeddings not supported by this provider")

// NoopEmbedder always fails, which callers treat as "semantic recall off".
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrEmbeddingsUnsupported
}

// NewEmbedder returns the embedder for opts.Provider. "none" or an empty
// provider yields a NoopEmbedder.
func NewEmbedder(opts Options) (Embedder, error) {
	switch opts.Provider {
	case "", "none":
		return NoopEmbedder{}, nil
	case ProviderClaude:
		return nil, errors.New("adapter: claude has no embedding API; use openai, gemini or ollama")
	}
	return New(opts)
}
