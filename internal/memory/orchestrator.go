package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartline/heartline/internal/adapter"
)

// Orchestrator coordinates storage, embedding and retrieval of profile memories.
type Orchestrator struct {
	store    *Store
	vectors  *VectorStore
	ranker   *Ranker
	index    *Index
	embedder adapter.Embedder
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil embedder disables semantic recall.
func NewOrchestrator(store *Store, vectors *VectorStore, embedder adapter.Embedder, minRelevance float64, logger *slog.Logger) *Orchestrator {
	if embedder == nil {
		embedder = adapter.NoopEmbedder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		vectors:  vectors,
		ranker:   NewRanker(),
		index:    NewIndex(minRelevance),
		embedder: embedder,
		logger:   logger,
	}
}

// Ingest stores a new profile and embeds its memories. Embedding is
// best-effort; the profile is stored even when it fails.
func (o *Orchestrator) Ingest(ctx context.Context, p Profile) (Profile, error) {
	stored, err := o.store.CreateProfile(ctx, p)
	if err != nil {
		return stored, fmt.Errorf("orchestrator: ingest: %w", err)
	}
	if n, err := o.Embed(ctx, stored); err != nil {
		o.logger.Debug("memory embedding skipped", "profile", stored.Name, "err", err)
	} else {
		o.logger.Debug("memories embedded", "profile", stored.Name, "count", n)
	}
	return stored, nil
}

// Embed (re)computes embeddings for every memory of p and returns how many
// were stored.
func (o *Orchestrator) Embed(ctx context.Context, p Profile) (int, error) {
	if !o.vectors.Enabled() || len(p.Memories) == 0 {
		return 0, nil
	}
	vecs, err := o.embedder.Embed(ctx, p.MemoryTexts())
	if err != nil {
		return 0, err
	}
	n := 0
	for i, m := range p.Memories {
		if i >= len(vecs) {
			break
		}
		if err := o.vectors.UpsertMemoryEmbedding(ctx, m.ID, vecs[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Recall returns up to k memory texts of p relevant to query. It prefers
// vector similarity and falls back to the lexical index when embeddings are
// unavailable or find nothing.
func (o *Orchestrator) Recall(ctx context.Context, p Profile, query string, k int) []string {
	if k <= 0 {
		k = DefaultTopK
	}
	if hits := o.recallSemantic(ctx, p, query, k); len(hits) > 0 {
		return hits
	}
	return o.index.Retrieve(query, p.MemoryTexts(), k)
}

func (o *Orchestrator) recallSemantic(ctx context.Context, p Profile, query string, k int) []string {
	if !o.vectors.Enabled() || len(p.Memories) == 0 {
		return nil
	}
	vecs, err := o.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil
	}

	// The vector table spans all profiles; over-fetch and keep this profile's.
	matches, _ := o.vectors.SearchMemories(ctx, vecs[0], k*8, 0)
	own := make(map[string]MemoryItem, len(p.Memories))
	for _, m := range p.Memories {
		own[m.ID] = m
	}

	simByID := make(map[string]float64, len(matches))
	var items []MemoryItem
	for _, m := range matches {
		item, ok := own[m.ID]
		if !ok {
			continue
		}
		simByID[m.ID] = m.Similarity()
		items = append(items, item)
	}

	ranked := o.ranker.RankBySimilarity(items, simByID)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]string, len(ranked))
	for i, m := range ranked {
		out[i] = m.Text
	}
	return out
}

// Forget deletes a profile and its memory embeddings.
func (o *Orchestrator) Forget(ctx context.Context, p Profile) error {
	for _, m := range p.Memories {
		_ = o.vectors.DeleteMemoryEmbedding(ctx, m.ID)
	}
	return o.store.DeleteProfile(ctx, p.ID)
}
