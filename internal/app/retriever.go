package app

import (
	"context"
	"log"
	"strings"

	"docuchat/internal/ai"
	"docuchat/internal/repository"
)

const (
	DefaultTopK          = 4
	DefaultMinSimilarity = 0.7
)

// Retriever turns a question into grounding passages. Retrieval is
// best-effort context augmentation: any failure degrades to an empty result
// so the chat turn can still proceed.
type Retriever struct {
	provider ai.Provider
	vectors  VectorStore

	defaultTopK     int
	defaultMinScore float32
}

func NewRetriever(provider ai.Provider, vectors VectorStore, topK int, minScore float32) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minScore <= 0 {
		minScore = DefaultMinSimilarity
	}
	return &Retriever{
		provider:        provider,
		vectors:         vectors,
		defaultTopK:     topK,
		defaultMinScore: minScore,
	}
}

// Retrieve embeds the query and returns the tenant's top passages above the
// similarity floor. Pass k <= 0 or minScore < 0 for the configured
// defaults.
func (r *Retriever) Retrieve(ctx context.Context, tenantID uint, query string, k int, minScore float32) []repository.SearchHit {
	query = strings.TrimSpace(query)
	if tenantID == 0 || query == "" {
		return nil
	}
	if k <= 0 {
		k = r.defaultTopK
	}
	if minScore < 0 {
		minScore = r.defaultMinScore
	}

	queryVec, err := r.provider.Embed(ctx, query)
	if err != nil {
		log.Printf("retriever: embed query for tenant %d failed: %v", tenantID, err)
		return nil
	}

	hits, err := r.vectors.SimilaritySearch(ctx, tenantID, queryVec, k, minScore)
	if err != nil {
		log.Printf("retriever: similarity search for tenant %d failed: %v", tenantID, err)
		return nil
	}
	return hits
}
