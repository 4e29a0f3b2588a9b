package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/repository"
)

func TestRetrievePassesScopeAndLimits(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.hits = []repository.SearchHit{
		{Content: "passage", Filename: "doc.txt", Score: 0.92},
	}
	r := NewRetriever(&fakeProvider{}, vectors, 4, 0.7)

	hits := r.Retrieve(context.Background(), 9, "how do refunds work?", 0, -1)

	require.Len(t, hits, 1)
	assert.Equal(t, uint(9), vectors.lastSearchTenant)
	assert.Equal(t, 4, vectors.lastK)
	assert.InDelta(t, 0.7, vectors.lastMinScore, 1e-6)
}

func TestRetrieveExplicitOverrides(t *testing.T) {
	vectors := newFakeVectorStore()
	r := NewRetriever(&fakeProvider{}, vectors, 4, 0.7)

	r.Retrieve(context.Background(), 1, "question", 10, 0.5)

	assert.Equal(t, 10, vectors.lastK)
	assert.InDelta(t, 0.5, vectors.lastMinScore, 1e-6)
}

func TestRetrieveEmbedFailureDegradesToEmpty(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.hits = []repository.SearchHit{{Content: "never seen"}}
	provider := &fakeProvider{
		embedFn: func(texts []string) ([][]float32, error) {
			return nil, errors.New("provider down")
		},
	}
	r := NewRetriever(provider, vectors, 4, 0.7)

	hits := r.Retrieve(context.Background(), 1, "question", 0, -1)

	assert.Nil(t, hits)
}

func TestRetrieveSearchFailureDegradesToEmpty(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.searchErr = errors.New("db down")
	r := NewRetriever(&fakeProvider{}, vectors, 4, 0.7)

	hits := r.Retrieve(context.Background(), 1, "question", 0, -1)

	assert.Nil(t, hits)
}

func TestRetrieveBlankQuery(t *testing.T) {
	provider := &fakeProvider{}
	r := NewRetriever(provider, newFakeVectorStore(), 4, 0.7)

	hits := r.Retrieve(context.Background(), 1, "   ", 0, -1)

	assert.Nil(t, hits)
	assert.Zero(t, provider.embedCalls)
}
