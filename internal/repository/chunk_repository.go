package repository

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

// ChunkRepository is the vector store: it persists chunks with their
// embeddings and answers tenant-scoped similarity queries. Embeddings live
// in a JSON text column and similarity is computed here, which keeps the
// database an ordinary relational store.
type ChunkRepository struct {
	db *gorm.DB
}

// SearchHit is one ranked passage with provenance.
type SearchHit struct {
	Content  string  `json:"content"`
	Filename string  `json:"filename"`
	Score    float32 `json:"score"`
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// UpsertDocument writes all chunks of a document and flips the document to
// completed in one transaction. A document is either fully indexed or not
// indexed at all; search never observes a partial set.
func (r *ChunkRepository) UpsertDocument(ctx context.Context, tenantID, documentID uint, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("upsert document %d: no chunks", documentID)
	}
	for i := range chunks {
		chunks[i].TenantID = tenantID
		chunks[i].DocumentID = documentID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ? AND tenant_id = ?", documentID, tenantID).
			Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&chunks).Error; err != nil {
			return err
		}
		return tx.Model(&model.Document{}).
			Where("id = ? AND tenant_id = ?", documentID, tenantID).
			Updates(map[string]interface{}{
				"status":      model.DocumentStatusCompleted,
				"chunk_count": len(chunks),
				"fail_reason": "",
			}).Error
	})
	if err != nil {
		return fmt.Errorf("upsert document chunks failed: %w", err)
	}
	return nil
}

// SimilaritySearch ranks the tenant's completed chunks against the query
// vector by cosine similarity. Hits below minScore are excluded entirely;
// ties keep insertion order.
func (r *ChunkRepository) SimilaritySearch(
	ctx context.Context,
	tenantID uint,
	queryVec []float32,
	k int,
	minScore float32,
) ([]SearchHit, error) {
	if k <= 0 || len(queryVec) == 0 {
		return nil, nil
	}

	type chunkRow struct {
		model.Chunk
		Filename string
	}
	var rows []chunkRow
	err := r.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, documents.filename AS filename").
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("chunks.tenant_id = ? AND documents.status = ?", tenantID, model.DocumentStatusCompleted).
		Order("chunks.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load chunks for search failed: %w", err)
	}

	candidates := make([]searchCandidate, len(rows))
	for i := range rows {
		candidates[i] = searchCandidate{
			TenantID:  rows[i].TenantID,
			Content:   rows[i].Content,
			Filename:  rows[i].Filename,
			Embedding: rows[i].EmbeddingVector(),
		}
	}
	return rankCandidates(tenantID, queryVec, candidates, k, minScore), nil
}

// searchCandidate is one loaded chunk row under consideration for ranking.
type searchCandidate struct {
	TenantID  uint
	Content   string
	Filename  string
	Embedding []float32
}

// rankCandidates scores candidates against the query vector and keeps only
// those belonging to the tenant with a score of at least minScore. The query
// already filters by tenant; the check here guards against a join or scan
// mistake leaking another tenant's content into answers. Results are ordered
// by descending score, ties keep input order, and at most k hits are
// returned.
func rankCandidates(tenantID uint, queryVec []float32, candidates []searchCandidate, k int, minScore float32) []SearchHit {
	scored := make([]SearchHit, 0, len(candidates))
	for i := range candidates {
		if candidates[i].TenantID != tenantID {
			continue
		}
		score := CosineSimilarity(queryVec, candidates[i].Embedding)
		if score < minScore {
			continue
		}
		scored = append(scored, SearchHit{
			Content:  candidates[i].Content,
			Filename: candidates[i].Filename,
			Score:    score,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// DeleteDocument removes a document and every chunk derived from it in one
// transaction.
func (r *ChunkRepository) DeleteDocument(ctx context.Context, tenantID, documentID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ? AND tenant_id = ?", documentID, tenantID).
			Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND tenant_id = ?", documentID, tenantID).
			Delete(&model.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// CosineSimilarity reports 1 - cosine distance over aligned vectors.
// Mismatched or empty vectors score zero so a stray dimension change ranks
// last instead of corrupting results.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
