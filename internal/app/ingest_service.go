package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"docuchat/internal/ai"
	"docuchat/internal/extract"
	"docuchat/internal/model"
	"docuchat/internal/repository"
	"docuchat/internal/textsplit"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedType   = errors.New("unsupported media type")
	ErrPayloadTooLarge   = errors.New("file too large")
	ErrEmptyContent      = errors.New("no content to index")
	ErrExtractionFailed  = errors.New("text extraction failed")
	ErrEmbeddingFailed   = errors.New("embedding failed")
	ErrPersistenceFailed = errors.New("persisting document failed")
	ErrDocumentNotFound  = errors.New("document not found")
)

// DocumentStore is the document metadata repository surface the pipeline
// needs. Every method takes a tenant id or operates on a row created under
// one; there is no unscoped access.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	GetByIDAndTenantID(ctx context.Context, id, tenantID uint) (*model.Document, error)
	ListByTenantID(ctx context.Context, tenantID uint) ([]model.Document, error)
}

// VectorStore persists embedded chunks and answers similarity queries,
// always scoped to one tenant.
type VectorStore interface {
	UpsertDocument(ctx context.Context, tenantID, documentID uint, chunks []model.Chunk) error
	SimilaritySearch(ctx context.Context, tenantID uint, queryVec []float32, k int, minScore float32) ([]repository.SearchHit, error)
	DeleteDocument(ctx context.Context, tenantID, documentID uint) error
}

// IngestConfig bounds one ingestion run.
type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	EmbeddingDim   int // 0 = accept the provider's dimension
	MaxUploadBytes int64
}

// IngestService runs the upload pipeline: policy check, extraction,
// chunking, batched embedding, then one atomic write. A document is either
// fully searchable or marked failed; there is no in-between and no retry.
type IngestService struct {
	docs     DocumentStore
	vectors  VectorStore
	provider ai.Provider
	cfg      IngestConfig
}

func NewIngestService(docs DocumentStore, vectors VectorStore, provider ai.Provider, cfg IngestConfig) *IngestService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = textsplit.DefaultSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = textsplit.DefaultOverlap
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &IngestService{
		docs:     docs,
		vectors:  vectors,
		provider: provider,
		cfg:      cfg,
	}
}

type IngestInput struct {
	TenantID    uint
	Filename    string
	ContentType string
	Data        []byte
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
}

func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.TenantID == 0 {
		return nil, ErrInvalidInput
	}

	// Policy first: nothing is stored and no provider is called for inputs
	// that can be rejected from the declaration alone.
	if int64(len(input.Data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes over limit %d", ErrPayloadTooLarge, len(input.Data), s.cfg.MaxUploadBytes)
	}
	if !extract.Supported(input.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, input.ContentType)
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "untitled"
	}

	doc := &model.Document{
		TenantID:    input.TenantID,
		Filename:    filename,
		ContentType: input.ContentType,
		SizeBytes:   int64(len(input.Data)),
		Status:      model.DocumentStatusProcessing,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	text, err := extract.Extract(input.Data, input.ContentType)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			return nil, s.fail(ctx, doc.ID, "file contains no extractable text", ErrEmptyContent)
		}
		return nil, s.fail(ctx, doc.ID, "file could not be read", fmt.Errorf("%w: %v", ErrExtractionFailed, err))
	}
	if strings.TrimSpace(text) == "" {
		return nil, s.fail(ctx, doc.ID, "file contains no extractable text", ErrEmptyContent)
	}

	segments := textsplit.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(segments) == 0 {
		return nil, s.fail(ctx, doc.ID, "file contains no extractable text", ErrEmptyContent)
	}

	embeddings, err := s.embedAll(ctx, segments)
	if err != nil {
		reason := "embedding provider error"
		if errors.Is(err, ai.ErrRateLimited) {
			reason = "embedding provider rate limited"
		}
		return nil, s.fail(ctx, doc.ID, reason, err)
	}

	chunks := make([]model.Chunk, len(segments))
	for i := range segments {
		chunks[i] = model.Chunk{
			Ordinal: i,
			Content: segments[i],
		}
		chunks[i].SetEmbedding(embeddings[i])
	}

	if err := s.vectors.UpsertDocument(ctx, input.TenantID, doc.ID, chunks); err != nil {
		return nil, s.fail(ctx, doc.ID, "storing chunks failed", fmt.Errorf("%w: %v", ErrPersistenceFailed, err))
	}

	doc.Status = model.DocumentStatusCompleted
	doc.ChunkCount = len(chunks)
	return &IngestResult{
		Document:   *doc,
		ChunkCount: len(chunks),
	}, nil
}

// embedAll embeds every segment in bounded batches, preserving order. Any
// batch error aborts the whole document: either all vectors exist in memory
// afterwards or none are persisted.
func (s *IngestService) embedAll(ctx context.Context, segments []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(segments))
	for i := 0; i < len(segments); i += s.cfg.EmbedBatchSize {
		end := i + s.cfg.EmbedBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch, err := s.provider.EmbedBatch(ctx, segments[i:end])
		if err != nil {
			if errors.Is(err, ai.ErrRateLimited) {
				return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, ai.ErrRateLimited)
			}
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("%w: got %d vectors for %d segments", ErrEmbeddingFailed, len(embeddings), len(segments))
	}

	dim := s.cfg.EmbeddingDim
	if dim == 0 && len(embeddings) > 0 {
		dim = len(embeddings[0])
	}
	for i := range embeddings {
		if len(embeddings[i]) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrEmbeddingFailed, i, len(embeddings[i]), dim)
		}
	}
	return embeddings, nil
}

func (s *IngestService) List(ctx context.Context, tenantID uint) ([]model.Document, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByTenantID(ctx, tenantID)
}

func (s *IngestService) Delete(ctx context.Context, tenantID, documentID uint) error {
	if tenantID == 0 || documentID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docs.GetByIDAndTenantID(ctx, documentID, tenantID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.vectors.DeleteDocument(ctx, tenantID, documentID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// fail marks the document failed and passes the typed pipeline error
// through. A failed mark that itself fails is only logged; the caller's
// error is the one that matters.
func (s *IngestService) fail(ctx context.Context, docID uint, reason string, err error) error {
	if markErr := s.docs.MarkFailed(ctx, docID, reason); markErr != nil {
		log.Printf("mark document %d failed: %v", docID, markErr)
	}
	return err
}
