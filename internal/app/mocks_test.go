package app

import (
	"context"
	"fmt"
	"sync"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

type fakeProvider struct {
	mu       sync.Mutex
	embedFn  func(texts []string) ([][]float32, error)
	complete func(messages []ai.ChatMessage) (string, error)
	stream   func(messages []ai.ChatMessage, onChunk func(string) error) (string, error)

	embedCalls    int
	lastMessages  []ai.ChatMessage
	completeCalls int
}

func (p *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.embedCalls++
	p.mu.Unlock()
	if p.embedFn != nil {
		return p.embedFn(texts)
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1, 0, 0}
	}
	return result, nil
}

func (p *fakeProvider) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	p.completeCalls++
	p.lastMessages = messages
	if p.complete != nil {
		return p.complete(messages)
	}
	return "canned answer", nil
}

func (p *fakeProvider) StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	p.lastMessages = messages
	if p.stream != nil {
		return p.stream(messages, onChunk)
	}
	for _, part := range []string{"canned ", "answer"} {
		if err := onChunk(part); err != nil {
			return "", err
		}
	}
	return "canned answer", nil
}

type fakeDocStore struct {
	mu         sync.Mutex
	docs       map[uint]*model.Document
	nextID     uint
	created    int
	markFailed []string
	createErr  error
	markErr    error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[uint]*model.Document{}, nextID: 1}
}

func (s *fakeDocStore) Create(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	doc.ID = s.nextID
	s.nextID++
	s.created++
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocStore) MarkFailed(ctx context.Context, id uint, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.markFailed = append(s.markFailed, reason)
	if doc, ok := s.docs[id]; ok {
		doc.Status = model.DocumentStatusFailed
		doc.FailReason = reason
	}
	return nil
}

func (s *fakeDocStore) GetByIDAndTenantID(ctx context.Context, id, tenantID uint) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, nil
	}
	return doc, nil
}

func (s *fakeDocStore) ListByTenantID(ctx context.Context, tenantID uint) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, doc := range s.docs {
		if doc.TenantID == tenantID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type fakeVectorStore struct {
	mu        sync.Mutex
	upserts   map[uint][]model.Chunk
	hits      []repository.SearchHit
	upsertErr error
	searchErr error
	deleteErr error
	deleted   []uint

	lastSearchTenant uint
	lastK            int
	lastMinScore     float32
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{upserts: map[uint][]model.Chunk{}}
}

func (s *fakeVectorStore) UpsertDocument(ctx context.Context, tenantID, documentID uint, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts[documentID] = chunks
	return nil
}

func (s *fakeVectorStore) SimilaritySearch(ctx context.Context, tenantID uint, queryVec []float32, k int, minScore float32) ([]repository.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSearchTenant = tenantID
	s.lastK = k
	s.lastMinScore = minScore
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}

func (s *fakeVectorStore) DeleteDocument(ctx context.Context, tenantID, documentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, documentID)
	return nil
}

type fakeWidgetStore struct {
	widgets map[string]*model.WidgetConfig
	err     error
	calls   int
}

func newFakeWidgetStore(widgets ...*model.WidgetConfig) *fakeWidgetStore {
	s := &fakeWidgetStore{widgets: map[string]*model.WidgetConfig{}}
	for _, w := range widgets {
		s.widgets[fmt.Sprintf("%d/%s", w.TenantID, w.PublicID)] = w
	}
	return s
}

func (s *fakeWidgetStore) GetActive(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.widgets[fmt.Sprintf("%d/%s", tenantID, publicID)], nil
}

type fakeSessionStore struct {
	sessions map[string]*model.ChatSession
	turns    []model.ChatTurn
	nextID   uint

	createErr error
	appendErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*model.ChatSession{}, nextID: 1}
}

func (s *fakeSessionStore) Create(ctx context.Context, session *model.ChatSession) error {
	if s.createErr != nil {
		return s.createErr
	}
	session.ID = s.nextID
	s.nextID++
	copied := *session
	s.sessions[session.PublicID] = &copied
	return nil
}

func (s *fakeSessionStore) GetByPublicIDAndTenantID(ctx context.Context, publicID string, tenantID uint) (*model.ChatSession, error) {
	session, ok := s.sessions[publicID]
	if !ok || session.TenantID != tenantID {
		return nil, nil
	}
	return session, nil
}

func (s *fakeSessionStore) AppendTurn(ctx context.Context, turn *model.ChatTurn) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.turns = append(s.turns, *turn)
	return nil
}

func (s *fakeSessionStore) ListRecentTurns(ctx context.Context, sessionID uint, limit int) ([]model.ChatTurn, error) {
	var out []model.ChatTurn
	for _, turn := range s.turns {
		if turn.SessionID == sessionID {
			out = append(out, turn)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakePublisher struct {
	published []model.ChatTurn
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, turn model.ChatTurn) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, turn)
	return nil
}

type fakeRetriever struct {
	hits  []repository.SearchHit
	calls int
}

func (r *fakeRetriever) Retrieve(ctx context.Context, tenantID uint, query string, k int, minScore float32) []repository.SearchHit {
	r.calls++
	return r.hits
}
