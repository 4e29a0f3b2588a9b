package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

var (
	ErrWidgetNotFound  = errors.New("widget not found")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
)

const promptPreamble = "You are a support assistant embedded on a website. " +
	"Answer using only the provided context passages. " +
	"If the context does not contain the answer, say you don't have that information; never invent facts. " +
	"Answer in the language the user writes in."

const noContextMarker = "No relevant context was found in the knowledge base for this question. " +
	"Tell the user you don't have information about this topic."

// emptyResponseFallback stands in for an assistant turn when the model
// returns nothing at all.
const emptyResponseFallback = "The model returned an empty response."

// WidgetStore resolves active widget configurations within one tenant.
type WidgetStore interface {
	GetActive(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, error)
}

// WidgetConfigCache is the cache-aside layer in front of WidgetStore.
type WidgetConfigCache interface {
	Get(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, bool, error)
	Set(ctx context.Context, widget *model.WidgetConfig) error
}

// SessionStore is the append-only conversation log.
type SessionStore interface {
	Create(ctx context.Context, session *model.ChatSession) error
	GetByPublicIDAndTenantID(ctx context.Context, publicID string, tenantID uint) (*model.ChatSession, error)
	AppendTurn(ctx context.Context, turn *model.ChatTurn) error
	ListRecentTurns(ctx context.Context, sessionID uint, limit int) ([]model.ChatTurn, error)
}

// TurnPublisher enqueues turns for asynchronous persistence.
type TurnPublisher interface {
	Publish(ctx context.Context, turn model.ChatTurn) error
}

// HistoryCache caches recent session turns.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.ChatTurn, bool, error)
	SetHistory(ctx context.Context, sessionID uint, turns []model.ChatTurn) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// PassageRetriever is the grounding lookup; see Retriever.
type PassageRetriever interface {
	Retrieve(ctx context.Context, tenantID uint, query string, k int, minScore float32) []repository.SearchHit
}

// ChatService orchestrates one grounded chat turn: widget resolution,
// retrieval, prompt assembly, session continuity, the model call, and turn
// persistence.
type ChatService struct {
	widgets         WidgetStore
	widgetCache     WidgetConfigCache
	sessions        SessionStore
	history         HistoryCache
	publisher       TurnPublisher
	retriever       PassageRetriever
	provider        ai.Provider
	maxContextTurns int
}

func NewChatService(
	widgets WidgetStore,
	widgetCache WidgetConfigCache,
	sessions SessionStore,
	history HistoryCache,
	publisher TurnPublisher,
	retriever PassageRetriever,
	provider ai.Provider,
	maxContextTurns int,
) *ChatService {
	if maxContextTurns <= 0 {
		maxContextTurns = 20
	}
	return &ChatService{
		widgets:         widgets,
		widgetCache:     widgetCache,
		sessions:        sessions,
		history:         history,
		publisher:       publisher,
		retriever:       retriever,
		provider:        provider,
		maxContextTurns: maxContextTurns,
	}
}

type ChatInput struct {
	TenantID        uint
	WidgetPublicID  string
	SessionPublicID string // empty = start a new session
	Message         string
}

type ChatResult struct {
	Response        string
	SessionPublicID string
	SessionCreated  bool
	Sources         []repository.SearchHit
}

// Respond runs one non-streaming chat turn.
func (s *ChatService) Respond(ctx context.Context, input ChatInput) (*ChatResult, error) {
	turn, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.provider.Complete(ctx, turn.messages)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyResponseFallback
	}

	s.persistAssistantTurn(ctx, turn.session, answer)
	return turn.result(answer), nil
}

// StreamRespond runs one streaming chat turn. onSession fires once, after
// the session is resolved and the user turn is stored but before any token,
// so the transport can emit the session sentinel first. Tokens are forwarded
// as they arrive; a mid-stream error discards the accumulated text and no
// assistant turn is persisted.
func (s *ChatService) StreamRespond(
	ctx context.Context,
	input ChatInput,
	onSession func(sessionPublicID string, created bool) error,
	onToken func(token string) error,
) (*ChatResult, error) {
	turn, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	if onSession != nil {
		if err := onSession(turn.session.PublicID, turn.created); err != nil {
			return nil, err
		}
	}

	full, err := s.provider.StreamComplete(ctx, turn.messages, onToken)
	if err != nil {
		return nil, fmt.Errorf("completion stream failed: %w", err)
	}
	full = strings.TrimSpace(full)
	if full == "" {
		// The client saw no tokens; send the fallback through the stream so
		// the persisted turn matches what the user was shown.
		full = emptyResponseFallback
		if onToken != nil {
			if err := onToken(full); err != nil {
				return nil, err
			}
		}
	}

	s.persistAssistantTurn(ctx, turn.session, full)
	return turn.result(full), nil
}

// ActiveWidget resolves the widget cache-aside. The public widget endpoint
// uses it too.
func (s *ChatService) ActiveWidget(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, error) {
	if s.widgetCache != nil {
		if widget, hit, err := s.widgetCache.Get(ctx, tenantID, publicID); err == nil && hit {
			return widget, nil
		}
	}

	widget, err := s.widgets.GetActive(ctx, tenantID, publicID)
	if err != nil {
		return nil, err
	}
	if widget == nil {
		return nil, ErrWidgetNotFound
	}
	if s.widgetCache != nil {
		if err := s.widgetCache.Set(ctx, widget); err != nil {
			log.Printf("cache widget %s failed: %v", publicID, err)
		}
	}
	return widget, nil
}

type turnContext struct {
	session  *model.ChatSession
	created  bool
	sources  []repository.SearchHit
	messages []ai.ChatMessage
}

func (t *turnContext) result(answer string) *ChatResult {
	return &ChatResult{
		Response:        answer,
		SessionPublicID: t.session.PublicID,
		SessionCreated:  t.created,
		Sources:         t.sources,
	}
}

// prepare does everything up to the model call: validation, widget
// resolution, retrieval, session continuity, user-turn persistence and
// prompt assembly. The user turn is stored before the model is invoked so a
// crashed completion still leaves an auditable session.
func (s *ChatService) prepare(ctx context.Context, input ChatInput) (*turnContext, error) {
	if input.TenantID == 0 || strings.TrimSpace(input.WidgetPublicID) == "" {
		return nil, ErrInvalidInput
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrMessageEmpty
	}

	widget, err := s.ActiveWidget(ctx, input.TenantID, input.WidgetPublicID)
	if err != nil {
		return nil, err
	}

	sources := s.retriever.Retrieve(ctx, input.TenantID, message, 0, -1)

	session, created, err := s.resolveSession(ctx, input, widget)
	if err != nil {
		return nil, err
	}

	var history []model.ChatTurn
	if !created {
		history = s.sessionHistory(ctx, session.ID)
	}

	userTurn := &model.ChatTurn{
		SessionID: session.ID,
		TenantID:  input.TenantID,
		Role:      model.TurnRoleUser,
		Content:   message,
		CreatedAt: time.Now(),
	}
	s.invalidateHistory(ctx, session.ID)
	if err := s.sessions.AppendTurn(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	return &turnContext{
		session:  session,
		created:  created,
		sources:  sources,
		messages: buildPromptMessages(widget, sources, history, message, s.maxContextTurns),
	}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, input ChatInput, widget *model.WidgetConfig) (*model.ChatSession, bool, error) {
	if strings.TrimSpace(input.SessionPublicID) == "" {
		session := &model.ChatSession{
			PublicID: uuid.NewString(),
			TenantID: input.TenantID,
			WidgetID: widget.ID,
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		return session, true, nil
	}

	session, err := s.sessions.GetByPublicIDAndTenantID(ctx, input.SessionPublicID, input.TenantID)
	if err != nil {
		return nil, false, err
	}
	if session == nil {
		return nil, false, ErrSessionNotFound
	}
	return session, false, nil
}

// sessionHistory reads recent turns through the cache, falling back to the
// store. History is context, not truth: a cache miss or error just means a
// slower or shorter prompt.
func (s *ChatService) sessionHistory(ctx context.Context, sessionID uint) []model.ChatTurn {
	if s.history != nil {
		if dirty, err := s.history.IsDirty(ctx, sessionID); err == nil && !dirty {
			if cached, hit, err := s.history.GetHistory(ctx, sessionID); err == nil && hit {
				return cached
			}
		}
	}

	turns, err := s.sessions.ListRecentTurns(ctx, sessionID, s.maxContextTurns)
	if err != nil {
		log.Printf("load history for session %d failed: %v", sessionID, err)
		return nil
	}
	if s.history != nil {
		if dirty, err := s.history.IsDirty(ctx, sessionID); err == nil && !dirty {
			_ = s.history.SetHistory(ctx, sessionID, turns)
		}
	}
	return turns
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID uint) {
	if s.history == nil {
		return
	}
	_ = s.history.MarkDirty(ctx, sessionID)
	_ = s.history.DeleteHistory(ctx, sessionID)
}

// persistAssistantTurn enqueues the finished answer. The response has
// already been delivered, so a publish failure is logged and swallowed:
// losing one logged turn beats denying a computed answer.
func (s *ChatService) persistAssistantTurn(ctx context.Context, session *model.ChatSession, content string) {
	turn := model.ChatTurn{
		SessionID: session.ID,
		TenantID:  session.TenantID,
		Role:      model.TurnRoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.invalidateHistory(ctx, session.ID)
	if err := s.publisher.Publish(ctx, turn); err != nil {
		log.Printf("publish assistant turn for session %d failed: %v", session.ID, err)
	}
}

// buildPromptMessages assembles the grounded prompt: preamble and widget
// instructions plus the context block as the system message, then the
// bounded history, then the new user message. An empty passage set is
// stated explicitly so the model knows context is absent.
func buildPromptMessages(
	widget *model.WidgetConfig,
	sources []repository.SearchHit,
	history []model.ChatTurn,
	message string,
	maxContextTurns int,
) []ai.ChatMessage {
	var system strings.Builder
	system.WriteString(promptPreamble)
	if prompt := strings.TrimSpace(widget.SystemPrompt); prompt != "" {
		system.WriteString("\n\n")
		system.WriteString(prompt)
	}
	system.WriteString("\n\nContext:\n")
	if len(sources) == 0 {
		system.WriteString(noContextMarker)
	} else {
		for _, src := range sources {
			system.WriteString("---\nSource: ")
			system.WriteString(src.Filename)
			system.WriteString("\n")
			system.WriteString(src.Content)
			system.WriteString("\n")
		}
		system.WriteString("---")
	}

	if len(history) > maxContextTurns {
		history = history[len(history)-maxContextTurns:]
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: system.String()})
	for _, turn := range history {
		role := turn.Role
		if role == "" {
			role = model.TurnRoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.TurnRoleUser, Content: message})
	return messages
}
