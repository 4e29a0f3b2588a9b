package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/app"
	"docuchat/internal/repository"
)

type fakeChatResponder struct {
	sessionID string
	created   bool
	tokens    []string
	sources   []repository.SearchHit
	err       error

	lastInput app.ChatInput
}

func (f *fakeChatResponder) Respond(ctx context.Context, input app.ChatInput) (*app.ChatResult, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &app.ChatResult{
		Response:        strings.Join(f.tokens, ""),
		SessionPublicID: f.sessionID,
		SessionCreated:  f.created,
		Sources:         f.sources,
	}, nil
}

func (f *fakeChatResponder) StreamRespond(
	ctx context.Context,
	input app.ChatInput,
	onSession func(string, bool) error,
	onToken func(string) error,
) (*app.ChatResult, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	if err := onSession(f.sessionID, f.created); err != nil {
		return nil, err
	}
	for _, tok := range f.tokens {
		if err := onToken(tok); err != nil {
			return nil, err
		}
	}
	return &app.ChatResult{
		Response:        strings.Join(f.tokens, ""),
		SessionPublicID: f.sessionID,
		SessionCreated:  f.created,
	}, nil
}

func newChatRouter(responder ChatResponder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v1/chat", NewChatHandler(responder).Send)
	return router
}

func postChat(t *testing.T, router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatStreamEmitsSentinelForNewSession(t *testing.T) {
	responder := &fakeChatResponder{
		sessionID: "abc-123",
		created:   true,
		tokens:    []string{"Hello ", "there"},
	}
	router := newChatRouter(responder)

	rec := postChat(t, router, map[string]interface{}{
		"message":  "hi",
		"tenantId": "7",
		"widgetId": "wgt-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "[[SESSION:abc-123]]\n"), "sentinel must be the first line, got %q", body)
	assert.Equal(t, "[[SESSION:abc-123]]\nHello there", body)
	assert.Equal(t, 1, strings.Count(body, "[[SESSION:"))
}

func TestChatStreamNoSentinelForExistingSession(t *testing.T) {
	responder := &fakeChatResponder{
		sessionID: "abc-123",
		created:   false,
		tokens:    []string{"continuing"},
	}
	router := newChatRouter(responder)

	rec := postChat(t, router, map[string]interface{}{
		"message":   "hi again",
		"tenantId":  "7",
		"widgetId":  "wgt-1",
		"sessionId": "abc-123",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "continuing", rec.Body.String())
	assert.Equal(t, "abc-123", responder.lastInput.SessionPublicID)
}

func TestChatStreamWidgetNotFoundIsJSONError(t *testing.T) {
	responder := &fakeChatResponder{err: app.ErrWidgetNotFound}
	router := newChatRouter(responder)

	rec := postChat(t, router, map[string]interface{}{
		"message":  "hi",
		"tenantId": "7",
		"widgetId": "nope",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, false, parsed["success"])
}

func TestChatNonStreamingJSONResponse(t *testing.T) {
	responder := &fakeChatResponder{
		sessionID: "sess-9",
		created:   true,
		tokens:    []string{"full answer"},
		sources: []repository.SearchHit{
			{Content: "passage", Filename: "kb.pdf", Score: 0.88},
		},
	}
	router := newChatRouter(responder)

	rec := postChat(t, router, map[string]interface{}{
		"message":  "hi",
		"tenantId": "7",
		"widgetId": "wgt-1",
		"stream":   false,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var parsed struct {
		Success         bool   `json:"success"`
		Response        string `json:"response"`
		SessionID       string `json:"sessionId"`
		RelevantSources []struct {
			Filename        string  `json:"filename"`
			SimilarityScore float32 `json:"similarityScore"`
		} `json:"relevantSources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.True(t, parsed.Success)
	assert.Equal(t, "full answer", parsed.Response)
	assert.Equal(t, "sess-9", parsed.SessionID)
	require.Len(t, parsed.RelevantSources, 1)
	assert.Equal(t, "kb.pdf", parsed.RelevantSources[0].Filename)
	assert.InDelta(t, 0.88, parsed.RelevantSources[0].SimilarityScore, 1e-4)
}

func TestChatRejectsMissingFields(t *testing.T) {
	router := newChatRouter(&fakeChatResponder{})

	rec := postChat(t, router, map[string]interface{}{"message": "hi"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsBadTenantID(t *testing.T) {
	router := newChatRouter(&fakeChatResponder{})

	rec := postChat(t, router, map[string]interface{}{
		"message":  "hi",
		"tenantId": "not-a-number",
		"widgetId": "wgt-1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
