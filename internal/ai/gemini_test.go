package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(url string) *GeminiClient {
	return NewGeminiClient(Options{
		BaseURL:        url,
		APIKey:         "gem-key",
		ChatModel:      "gemini-test",
		EmbeddingModel: "embed-test",
	})
}

func TestGeminiGenerateBodySplitsRoles(t *testing.T) {
	client := newTestGemini("http://x")

	body := client.generateBody([]ChatMessage{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "earlier answer"},
		{Role: "user", Content: "follow-up"},
	})

	contents, ok := body["contents"].([]geminiContent)
	require.True(t, ok)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)

	_, hasSystem := body["systemInstruction"]
	assert.True(t, hasSystem)
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "gem"}, {"text": "ini"}},
				}},
			},
		})
	}))
	defer srv.Close()

	answer, err := newTestGemini(srv.URL).Complete(context.Background(), []ChatMessage{
		{Role: "user", Content: "hello"},
	})

	require.NoError(t, err)
	assert.Equal(t, "gemini", answer)
}

func TestGeminiEmbedBatchCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/embed-test:batchEmbedContents", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": []map[string]interface{}{
				{"values": []float32{0.1, 0.2}},
				{"values": []float32{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	vectors, err := newTestGemini(srv.URL).EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestGeminiStreamComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))

		_, _ = w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"str\"}]}}]}\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"eam\"}]}}]}\n\n",
		))
	}))
	defer srv.Close()

	var chunks []string
	full, err := newTestGemini(srv.URL).StreamComplete(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "stream", full)
	assert.Equal(t, []string{"str", "eam"}, chunks)
}

func TestGeminiDefaultBaseURL(t *testing.T) {
	client := NewGeminiClient(Options{})

	assert.Contains(t, client.opts.BaseURL, "generativelanguage.googleapis.com")
}
