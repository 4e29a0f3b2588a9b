package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiClient speaks the Generative Language REST API. It maps the shared
// ChatMessage shape onto Gemini's contents/systemInstruction split so callers
// stay provider-agnostic.
type GeminiClient struct {
	opts       Options
	httpClient *http.Client
}

func NewGeminiClient(opts Options) *GeminiClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiClient{
		opts:       opts,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	reqBody := map[string]interface{}{
		"content": geminiContent{Parts: []geminiPart{{Text: text}}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	raw, err := c.post(ctx, c.modelURL(c.opts.EmbeddingModel, "embedContent"), bodyBytes)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return parsed.Embedding.Values, nil
}

func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type embedRequest struct {
		Model   string        `json:"model"`
		Content geminiContent `json:"content"`
	}
	requests := make([]embedRequest, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding batch input %d is empty", i)
		}
		requests[i] = embedRequest{
			Model:   "models/" + c.opts.EmbeddingModel,
			Content: geminiContent{Parts: []geminiPart{{Text: t}}},
		}
	}
	bodyBytes, err := json.Marshal(map[string]interface{}{"requests": requests})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding batch request failed: %w", err)
	}

	raw, err := c.post(ctx, c.modelURL(c.opts.EmbeddingModel, "batchEmbedContents"), bodyBytes)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding batch json failed: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(parsed.Embeddings))
	}
	result := make([][]float32, len(parsed.Embeddings))
	for i := range parsed.Embeddings {
		result[i] = parsed.Embeddings[i].Values
	}
	return result, nil
}

func (c *GeminiClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	bodyBytes, err := json.Marshal(c.generateBody(messages))
	if err != nil {
		return "", fmt.Errorf("marshal llm request failed: %w", err)
	}

	raw, err := c.post(ctx, c.modelURL(c.opts.ChatModel, "generateContent"), bodyBytes)
	if err != nil {
		return "", err
	}

	text, err := parseGeminiCandidate(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) StreamComplete(
	ctx context.Context,
	messages []ChatMessage,
	onChunk func(chunk string) error,
) (string, error) {
	bodyBytes, err := json.Marshal(c.generateBody(messages))
	if err != nil {
		return "", fmt.Errorf("marshal llm stream request failed: %w", err)
	}

	url := c.modelURL(c.opts.ChatModel, "streamGenerateContent") + "?alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build llm stream request failed: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm stream status %d: %s", resp.StatusCode, string(raw))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		text, err := parseGeminiCandidate([]byte(payload))
		if err != nil || text == "" {
			continue
		}

		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan llm stream failed: %w", err)
	}
	return full.String(), nil
}

// generateBody splits system messages into systemInstruction and maps
// assistant turns onto Gemini's "model" role.
func (c *GeminiClient) generateBody(messages []ChatMessage) map[string]interface{} {
	var system []geminiPart
	var contents []geminiContent
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, geminiPart{Text: m.Content})
		case "assistant":
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	body := map[string]interface{}{"contents": contents}
	if len(system) > 0 {
		body["systemInstruction"] = map[string]interface{}{"parts": system}
	}
	return body
}

func parseGeminiCandidate(raw []byte) (string, error) {
	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("empty llm candidates")
	}
	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *GeminiClient) modelURL(model, method string) string {
	return strings.TrimRight(c.opts.BaseURL, "/") + "/models/" + model + ":" + method
}

func (c *GeminiClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response failed: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func (c *GeminiClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.opts.APIKey)
}
