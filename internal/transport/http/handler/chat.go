package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

// ChatResponder is what the widget chat endpoint needs from the chat
// orchestrator.
type ChatResponder interface {
	Respond(ctx context.Context, input app.ChatInput) (*app.ChatResult, error)
	StreamRespond(
		ctx context.Context,
		input app.ChatInput,
		onSession func(sessionPublicID string, created bool) error,
		onToken func(token string) error,
	) (*app.ChatResult, error)
}

type ChatHandler struct {
	chat ChatResponder
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId"`
	TenantID  string `json:"tenantId" binding:"required"`
	WidgetID  string `json:"widgetId" binding:"required"`
	Stream    *bool  `json:"stream"`
}

func NewChatHandler(chat ChatResponder) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send handles one widget chat turn. Streaming is the default; clients opt
// out with "stream": false.
func (h *ChatHandler) Send(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	tenantID64, err := strconv.ParseUint(req.TenantID, 10, 64)
	if err != nil || tenantID64 == 0 {
		response.Error(c, http.StatusBadRequest, "invalid tenant id")
		return
	}

	input := app.ChatInput{
		TenantID:        uint(tenantID64),
		WidgetPublicID:  req.WidgetID,
		SessionPublicID: req.SessionID,
		Message:         req.Message,
	}

	if req.Stream != nil && !*req.Stream {
		h.respondJSON(c, input)
		return
	}
	h.respondStream(c, input)
}

func (h *ChatHandler) respondJSON(c *gin.Context, input app.ChatInput) {
	result, err := h.chat.Respond(c.Request.Context(), input)
	if err != nil {
		writeChatError(c, err)
		return
	}

	sources := make([]gin.H, 0, len(result.Sources))
	for _, src := range result.Sources {
		sources = append(sources, gin.H{
			"filename":        src.Filename,
			"similarityScore": src.Score,
		})
	}

	response.OK(c, gin.H{
		"response":        result.Response,
		"sessionId":       result.SessionPublicID,
		"relevantSources": sources,
	})
}

func (h *ChatHandler) respondStream(c *gin.Context, input app.ChatInput) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Headers are deferred until the first byte so validation failures can
	// still produce a proper JSON error.
	wroteAny := false
	writeChunk := func(chunk string) error {
		if !wroteAny {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Writer.WriteHeader(http.StatusOK)
			wroteAny = true
		}
		if _, err := c.Writer.Write([]byte(chunk)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_, err := h.chat.StreamRespond(c.Request.Context(), input,
		func(sessionPublicID string, created bool) error {
			if !created {
				return nil
			}
			return writeChunk(fmt.Sprintf("[[SESSION:%s]]\n", sessionPublicID))
		},
		writeChunk,
	)
	if err != nil {
		if wroteAny {
			// The client already received partial output; the stream just
			// ends. A trailing JSON error would corrupt the text body.
			log.Printf("chat stream aborted: %v", err)
			return
		}
		writeChatError(c, err)
	}
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrWidgetNotFound), errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "chat failed")
	}
}
