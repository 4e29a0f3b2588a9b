package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/model"
	"docuchat/internal/transport/http/response"
)

// WidgetResolver looks up active widget configurations.
type WidgetResolver interface {
	ActiveWidget(ctx context.Context, tenantID uint, publicID string) (*model.WidgetConfig, error)
}

type WidgetHandler struct {
	widgets WidgetResolver
}

func NewWidgetHandler(widgets WidgetResolver) *WidgetHandler {
	return &WidgetHandler{widgets: widgets}
}

// Get serves the public widget bootstrap config. The system prompt never
// leaves the server.
func (h *WidgetHandler) Get(c *gin.Context) {
	tenantID64, err := strconv.ParseUint(c.Param("tenantId"), 10, 64)
	if err != nil || tenantID64 == 0 {
		response.Error(c, http.StatusBadRequest, "invalid tenant id")
		return
	}

	widget, err := h.widgets.ActiveWidget(c.Request.Context(), uint(tenantID64), c.Param("widgetId"))
	if err != nil {
		if errors.Is(err, app.ErrWidgetNotFound) {
			response.Error(c, http.StatusNotFound, "widget not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "widget lookup failed")
		return
	}

	response.OK(c, gin.H{
		"widget": gin.H{
			"widgetId":       widget.PublicID,
			"name":           widget.Name,
			"welcomeMessage": widget.WelcomeMessage,
			"placeholder":    widget.Placeholder,
			"primaryColor":   widget.PrimaryColor,
		},
	})
}
