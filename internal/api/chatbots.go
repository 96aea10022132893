package api

import (
	"net/http"

	"agentai-console/internal/cache"
	"agentai-console/internal/form"
	"agentai-console/internal/store"
	"agentai-console/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
)

type ChatbotHandler struct {
	Gateway Gateway
	Store   *store.Store
	Cache   cache.Invalidator
}

func NewChatbotHandler(gw Gateway, st *store.Store, inv cache.Invalidator) *ChatbotHandler {
	return &ChatbotHandler{Gateway: gw, Store: st, Cache: inv}
}

// UpdateChatbot saves an edited chatbot. The schedule is checked with the
// same rules as the create wizard.
func (h *ChatbotHandler) UpdateChatbot(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var bot models.Chatbot
	if err := c.ShouldBindJSON(&bot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := form.ValidateSchedule(bot.OperatingDays); err != nil {
		respondError(c, err)
		return
	}

	if err := h.Gateway.UpdateChatbot(c.Request.Context(), id, bot); err != nil {
		respondError(c, err)
		return
	}
	h.Cache.Invalidate(cache.KeyChatbots)

	c.JSON(http.StatusOK, gin.H{"message": "Chatbot updated successfully"})
}

func (h *ChatbotHandler) DeleteChatbot(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.Gateway.DeleteChatbot(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.DetachChatbot(ctx, id); err != nil {
		xlog.Warn("Failed to detach chatbot", "chatbot", id, "error", err)
	}
	h.Cache.Invalidate(cache.KeyChatbots)

	c.JSON(http.StatusOK, gin.H{"message": "Chatbot deleted successfully"})
}
