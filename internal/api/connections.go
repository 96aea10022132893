package api

import (
	"context"
	"net/http"

	"agentai-console/internal/cache"
	"agentai-console/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
)

type ConnectionHandler struct {
	Gateway Gateway
	Store   *store.Store
	Cache   cache.Invalidator
}

func NewConnectionHandler(gw Gateway, st *store.Store, inv cache.Invalidator) *ConnectionHandler {
	return &ConnectionHandler{Gateway: gw, Store: st, Cache: inv}
}

func (h *ConnectionHandler) DeleteConnectionWA(c *gin.Context) {
	h.deleteConnection(c, h.Gateway.DeleteConnectionWA, "connection_wa_id", cache.KeyConnectionsWA)
}

func (h *ConnectionHandler) DeleteConnectionIg(c *gin.Context) {
	h.deleteConnection(c, h.Gateway.DeleteConnectionIg, "connection_ig_id", cache.KeyConnectionsIg)
}

func (h *ConnectionHandler) deleteConnection(c *gin.Context, del func(context.Context, int) error, column string, key cache.Key) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := del(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.DetachConnection(ctx, column, id); err != nil {
		xlog.Warn("Failed to detach connection", "connection", id, "error", err)
	}
	h.Cache.Invalidate(key, cache.KeyChatbots)

	c.JSON(http.StatusOK, gin.H{"message": "Connection deleted successfully"})
}

// GetStatuses returns the last known state of every WhatsApp connection.
func (h *ConnectionHandler) GetStatuses(c *gin.Context) {
	statuses, err := h.Store.ListConnectionStatuses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, statuses)
}
