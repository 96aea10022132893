package api

import (
	"net/http"

	"agentai-console/internal/cache"

	"github.com/gin-gonic/gin"
)

type CacheHandler struct {
	Notifier *cache.Notifier
}

func NewCacheHandler(n *cache.Notifier) *CacheHandler {
	return &CacheHandler{Notifier: n}
}

// GetVersions lets a reconnecting browser catch up on missed invalidations.
func (h *CacheHandler) GetVersions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Notifier.Versions())
}
