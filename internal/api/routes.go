package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything RegisterRoutes mounts. WS and Metrics may be nil.
type Handlers struct {
	Agents      *AgentHandler
	Chatbots    *ChatbotHandler
	Connections *ConnectionHandler
	Schedule    *ScheduleHandler
	Cache       *CacheHandler
	Limiter     *RateLimiter
	WS          http.HandlerFunc
	Metrics     http.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	if h.WS != nil {
		r.GET("/ws", gin.WrapF(h.WS))
	}
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	apiGroup := r.Group("/api")
	if h.Limiter != nil {
		apiGroup.Use(h.Limiter.Middleware())
	}
	{
		// Agent Routes
		apiGroup.POST("/agents-ai", h.Agents.CreateAgent)
		apiGroup.PUT("/agents-ai/:id", h.Agents.UpdateAgent)
		apiGroup.DELETE("/agents-ai/:id", h.Agents.DeleteAgent)
		apiGroup.GET("/agents-ai/runs", h.Agents.GetRuns)
		apiGroup.GET("/agents-ai/composites", h.Agents.GetComposites)

		// Chatbot Routes
		apiGroup.PUT("/chatbots/:id", h.Chatbots.UpdateChatbot)
		apiGroup.DELETE("/chatbots/:id", h.Chatbots.DeleteChatbot)

		// Connection Routes
		apiGroup.DELETE("/connections-wa/:id", h.Connections.DeleteConnectionWA)
		apiGroup.DELETE("/connections-ig/:id", h.Connections.DeleteConnectionIg)
		apiGroup.GET("/connections/status", h.Connections.GetStatuses)

		apiGroup.GET("/cache/versions", h.Cache.GetVersions)
		apiGroup.POST("/schedule/edit", h.Schedule.EditSchedule)
	}
}
