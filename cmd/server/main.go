package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentai-console/internal/api"
	"agentai-console/internal/cache"
	"agentai-console/internal/config"
	"agentai-console/internal/database"
	"agentai-console/internal/gateway"
	"agentai-console/internal/realtime"
	"agentai-console/internal/saga"
	"agentai-console/internal/store"
	"agentai-console/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()
	db := database.InitGorm(cfg)
	st := store.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gatewayClient := gateway.NewClient(cfg)

	var channel realtime.Channel
	if cfg.RealtimeURL != "" {
		client := realtime.NewClient(cfg.RealtimeURL, cfg.APIToken)
		go client.Run(ctx)
		channel = client
	} else {
		xlog.Warn("REALTIME_URL not set, live test replies will not arrive")
		channel = realtime.NewBus()
	}

	hub := ws.NewHub(channel, gatewayClient)
	go hub.Run()

	notifier := cache.NewNotifier(hub)
	statusSub := api.WatchConnectionStatus(channel, st, hub.NotifyStatus)
	defer statusSub.Unsubscribe()

	orchestrator := saga.New(gatewayClient, notifier, st)

	limiter := api.NewRateLimiter(rate.Every(time.Second/10), 20)
	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	r := gin.Default()
	r.Use(api.CORS())

	api.RegisterRoutes(r, api.Handlers{
		Agents:      api.NewAgentHandler(orchestrator, saga.NewGuard(), gatewayClient, st, notifier),
		Chatbots:    api.NewChatbotHandler(gatewayClient, st, notifier),
		Connections: api.NewConnectionHandler(gatewayClient, st, notifier),
		Schedule:    api.NewScheduleHandler(),
		Cache:       api.NewCacheHandler(notifier),
		Limiter:     limiter,
		WS:          hub.ServeWs,
		Metrics:     promhttp.Handler(),
	})

	xlog.Info("Server starting", "port", cfg.Port, "api", cfg.APIBaseURL)
	if err := r.Run(":" + cfg.Port); err != nil {
		xlog.Error("Failed to run server", "error", err)
		os.Exit(1)
	}
}
