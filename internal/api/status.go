package api

import (
	"context"
	"encoding/json"

	"agentai-console/internal/realtime"
	"agentai-console/internal/store"
	"agentai-console/pkg/models"

	"github.com/mudler/xlog"
)

// WatchConnectionStatus stores every status-connection event and passes it
// on to notify, usually the browser hub.
func WatchConnectionStatus(ch realtime.Channel, st *store.Store, notify func(models.StatusConnection)) realtime.Subscription {
	return ch.Subscribe(models.EventStatus, func(data json.RawMessage) {
		var ev models.StatusConnection
		if err := json.Unmarshal(data, &ev); err != nil || ev.ConnectionID == 0 {
			xlog.Warn("Dropping malformed connection status", "data", string(data), "error", err)
			return
		}

		if err := st.UpsertConnectionStatus(context.Background(), ev.ConnectionID, ev.Connection); err != nil {
			xlog.Error("Failed to store connection status", "connection", ev.ConnectionID, "error", err)
		}
		if notify != nil {
			notify(ev)
		}
	})
}
