package api

import (
	"net/http"

	"agentai-console/internal/form"
	"agentai-console/internal/gateway"
	"agentai-console/internal/saga"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// respondError writes err with the status and body shape the console
// expects. Field errors always carry the wizard tab to jump to.
func respondError(c *gin.Context, err error) {
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": verr.Fields,
			"tab":    verr.Tab,
		})
		return
	}

	if errors.Is(err, saga.ErrRunInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"error": err.Error()}
	var sagaErr *saga.Error
	if errors.As(err, &sagaErr) {
		body["error"] = sagaErr.Cause.Error()
		body["stage"] = sagaErr.Stage
		body["runId"] = sagaErr.RunID
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		fields, toasts := form.MapServerError(apiErr.Payload)
		body["fields"] = fields
		body["toasts"] = toasts
		if tab := form.FieldsTab(fields); tab != "" {
			body["tab"] = tab
		}
		c.JSON(upstreamStatus(apiErr.Status), body)
		return
	}

	if sagaErr != nil {
		c.JSON(http.StatusBadGateway, body)
		return
	}
	c.JSON(http.StatusInternalServerError, body)
}

// upstreamStatus passes client errors through. Anything else from the
// platform is a bad gateway from the browser's point of view.
func upstreamStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}
