package api

import (
	"net/http"

	"agentai-console/internal/schedule"
	"agentai-console/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Schedule editor operations.
const (
	OpAddDay            = "addDay"
	OpRemoveDay         = "removeDay"
	OpAddWorkingTime    = "addWorkingTime"
	OpRemoveWorkingTime = "removeWorkingTime"
	OpSetWorkingTime    = "setWorkingTime"
)

var errUnknownOp = errors.New("unknown schedule operation")

type ScheduleHandler struct{}

func NewScheduleHandler() *ScheduleHandler {
	return &ScheduleHandler{}
}

type scheduleEdit struct {
	Op            string                `json:"op" binding:"required"`
	OperatingDays []models.OperatingDay `json:"operatingDays"`
	DayOfWeek     int                   `json:"dayOfWeek"`
	Index         int                   `json:"index"`
	Start         string                `json:"start"`
	End           string                `json:"end"`
}

// EditSchedule applies one editor operation and returns the resulting
// schedule together with any problems it still has.
func (h *ScheduleHandler) EditSchedule(c *gin.Context) {
	var req scheduleEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	days, err := applyEdit(req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	days = schedule.Normalize(days)

	problems := map[string]string{}
	for _, p := range schedule.Validate(days) {
		problems[p.Path] = p.Message
	}

	c.JSON(http.StatusOK, gin.H{
		"operatingDays": days,
		"availableDays": schedule.AvailableDays(days),
		"fields":        problems,
	})
}

func applyEdit(req scheduleEdit) ([]models.OperatingDay, error) {
	days := req.OperatingDays
	switch req.Op {
	case OpAddDay:
		return schedule.AddDay(days, req.DayOfWeek)
	case OpRemoveDay:
		return schedule.RemoveDay(days, req.DayOfWeek), nil
	case OpAddWorkingTime:
		return schedule.AddWorkingTime(days, req.DayOfWeek)
	case OpRemoveWorkingTime:
		return schedule.RemoveWorkingTime(days, req.DayOfWeek, req.Index)
	case OpSetWorkingTime:
		return schedule.SetWorkingTime(days, req.DayOfWeek, req.Index, req.Start, req.End)
	default:
		return nil, errors.Wrap(errUnknownOp, req.Op)
	}
}
