package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"agentai-console/internal/cache"
	"agentai-console/internal/form"
	"agentai-console/internal/saga"
	"agentai-console/internal/store"
	"agentai-console/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
	"github.com/pkg/errors"
)

// Gateway is the platform API used by the handlers.
type Gateway interface {
	saga.Gateway
	UpdateAgent(ctx context.Context, id int, agent models.Agent) error
	UpdateChatbot(ctx context.Context, id int, bot models.Chatbot) error
}

// maxImageSize caps the profile picture accepted with a create request.
const maxImageSize = 5 << 20

type AgentHandler struct {
	Saga    *saga.Orchestrator
	Guard   *saga.Guard
	Gateway Gateway
	Store   *store.Store
	Cache   cache.Invalidator
}

func NewAgentHandler(orchestrator *saga.Orchestrator, guard *saga.Guard, gw Gateway, st *store.Store, inv cache.Invalidator) *AgentHandler {
	return &AgentHandler{Saga: orchestrator, Guard: guard, Gateway: gw, Store: st, Cache: inv}
}

// CreateAgent assembles agent, flow, connection and chatbot in one request.
// It accepts JSON, or multipart with the JSON in "payload" and an optional
// "profileImage" file.
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	in, err := bindCreation(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	release, err := h.Guard.Acquire(in.ModalID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer release()

	refs, err := h.Saga.Run(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, refs)
}

func bindCreation(c *gin.Context) (form.AgentCreationInput, error) {
	var in form.AgentCreationInput
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		err := c.ShouldBindJSON(&in)
		return in, err
	}

	if err := json.Unmarshal([]byte(c.PostForm("payload")), &in); err != nil {
		return in, errors.Wrap(err, "invalid payload")
	}

	file, header, err := c.Request.FormFile("profileImage")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, errors.Wrap(err, "invalid profile image")
	}
	defer file.Close()

	if header.Size > maxImageSize {
		return in, errors.Errorf("profile image exceeds %d bytes", maxImageSize)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return in, errors.Wrap(err, "read profile image")
	}
	in.ProfileImage = &models.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return in, nil
}

// UpdateAgent edits the agent resource only.
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var in form.AgentCreationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := form.ValidateAgent(in); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.Gateway.UpdateAgent(ctx, id, in.Agent()); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.RenameComposite(ctx, id, in.Name); err != nil {
		xlog.Warn("Failed to rename composite agent", "agent", id, "error", err)
	}
	h.Cache.Invalidate(cache.KeyAgents)

	c.JSON(http.StatusOK, gin.H{"message": "Agent updated successfully"})
}

func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.Gateway.DeleteAgent(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.RemoveComposite(ctx, id); err != nil {
		xlog.Warn("Failed to remove composite agent", "agent", id, "error", err)
	}
	h.Cache.Invalidate(cache.KeyAgents)

	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted successfully"})
}

// GetRuns returns the creation journal, newest first.
func (h *AgentHandler) GetRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.Store.ListRuns(c.Request.Context(), limit, c.Query("outcome"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// GetComposites lists assembled agents, optionally for one business.
func (h *AgentHandler) GetComposites(c *gin.Context) {
	businessID, _ := strconv.Atoi(c.Query("businessId"))

	composites, err := h.Store.ListComposites(c.Request.Context(), businessID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, composites)
}

func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}
