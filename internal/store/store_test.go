package store

import (
	"context"
	"testing"
	"time"

	"agentai-console/internal/database"
	"agentai-console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return New(db)
}

func intPtr(v int) *int { return &v }

func TestRecordRun_WithCompositeAndSteps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	run := &models.SagaRun{
		ID:        "run-1",
		ModalID:   "m1",
		AgentName: "Support",
		Outcome:   models.OutcomeSucceeded,
		StartedAt: now,
		Steps: []models.SagaStep{
			{Seq: 2, Kind: "flow", Action: models.ActionCreate, ResourceID: 2, Success: true},
			{Seq: 1, Kind: "agent", Action: models.ActionCreate, ResourceID: 1, Success: true},
		},
	}
	composite := &models.CompositeAgent{AgentID: 1, RunID: "run-1", Name: "Support", FlowID: 2, ChatbotID: intPtr(4), ConnectionWAID: intPtr(3)}

	require.NoError(t, s.RecordRun(ctx, run, composite))

	runs, err := s.ListRuns(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Steps, 2)
	assert.Equal(t, "agent", runs[0].Steps[0].Kind)

	composites, err := s.ListComposites(ctx, 0)
	require.NoError(t, err)
	require.Len(t, composites, 1)
	assert.Equal(t, 4, *composites[0].ChatbotID)
}

func TestListRuns_FilterByOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, &models.SagaRun{ID: "a", Outcome: models.OutcomeFailed, FailedStage: "flow", StartedAt: time.Now()}, nil))
	require.NoError(t, s.RecordRun(ctx, &models.SagaRun{ID: "b", Outcome: models.OutcomeSucceeded, StartedAt: time.Now()}, nil))

	failed, err := s.ListRuns(ctx, 0, models.OutcomeFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "flow", failed[0].FailedStage)
}

func TestCompositeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, &models.SagaRun{ID: "r", Outcome: models.OutcomeSucceeded, StartedAt: time.Now()},
		&models.CompositeAgent{AgentID: 9, BusinessID: 2, Name: "old", FlowID: 1, ConnectionIgID: intPtr(5), ChatbotID: intPtr(6)}))

	require.NoError(t, s.RenameComposite(ctx, 9, "new"))
	require.NoError(t, s.DetachChatbot(ctx, 6))
	require.NoError(t, s.DetachConnection(ctx, "connection_ig_id", 5))
	assert.Error(t, s.DetachConnection(ctx, "name", 5))

	got, err := s.ListComposites(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Name)
	assert.Nil(t, got[0].ChatbotID)
	assert.Nil(t, got[0].ConnectionIgID)

	require.NoError(t, s.RemoveComposite(ctx, 9))
	got, err = s.ListComposites(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsertConnectionStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertConnectionStatus(ctx, 4, "connecting"))
	require.NoError(t, s.UpsertConnectionStatus(ctx, 4, "open"))
	require.NoError(t, s.UpsertConnectionStatus(ctx, 2, "close"))

	statuses, err := s.ListConnectionStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, 2, statuses[0].ConnectionID)
	assert.Equal(t, "open", statuses[1].Status)
}
