package saga

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"agentai-console/internal/cache"
	"agentai-console/internal/form"
	dbmodels "agentai-console/internal/models"
	"agentai-console/pkg/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway hands out ids in call order and records every call.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []string
	nextID  int
	failOn  map[string]error
	flows   []models.Flow
	chatbot *models.Chatbot
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 100, failOn: map[string]error{}}
}

func (g *fakeGateway) create(name string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "create "+name)
	if err := g.failOn["create "+name]; err != nil {
		return 0, err
	}
	g.nextID++
	return g.nextID, nil
}

func (g *fakeGateway) remove(name string, id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, fmt.Sprintf("delete %s %d", name, id))
	return g.failOn["delete "+name]
}

func (g *fakeGateway) CreateAgent(_ context.Context, _ models.Agent) (int, error) {
	return g.create("agent")
}
func (g *fakeGateway) DeleteAgent(_ context.Context, id int) error { return g.remove("agent", id) }
func (g *fakeGateway) CreateFlow(_ context.Context, f models.Flow) (int, error) {
	g.flows = append(g.flows, f)
	return g.create("flow")
}
func (g *fakeGateway) DeleteFlow(_ context.Context, id int) error { return g.remove("flow", id) }
func (g *fakeGateway) CreateConnectionWA(_ context.Context, _ models.ConnectionWA) (int, error) {
	return g.create("connection-wa")
}
func (g *fakeGateway) DeleteConnectionWA(_ context.Context, id int) error {
	return g.remove("connection-wa", id)
}
func (g *fakeGateway) CreateConnectionIg(_ context.Context, _ models.ConnectionIg) (int, error) {
	return g.create("connection-ig")
}
func (g *fakeGateway) DeleteConnectionIg(_ context.Context, id int) error {
	return g.remove("connection-ig", id)
}
func (g *fakeGateway) CreateChatbot(_ context.Context, bot models.Chatbot) (int, error) {
	g.chatbot = &bot
	return g.create("chatbot")
}
func (g *fakeGateway) DeleteChatbot(_ context.Context, id int) error { return g.remove("chatbot", id) }

type recordingInvalidator struct{ keys []cache.Key }

func (r *recordingInvalidator) Invalidate(keys ...cache.Key) { r.keys = append(r.keys, keys...) }

type memoryJournal struct {
	runs       []*dbmodels.SagaRun
	composites []*dbmodels.CompositeAgent
}

func (j *memoryJournal) RecordRun(_ context.Context, run *dbmodels.SagaRun, c *dbmodels.CompositeAgent) error {
	j.runs = append(j.runs, run)
	if c != nil {
		j.composites = append(j.composites, c)
	}
	return nil
}

func intPtr(v int) *int { return &v }

func validInput() form.AgentCreationInput {
	return form.AgentCreationInput{
		ModalID:              "modal-1",
		BusinessID:           7,
		Name:                 "Support bot",
		ProviderCredentialID: intPtr(3),
		Model:                "gpt-4o-mini",
		ConnectionName:       "Support line",
		OperatingDays: []models.OperatingDay{
			{DayOfWeek: 1, WorkingTimes: []models.WorkingTime{{Start: "08:00", End: "12:00"}, {Start: "14:00", End: "18:00"}}},
			{DayOfWeek: 3, WorkingTimes: nil},
		},
	}
}

func TestRun_CreatesInOrder(t *testing.T) {
	gw := newFakeGateway()
	inv := &recordingInvalidator{}
	journal := &memoryJournal{}

	refs, err := New(gw, inv, journal).Run(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, []string{"create agent", "create flow", "create connection-wa", "create chatbot"}, gw.calls)
	assert.Equal(t, 101, refs.AgentID)
	assert.Equal(t, 102, refs.FlowID)
	assert.Equal(t, 103, *refs.ConnectionWAID)
	assert.Equal(t, 104, refs.ChatbotID)
	assert.False(t, refs.ReusedConnection)

	require.Len(t, gw.flows, 1)
	assert.Equal(t, models.Flow{Name: "Support bot", Type: FlowType, BusinessIDs: []int{7}, AgentID: 101}, gw.flows[0])

	require.NotNil(t, gw.chatbot)
	assert.True(t, gw.chatbot.Status)
	assert.Equal(t, 102, gw.chatbot.FlowID)
	require.Len(t, gw.chatbot.OperatingDays, 2)
	assert.Len(t, gw.chatbot.OperatingDays[0].WorkingTimes, 2)
	assert.NotNil(t, gw.chatbot.OperatingDays[1].WorkingTimes)

	assert.ElementsMatch(t, []cache.Key{cache.KeyAgents, cache.KeyFlows, cache.KeyChatbots, cache.KeyConnectionsWA}, inv.keys)

	require.Len(t, journal.runs, 1)
	assert.Equal(t, dbmodels.OutcomeSucceeded, journal.runs[0].Outcome)
	assert.Len(t, journal.runs[0].Steps, 4)
	require.Len(t, journal.composites, 1)
	assert.Equal(t, 101, journal.composites[0].AgentID)
}

func TestRun_InvalidInputMakesNoCalls(t *testing.T) {
	gw := newFakeGateway()
	journal := &memoryJournal{}
	in := validInput()
	in.Model = ""

	refs, err := New(gw, nil, journal).Run(context.Background(), in)
	assert.Nil(t, refs)

	var verr *form.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "model")
	assert.Empty(t, gw.calls)
	assert.Empty(t, journal.runs)
}

func TestRun_CompensatesInReverseOrder(t *testing.T) {
	tests := []struct {
		name    string
		failOn  string
		stage   Stage
		wantLog []string
	}{
		{
			name:    "agent",
			failOn:  "create agent",
			stage:   StageAgent,
			wantLog: []string{"create agent"},
		},
		{
			name:    "flow",
			failOn:  "create flow",
			stage:   StageFlow,
			wantLog: []string{"create agent", "create flow", "delete agent 101"},
		},
		{
			name:    "connection",
			failOn:  "create connection-wa",
			stage:   StageConnection,
			wantLog: []string{"create agent", "create flow", "create connection-wa", "delete flow 102", "delete agent 101"},
		},
		{
			name:   "chatbot",
			failOn: "create chatbot",
			stage:  StageChatbot,
			wantLog: []string{
				"create agent", "create flow", "create connection-wa", "create chatbot",
				"delete connection-wa 103", "delete flow 102", "delete agent 101",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			cause := errors.New("upstream rejected")
			gw.failOn[tt.failOn] = cause
			inv := &recordingInvalidator{}
			journal := &memoryJournal{}

			refs, err := New(gw, inv, journal).Run(context.Background(), validInput())
			assert.Nil(t, refs)

			var sagaErr *Error
			require.True(t, errors.As(err, &sagaErr))
			assert.Equal(t, tt.stage, sagaErr.Stage)
			assert.Equal(t, cause, sagaErr.Cause)
			assert.Empty(t, sagaErr.Compensations)
			assert.Equal(t, tt.wantLog, gw.calls)

			assert.Empty(t, inv.keys)
			require.Len(t, journal.runs, 1)
			assert.Equal(t, dbmodels.OutcomeFailed, journal.runs[0].Outcome)
			assert.Equal(t, string(tt.stage), journal.runs[0].FailedStage)
			assert.Empty(t, journal.composites)
		})
	}
}

func TestRun_ReusedConnectionIsNeverDeleted(t *testing.T) {
	gw := newFakeGateway()
	gw.failOn["create chatbot"] = errors.New("boom")
	in := validInput()
	in.ConnectionName = ""
	in.ConnectionWAID = intPtr(55)

	_, err := New(gw, nil, nil).Run(context.Background(), in)
	require.Error(t, err)

	assert.Equal(t, []string{
		"create agent", "create flow", "create chatbot",
		"delete flow 102", "delete agent 101",
	}, gw.calls)
}

func TestRun_ReusedConnectionSucceeds(t *testing.T) {
	gw := newFakeGateway()
	inv := &recordingInvalidator{}
	in := validInput()
	in.ConnectionName = ""
	in.ConnectionWAID = intPtr(55)

	refs, err := New(gw, inv, nil).Run(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, refs.ReusedConnection)
	assert.Equal(t, 55, *refs.ConnectionWAID)
	assert.Equal(t, 55, *gw.chatbot.ConnectionWAID)
	assert.NotContains(t, inv.keys, cache.KeyConnectionsWA)
}

func TestRun_InstagramConnection(t *testing.T) {
	gw := newFakeGateway()
	gw.failOn["create chatbot"] = errors.New("boom")
	in := validInput()
	in.ConnectionName = ""
	in.IgAccountID = "17890"

	_, err := New(gw, nil, nil).Run(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, []string{
		"create agent", "create flow", "create connection-ig", "create chatbot",
		"delete connection-ig 103", "delete flow 102", "delete agent 101",
	}, gw.calls)
}

func TestRun_CompensationFailureKeepsTriggeringCause(t *testing.T) {
	gw := newFakeGateway()
	cause := errors.New("chatbot limit reached")
	gw.failOn["create chatbot"] = cause
	gw.failOn["delete flow"] = errors.New("flow delete timed out")

	_, err := New(gw, nil, nil).Run(context.Background(), validInput())

	var sagaErr *Error
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, StageChatbot, sagaErr.Stage)
	assert.True(t, errors.Is(err, cause))
	require.Len(t, sagaErr.Compensations, 1)
	assert.Equal(t, KindFlow, sagaErr.Compensations[0].Kind)
	assert.Equal(t, 102, sagaErr.Compensations[0].ID)
	assert.Contains(t, err.Error(), "cleanup incomplete")

	// remaining deletes still ran after the failed one
	assert.Contains(t, gw.calls, "delete agent 101")
}

func TestRun_CompensatesAfterCancel(t *testing.T) {
	gw := newFakeGateway()
	ctx, cancel := context.WithCancel(context.Background())
	gw.failOn["create flow"] = context.Canceled
	cancel()

	_, err := New(gw, nil, nil).Run(ctx, validInput())
	require.Error(t, err)
	assert.Contains(t, gw.calls, "delete agent 101")
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	release, err := g.Acquire("m1")
	require.NoError(t, err)

	_, err = g.Acquire("m1")
	assert.ErrorIs(t, err, ErrRunInFlight)

	other, err := g.Acquire("m2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := g.Acquire("m1")
	require.NoError(t, err)
	again()

	free, err := g.Acquire("")
	require.NoError(t, err)
	free()
}
