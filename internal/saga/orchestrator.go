// Package saga assembles a composite AI agent from four independently
// addressable resources: agent, flow, connection and chatbot.
//
// The platform offers no transaction across them. Steps run strictly in
// order, each needing the id produced by the one before, and a failure
// deletes whatever this run already created, newest first.
package saga

import (
	"context"
	"strings"
	"time"

	"agentai-console/internal/cache"
	"agentai-console/internal/form"
	dbmodels "agentai-console/internal/models"
	"agentai-console/internal/schedule"
	"agentai-console/pkg/models"

	"github.com/google/uuid"
	"github.com/mudler/xlog"
)

// Gateway is the set of platform calls a run needs.
type Gateway interface {
	CreateAgent(ctx context.Context, agent models.Agent) (int, error)
	DeleteAgent(ctx context.Context, id int) error
	CreateFlow(ctx context.Context, flow models.Flow) (int, error)
	DeleteFlow(ctx context.Context, id int) error
	CreateConnectionWA(ctx context.Context, conn models.ConnectionWA) (int, error)
	DeleteConnectionWA(ctx context.Context, id int) error
	CreateConnectionIg(ctx context.Context, conn models.ConnectionIg) (int, error)
	DeleteConnectionIg(ctx context.Context, id int) error
	CreateChatbot(ctx context.Context, bot models.Chatbot) (int, error)
	DeleteChatbot(ctx context.Context, id int) error
}

// Journal records every run for diagnostics.
type Journal interface {
	RecordRun(ctx context.Context, run *dbmodels.SagaRun, composite *dbmodels.CompositeAgent) error
}

// FlowType is the flow type bound to AI agents.
const FlowType = "chatbot"

// Refs identifies the resources of an assembled composite agent.
type Refs struct {
	RunID            string `json:"runId"`
	AgentID          int    `json:"agentId"`
	FlowID           int    `json:"flowId"`
	ConnectionWAID   *int   `json:"connectionWAId,omitempty"`
	ConnectionIgID   *int   `json:"connectionIgId,omitempty"`
	ReusedConnection bool   `json:"reusedConnection"`
	ChatbotID        int    `json:"chatbotId"`
}

type Orchestrator struct {
	gw      Gateway
	cache   cache.Invalidator
	journal Journal
	now     func() time.Time
}

// New wires an orchestrator. cache and journal may be nil.
func New(gw Gateway, inv cache.Invalidator, journal Journal) *Orchestrator {
	return &Orchestrator{gw: gw, cache: inv, journal: journal, now: time.Now}
}

// Run creates agent, flow, connection and chatbot in that order. Invalid
// input returns a *form.ValidationError before any gateway call. A gateway
// failure returns a *Error after compensation.
func (o *Orchestrator) Run(ctx context.Context, in form.AgentCreationInput) (*Refs, error) {
	if err := form.Validate(in); err != nil {
		runsTotal.WithLabelValues("invalid", "").Inc()
		return nil, err
	}

	x := o.begin(in)
	refs := &Refs{RunID: x.record.ID}

	agentID, err := x.create(ctx, KindAgent, o.gw.DeleteAgent, func(ctx context.Context) (int, error) {
		return o.gw.CreateAgent(ctx, in.Agent())
	})
	if err != nil {
		return nil, x.fail(ctx, StageAgent, err)
	}
	refs.AgentID = agentID

	flowID, err := x.create(ctx, KindFlow, o.gw.DeleteFlow, func(ctx context.Context) (int, error) {
		return o.gw.CreateFlow(ctx, models.Flow{
			Name:        in.Name,
			Type:        FlowType,
			BusinessIDs: []int{in.BusinessID},
			AgentID:     agentID,
		})
	})
	if err != nil {
		return nil, x.fail(ctx, StageFlow, err)
	}
	refs.FlowID = flowID

	switch {
	case in.ConnectionWAID != nil:
		id := *in.ConnectionWAID
		refs.ConnectionWAID = &id
		refs.ReusedConnection = true
	case strings.TrimSpace(in.IgAccountID) != "":
		id, err := x.create(ctx, KindConnectionIg, o.gw.DeleteConnectionIg, func(ctx context.Context) (int, error) {
			return o.gw.CreateConnectionIg(ctx, in.ConnectionIg(agentID))
		})
		if err != nil {
			return nil, x.fail(ctx, StageConnection, err)
		}
		refs.ConnectionIgID = &id
	default:
		id, err := x.create(ctx, KindConnectionWA, o.gw.DeleteConnectionWA, func(ctx context.Context) (int, error) {
			return o.gw.CreateConnectionWA(ctx, in.ConnectionWA(agentID))
		})
		if err != nil {
			return nil, x.fail(ctx, StageConnection, err)
		}
		refs.ConnectionWAID = &id
	}

	chatbotID, err := x.create(ctx, KindChatbot, o.gw.DeleteChatbot, func(ctx context.Context) (int, error) {
		return o.gw.CreateChatbot(ctx, models.Chatbot{
			Name:            in.Name,
			BusinessID:      in.BusinessID,
			FlowID:          flowID,
			ConnectionWAID:  refs.ConnectionWAID,
			ConnectionIgID:  refs.ConnectionIgID,
			AgentID:         agentID,
			Status:          true,
			OperatingDays:   schedule.Normalize(in.OperatingDays),
			FallbackMessage: in.FallbackMessage,
		})
	})
	if err != nil {
		return nil, x.fail(ctx, StageChatbot, err)
	}
	refs.ChatbotID = chatbotID

	x.succeed(ctx, refs)
	return refs, nil
}

// step is a created resource and the delete that undoes it.
type step struct {
	kind Kind
	id   int
	del  func(ctx context.Context, id int) error
}

type execution struct {
	o      *Orchestrator
	in     form.AgentCreationInput
	record *dbmodels.SagaRun
	done   []step
}

func (o *Orchestrator) begin(in form.AgentCreationInput) *execution {
	return &execution{
		o:  o,
		in: in,
		record: &dbmodels.SagaRun{
			ID:         uuid.NewString(),
			ModalID:    in.ModalID,
			BusinessID: in.BusinessID,
			AgentName:  in.Name,
			StartedAt:  o.now(),
		},
	}
}

func (x *execution) create(ctx context.Context, kind Kind, del func(context.Context, int) error, call func(context.Context) (int, error)) (int, error) {
	id, err := call(ctx)
	x.log(kind, dbmodels.ActionCreate, id, err)
	if err != nil {
		return 0, err
	}
	x.done = append(x.done, step{kind: kind, id: id, del: del})
	return id, nil
}

func (x *execution) log(kind Kind, action string, id int, err error) {
	s := dbmodels.SagaStep{
		RunID:      x.record.ID,
		Seq:        len(x.record.Steps) + 1,
		Kind:       string(kind),
		Action:     action,
		ResourceID: id,
		Success:    err == nil,
	}
	if err != nil {
		s.ErrorMessage = err.Error()
	}
	x.record.Steps = append(x.record.Steps, s)
}

// compensate deletes created resources newest first. Each delete is tried
// once; the request's cancellation does not stop cleanup.
func (x *execution) compensate(ctx context.Context) []CompensationError {
	ctx = context.WithoutCancel(ctx)

	var failed []CompensationError
	for i := len(x.done) - 1; i >= 0; i-- {
		s := x.done[i]
		err := s.del(ctx, s.id)
		x.log(s.kind, dbmodels.ActionCompensate, s.id, err)
		if err != nil {
			compensationsTotal.WithLabelValues(string(s.kind), "failed").Inc()
			xlog.Warn("Compensating delete failed", "run", x.record.ID, "kind", s.kind, "id", s.id, "error", err)
			failed = append(failed, CompensationError{Kind: s.kind, ID: s.id, Err: err})
			continue
		}
		compensationsTotal.WithLabelValues(string(s.kind), "deleted").Inc()
	}
	x.done = nil
	return failed
}

func (x *execution) fail(ctx context.Context, stage Stage, cause error) error {
	compensations := x.compensate(ctx)
	sagaErr := &Error{RunID: x.record.ID, Stage: stage, Cause: cause, Compensations: compensations}

	x.record.Outcome = dbmodels.OutcomeFailed
	x.record.FailedStage = string(stage)
	x.record.ErrorMessage = cause.Error()
	x.finish(ctx, nil)

	runsTotal.WithLabelValues(dbmodels.OutcomeFailed, string(stage)).Inc()
	xlog.Error("Agent creation failed", "run", x.record.ID, "stage", stage, "error", cause, "cleanup_failures", len(compensations))
	return sagaErr
}

func (x *execution) succeed(ctx context.Context, refs *Refs) {
	x.record.Outcome = dbmodels.OutcomeSucceeded
	x.finish(ctx, &dbmodels.CompositeAgent{
		AgentID:          refs.AgentID,
		RunID:            refs.RunID,
		BusinessID:       x.in.BusinessID,
		Name:             x.in.Name,
		FlowID:           refs.FlowID,
		ConnectionWAID:   refs.ConnectionWAID,
		ConnectionIgID:   refs.ConnectionIgID,
		ReusedConnection: refs.ReusedConnection,
		ChatbotID:        &refs.ChatbotID,
	})

	if x.o.cache != nil {
		keys := []cache.Key{cache.KeyAgents, cache.KeyFlows, cache.KeyChatbots}
		switch {
		case refs.ConnectionIgID != nil:
			keys = append(keys, cache.KeyConnectionsIg)
		case !refs.ReusedConnection:
			keys = append(keys, cache.KeyConnectionsWA)
		}
		x.o.cache.Invalidate(keys...)
	}

	runsTotal.WithLabelValues(dbmodels.OutcomeSucceeded, "").Inc()
	xlog.Info("Agent created", "run", x.record.ID, "agent", refs.AgentID, "chatbot", refs.ChatbotID)
}

func (x *execution) finish(ctx context.Context, composite *dbmodels.CompositeAgent) {
	x.record.FinishedAt = x.o.now()
	elapsed := x.record.FinishedAt.Sub(x.record.StartedAt)
	x.record.DurationMillis = elapsed.Milliseconds()
	runDuration.WithLabelValues(x.record.Outcome).Observe(elapsed.Seconds())

	if x.o.journal == nil {
		return
	}
	if err := x.o.journal.RecordRun(context.WithoutCancel(ctx), x.record, composite); err != nil {
		xlog.Warn("Failed to record saga run", "run", x.record.ID, "error", err)
	}
}
