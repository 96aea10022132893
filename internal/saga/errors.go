package saga

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageAgent      Stage = "agent"
	StageFlow       Stage = "flow"
	StageConnection Stage = "connection"
	StageChatbot    Stage = "chatbot"
)

// Kind is the resource a step created.
type Kind string

const (
	KindAgent        Kind = "agent"
	KindFlow         Kind = "flow"
	KindConnectionWA Kind = "connection-wa"
	KindConnectionIg Kind = "connection-ig"
	KindChatbot      Kind = "chatbot"
)

var ErrRunInFlight = errors.New("a creation is already running for this modal")

// CompensationError is a cleanup delete that failed. It is kept for
// diagnostics only.
type CompensationError struct {
	Kind Kind  `json:"kind"`
	ID   int   `json:"id"`
	Err  error `json:"-"`
}

func (c CompensationError) Error() string {
	return fmt.Sprintf("delete %s %d: %v", c.Kind, c.ID, c.Err)
}

// Error is a failed run. Stage and Cause always describe the triggering
// failure, whatever happened during compensation.
type Error struct {
	RunID         string
	Stage         Stage
	Cause         error
	Compensations []CompensationError
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("create agent failed at %s: %v", e.Stage, e.Cause)
	if len(e.Compensations) > 0 {
		parts := make([]string, 0, len(e.Compensations))
		for _, c := range e.Compensations {
			parts = append(parts, c.Error())
		}
		msg += " (cleanup incomplete: " + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}
