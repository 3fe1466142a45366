package gateway

import (
	"context"
	"time"

	"github.com/user/bedrockchat/internal/types"
)

// TurnStatus represents the lifecycle state of a Turn.
type TurnStatus string

const (
	TurnStatusQueued   TurnStatus = "queued"
	TurnStatusRunning  TurnStatus = "running"
	TurnStatusComplete TurnStatus = "complete"
	TurnStatusFailed   TurnStatus = "failed"
)

// Turn tracks a single prompt/response exchange against a session.
// Epoch is the session epoch captured when the user message was
// appended; a reset during the agent call makes it stale.
type Turn struct {
	ID         types.TurnID
	SessionID  types.SessionID
	Prompt     *types.InboundPrompt
	Epoch      uint64
	Status     TurnStatus
	CreatedAt  time.Time
	Ctx        context.Context
	OnComplete func(response string)
	OnError    func(err error)
}

// NewTurn creates a Turn in the Queued state for the given session and prompt.
func NewTurn(sessionID types.SessionID, prompt *types.InboundPrompt, epoch uint64) *Turn {
	return &Turn{
		ID:        types.NewTurnID(),
		SessionID: sessionID,
		Prompt:    prompt,
		Epoch:     epoch,
		Status:    TurnStatusQueued,
		CreatedAt: time.Now(),
	}
}
