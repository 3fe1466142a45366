package agent

import "context"

// Provider is implemented by agent-runtime backends. InvokeAgent submits
// one user prompt for the given session and blocks until the agent's
// final response. Transport and service errors are returned as-is; they
// are fatal for the turn.
type Provider interface {
	InvokeAgent(ctx context.Context, agentID, agentAliasID, sessionID, prompt string) (*Response, error)
}
