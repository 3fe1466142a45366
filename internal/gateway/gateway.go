// Package gateway orchestrates inbound prompts into agent turns: it
// resolves sessions, serializes turns per session, invokes the agent,
// and applies the post-processed response to live session state.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/bedrockchat/internal/budget"
	"github.com/user/bedrockchat/internal/session"
	"github.com/user/bedrockchat/internal/types"
	"github.com/user/bedrockchat/pkg/agent"
)

// Config identifies the remote agent every turn is submitted to.
type Config struct {
	AgentID      string
	AgentAliasID string
	AgentName    string
}

// Gateway wires inbound prompts through the queue to the agent provider
// and back out through per-turn callbacks.
type Gateway struct {
	cfg         Config
	sessions    types.SessionStore
	transcripts types.TranscriptStore
	provider    agent.Provider
	guard       *budget.Guard
	Queue       *Queue
	retry       *RetryPolicy

	mu   sync.Mutex
	live map[types.SessionID]*session.Session
}

// New creates a Gateway wired to the provided stores and agent provider
// with the given concurrency limit for simultaneous turn processing.
// guard may be nil to disable the prompt budget check.
func New(cfg Config, sessions types.SessionStore, transcripts types.TranscriptStore, provider agent.Provider, guard *budget.Guard, maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	g := &Gateway{
		cfg:         cfg,
		sessions:    sessions,
		transcripts: transcripts,
		provider:    provider,
		guard:       guard,
		Queue:       NewQueue(maxConcurrent),
		retry:       DefaultRetryPolicy(),
		live:        make(map[types.SessionID]*session.Session),
	}
	g.Queue.SetProcessor(g.processTurn)
	return g
}

// Start initialises the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.Queue.Start(ctx)
}

// Stop stops the queue and waits for outstanding turns to finish.
func (g *Gateway) Stop() {
	g.Queue.Stop()
}

// TurnOption configures optional behavior on a Turn.
type TurnOption func(*Turn)

// WithOnComplete sets a callback invoked with the processed display text
// when the turn succeeds.
func WithOnComplete(fn func(string)) TurnOption {
	return func(t *Turn) { t.OnComplete = fn }
}

// WithOnError sets a callback invoked when the turn fails.
func WithOnError(fn func(error)) TurnOption {
	return func(t *Turn) { t.OnError = fn }
}

// resolve returns the persistent session id and live session state for a
// key, creating both on first contact.
func (g *Gateway) resolve(ctx context.Context, key types.SessionKey) (types.SessionID, *session.Session, error) {
	id, err := g.sessions.ResolveOrCreate(ctx, key, g.cfg.AgentName)
	if err != nil {
		return "", nil, fmt.Errorf("resolve session: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.live[id]
	if !ok {
		sess = session.New()
		sess.ActivateWithID(id)
		g.live[id] = sess
	}
	return id, sess, nil
}

// Session returns the live session state for a key, creating a fresh
// session on first contact.
func (g *Gateway) Session(ctx context.Context, key types.SessionKey) (*session.Session, error) {
	_, sess, err := g.resolve(ctx, key)
	return sess, err
}

// Reset archives the key's persisted session, mints a fresh one, and
// reinitializes the live state. Any in-flight turn for the old session
// becomes stale and its late response is discarded.
func (g *Gateway) Reset(ctx context.Context, key types.SessionKey) error {
	oldID, sess, err := g.resolve(ctx, key)
	if err != nil {
		return err
	}

	newID, err := g.sessions.Replace(ctx, key, g.cfg.AgentName)
	if err != nil {
		return fmt.Errorf("replace session: %w", err)
	}

	sess.ActivateWithID(newID)

	g.mu.Lock()
	delete(g.live, oldID)
	g.live[newID] = sess
	g.mu.Unlock()
	return nil
}

// DropLive discards the in-memory state for a session id. Used when the
// idle sweeper archives a session so a later prompt on the same key
// starts from a clean slate.
func (g *Gateway) DropLive(id types.SessionID) {
	g.mu.Lock()
	delete(g.live, id)
	g.mu.Unlock()
}

// HandleInbound appends the user's message to the live session
// immediately — surfaces can render the user's turn without waiting —
// and enqueues the agent turn for processing.
func (g *Gateway) HandleInbound(ctx context.Context, prompt *types.InboundPrompt, opts ...TurnOption) error {
	id, sess, err := g.resolve(ctx, prompt.SessionKey)
	if err != nil {
		return err
	}

	epoch := sess.SubmitUserMessage(prompt.Text)
	turn := NewTurn(id, prompt, epoch)
	for _, opt := range opts {
		opt(turn)
	}
	return g.Queue.Enqueue(turn)
}

// processTurn runs one queued turn: persist the user message, invoke the
// agent (transport errors retried), apply the post-processed response to
// the session, and persist the assistant message. Errors are fatal for
// the turn only; prior history is never touched.
func (g *Gateway) processTurn(turn *Turn) error {
	ctx := turn.Ctx
	turn.Status = TurnStatusRunning

	g.mu.Lock()
	sess, ok := g.live[turn.SessionID]
	g.mu.Unlock()
	if !ok {
		turn.Status = TurnStatusFailed
		return fmt.Errorf("no live session: %s", turn.SessionID)
	}

	userRec := &types.ChatRecord{
		TurnID:  turn.ID,
		Role:    types.RoleUser,
		Content: turn.Prompt.Text,
		At:      time.Now(),
	}
	if err := g.transcripts.Append(ctx, turn.SessionID, userRec); err != nil {
		slog.Warn("persist user message failed", "session_id", turn.SessionID, "error", err)
	}

	if g.guard != nil {
		if err := g.guard.Check(turn.Prompt.Text); err != nil {
			turn.Status = TurnStatusFailed
			return err
		}
	}

	var resp *agent.Response
	err := g.retry.Execute(func() error {
		r, err := g.provider.InvokeAgent(ctx, g.cfg.AgentID, g.cfg.AgentAliasID, string(turn.SessionID), turn.Prompt.Text)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		turn.Status = TurnStatusFailed
		return fmt.Errorf("invoke agent: %w", err)
	}

	text, err := sess.ApplyAgentResponse(turn.Epoch, resp)
	if err != nil {
		if errors.Is(err, session.ErrStaleResponse) {
			// The session was reset while the call was in flight; the
			// late response is discarded, not an error.
			slog.Info("discarding stale agent response", "turn_id", turn.ID, "session_id", turn.SessionID)
			turn.Status = TurnStatusFailed
			return nil
		}
		turn.Status = TurnStatusFailed
		return err
	}

	assistantRec := &types.ChatRecord{
		TurnID:  turn.ID,
		Role:    types.RoleAssistant,
		Content: text,
		At:      time.Now(),
	}
	if err := g.transcripts.Append(ctx, turn.SessionID, assistantRec); err != nil {
		slog.Warn("persist assistant message failed", "session_id", turn.SessionID, "error", err)
	}

	if idx, err := g.sessions.Get(ctx, turn.SessionID); err == nil {
		idx.LastTurnID = turn.ID
		if err := g.sessions.Update(ctx, idx); err != nil {
			slog.Warn("update session index failed", "session_id", turn.SessionID, "error", err)
		}
	}

	turn.Status = TurnStatusComplete
	if turn.OnComplete != nil {
		turn.OnComplete(text)
	}
	return nil
}
