// Package session holds the live state of one conversation: message
// history, the most recent citations, and the most recent step-grouped
// trace.
package session

import (
	"errors"
	"sync"

	"github.com/user/bedrockchat/internal/respond"
	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/internal/types"
	"github.com/user/bedrockchat/pkg/agent"
)

// ErrStaleResponse is returned when an agent response arrives for an
// epoch that a reset has since invalidated. The response is discarded
// rather than applied to the fresh session.
var ErrStaleResponse = errors.New("agent response belongs to a reset session epoch")

// Session is the state container for one conversation. Messages are
// append-only; citations and trace are wholesale-replaced by each
// assistant response. A Session starts Empty and becomes Active on
// Initialize; all mutation goes through the named transitions below.
//
// A Session is owned by a single conversation context. The gateway
// serializes turns per session; the mutex only covers reads from other
// goroutines (surfaces rendering trace or history mid-turn).
type Session struct {
	mu        sync.Mutex
	id        types.SessionID
	messages  []types.Message
	citations []agent.Citation
	trace     *trace.Summary
	epoch     uint64
	active    bool
}

// New returns a Session in the Empty state.
func New() *Session {
	return &Session{}
}

// Initialize transitions to a fresh Active state: new session id, no
// messages, no citations, no trace. Safe to call from any state, any
// number of times; it is the only way to reach a fresh Active state and
// it invalidates any in-flight turn by advancing the epoch.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = types.NewSessionID()
	s.messages = nil
	s.citations = nil
	s.trace = nil
	s.epoch++
	s.active = true
}

// ActivateWithID is Initialize for callers that persist session ids: it
// transitions to a fresh Active state bound to the given id instead of
// minting one. Same clearing and epoch semantics as Initialize.
func (s *Session) ActivateWithID(id types.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	s.messages = nil
	s.citations = nil
	s.trace = nil
	s.epoch++
	s.active = true
}

// EnsureActive initializes the session the first time it is observed
// uninitialized.
func (s *Session) EnsureActive() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		s.Initialize()
	}
}

// ID returns the current session id, or "" while Empty.
func (s *Session) ID() types.SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Epoch returns the current epoch. Callers capture it when submitting a
// prompt and hand it back to ApplyAgentResponse.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Messages returns a copy of the message history in chronological order.
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Citations returns the citations of the most recent assistant response.
func (s *Session) Citations() []agent.Citation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agent.Citation, len(s.citations))
	copy(out, s.citations)
	return out
}

// Trace returns the step-grouped trace of the most recent assistant
// response, or nil when no response has arrived yet.
func (s *Session) Trace() *trace.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}

// SubmitUserMessage appends the user's message immediately, before the
// agent call resolves, and returns the epoch the eventual response must
// present to ApplyAgentResponse.
func (s *Session) SubmitUserMessage(text string) uint64 {
	s.EnsureActive()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, types.Message{Role: types.RoleUser, Content: text})
	return s.epoch
}

// ApplyAgentResponse post-processes an agent response (envelope unwrap,
// citation injection, trace aggregation), appends the assistant message,
// and replaces citations and trace wholesale. The processed display text
// is returned. A response carrying a stale epoch is rejected with
// ErrStaleResponse and leaves the session untouched.
func (s *Session) ApplyAgentResponse(epoch uint64, resp *agent.Response) (string, error) {
	text, _ := respond.TryUnwrapEnvelope(resp.OutputText)
	text = respond.InjectCitations(text, resp.Citations)
	summary := trace.Aggregate(resp.Trace)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return "", ErrStaleResponse
	}

	s.messages = append(s.messages, types.Message{Role: types.RoleAssistant, Content: text})
	s.citations = resp.Citations
	s.trace = summary
	return text, nil
}
