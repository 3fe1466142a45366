// internal/state/session.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/bedrockchat/internal/types"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// SessionStore is a JSON-file-backed session index. It stores index data
// in sessions/sessions.json and creates per-session directories at
// sessions/<sessionID>/.
type SessionStore struct {
	root string
	mu   sync.RWMutex
}

// NewSessionStore creates a new file-backed SessionStore rooted at the given directory.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{root: root}
}

func (s *SessionStore) indexPath() string {
	return filepath.Join(s.root, "sessions", "sessions.json")
}

func (s *SessionStore) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *SessionStore) sessionDir(id types.SessionID) string {
	return filepath.Join(s.root, "sessions", string(id))
}

// loadIndex reads sessions.json and returns every session keyed by id.
// The active session per key is tracked separately since archived
// entries keep their key.
func (s *SessionStore) loadIndex() ([]*types.SessionIndex, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session index: %w", err)
	}

	var sessions []*types.SessionIndex
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("unmarshal session index: %w", err)
	}
	return sessions, nil
}

// saveIndex marshals with indentation and writes atomically.
func (s *SessionStore) saveIndex(sessions []*types.SessionIndex) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session index: %w", err)
	}

	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, s.indexPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp index: %w", err)
	}
	return nil
}

func (s *SessionStore) create(sessions []*types.SessionIndex, key types.SessionKey, agent string) (types.SessionID, []*types.SessionIndex, error) {
	now := time.Now()
	id := types.NewSessionID()
	sessions = append(sessions, &types.SessionIndex{
		SessionID:  id,
		SessionKey: key,
		Agent:      agent,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	})

	if err := os.MkdirAll(s.sessionDir(id), 0o755); err != nil {
		return "", nil, fmt.Errorf("create session dir: %w", err)
	}
	return id, sessions, nil
}

// ResolveOrCreate returns the active SessionID for the given key,
// creating a new session if the key has none.
func (s *SessionStore) ResolveOrCreate(_ context.Context, key types.SessionKey, agent string) (types.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadIndex()
	if err != nil {
		return "", err
	}

	for _, sess := range sessions {
		if sess.SessionKey == key && sess.Status == StatusActive {
			return sess.SessionID, nil
		}
	}

	id, sessions, err := s.create(sessions, key, agent)
	if err != nil {
		return "", err
	}
	return id, s.saveIndex(sessions)
}

// Replace archives the key's active session (if any) and mints a fresh
// one. This is the persistence side of a session reset.
func (s *SessionStore) Replace(_ context.Context, key types.SessionKey, agent string) (types.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadIndex()
	if err != nil {
		return "", err
	}

	for _, sess := range sessions {
		if sess.SessionKey == key && sess.Status == StatusActive {
			sess.Status = StatusArchived
			sess.UpdatedAt = time.Now()
		}
	}

	id, sessions, err := s.create(sessions, key, agent)
	if err != nil {
		return "", err
	}
	return id, s.saveIndex(sessions)
}

// Get returns the session with the given ID.
func (s *SessionStore) Get(_ context.Context, id types.SessionID) (*types.SessionIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	for _, sess := range sessions {
		if sess.SessionID == id {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session not found: %s", id)
}

// List returns all sessions, archived included.
func (s *SessionStore) List(_ context.Context) ([]*types.SessionIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadIndex()
}

// Update persists changes to the given session, setting UpdatedAt to now.
func (s *SessionStore) Update(_ context.Context, session *types.SessionIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadIndex()
	if err != nil {
		return err
	}

	for i, sess := range sessions {
		if sess.SessionID == session.SessionID {
			session.UpdatedAt = time.Now()
			sessions[i] = session
			return s.saveIndex(sessions)
		}
	}
	return fmt.Errorf("session not found: %s", session.SessionID)
}
