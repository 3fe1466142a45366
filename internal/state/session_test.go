// internal/state/session_test.go
package state

import (
	"context"
	"testing"

	"github.com/user/bedrockchat/internal/types"
)

func TestSessionStore(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir)
	ctx := context.Background()

	key := types.NewSessionKey("test", "123")
	id, err := store.ResolveOrCreate(ctx, key, "travel-agent")
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Error("expected non-empty session ID")
	}

	session, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if session.SessionKey != key {
		t.Errorf("expected key %s, got %s", key, session.SessionKey)
	}
	if session.Status != StatusActive {
		t.Errorf("expected active status, got %s", session.Status)
	}

	// Resolving the same key again returns the same session.
	id2, err := store.ResolveOrCreate(ctx, key, "travel-agent")
	if err != nil {
		t.Fatal(err)
	}
	if id != id2 {
		t.Error("expected same session ID for same key")
	}
}

func TestSessionStoreReplace(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir)
	ctx := context.Background()

	key := types.NewSessionKey("telegram", "42", "42")
	first, err := store.ResolveOrCreate(ctx, key, "travel-agent")
	if err != nil {
		t.Fatal(err)
	}

	second, err := store.Replace(ctx, key, "travel-agent")
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("Replace must mint a new session id")
	}

	// The old session is archived, the new one is what the key resolves to.
	old, err := store.Get(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if old.Status != StatusArchived {
		t.Errorf("expected archived status, got %s", old.Status)
	}

	resolved, err := store.ResolveOrCreate(ctx, key, "travel-agent")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != second {
		t.Errorf("key should resolve to the replacement session, got %s", resolved)
	}
}

func TestSessionStoreUpdate(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir)
	ctx := context.Background()

	id, err := store.ResolveOrCreate(ctx, types.NewSessionKey("http", "abc"), "travel-agent")
	if err != nil {
		t.Fatal(err)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	sess.Status = StatusArchived
	if err := store.Update(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusArchived {
		t.Errorf("update not persisted: %+v", got)
	}
}
