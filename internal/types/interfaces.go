// internal/types/interfaces.go
package types

import "context"

type SessionStore interface {
	ResolveOrCreate(ctx context.Context, key SessionKey, agent string) (SessionID, error)
	Get(ctx context.Context, id SessionID) (*SessionIndex, error)
	List(ctx context.Context) ([]*SessionIndex, error)
	Update(ctx context.Context, session *SessionIndex) error
	Replace(ctx context.Context, key SessionKey, agent string) (SessionID, error)
}

type TranscriptStore interface {
	Append(ctx context.Context, sessionID SessionID, rec *ChatRecord) error
	Tail(ctx context.Context, sessionID SessionID, limit int) ([]*ChatRecord, error)
	Count(ctx context.Context, sessionID SessionID) (int64, error)
}
