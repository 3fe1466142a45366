// Package delivery routes processed assistant replies back to the chat
// surface a session key belongs to.
package delivery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/bedrockchat/internal/types"
)

// Handler delivers a reply to the conversation identified by key.
type Handler func(key types.SessionKey, reply string) error

// Registry routes replies to the appropriate surface handler based on
// session key prefix (e.g. "telegram:", "http:").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for session keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler matching the session key prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Deliver(key types.SessionKey, reply string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(string(key), prefix) {
			return handler(key, reply)
		}
	}
	return fmt.Errorf("no delivery handler for session key: %s", key)
}
