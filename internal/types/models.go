// internal/types/models.go
package types

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn entry in a conversation. Content may embed
// markup (superscript citation markers, location lines).
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRecord is the persisted form of a Message in the transcript log.
type ChatRecord struct {
	Seq     int64     `json:"seq"`
	TurnID  TurnID    `json:"turn_id,omitempty"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// SessionIndex is the persisted metadata for one conversation.
type SessionIndex struct {
	SessionID  SessionID  `json:"session_id"`
	SessionKey SessionKey `json:"session_key"`
	Agent      string     `json:"agent"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastTurnID TurnID     `json:"last_turn_id,omitempty"`
}

// InboundPrompt is a user prompt arriving from one of the chat surfaces.
type InboundPrompt struct {
	Source     string     `json:"source"`
	SessionKey SessionKey `json:"session_key"`
	UserID     string     `json:"user_id"`
	Text       string     `json:"text"`
}
