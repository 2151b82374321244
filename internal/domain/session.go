package domain

import "time"

// SessionKey identifies a conversation with the agent.
type SessionKey struct {
	Source string `json:"source"` // "cli", "stdin", ...
	UserID string `json:"userId,omitempty"`
}

// String returns a canonical string form of the session key.
func (k SessionKey) String() string {
	if k.UserID == "" {
		return k.Source
	}
	return k.Source + ":" + k.UserID
}

// Session tracks one conversation between a user and the agent.
type Session struct {
	ID        string     `json:"id"`
	Key       SessionKey `json:"key"`
	AgentID   string     `json:"agentId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Messages  []Message  `json:"messages,omitempty"`
}

// Message is a single turn in a session's history.
type Message struct {
	Role      string    `json:"role"` // "user", "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
