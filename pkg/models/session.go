package models

import "time"

// SessionStatus represents the current state of a chat session.
type SessionStatus string

const (
	StatusConnected    SessionStatus = "CONNECTED"
	StatusDisconnected SessionStatus = "DISCONNECTED"
)

// PendingOutput is a message produced while the client was disconnected,
// queued for delivery on the next reattach.
type PendingOutput struct {
	Origin    string    `json:"origin"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo is the admin-facing view of one chat session.
type SessionInfo struct {
	ID          string        `json:"id"`
	Status      SessionStatus `json:"status"`
	Busy        bool          `json:"busy"`
	Automation  bool          `json:"automationLive"`
	PendingMsgs int           `json:"pendingMessages"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastSeenAt  time.Time     `json:"lastSeenAt"`
}

// ChatMessage is one frame on the websocket chat channel.
type ChatMessage struct {
	Origin    string    `json:"origin"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
