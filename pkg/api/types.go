package api

import "time"

// StatusResponse is the daemon liveness report from GET /api/status
type StatusResponse struct {
	Status        string  `json:"status"`
	PID           int     `json:"pid"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Channel describes one conversation context the agent participates in.
// Owned by the daemon's channel registry; the dashboard holds a read-only
// copy refreshed periodically.
type Channel struct {
	AgentID        string    `json:"agent_id"`
	ID             string    `json:"id"`
	Platform       string    `json:"platform"`
	DisplayName    *string   `json:"display_name"`
	IsActive       bool      `json:"is_active"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChannelsResponse wraps GET /api/channels
type ChannelsResponse struct {
	Channels []Channel `json:"channels"`
}

// Message is one persisted row of a channel's durable log. Immutable.
type Message struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	SenderName *string   `json:"sender_name"`
	SenderID   *string   `json:"sender_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessagesResponse wraps GET /api/channels/messages
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
