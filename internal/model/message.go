package model

import "time"

// MaxMessageLength is the maximum allowed length of a chat message body.
const MaxMessageLength = 5000

// ChatMessage represents a persisted chat message in a project room.
type ChatMessage struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Edited    bool      `json:"edited"`
	Deleted   bool      `json:"deleted"`
}

// ChatHistory is a page of chat messages, newest first.
type ChatHistory struct {
	Messages []*ChatMessage `json:"messages"`
	Count    int            `json:"count"`
	HasMore  bool           `json:"has_more"`
}

// ChatStats holds aggregate statistics for a project's chat.
type ChatStats struct {
	ProjectID     string `json:"project_id"`
	TotalMessages int    `json:"total_messages"`
	ActiveUsers   int    `json:"active_users"`
}
