// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Druva"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Assistant messages are created empty and grow as streamed fragments are
// folded in; Content is always the full accumulated text, never a delta.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// NewMessage creates a new message with a generated ID and current timestamp.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: NowMillis(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new empty assistant message, the placeholder
// a generation session fills.
func NewAssistantMessage() *Message {
	return NewMessage(RoleAssistant, "")
}

// Clone returns an independent copy of the message.
func (m *Message) Clone() *Message {
	clone := *m
	return &clone
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.Content == ""
}

// Time returns the timestamp as a time.Time.
func (m *Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// NowMillis returns the current time in milliseconds since epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
