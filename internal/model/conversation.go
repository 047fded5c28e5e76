// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"

	"github.com/morganforge/druva-tui/internal/util"
)

// DefaultTitle is the placeholder title before the first user message.
const DefaultTitle = "New Chat"

// TitleMaxRunes is the rune budget for a derived conversation title.
const TitleMaxRunes = 40

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a titled, ordered sequence of messages.
type Conversation struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Messages []*Message `json:"messages"`
}

// NewConversation creates a new empty conversation with a generated ID and
// the default placeholder title.
func NewConversation() *Conversation {
	return &Conversation{
		ID:       "chat-" + uuid.New().String(),
		Title:    DefaultTitle,
		Messages: make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE ACCESS
// =============================================================================

// IndexOf returns the index of the message with the given ID, or -1.
func (c *Conversation) IndexOf(messageID string) int {
	for i, msg := range c.Messages {
		if msg.ID == messageID {
			return i
		}
	}
	return -1
}

// MessageByID returns the message with the given ID, or nil.
func (c *Conversation) MessageByID(messageID string) *Message {
	if i := c.IndexOf(messageID); i >= 0 {
		return c.Messages[i]
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// TitleFromContent derives a conversation title from the first user message:
// the first 40 runes, with "..." appended iff the content is longer. The
// title is set once and never recomputed afterwards.
func TitleFromContent(content string) string {
	return util.TruncateRunes(util.CollapseWhitespace(content), TitleMaxRunes, "...")
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Clone returns a deep copy of the conversation. Readers get clones so no
// caller aliases the store's live state.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:       c.ID,
		Title:    c.Title,
		Messages: make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return clone
}
