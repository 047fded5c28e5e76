// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewMessageHasIdentity(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.ID == "" {
		t.Error("expected non-empty ID")
	}
	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Timestamp == 0 {
		t.Error("expected non-zero timestamp")
	}

	other := NewUserMessage("hello")
	if other.ID == msg.ID {
		t.Error("two messages share an ID")
	}
}

func TestNewAssistantMessageStartsEmpty(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsEmpty() {
		t.Errorf("assistant placeholder content = %q, want empty", msg.Content)
	}
	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want %q", msg.Role, RoleAssistant)
	}
}

func TestTitleFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short", "hi", "hi"},
		{"exactly forty", strings.Repeat("x", 40), strings.Repeat("x", 40)},
		{"forty five", strings.Repeat("x", 45), strings.Repeat("x", 40) + "..."},
		{"newlines collapsed", "line one\nline two", "line one line two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleFromContent(tt.content); got != tt.want {
				t.Errorf("TitleFromContent(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestConversationIndexOf(t *testing.T) {
	conv := NewConversation()
	a := NewUserMessage("A")
	b := NewAssistantMessage()
	conv.Messages = append(conv.Messages, a, b)

	if got := conv.IndexOf(b.ID); got != 1 {
		t.Errorf("IndexOf = %d, want 1", got)
	}
	if got := conv.IndexOf("missing"); got != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", got)
	}
	if conv.MessageByID(a.ID) != a {
		t.Error("MessageByID returned wrong message")
	}
	if conv.MessageByID("missing") != nil {
		t.Error("MessageByID(missing) should be nil")
	}
}

func TestConversationCloneIsDeep(t *testing.T) {
	conv := NewConversation()
	conv.Messages = append(conv.Messages, NewUserMessage("original"))

	clone := conv.Clone()
	clone.Title = "changed"
	clone.Messages[0].Content = "mutated"

	if conv.Title == "changed" {
		t.Error("clone shares Title with original")
	}
	if conv.Messages[0].Content != "original" {
		t.Error("clone shares messages with original")
	}
}

func TestConversationJSONRoundTrip(t *testing.T) {
	conv := NewConversation()
	conv.Messages = append(conv.Messages, NewUserMessage("hello"))
	conv.Title = TitleFromContent("hello")

	data, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// The persisted format uses the field names the web client wrote.
	for _, key := range []string{`"id"`, `"title"`, `"messages"`, `"role"`, `"content"`, `"timestamp"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized conversation missing %s: %s", key, data)
		}
	}

	var decoded Conversation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Messages[0].Content != "hello" {
		t.Errorf("round-trip content = %q", decoded.Messages[0].Content)
	}
}
