// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/morganforge/druva-tui/internal/engine"
	"github.com/morganforge/druva-tui/internal/groq"
	"github.com/morganforge/druva-tui/internal/model"
	"github.com/morganforge/druva-tui/internal/storage"
	"github.com/morganforge/druva-tui/internal/store"
	"github.com/morganforge/druva-tui/internal/ui/styles"
)

type stubStream struct{}

func (stubStream) Recv() (string, error) { return "", io.EOF }
func (stubStream) Close()                {}

type stubClient struct{}

func (stubClient) OpenStream(context.Context, []groq.ChatMessage, string) groq.Stream {
	return stubStream{}
}

func newTestModel(t *testing.T) Model {
	t.Helper()

	kv, err := storage.NewFileKVWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("creating kv backend: %v", err)
	}
	st := store.New(kv)
	eng := engine.New(st, stubClient{}, 0)
	return New(st, eng, styles.NewTheme("dark"))
}

func TestSelectNextConversationCycles(t *testing.T) {
	m := newTestModel(t)
	first := m.store.ActiveID()
	second := m.store.NewConversation()

	m.selectNextConversation()
	if m.store.ActiveID() != first {
		t.Errorf("active = %q, want %q", m.store.ActiveID(), first)
	}

	m.selectNextConversation()
	if m.store.ActiveID() != second.ID {
		t.Errorf("active = %q, want %q after wrapping", m.store.ActiveID(), second.ID)
	}
}

func TestBeginEditLoadsLastUserMessage(t *testing.T) {
	m := newTestModel(t)
	id := m.store.ActiveID()
	m.store.AppendMessage(id, model.NewUserMessage("first question"))
	m.store.AppendMessage(id, model.NewMessage(model.RoleAssistant, "answer"))

	m.beginEditLastUserMessage()

	if m.editingID == "" {
		t.Fatal("editingID not set")
	}
	if got := m.textarea.Value(); got != "first question" {
		t.Errorf("textarea = %q, want the user message content", got)
	}
}

func TestRenderConversationShowsRoleLabels(t *testing.T) {
	m := newTestModel(t)
	m.width = 80
	id := m.store.ActiveID()
	m.store.AppendMessage(id, model.NewUserMessage("hello there"))
	m.store.AppendMessage(id, model.NewMessage(model.RoleAssistant, "hi"))

	out := m.renderConversation(m.store.Active())
	if !strings.Contains(out, "You") {
		t.Error("output missing user label")
	}
	if !strings.Contains(out, "Druva") {
		t.Error("output missing assistant label")
	}
	if !strings.Contains(out, "hello there") {
		t.Error("output missing message content")
	}
}

func TestRenderEmptyConversationShowsHint(t *testing.T) {
	m := newTestModel(t)
	m.width = 80

	out := m.renderConversation(m.store.Active())
	if !strings.Contains(out, "Start a new conversation") {
		t.Error("empty conversation should show the hint")
	}
}

func TestContentWidthHasFloor(t *testing.T) {
	if got := contentWidth(10); got != 20 {
		t.Errorf("contentWidth(10) = %d, want floor of 20", got)
	}
	if got := contentWidth(100); got != 94 {
		t.Errorf("contentWidth(100) = %d, want 94", got)
	}
}
