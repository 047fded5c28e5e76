// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/morganforge/druva-tui/internal/model"
	"github.com/morganforge/druva-tui/internal/storage"
)

func newTestKV(t *testing.T, dir string) storage.KV {
	t.Helper()
	kv, err := storage.NewFileKVWithDir(dir)
	if err != nil {
		t.Fatalf("creating kv backend: %v", err)
	}
	return kv
}

func newTestStore(t *testing.T) (*Store, storage.KV) {
	t.Helper()
	kv := newTestKV(t, t.TempDir())
	return New(kv), kv
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func TestNewStoreStartsWithOneConversation(t *testing.T) {
	s, _ := newTestStore(t)

	convs := s.Conversations()
	if len(convs) != 1 {
		t.Fatalf("conversation count = %d, want 1", len(convs))
	}
	if !convs[0].IsEmpty() {
		t.Error("initial conversation should be empty")
	}
	if convs[0].Title != model.DefaultTitle {
		t.Errorf("title = %q, want %q", convs[0].Title, model.DefaultTitle)
	}
	if s.ActiveID() != convs[0].ID {
		t.Error("initial conversation should be active")
	}
}

func TestNewStoreRecoversFromCorruptState(t *testing.T) {
	kv := newTestKV(t, t.TempDir())
	if err := kv.Set(storage.KeyConversations, []byte("{not json")); err != nil {
		t.Fatalf("seeding corrupt state: %v", err)
	}

	s := New(kv)
	if got := len(s.Conversations()); got != 1 {
		t.Fatalf("conversation count = %d, want 1", got)
	}
}

func TestNewStoreRestoresSavedState(t *testing.T) {
	dir := t.TempDir()

	first := New(newTestKV(t, dir))
	second := first.NewConversation()
	if err := first.AppendMessage(second.ID, model.NewUserMessage("persist me")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	reloaded := New(newTestKV(t, dir))
	convs := reloaded.Conversations()
	if len(convs) != 2 {
		t.Fatalf("conversation count = %d, want 2", len(convs))
	}
	if reloaded.ActiveID() != second.ID {
		t.Errorf("active = %q, want %q", reloaded.ActiveID(), second.ID)
	}
	active := reloaded.Active()
	if len(active.Messages) != 1 || active.Messages[0].Content != "persist me" {
		t.Errorf("restored messages = %+v", active.Messages)
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestNewConversationGoesToFrontAndActivates(t *testing.T) {
	s, _ := newTestStore(t)
	first := s.Active()

	second := s.NewConversation()

	convs := s.Conversations()
	if convs[0].ID != second.ID || convs[1].ID != first.ID {
		t.Error("new conversation should be at the front of the list")
	}
	if s.ActiveID() != second.ID {
		t.Error("new conversation should be active")
	}
}

func TestSelectUnknownConversation(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Select("chat-missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestDeleteActiveConversationActivatesFront(t *testing.T) {
	s, _ := newTestStore(t)
	first := s.Active()
	second := s.NewConversation()

	if err := s.Delete(second.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.ActiveID() != first.ID {
		t.Errorf("active = %q, want %q", s.ActiveID(), first.ID)
	}
}

func TestDeleteLastConversationCreatesFresh(t *testing.T) {
	s, _ := newTestStore(t)
	original := s.Active()

	if err := s.Delete(original.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	convs := s.Conversations()
	if len(convs) != 1 {
		t.Fatalf("conversation count = %d, want 1", len(convs))
	}
	if convs[0].ID == original.ID {
		t.Error("replacement conversation should have a new id")
	}
	if !convs[0].IsEmpty() {
		t.Error("replacement conversation should be empty")
	}
	if s.ActiveID() != convs[0].ID {
		t.Error("replacement conversation should be active")
	}
}

func TestDeleteLastConversationRewritesKeys(t *testing.T) {
	s, kv := newTestStore(t)
	if err := s.Delete(s.ActiveID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The replacement conversation persists immediately; the keys must
	// describe it, not the deleted one.
	raw, err := kv.Get(storage.KeyConversations)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var convs []*model.Conversation
	if err := json.Unmarshal(raw, &convs); err != nil {
		t.Fatalf("persisted payload unreadable: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != s.ActiveID() {
		t.Errorf("persisted state does not match the live store")
	}
}

// =============================================================================
// MESSAGES AND TITLES
// =============================================================================

func TestAppendFirstUserMessageSetsTitle(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.ActiveID()

	if err := s.AppendMessage(id, model.NewUserMessage("hi")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if got := s.Active().Title; got != "hi" {
		t.Errorf("title = %q, want %q", got, "hi")
	}
}

func TestAppendLongFirstMessageTruncatesTitle(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.ActiveID()

	content := strings.Repeat("x", 45)
	if err := s.AppendMessage(id, model.NewUserMessage(content)); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	want := strings.Repeat("x", 40) + "..."
	if got := s.Active().Title; got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
}

func TestTitleNotRecomputedAfterFirstMessage(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.ActiveID()

	s.AppendMessage(id, model.NewUserMessage("first"))
	s.AppendMessage(id, model.NewAssistantMessage())
	s.AppendMessage(id, model.NewUserMessage("second"))

	if got := s.Active().Title; got != "first" {
		t.Errorf("title = %q, want %q", got, "first")
	}
}

func TestUpdateMessageContentReplacesWholesale(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.ActiveID()

	msg := model.NewAssistantMessage()
	s.AppendMessage(id, msg)

	for _, accumulated := range []string{"He", "Hello"} {
		if err := s.UpdateMessageContent(id, msg.ID, accumulated); err != nil {
			t.Fatalf("UpdateMessageContent failed: %v", err)
		}
	}

	if got := s.Active().Messages[0].Content; got != "Hello" {
		t.Errorf("content = %q, want %q", got, "Hello")
	}
}

func TestTruncateAfterKeepsTarget(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.ActiveID()

	msgs := []*model.Message{
		model.NewUserMessage("A"),
		model.NewMessage(model.RoleAssistant, "B"),
		model.NewUserMessage("C"),
		model.NewMessage(model.RoleAssistant, "D"),
	}
	for _, m := range msgs {
		s.AppendMessage(id, m)
	}

	if err := s.TruncateAfter(id, msgs[2].ID); err != nil {
		t.Fatalf("TruncateAfter failed: %v", err)
	}

	got := s.Active().Messages
	if len(got) != 3 || got[2].Content != "C" {
		t.Errorf("messages after truncate = %d, want 3 ending in C", len(got))
	}
}

// =============================================================================
// ISOLATION AND NOTIFICATION
// =============================================================================

func TestReadsAreIsolatedFromMutation(t *testing.T) {
	s, _ := newTestStore(t)
	id := s.ActiveID()
	s.AppendMessage(id, model.NewUserMessage("original"))

	snapshot := s.Active()
	snapshot.Messages[0].Content = "tampered"

	if got := s.Active().Messages[0].Content; got != "original" {
		t.Errorf("store content = %q after mutating a snapshot", got)
	}
}

func TestSubscribeSignalsOnMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ch := s.Subscribe()

	s.AppendMessage(s.ActiveID(), model.NewUserMessage("ping"))

	select {
	case <-ch:
	default:
		t.Error("expected a change signal after AppendMessage")
	}
}

func TestTrimEqual(t *testing.T) {
	if !TrimEqual("  hello ", "hello") {
		t.Error("whitespace-only difference should compare equal")
	}
	if TrimEqual("hello", "hello!") {
		t.Error("different content should not compare equal")
	}
}
