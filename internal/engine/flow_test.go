// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morganforge/druva-tui/internal/model"
	"github.com/morganforge/druva-tui/internal/storage"
	"github.com/morganforge/druva-tui/internal/store"
)

// TestConversationFlow walks one conversation through send, edit, and
// regenerate, checking the store after each step and that the whole history
// survives a reload from disk.
func TestConversationFlow(t *testing.T) {
	dir := t.TempDir()
	kv, err := storage.NewFileKVWithDir(dir)
	require.NoError(t, err)

	st := store.New(kv)
	client := &fakeClient{scripts: []*fakeStream{
		{fragments: []string{"The answer ", "is 4."}},
		{fragments: []string{"Still 4."}},
		{fragments: []string{"It is 6."}},
	}}
	e := New(st, client, 0)

	// Send.
	done, err := e.Send("what is 2+2?")
	require.NoError(t, err)
	require.Equal(t, StateCompleted, awaitState(t, done))

	conv := st.Active()
	require.Equal(t, "what is 2+2?", conv.Title)
	require.Len(t, conv.Messages, 2)
	require.Equal(t, "The answer is 4.", conv.Messages[1].Content)

	// Regenerate replaces the answer without growing the history.
	done, err = e.Regenerate(conv.Messages[1].ID)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, awaitState(t, done))

	conv = st.Active()
	require.Len(t, conv.Messages, 2)
	require.Equal(t, "Still 4.", conv.Messages[1].Content)

	// Edit rewrites the question; the old answer is gone.
	done, err = e.EditAndResubmit(conv.Messages[0].ID, "what is 2+4?")
	require.NoError(t, err)
	require.Equal(t, StateCompleted, awaitState(t, done))

	conv = st.Active()
	require.Len(t, conv.Messages, 2)
	require.Equal(t, "what is 2+4?", conv.Messages[0].Content)
	require.Equal(t, "It is 6.", conv.Messages[1].Content)

	// The title still reflects the first send, not the edit.
	require.Equal(t, "what is 2+2?", conv.Title)

	// Everything survives a fresh load from the same backend.
	reloadedKV, err := storage.NewFileKVWithDir(dir)
	require.NoError(t, err)
	reloaded := store.New(reloadedKV)

	got := reloaded.Active()
	require.Equal(t, conv.ID, got.ID)
	require.Len(t, got.Messages, 2)
	require.Equal(t, model.RoleAssistant, got.Messages[1].Role)
	require.Equal(t, "It is 6.", got.Messages[1].Content)
}
