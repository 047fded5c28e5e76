// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/druva-tui/internal/engine"
	"github.com/morganforge/druva-tui/internal/export"
	"github.com/morganforge/druva-tui/internal/model"
)

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.renderer = newRenderer(contentWidth(m.width), m.theme.IsDark)
		m.refreshViewport(true)

	case storeChangedMsg:
		// Streaming folds land here too; keep following the tail while a
		// generation is live.
		m.refreshViewport(m.engine.Generating())
		cmds = append(cmds, waitForChange(m.changes))

	case genFinishedMsg:
		switch msg.state {
		case engine.StateCancelled:
			m.status = "Stopped."
		case engine.StateFailed:
			m.status = "Generation failed."
		default:
			m.status = ""
		}
		m.refreshViewport(true)

	case spinner.TickMsg:
		if m.engine.Generating() {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey dispatches a key press.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.engine.Generating() {
			m.engine.Stop()
		} else if m.editingID != "" {
			m.editingID = ""
			m.textarea.Reset()
			m.status = ""
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		m.textarea.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.store.NewConversation()
		m.editingID = ""
		m.textarea.Reset()
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		m.selectNextConversation()
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		m.store.Delete(m.store.ActiveID())
		m.editingID = ""
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keys.Regenerate):
		if last := m.store.Active().LastMessage(); last != nil {
			done, err := m.engine.Regenerate(last.ID)
			if err == nil && done != nil {
				m.status = ""
				cmds = append(cmds, waitForDone(done), m.spin.Tick)
			}
		}
		return m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.Edit):
		m.beginEditLastUserMessage()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		conv := m.store.Active()
		if path, err := export.Markdown(conv, nil); err != nil {
			m.status = fmt.Sprintf("Export failed: %v", err)
		} else {
			m.status = "Exported to " + path
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit sends the textarea content through the engine. While an edit is in
// progress the edit path is used instead of a fresh send.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.textarea.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	var (
		done <-chan engine.State
		err  error
	)
	if m.editingID != "" {
		done, err = m.engine.EditAndResubmit(m.editingID, text)
		m.editingID = ""
	} else {
		done, err = m.engine.Send(text)
	}

	m.textarea.Reset()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	if done == nil {
		// Identical edit; nothing to stream.
		return m, nil
	}
	return m, tea.Batch(waitForDone(done), m.spin.Tick)
}

// beginEditLastUserMessage loads the last user message into the input.
func (m *Model) beginEditLastUserMessage() {
	conv := m.store.Active()
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleUser {
			m.editingID = conv.Messages[i].ID
			m.textarea.SetValue(conv.Messages[i].Content)
			m.textarea.CursorEnd()
			m.status = ""
			return
		}
	}
}

// selectNextConversation cycles to the conversation after the active one.
func (m *Model) selectNextConversation() {
	convs := m.store.Conversations()
	if len(convs) < 2 {
		return
	}
	active := m.store.ActiveID()
	for i, c := range convs {
		if c.ID == active {
			m.store.Select(convs[(i+1)%len(convs)].ID)
			return
		}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// contentWidth leaves room for bubble borders and padding.
func contentWidth(width int) int {
	w := width - 6
	if w < 20 {
		w = 20
	}
	return w
}

// layout sizes the viewport and textarea to the window. Header and status
// bar take one line each.
func (m *Model) layout() {
	inputHeight := m.textarea.Height() + 1
	viewportHeight := m.height - inputHeight - 2
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = viewportHeight
	}
	m.textarea.SetWidth(m.width - 2)
}

// refreshViewport re-renders the active conversation. With follow set the
// view sticks to the newest message.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation(m.store.Active()))
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}
